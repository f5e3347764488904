package maintenance

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resumaid/internal/shared/server/middleware"
	"resumaid/internal/shared/server/respond"
)

// Handler exposes maintenance over HTTP.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches maintenance routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/maintenance/files", h.files)
	rg.POST("/maintenance/wipe", h.wipe)
}

func (h *Handler) files(c *gin.Context) {
	files, err := h.Svc.ListFiles(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list files", nil)
		return
	}
	respond.OK(c, gin.H{"items": files})
}

func (h *Handler) wipe(c *gin.Context) {
	res, err := h.Svc.Wipe(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to wipe data", res)
		return
	}
	respond.OK(c, res)
}
