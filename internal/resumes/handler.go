package resumes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resumaid/internal/shared/server/middleware"
	"resumaid/internal/shared/server/respond"
)

// Handler serves the resume list.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches list routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/resumes", h.list)
}

func (h *Handler) list(c *gin.Context) {
	cards, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list resumes", nil)
		return
	}
	if cards == nil {
		cards = []Card{}
	}
	respond.OK(c, gin.H{"items": cards})
}
