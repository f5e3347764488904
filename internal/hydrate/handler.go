package hydrate

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"resumaid/internal/artifacts"
	"resumaid/internal/resumes"
	"resumaid/internal/shared/server/middleware"
	"resumaid/internal/shared/server/respond"
)

// ViewHeader names the client's view scope.
const ViewHeader = "X-View-Id"

// Handler serves hydrated resume views.
type Handler struct {
	Loader *Loader
}

// NewHandler constructs a Handler.
func NewHandler(l *Loader) *Handler {
	return &Handler{Loader: l}
}

// RegisterRoutes attaches the detail route to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/resumes/:id", h.get)
}

func (h *Handler) get(c *gin.Context) {
	owner := middleware.UserIDFromContext(c)
	id := strings.TrimSpace(c.Param("id"))
	viewID := viewIDFromRequest(c)
	c.Set(middleware.ResumeIDKey, id)
	c.Set(middleware.ViewIDKey, viewID)
	c.Header(ViewHeader, viewID)

	view, err := h.Loader.Load(c.Request.Context(), owner, artifacts.ViewKey(owner, viewID), id)
	if err != nil {
		switch {
		case errors.Is(err, resumes.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "Resume not found", gin.H{"id": id})
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load resume", nil)
		}
		return
	}
	view.ViewID = viewID
	respond.JSON(c, http.StatusOK, view)
}

func viewIDFromRequest(c *gin.Context) string {
	viewID := strings.TrimSpace(c.GetHeader(ViewHeader))
	if viewID == "" {
		viewID = strings.TrimSpace(c.Query("view"))
	}
	if viewID == "" || len(viewID) > 128 {
		viewID = uuid.NewString()
	}
	return viewID
}
