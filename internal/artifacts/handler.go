package artifacts

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resumaid/internal/shared/server/middleware"
	"resumaid/internal/shared/server/respond"
)

// Handler serves registered blobs and releases view scopes.
type Handler struct {
	Registry *Registry
}

// RegisterRoutes attaches blob and view routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/blobs/:token", h.Serve)
	rg.DELETE("/views/:scope", h.ReleaseView)
}

// Serve handles GET /blobs/:token. The token is the capability; no identity is required.
func (h *Handler) Serve(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	data, mime, ok := h.Registry.Resolve(token)
	if !ok {
		respond.Error(c, http.StatusNotFound, "not_found", "reference expired or unknown", nil)
		return
	}
	c.Header("Cache-Control", "private, no-store")
	c.Data(http.StatusOK, mime, data)
}

// ReleaseView handles DELETE /views/:scope.
func (h *Handler) ReleaseView(c *gin.Context) {
	viewID := strings.TrimSpace(c.Param("scope"))
	if viewID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "view id is required", nil)
		return
	}
	h.Registry.Release(ViewKey(middleware.UserIDFromContext(c), viewID))
	respond.NoContent(c)
}

// ViewKey scopes a client-chosen view id to its owner.
func ViewKey(owner, viewID string) string {
	return owner + "|" + viewID
}
