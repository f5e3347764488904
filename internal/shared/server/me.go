package server

import (
	"github.com/gin-gonic/gin"

	"resumaid/internal/shared/server/middleware"
	"resumaid/internal/shared/server/respond"
)

type meResponse struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	UserID          string `json:"userId,omitempty"`
	Email           string `json:"email,omitempty"`
	Name            string `json:"name,omitempty"`
	Picture         string `json:"picture,omitempty"`
}

// registerMeRoutes attaches the /me endpoint.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", me)
}

// me reports the session state. Anonymous callers get isAuthenticated=false
// instead of a 401 so the UI can pick its own redirect.
func me(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.OK(c, meResponse{})
		return
	}
	respond.OK(c, meResponse{
		IsAuthenticated: true,
		UserID:          userID,
		Email:           middleware.UserEmailFromContext(c),
		Name:            middleware.UserNameFromContext(c),
		Picture:         middleware.UserPictureFromContext(c),
	})
}
