package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"resumaid/internal/shared/auth"
	"resumaid/internal/shared/server/respond"
)

const (
	userIDKey      = "userId"
	userEmailKey   = "userEmail"
	userNameKey    = "userName"
	userPictureKey = "userPicture"

	// SessionCookie carries the session token for browser clients that cannot set headers.
	SessionCookie = "resumaid_session"
)

// publicPrefixes never require identity.
var publicPrefixes = []string{
	"/api/v1/auth/",
	"/api/v1/health",
	"/api/v1/blobs/",
	"/metrics",
}

// optionalPaths resolve identity when present but never reject.
var optionalPaths = map[string]struct{}{
	"/api/v1/me": {},
}

// Auth validates session tokens and stores identity in context. Unauthenticated
// callers receive 401 with a sign-in redirect carrying the original path as next.
func Auth(signInURL string) gin.HandlerFunc {
	if strings.TrimSpace(signInURL) == "" {
		signInURL = "/auth"
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		path := c.Request.URL.Path
		for _, prefix := range publicPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		token, malformed := tokenFromRequest(c)
		if malformed {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		if token != "" {
			claims, err := auth.VerifyJWT(token)
			if err == nil {
				setIdentity(c, claims)
				c.Next()
				return
			}
		}

		if _, ok := optionalPaths[path]; ok {
			c.Next()
			return
		}

		respond.Error(c, http.StatusUnauthorized, "unauthorized", "sign in required", gin.H{
			"redirect": signInRedirect(signInURL, c.Request.URL.RequestURI()),
		})
	}
}

func tokenFromRequest(c *gin.Context) (string, bool) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader != "" {
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return "", true
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if token == "" {
			return "", true
		}
		return token, false
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return strings.TrimSpace(cookie), false
	}
	return "", false
}

func setIdentity(c *gin.Context, claims auth.Claims) {
	c.Set(userIDKey, claims.Subject)
	if claims.Email != "" {
		c.Set(userEmailKey, claims.Email)
	}
	if claims.Name != "" {
		c.Set(userNameKey, claims.Name)
	}
	if claims.Picture != "" {
		c.Set(userPictureKey, claims.Picture)
	}
}

func signInRedirect(signInURL, next string) string {
	u, err := url.Parse(signInURL)
	if err != nil {
		return signInURL
	}
	q := u.Query()
	q.Set("next", next)
	u.RawQuery = q.Encode()
	return u.String()
}

// IsAuthenticated reports whether the auth middleware resolved an identity.
func IsAuthenticated(c *gin.Context) bool {
	return UserIDFromContext(c) != ""
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userEmailKey)
	if email, ok := val.(string); ok {
		return email
	}
	return ""
}

// UserNameFromContext fetches the user name set by the auth middleware.
func UserNameFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userNameKey)
	if name, ok := val.(string); ok {
		return name
	}
	return ""
}

// UserPictureFromContext fetches the user picture set by the auth middleware.
func UserPictureFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userPictureKey)
	if picture, ok := val.(string); ok {
		return picture
	}
	return ""
}
