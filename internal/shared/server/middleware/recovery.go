package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"syscall"

	"github.com/gin-gonic/gin"

	"resumaid/internal/shared/server/respond"
	"resumaid/internal/shared/telemetry"
)

// Recovery turns handler panics into the standard 500 envelope. A panic caused
// by the client hanging up is logged without a response, and once a body (an
// event stream, say) has started only the connection is aborted.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"user_id":    UserIDFromContext(c),
				"error":      fmt.Sprint(rec),
				"path":       c.Request.URL.Path,
				"method":     c.Request.Method,
			}
			if clientGone(rec) {
				telemetry.Warn("http.client_gone", fields)
				c.Abort()
				return
			}
			fields["stack"] = string(debug.Stack())
			telemetry.Error("http.panic", fields)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
		}()
		c.Next()
	}
}

func clientGone(rec any) bool {
	err, ok := rec.(error)
	if !ok {
		return false
	}
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, http.ErrAbortHandler)
}
