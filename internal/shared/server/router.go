package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resumaid/internal/artifacts"
	googleauth "resumaid/internal/auth"
	"resumaid/internal/hydrate"
	"resumaid/internal/intake"
	"resumaid/internal/maintenance"
	"resumaid/internal/resumes"
	"resumaid/internal/services/health"
	"resumaid/internal/shared/config"
	"resumaid/internal/shared/metrics"
	"resumaid/internal/shared/server/middleware"
	"resumaid/internal/shared/server/respond"
)

// RouterDeps carries the handlers the router mounts. Nil handlers are skipped.
type RouterDeps struct {
	Config             config.Config
	Health             *health.Service
	GoogleAuth         *googleauth.GoogleService
	IntakeHandler      *intake.Handler
	ResumesHandler     *resumes.Handler
	HydrateHandler     *hydrate.Handler
	ArtifactsHandler   *artifacts.Handler
	MaintenanceHandler *maintenance.Handler
	RateLimiter        *middleware.RateLimiter
}

// rateLimitRoutes groups the expensive endpoints.
var rateLimitRoutes = map[string]string{
	"POST /api/v1/resumes":          "INTAKE",
	"POST /api/v1/maintenance/wipe": "MAINTENANCE",
	"GET /api/v1/resumes/:id":       "HYDRATE",
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	limiter := deps.RateLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(time.Now)
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Config.SignInURL),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"INTAKE":      {Rate: 1.0 / 10, Burst: 3},
				"HYDRATE":     {Rate: 2, Burst: 20},
				"MAINTENANCE": {Rate: 1.0 / 60, Burst: 2},
			},
			GroupFor: middleware.RouteGroups(rateLimitRoutes),
			Limiter:  limiter,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		status := deps.Health.Status(c.Request.Context())
		code := http.StatusOK
		if !status.OK {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})
	registerMeRoutes(api)

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.IntakeHandler != nil {
		deps.IntakeHandler.RegisterRoutes(api)
	}
	if deps.ResumesHandler != nil {
		deps.ResumesHandler.RegisterRoutes(api)
	}
	if deps.HydrateHandler != nil {
		deps.HydrateHandler.RegisterRoutes(api)
	}
	if deps.ArtifactsHandler != nil {
		deps.ArtifactsHandler.RegisterRoutes(api)
	}
	if deps.MaintenanceHandler != nil {
		deps.MaintenanceHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
