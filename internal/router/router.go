package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/medoffice/scheduler-api/internal/config"
	appointmentHandler "github.com/medoffice/scheduler-api/internal/handler/appointment"
	consultationHandler "github.com/medoffice/scheduler-api/internal/handler/consultation"
	healthHandler "github.com/medoffice/scheduler-api/internal/handler/health"
	officeHandler "github.com/medoffice/scheduler-api/internal/handler/office"
	"github.com/medoffice/scheduler-api/internal/middleware"
	"github.com/medoffice/scheduler-api/pkg/auth"
	"github.com/medoffice/scheduler-api/pkg/metrics"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Health       *healthHandler.Handler
	Office       *officeHandler.Handler
	Appointment  *appointmentHandler.Handler
	Consultation *consultationHandler.Handler
}

// New assembles the gin engine: global middleware, public health routes
// and the authenticated /api/v1 surface.
func New(cfg *config.Config, jwtSvc *auth.JWTService, m *metrics.Metrics, h Handlers) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics(m))
	r.Use(middleware.ErrorHandler())

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	if len(cfg.CORS.AllowedMethods) > 0 {
		corsConfig.AllowMethods = cfg.CORS.AllowedMethods
	}
	if len(cfg.CORS.AllowedHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.CORS.AllowedHeaders
	}
	r.Use(middleware.CORS(corsConfig))

	timeoutConfig := middleware.DefaultTimeoutConfig()
	if cfg.Server.RequestTimeout > 0 {
		timeoutConfig.Duration = cfg.Server.RequestTimeout
	}
	r.Use(middleware.Timeout(timeoutConfig))

	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst: cfg.RateLimit.Burst,
		})
		r.Use(limiter.RateLimit())
	}

	h.Health.RegisterRoutes(r)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.Auth(jwtSvc))
	{
		h.Office.RegisterRoutes(v1)
		h.Appointment.RegisterRoutes(v1)
		h.Consultation.RegisterRoutes(v1)
	}

	return r
}
