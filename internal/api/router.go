package api

import (
	"log"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"vlink/internal/config"
	"vlink/internal/metrics"
	"vlink/internal/ratelimit"
)

// SetupRouter initializes and configures the Gin router. A nil limiter
// disables rate limiting.
func SetupRouter(h *Handler, limiter *ratelimit.Limiter) *gin.Engine {
	registerValidators()

	r := gin.Default() // Logger and Recovery middleware included

	var trusted []string
	var adminToken string
	if config.AppConfig != nil {
		trusted = config.AppConfig.TrustedProxyList()
		adminToken = config.AppConfig.AdminToken
	}
	// A nil list makes ClientIP ignore X-Forwarded-For and X-Real-IP.
	if err := r.SetTrustedProxies(trusted); err != nil {
		log.Printf("Invalid TRUSTED_PROXIES, trusting none: %v", err)
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, RequestIDHeader, "Authorization")
	corsConfig.ExposeHeaders = []string{RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"}
	r.Use(cors.New(corsConfig))
	r.Use(RequestID())
	r.Use(metrics.Middleware())

	r.GET("/health", h.HealthCheck)
	r.GET("/status", h.Status)
	r.GET("/metrics", metrics.Handler())

	limit := func(c *gin.Context) { c.Next() }
	if limiter != nil {
		limit = limiter.Middleware()
	}

	api := r.Group("/api")
	{
		api.POST("/create", limit, h.CreateLink)
		api.POST("/qr", limit, h.GenerateQR)
		api.GET("/qr/:code", h.LinkQR)
		api.GET("/stats/:code", h.Stats)
		api.DELETE("/links/:code", RequireAdminToken(adminToken), h.DeleteLink)
	}

	r.GET("/:shortCode", h.Redirect)

	return r
}
