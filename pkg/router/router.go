package router

import (
	dashboardapi "chatwoot-unipile-bridge/backend/dashboard/api"
	"chatwoot-unipile-bridge/backend/pkg/config"
	"chatwoot-unipile-bridge/backend/pkg/di"
	"chatwoot-unipile-bridge/backend/pkg/errors"
	"chatwoot-unipile-bridge/backend/pkg/logger"
	"chatwoot-unipile-bridge/backend/pkg/middleware"
	relayapi "chatwoot-unipile-bridge/backend/relay/api"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	// Use the container's logger
	logger.SetGlobal(container.Logger)

	cfg := container.Config

	// Configure Gin mode based on environment
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	engine := gin.New()
	engine.SetTrustedProxies(cfg.Security.TrustedProxies)

	// Use the logger middleware first to capture all requests
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(middleware.RequestIDMiddleware())

	// Add custom error handler middleware
	engine.Use(errors.ErrorHandler())

	// Add custom recovery middleware with structured logging instead of default
	engine.Use(errors.RecoveryWithLogger())

	// Rate limit everything; webhook providers retry on 429
	rateLimiter := middleware.NewRateLimiter(container.Logger, middleware.RateLimiterOptions{
		Limit:          rate.Limit(cfg.Security.RateLimit),
		Burst:          cfg.Security.RateLimitBurst,
		ExpiryDuration: middleware.DefaultRateLimiterOptions().ExpiryDuration,
		KeyFunc:        middleware.DefaultRateLimiterOptions().KeyFunc,
	})
	engine.Use(rateLimiter.Middleware())

	// Start the event stream hub
	go container.Hub.Run()

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware())

	webhookHandler := relayapi.NewWebhookHandler(
		r.Container.Engine,
		r.Config.Webhook.Secret,
		r.Config.Security.MaxBodySize,
	)
	relayapi.RegisterWebhookRoutes(r.Engine, webhookHandler)

	dashboardHandler := dashboardapi.NewDashboardHandler(
		r.Container.EventLogs,
		r.Container.JWTService,
		r.Config.Dashboard.AdminEmail,
		r.Config.Dashboard.AdminPasswordHash,
	)
	dashboardapi.RegisterDashboardRoutes(r.Engine, dashboardHandler, r.Container.JWTService, r.Container.Hub)

	r.setupHealthRoutes()

	r.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// corsMiddleware allows the dashboard frontend to call the API from another
// origin, including websocket upgrades.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Authorization, Origin, Upgrade, Connection, X-Webhook-Secret, X-SIGNATURE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Upgrade, Connection")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
