package router

import (
	"context"
	"time"

	"chatwoot-unipile-bridge/backend/pkg/health"

	"github.com/gin-gonic/gin"
)

// setupHealthRoutes wires the periodic health checker and exposes it.
func (r *Router) setupHealthRoutes() {
	checker := health.NewChecker(r.Logger, 30*time.Second)

	checker.RegisterDatabaseCheck(func() error {
		return r.Container.DB.Exec("SELECT 1").Error
	})

	if r.Container.Redis != nil {
		checker.RegisterRedisCheck(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return r.Container.Redis.Ping(ctx)
		})
	}

	checker.RegisterCheck("unipile", func() (health.Status, string, error) {
		if err := r.Container.UnipileClient.Healthy(); err != nil {
			return health.StatusDegraded, "Unipile client not configured", err
		}
		return health.StatusUp, "Unipile client configured", nil
	})

	checker.Start()

	handler := gin.WrapF(checker.HTTPHandler())

	// Register both health endpoint paths for compatibility
	r.Engine.GET("/health", handler)
	r.Engine.GET("/api/health", handler)
}
