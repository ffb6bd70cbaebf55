package api

import (
	"chatwoot-unipile-bridge/backend/pkg/jwt"
	"chatwoot-unipile-bridge/backend/relay/ws"

	"github.com/gin-gonic/gin"
)

func RegisterDashboardRoutes(r *gin.Engine, handler *DashboardHandler, jwtService *jwt.Service, hub *ws.Hub) {
	r.POST("/api/login", handler.Login)

	group := r.Group("/api")
	group.Use(JWTAuthMiddleware(jwtService))
	{
		group.GET("/events", handler.ListEvents)
		group.GET("/events/stats", handler.Stats)
		if hub != nil {
			group.GET("/events/stream", func(c *gin.Context) {
				ws.ServeWs(hub, c)
			})
		}
	}
}
