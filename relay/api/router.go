package api

import (
	"github.com/gin-gonic/gin"
)

func RegisterWebhookRoutes(r *gin.Engine, handler *WebhookHandler) {
	group := r.Group("/webhook")
	{
		group.POST("/chatwoot", handler.Chatwoot)
		group.POST("/unipile", handler.Unipile)
	}
}
