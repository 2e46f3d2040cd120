package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yoockh/innkeeper/internal/api/handlers"
	"github.com/yoockh/innkeeper/internal/api/middleware"
)

type Deps struct {
	Webhook      *handlers.WebhookHandler
	Widget       *handlers.WidgetHandler
	Cache        *handlers.CacheHandler
	Conversation *handlers.ConversationHandler
	Guest        *handlers.GuestHandler

	WebhookSecret string
	AdminJWT      middleware.JWTConfig
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.POST("/webhook/messages", middleware.WebhookSecret(d.WebhookSecret), d.Webhook.Receive)

	if d.Widget != nil {
		r.GET("/ws/conversations/:conversation_id", d.Widget.Conversation)
	}

	admin := r.Group("/admin")
	admin.Use(middleware.JWTAuth(d.AdminJWT), middleware.RequireAdmin())

	admin.GET("/cache/stats", d.Cache.Stats)
	admin.GET("/cache/keys", d.Cache.Keys)
	admin.DELETE("/cache", d.Cache.Purge)
	admin.GET("/buffer/stats", d.Cache.BufferStats)

	admin.GET("/conversations/:conversation_id", d.Conversation.Get)
	admin.GET("/conversations/:conversation_id/messages", d.Conversation.Messages)
	admin.GET("/conversations/:conversation_id/flushes", d.Conversation.Flushes)
	admin.POST("/conversations/:conversation_id/close", d.Conversation.Close)

	admin.GET("/guests/:conversation_id", d.Guest.Get)
	admin.PUT("/guests/:conversation_id", d.Guest.Update)
}
