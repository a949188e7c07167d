package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/covaposh/faqbot/internal/middleware"
)

type RouterDeps struct {
	Ask            *AskHandler
	Ingest         *IngestHandler
	Auth           *AuthHandler
	Webhook        *WebhookHandler
	JWTSecret      []byte
	AskRateWindow  time.Duration
	WebhookEnabled bool
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/auth/login", deps.Auth.Login)
	api.POST("/ask", middleware.RateLimit(deps.AskRateWindow), deps.Ask.Ask)

	if deps.WebhookEnabled {
		api.GET("/whatsapp/webhook", deps.Webhook.Verify)
		api.POST("/whatsapp/webhook", deps.Webhook.Receive)
	}

	adminGroup := api.Group("")
	adminGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	adminGroup.POST("/ingest", deps.Ingest.Ingest)
	if deps.WebhookEnabled {
		adminGroup.POST("/whatsapp/process-pending", deps.Webhook.ProcessPending)
	}
}
