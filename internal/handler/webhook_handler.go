package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/covaposh/faqbot/internal/pkg/response"
	"github.com/covaposh/faqbot/internal/service"
)

// WebhookHandler receives WhatsApp Cloud webhook deliveries: it records
// inbound customer messages and schedules a delayed auto-reply that fires
// only if no human operator answers within the window.
type WebhookHandler struct {
	conversations  service.ConversationStore
	autoReply      *service.AutoReplyService
	verifyToken    string
	timeoutMinutes int
}

func NewWebhookHandler(conversations service.ConversationStore, autoReply *service.AutoReplyService, verifyToken string, adminTimeoutMinutes int) *WebhookHandler {
	return &WebhookHandler{
		conversations:  conversations,
		autoReply:      autoReply,
		verifyToken:    verifyToken,
		timeoutMinutes: adminTimeoutMinutes,
	}
}

// Verify answers the Meta webhook subscription handshake.
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")
	if mode == "subscribe" && token == h.verifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	response.Success(c, gin.H{})
}

type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []webhookMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type webhookMessage struct {
	From string `json:"from"`
	ID   string `json:"id"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid webhook payload", "")
		return
	}
	ctx := c.Request.Context()
	logger := logutil.GetLogger(ctx)
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				text := strings.TrimSpace(msg.Text.Body)
				if msg.From == "" || text == "" {
					continue
				}
				convID, err := h.conversations.GetOrCreate(ctx, msg.From)
				if err != nil {
					logger.Error("failed to resolve conversation", zap.String("phone", msg.From), zap.Error(err))
					continue
				}
				if err := h.conversations.AddMessage(ctx, convID, false, text, msg.ID); err != nil {
					logger.Error("failed to record inbound message", zap.Int64("conversation_id", convID), zap.Error(err))
					continue
				}
				sendAfter := time.Now().Add(time.Duration(h.timeoutMinutes) * time.Minute).UnixMilli()
				reason := fmt.Sprintf("no-admin-reply-%dm", h.timeoutMinutes)
				if err := h.conversations.SchedulePending(ctx, convID, reason, sendAfter); err != nil {
					logger.Error("failed to schedule auto reply", zap.Int64("conversation_id", convID), zap.Error(err))
				}
			}
		}
	}
	response.Success(c, gin.H{})
}

// ProcessPending lets an operator trigger the sweep by hand; the cron job
// runs the same logic.
func (h *WebhookHandler) ProcessPending(c *gin.Context) {
	processed, err := h.autoReply.ProcessPending(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"processed": processed})
}
