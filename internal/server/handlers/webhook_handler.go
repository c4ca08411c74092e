package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/service/monitor"
	service "github.com/mamadbah2/hatchery/internal/service/whatsapp"
)

const whatsappObject = "whatsapp_business_account"

// WebhookHandler serves the WhatsApp webhook and the operator notification endpoints.
type WebhookHandler struct {
	svc      service.MessagingService
	notifier monitor.Notifier
	logger   *zap.Logger
}

// NewWebhookHandler constructs the HTTP handler adapter. notifier may be nil, in which
// case the notification test endpoint reports 503.
func NewWebhookHandler(svc service.MessagingService, notifier monitor.Notifier, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{svc: svc, notifier: notifier, logger: logger}
}

type verifyQuery struct {
	Mode      string `form:"hub.mode"`
	Token     string `form:"hub.verify_token"`
	Challenge string `form:"hub.challenge"`
}

// Verify answers Meta's subscription handshake by echoing the challenge.
func (h *WebhookHandler) Verify(c *gin.Context) {
	var q verifyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.String(http.StatusBadRequest, "invalid query")
		return
	}

	challenge, err := h.svc.VerifyWebhookToken(q.Mode, q.Token, q.Challenge)
	if err != nil {
		h.logger.Warn("webhook verification failed", zap.String("mode", q.Mode), zap.Error(err))
		c.String(http.StatusForbidden, "verification failed")
		return
	}
	c.String(http.StatusOK, challenge)
}

// Receive runs the chat commands carried by a webhook delivery. Meta redelivers on any
// non-2xx answer, so processing failures are logged and still acknowledged.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Warn("invalid webhook payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if payload.Object != "" && payload.Object != whatsappObject {
		h.logger.Debug("ignoring webhook object", zap.String("object", payload.Object))
		c.Status(http.StatusOK)
		return
	}

	if err := h.svc.HandleWebhook(c.Request.Context(), payload); err != nil {
		h.logger.Error("failed processing webhook", zap.Int("entries", len(payload.Entry)), zap.Error(err))
	}
	c.Status(http.StatusOK)
}

// SendMessage pushes a manual chat message to any number.
func (h *WebhookHandler) SendMessage(c *gin.Context) {
	var req models.OutboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.svc.SendOutbound(c.Request.Context(), req); err != nil {
		h.logger.Error("failed sending outbound", zap.String("to", req.To), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to send message"})
		return
	}
	c.Status(http.StatusAccepted)
}

type notificationRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body" binding:"required"`
}

// TestNotification pushes an operator alert through every configured sink.
func (h *WebhookHandler) TestNotification(c *gin.Context) {
	if h.notifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no notifier configured"})
		return
	}
	var req notificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	note := models.Notification{Title: req.Title, Body: req.Body, Channel: models.ChannelAlerts}
	if err := h.notifier.Notify(c.Request.Context(), note); err != nil {
		h.logger.Error("test notification failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusAccepted)
}
