package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrtesla07/3xui-shop/pkg/logger"
)

// WebhookProcessor обрабатывает сырое тело платежного вебхука.
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, raw []byte) error
}

// WebhookHandler обработчик для вебхуков UrlPay
type WebhookHandler struct {
	gateway WebhookProcessor
	log     *logger.Logger
}

// NewWebhookHandler создает новый обработчик вебхуков
func NewWebhookHandler(gateway WebhookProcessor, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		gateway: gateway,
		log:     log,
	}
}

// HandleUrlPayWebhook обрабатывает вебхуки от UrlPay.
//
// The provider retries delivery on non-2xx responses, so every failure
// here — malformed body, rejected reconciliation, even a panic — maps to
// a 400. Nothing propagates to the web server.
func (h *WebhookHandler) HandleUrlPayWebhook(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Errorw("Panic while processing UrlPay webhook", "panic", r)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to process webhook"})
		}
	}()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.log.Errorw("Failed to read webhook body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read webhook body"})
		return
	}

	if err := h.gateway.HandleWebhook(c.Request.Context(), body); err != nil {
		// Детали уже залогированы сервисом; наружу уходит только 400.
		c.JSON(http.StatusBadRequest, gin.H{"error": "webhook verification failed"})
		return
	}

	c.Status(http.StatusOK)
}
