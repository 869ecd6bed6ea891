package handler

import (
	"fmt"
	"net/http"
	"time"

	"go-raffle-engine/internal/model"
	"go-raffle-engine/internal/queue"
	"go-raffle-engine/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookHandler receives payment gateway callbacks. It validates nothing
// beyond JSON shape and always answers 200: gateways retry on any other
// status, and the reconciliation worker is the one that decides what an
// event means. Returning non-200 here only multiplies deliveries.
type WebhookHandler struct {
	queue queue.PaymentEventQueue
}

func NewWebhookHandler(queue queue.PaymentEventQueue) *WebhookHandler {
	return &WebhookHandler{queue: queue}
}

func (h *WebhookHandler) RegisterRoutes(r *gin.Engine) {
	r.POST("/webhooks/payment", h.ReceivePaymentEvent)
}

func (h *WebhookHandler) ReceivePaymentEvent(c *gin.Context) {
	log := logger.WithComponent("webhook")

	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Warn("unparseable webhook payload", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	event := &model.PaymentEvent{
		ChargeID:          stringField(payload, "charge_id", "id"),
		Status:            model.PaymentEventStatus(stringField(payload, "status")),
		ExternalReference: stringField(payload, "external_reference"),
		RawPayload:        payload,
		ReceivedAt:        time.Now().UTC(),
	}

	if err := h.queue.PublishEvent(c, event); err != nil {
		// Still 200: losing one delivery is recoverable, the gateway
		// retries and the queue's consumer group redelivers.
		log.Error("failed to enqueue payment event",
			zap.String("charge_id", event.ChargeID),
			zap.Error(err))
	} else {
		log.Info("payment event enqueued",
			zap.String("charge_id", event.ChargeID),
			zap.String("status", string(event.Status)),
			zap.String("external_reference", event.ExternalReference))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// stringField returns the first of the named keys present in the payload,
// rendered as a string. Gateways are not consistent about numeric vs string
// ids.
func stringField(payload map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		value, ok := payload[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			return v
		case float64:
			return fmt.Sprintf("%.0f", v)
		default:
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}
