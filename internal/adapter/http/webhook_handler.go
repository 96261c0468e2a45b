package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lavanya11112/SEPROJECT/internal/usecase"
)

const eventIDHeader = "X-Event-Id"

type WebhookHandler struct {
	webhook *usecase.PaymentWebhook
	timeout time.Duration
}

func NewWebhookHandler(webhook *usecase.PaymentWebhook, timeout time.Duration) *WebhookHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookHandler{webhook: webhook, timeout: timeout}
}

// Payments receives gateway notifications. It sits behind the signature
// middleware and has no bearer auth.
func (h *WebhookHandler) Payments(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, "unreadable body")
		return
	}
	var ev usecase.WebhookEvent
	if err := json.Unmarshal(raw, &ev); err != nil || ev.Event == "" {
		badRequest(c, "malformed event")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	outcome, err := h.webhook.Handle(ctx, c.GetHeader(eventIDHeader), ev)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": outcome})
}
