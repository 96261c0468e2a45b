package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lavanya11112/SEPROJECT/internal/logging"
)

const (
	SignatureHeader = "X-Signature"
	webhookMaxBody  = 1 << 20
)

type SignatureVerifier interface {
	Verify(payload []byte, signature string) error
}

type WebhookSignature struct {
	v SignatureVerifier
}

func NewWebhookSignature(v SignatureVerifier) *WebhookSignature {
	return &WebhookSignature{v: v}
}

// Verify checks the signature over the exact raw body before any handler
// runs. On failure the request is answered with 400 and never reaches the
// handler.
func (ws *WebhookSignature) Verify() gin.HandlerFunc {
	return func(c *gin.Context) {
		// --- Read raw body ---
		rawBody, err := io.ReadAll(io.LimitReader(c.Request.Body, webhookMaxBody+1))
		_ = c.Request.Body.Close()
		if err != nil || len(rawBody) > webhookMaxBody {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad_request", "error_description": "unreadable body"})
			return
		}

		if err := ws.v.Verify(rawBody, c.GetHeader(SignatureHeader)); err != nil {
			logging.From(c).Warn("webhook signature rejected", "err", err)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_signature"})
			return
		}

		// --- Hand the same bytes to the handler ---
		c.Request.Body = io.NopCloser(bytes.NewReader(rawBody))
		c.Request.ContentLength = int64(len(rawBody))
		c.Next()
	}
}
