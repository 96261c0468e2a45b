package http

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lavanya11112/SEPROJECT/internal/adapter/http/middleware"
	"github.com/lavanya11112/SEPROJECT/internal/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Payment  *PaymentHandler
	Webhook  *WebhookHandler
}

type RouterOptions struct {
	AllowOrigins []string
	Logger       *slog.Logger
}

func NewRouter(h Handlers, authz *middleware.Authz, sig *middleware.WebhookSignature, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.MetricsMiddleware())

	l := opts.Logger
	if l == nil {
		l = logging.New("http")
	}
	r.Use(middleware.Logging(l))

	if len(opts.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type", "X-Idempotency-Key", "X-Request-Id"},
			ExposeHeaders:    []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// gateway callbacks carry a signature instead of a bearer token
	r.POST("/v1/webhooks/payments", sig.Verify(), h.Webhook.Payments)

	v1 := r.Group("/v1", authz.Require())
	{
		v1.GET("/cart", h.Cart.GetCart)
		v1.POST("/cart/items", h.Cart.AddItem)
		v1.PATCH("/cart/items/:id", h.Cart.UpdateItem)
		v1.DELETE("/cart/items/:id", h.Cart.RemoveItem)
		v1.DELETE("/cart", h.Cart.Clear)

		v1.POST("/checkout", h.Checkout.PlaceOrder)
		v1.POST("/promo/validate", h.Checkout.ValidatePromo)
		v1.GET("/orders", h.Checkout.ListOrders)
		v1.GET("/orders/:id", h.Checkout.GetOrder)

		v1.POST("/payments/orders", h.Payment.CreatePaymentOrder)
		v1.GET("/payments/:gateway_order_id/status", h.Payment.Status)
	}

	return r
}
