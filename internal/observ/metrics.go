package observ

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders committed at checkout",
	})

	CartMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_mutations_total",
			Help: "Cart operations by kind and final state",
		},
		[]string{"kind", "state"},
	)

	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Payment webhook deliveries by event and outcome",
		},
		[]string{"event", "outcome"},
	)

	PaymentRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_retries_scheduled_total",
		Help: "Replacement gateway orders created after a failed payment",
	})

	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_messages_total",
			Help: "Outbox relay results by channel",
		},
		[]string{"channel", "result"},
	)
)
