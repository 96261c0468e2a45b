package usecase

import "time"

const (
	ChannelOrderPlaced           = "order.placed"
	ChannelPaymentStatusChanged  = "payment.status_changed"
	ChannelPaymentRetryScheduled = "payment.retry_scheduled"
)

// Written to the outbox at checkout
type OrderPlacedMsg struct {
	OrderID     string    `json:"order_id"`
	UserID      string    `json:"userId"`
	TotalAmount string    `json:"totalAmount"`
	ItemCount   int       `json:"itemCount"`
	PlacedAt    time.Time `json:"placedAt"`
}

type PaymentStatusChangedMsg struct {
	PaymentID      string `json:"paymentId"`
	UserID         string `json:"userId"`
	GatewayOrderID string `json:"gatewayOrderId"`
	OrderID        string `json:"orderId,omitempty"`
	Status         string `json:"status"`
}

type PaymentRetryScheduledMsg struct {
	PaymentID      string    `json:"paymentId"`
	UserID         string    `json:"userId"`
	GatewayOrderID string    `json:"gatewayOrderId"`
	RetryCount     int       `json:"retryCount"`
	RetryAfter     time.Time `json:"retryAfter"`
}

// Sent by the kitchen/delivery service on Kafka
type FulfillmentStatusMsg struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"` // processing | on_the_way | completed | failed
}
