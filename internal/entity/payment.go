package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

// Terminal reports whether no webhook may move the payment any further.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentFailed || s == PaymentRefunded
}

type PaymentType string

const (
	PaymentOneTime   PaymentType = "one_time"
	PaymentRecurring PaymentType = "recurring"
)

const MaxPaymentRetries = 3

// RetryIntervals is indexed by retry_count-1.
var RetryIntervals = []time.Duration{5 * time.Minute, 15 * time.Minute, 30 * time.Minute}

type PaymentMetadata struct {
	RetryCount int        `json:"retry_count"`
	RetryAfter *time.Time `json:"retry_after,omitempty"`
	PlanID     string     `json:"planId,omitempty"`
	OrderID    string     `json:"order_id,omitempty"`
}

// CanRetry reports whether another gateway order may be created.
func (m PaymentMetadata) CanRetry() bool {
	return m.RetryCount < MaxPaymentRetries
}

// NextRetry returns the metadata after one more failed attempt at now.
func (m PaymentMetadata) NextRetry(now time.Time) PaymentMetadata {
	next := m
	next.RetryCount = m.RetryCount + 1
	at := now.Add(RetryIntervals[next.RetryCount-1]).UTC()
	next.RetryAfter = &at
	return next
}

type Payment struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	GatewayOrderID   string          `json:"gateway_order_id"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Status           PaymentStatus   `json:"status"`
	Type             PaymentType     `json:"payment_type"`
	Metadata         PaymentMetadata `json:"metadata"`
	Version          int64           `json:"-"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// MinorUnits converts a major-unit amount to the gateway's integer unit (x100).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
