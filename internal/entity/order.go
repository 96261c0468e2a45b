package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusOnTheWay   Status = "on_the_way"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// orderTransitions lists the allowed source states for each target state.
// Orders are created pending; everything after that is driven by payment and
// fulfillment events.
var orderTransitions = map[Status][]Status{
	StatusProcessing: {StatusPending},
	StatusOnTheWay:   {StatusProcessing},
	StatusCompleted:  {StatusOnTheWay, StatusProcessing},
	StatusFailed:     {StatusPending, StatusProcessing},
}

// AllowedFrom returns the states an order may be in to move to target.
func AllowedFrom(target Status) []Status {
	return orderTransitions[target]
}

func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusProcessing, StatusOnTheWay, StatusCompleted, StatusFailed:
		return st, true
	}
	return "", false
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Status          Status          `json:"status"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	Discount        decimal.Decimal `json:"discount"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PromoCode       string          `json:"promo_code,omitempty"`
	DeliveryAddress string          `json:"delivery_address,omitempty"`
	ContactNumber   string          `json:"contact_number,omitempty"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem is written once at checkout. Price and Name are copies of the menu
// row at that moment and are never refreshed.
type OrderItem struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"order_id"`
	MenuItemID string          `json:"menu_item_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}
