package usecase

import (
	"context"
	"fmt"

	domain "github.com/lavanya11112/SEPROJECT/internal/entity"
	"github.com/lavanya11112/SEPROJECT/internal/logging"
)

// Fulfillment applies kitchen/delivery status events to orders.
type Fulfillment struct {
	orders OrderRepo
}

func NewFulfillment(orders OrderRepo) *Fulfillment {
	return &Fulfillment{orders: orders}
}

// Apply moves the order when it is in an allowed source state. Out-of-order or
// repeated events match no row and are dropped.
func (uc *Fulfillment) Apply(ctx context.Context, msg FulfillmentStatusMsg) error {
	to, ok := domain.ParseStatus(msg.Status)
	if !ok || to == domain.StatusPending {
		return fmt.Errorf("%w: unknown fulfillment status %q", domain.ErrValidation, msg.Status)
	}
	if msg.OrderID == "" {
		return fmt.Errorf("%w: missing order id", domain.ErrValidation)
	}

	log := logging.FromCtx(ctx).With("order_id", msg.OrderID, "to", to)
	moved, err := uc.orders.UpdateStatusIf(ctx, msg.OrderID, domain.AllowedFrom(to), to)
	if err != nil {
		return fmt.Errorf("%w: update order status: %v", domain.ErrPersistence, err)
	}
	if !moved {
		log.Warn("fulfillment status not applicable")
		return nil
	}
	log.Info("order status updated")
	return nil
}

// PaymentStatusProjector keeps the payment status cache in step with
// payment.status_changed events.
type PaymentStatusProjector struct {
	cache PaymentStatusCache
}

func NewPaymentStatusProjector(cache PaymentStatusCache) *PaymentStatusProjector {
	return &PaymentStatusProjector{cache: cache}
}

func (p *PaymentStatusProjector) Apply(ctx context.Context, msg PaymentStatusChangedMsg) error {
	if msg.GatewayOrderID == "" || msg.Status == "" {
		return fmt.Errorf("%w: incomplete payment status event", domain.ErrValidation)
	}
	return p.cache.SetStatus(ctx, msg.GatewayOrderID, msg.UserID, msg.Status)
}
