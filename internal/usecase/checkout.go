package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	domain "github.com/lavanya11112/SEPROJECT/internal/entity"
	"github.com/lavanya11112/SEPROJECT/internal/logging"
	"github.com/lavanya11112/SEPROJECT/internal/observ"
	"github.com/shopspring/decimal"
)

const checkoutScope = "checkout"

// Cart is what checkout needs from a cart session: a way to reload it from
// storage, the rows to price and a way to empty it once the order is committed.
type Cart interface {
	UserID() string
	Refresh(ctx context.Context) error
	Items() []domain.CartItem
	ClearCart(ctx context.Context) error
}

type PlaceOrderInput struct {
	PromoCode       string
	DeliveryAddress string
	ContactNumber   string
	IdempotencyKey  string
}

type PlaceOrderOutput struct {
	Order *domain.Order
	// Replayed is set when the idempotency key matched an earlier order.
	Replayed bool
}

type Checkout struct {
	orders OrderRepo
	idem   IdempotencyStore
	rules  domain.PricingRules
	now    func() time.Time
}

func NewCheckout(orders OrderRepo, idem IdempotencyStore, rules domain.PricingRules) *Checkout {
	return &Checkout{orders: orders, idem: idem, rules: rules, now: time.Now}
}

func (uc *Checkout) PlaceOrder(ctx context.Context, cart Cart, in PlaceOrderInput) (out PlaceOrderOutput, err error) {
	if cart == nil || cart.UserID() == "" {
		return out, domain.ErrAuthRequired
	}
	userID := cart.UserID()
	log := logging.FromCtx(ctx).With("user_id", userID)

	key := strings.TrimSpace(in.IdempotencyKey)
	scope := checkoutScope + ":" + userID
	useKey := key != "" && uc.idem != nil

	// Fast path: idempotency recall. It runs before the empty-cart check
	// because a successful checkout has already cleared the cart.
	if useKey {
		if id, ok, rerr := uc.idem.Recall(ctx, scope, key); rerr == nil && ok {
			o, gerr := uc.orders.GetByID(ctx, userID, id)
			if gerr != nil {
				return out, fmt.Errorf("%w: load replayed order: %v", domain.ErrPersistence, gerr)
			}
			return PlaceOrderOutput{Order: o, Replayed: true}, nil
		}
	}

	// The session may have been opened long ago; price current menu rows.
	if err := cart.Refresh(ctx); err != nil {
		return out, err
	}
	items := cart.Items()
	if len(items) == 0 {
		return out, domain.ErrEmptyCart
	}

	if useKey {
		locked, lerr := uc.idem.TryLock(ctx, scope, key)
		if lerr != nil {
			return out, fmt.Errorf("%w: idempotency lock: %v", domain.ErrPersistence, lerr)
		}
		if !locked {
			return out, domain.ErrDuplicateRequest
		}
		defer func() {
			if err != nil {
				if rerr := uc.idem.Release(context.WithoutCancel(ctx), scope, key); rerr != nil {
					log.Warn("release idempotency key failed", "key", key, "err", rerr)
				}
			}
		}()
	}

	order, err := uc.buildOrder(userID, items, in)
	if err != nil {
		return out, err
	}

	payload, err := json.Marshal(OrderPlacedMsg{
		OrderID:     order.ID,
		UserID:      userID,
		TotalAmount: order.TotalAmount.StringFixed(2),
		ItemCount:   domain.TotalItems(items),
		PlacedAt:    order.CreatedAt,
	})
	if err != nil {
		return out, fmt.Errorf("marshal order placed: %w", err)
	}
	msg := &OutboxMessage{Channel: ChannelOrderPlaced, Payload: payload, NextAttemptAt: order.CreatedAt}

	if err := uc.orders.CreateWithItems(ctx, order, msg); err != nil {
		log.Error("create order failed", "order_id", order.ID, "err", err)
		return out, fmt.Errorf("%w: create order: %v", domain.ErrPersistence, err)
	}
	observ.OrdersPlaced.Inc()

	if useKey {
		if rerr := uc.idem.Remember(ctx, scope, key, order.ID); rerr != nil {
			log.Warn("remember idempotency key failed", "key", key, "order_id", order.ID, "err", rerr)
		}
	}

	// The order is committed; a failed clear leaves a stale cart, not a lost order.
	if cerr := cart.ClearCart(ctx); cerr != nil {
		log.Error("clear cart after checkout failed", "order_id", order.ID, "err", cerr)
	}

	log.Info("order placed", "order_id", order.ID, "total", order.TotalAmount.StringFixed(2), "items", len(order.Items))
	return PlaceOrderOutput{Order: order}, nil
}

func (uc *Checkout) buildOrder(userID string, items []domain.CartItem, in PlaceOrderInput) (*domain.Order, error) {
	for _, it := range items {
		if it.MenuItem == nil {
			return nil, fmt.Errorf("%w: menu item %s is no longer available", domain.ErrValidation, it.MenuItemID)
		}
	}

	address := strings.TrimSpace(in.DeliveryAddress)
	quote, err := domain.PriceCart(items, in.PromoCode, address != "", uc.rules)
	if err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	o := &domain.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Status:          domain.StatusPending,
		Subtotal:        quote.Subtotal,
		Tax:             quote.Tax,
		Discount:        quote.Discount,
		DeliveryFee:     quote.DeliveryFee,
		TotalAmount:     quote.Total,
		PromoCode:       quote.PromoCode,
		DeliveryAddress: address,
		ContactNumber:   strings.TrimSpace(in.ContactNumber),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	o.Items = make([]domain.OrderItem, 0, len(items))
	for _, it := range items {
		o.Items = append(o.Items, domain.OrderItem{
			ID:         uuid.NewString(),
			OrderID:    o.ID,
			MenuItemID: it.MenuItemID,
			Name:       it.MenuItem.Name,
			Quantity:   it.Quantity,
			Price:      it.MenuItem.Price,
		})
	}
	return o, nil
}

// Quote prices the cart without placing anything.
func (uc *Checkout) Quote(cart Cart, promo string, delivery bool) (domain.Quote, error) {
	if cart == nil || cart.UserID() == "" {
		return domain.Quote{}, domain.ErrAuthRequired
	}
	return domain.PriceCart(cart.Items(), promo, delivery, uc.rules)
}

// ValidatePromo returns the normalized code and its discount rate.
func (uc *Checkout) ValidatePromo(code string) (string, decimal.Decimal, error) {
	rate, err := domain.LookupPromo(code)
	if err != nil {
		return "", decimal.Zero, err
	}
	return strings.ToUpper(strings.TrimSpace(code)), rate, nil
}

func (uc *Checkout) GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	if userID == "" {
		return nil, domain.ErrAuthRequired
	}
	o, err := uc.orders.GetByID(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: get order: %v", domain.ErrPersistence, err)
	}
	return o, nil
}

func (uc *Checkout) ListOrders(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	if userID == "" {
		return nil, domain.ErrAuthRequired
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	list, err := uc.orders.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders: %v", domain.ErrPersistence, err)
	}
	return list, nil
}
