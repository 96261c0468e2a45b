package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	domain "github.com/lavanya11112/SEPROJECT/internal/entity"
	"github.com/lavanya11112/SEPROJECT/internal/logging"
	"github.com/shopspring/decimal"
)

type CreatePaymentInput struct {
	UserID  string
	Amount  decimal.Decimal
	Type    domain.PaymentType
	PlanID  string
	OrderID string // optional link to a pending order
}

type CreatePaymentOutput struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

type PaymentsConfig struct {
	Currency string
	KeyID    string
}

type Payments struct {
	gw     PaymentGateway
	repo   PaymentRepo
	orders OrderRepo
	cache  PaymentStatusCache
	cfg    PaymentsConfig
	now    func() time.Time
}

func NewPayments(gw PaymentGateway, repo PaymentRepo, orders OrderRepo, cache PaymentStatusCache, cfg PaymentsConfig) *Payments {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	return &Payments{gw: gw, repo: repo, orders: orders, cache: cache, cfg: cfg, now: time.Now}
}

// CreatePaymentOrder opens a gateway order and records the matching pending
// payment. The gateway is called first, so a local row always has a remote
// counterpart.
func (uc *Payments) CreatePaymentOrder(ctx context.Context, in CreatePaymentInput) (CreatePaymentOutput, error) {
	if in.UserID == "" {
		return CreatePaymentOutput{}, domain.ErrAuthRequired
	}
	if !in.Amount.IsPositive() {
		return CreatePaymentOutput{}, domain.ErrInvalidAmount
	}
	switch in.Type {
	case "":
		in.Type = domain.PaymentOneTime
	case domain.PaymentOneTime, domain.PaymentRecurring:
	default:
		return CreatePaymentOutput{}, fmt.Errorf("%w: unknown payment type %q", domain.ErrValidation, in.Type)
	}
	log := logging.FromCtx(ctx).With("user_id", in.UserID)

	if in.OrderID != "" {
		if err := uc.checkOrder(ctx, in); err != nil {
			return CreatePaymentOutput{}, err
		}
	}

	paymentID := uuid.NewString()
	minor := domain.MinorUnits(in.Amount)
	gwo, err := uc.gw.CreateOrder(ctx, GatewayOrderRequest{
		AmountMinor: minor,
		Currency:    uc.cfg.Currency,
		Receipt:     "rcpt_" + strings.ReplaceAll(paymentID, "-", "")[:20],
		Notes: map[string]string{
			"payment_type": string(in.Type),
			"plan_id":      in.PlanID,
			"user_id":      in.UserID,
			"order_id":     in.OrderID,
		},
	})
	if err != nil {
		log.Error("gateway create order failed", "amount_minor", minor, "err", err)
		return CreatePaymentOutput{}, fmt.Errorf("%w: create order: %v", domain.ErrGateway, err)
	}

	now := uc.now().UTC()
	p := &domain.Payment{
		ID:             paymentID,
		UserID:         in.UserID,
		GatewayOrderID: gwo.ID,
		Amount:         in.Amount,
		Currency:       uc.cfg.Currency,
		Status:         domain.PaymentPending,
		Type:           in.Type,
		Metadata:       domain.PaymentMetadata{PlanID: in.PlanID, OrderID: in.OrderID},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.repo.Create(ctx, p); err != nil {
		log.Error("orphan gateway order", "gateway_order_id", gwo.ID, "payment_id", paymentID, "err", err)
		return CreatePaymentOutput{}, fmt.Errorf("%w: insert payment: %v", domain.ErrPersistence, err)
	}

	if uc.cache != nil {
		if cerr := uc.cache.SetStatus(ctx, gwo.ID, in.UserID, string(p.Status)); cerr != nil {
			log.Warn("cache payment status failed", "gateway_order_id", gwo.ID, "err", cerr)
		}
	}

	log.Info("payment order created", "payment_id", paymentID, "gateway_order_id", gwo.ID, "amount_minor", gwo.AmountMinor)
	currency := gwo.Currency
	if currency == "" {
		currency = uc.cfg.Currency
	}
	amount := gwo.AmountMinor
	if amount == 0 {
		amount = minor
	}
	return CreatePaymentOutput{OrderID: gwo.ID, Amount: amount, Currency: currency, KeyID: uc.cfg.KeyID}, nil
}

func (uc *Payments) checkOrder(ctx context.Context, in CreatePaymentInput) error {
	o, err := uc.orders.GetByID(ctx, in.UserID, in.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: load order: %v", domain.ErrPersistence, err)
	}
	if o.Status != domain.StatusPending {
		return fmt.Errorf("%w: order %s is %s, not awaiting payment", domain.ErrValidation, o.ID, o.Status)
	}
	if !o.TotalAmount.Equal(in.Amount) {
		return fmt.Errorf("%w: amount %s does not match order total %s", domain.ErrValidation, in.Amount, o.TotalAmount)
	}
	return nil
}

// PaymentStatus reports the status of the payment behind gatewayOrderID as
// seen by its owner. The cache is consulted first.
func (uc *Payments) PaymentStatus(ctx context.Context, userID, gatewayOrderID string) (domain.PaymentStatus, error) {
	if userID == "" {
		return "", domain.ErrAuthRequired
	}
	log := logging.FromCtx(ctx)
	if uc.cache != nil {
		owner, st, ok, err := uc.cache.GetStatus(ctx, gatewayOrderID)
		if err != nil {
			log.Warn("payment status cache read failed", "gateway_order_id", gatewayOrderID, "err", err)
		} else if ok {
			if owner != userID {
				return "", domain.ErrPaymentNotFound
			}
			return domain.PaymentStatus(st), nil
		}
	}

	p, err := uc.repo.GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			return "", err
		}
		return "", fmt.Errorf("%w: load payment: %v", domain.ErrPersistence, err)
	}
	if p.UserID != userID {
		return "", domain.ErrPaymentNotFound
	}
	if uc.cache != nil {
		if cerr := uc.cache.SetStatus(ctx, gatewayOrderID, p.UserID, string(p.Status)); cerr != nil {
			log.Warn("cache payment status failed", "gateway_order_id", gatewayOrderID, "err", cerr)
		}
	}
	return p.Status, nil
}
