package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "github.com/lavanya11112/SEPROJECT/internal/entity"
	"github.com/lavanya11112/SEPROJECT/internal/logging"
	"github.com/lavanya11112/SEPROJECT/internal/observ"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"

	webhookScope = "webhook"
)

type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type PaymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	ErrorDescription string `json:"error_description"`
}

type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeNoop           Outcome = "noop"
	OutcomeRetryScheduled Outcome = "retry_scheduled"
	OutcomeFailedTerminal Outcome = "failed_terminal"
	OutcomeDuplicate      Outcome = "duplicate"
	OutcomeIgnored        Outcome = "ignored"
)

// PaymentWebhook applies verified gateway notifications to payments. Every
// payment write is conditional, so concurrent or repeated deliveries of the
// same event converge on one transition.
type PaymentWebhook struct {
	payments PaymentRepo
	orders   OrderRepo
	gw       PaymentGateway
	ledger   IdempotencyStore
	cache    PaymentStatusCache
	pub      EventPublisher
	now      func() time.Time
}

func NewPaymentWebhook(payments PaymentRepo, orders OrderRepo, gw PaymentGateway, ledger IdempotencyStore, cache PaymentStatusCache, pub EventPublisher) *PaymentWebhook {
	return &PaymentWebhook{payments: payments, orders: orders, gw: gw, ledger: ledger, cache: cache, pub: pub, now: time.Now}
}

// Handle processes one delivery. eventID is the gateway's delivery id and may
// be empty; when set, an id that was already processed is acknowledged without
// side effects.
func (uc *PaymentWebhook) Handle(ctx context.Context, eventID string, ev WebhookEvent) (outcome Outcome, err error) {
	log := logging.FromCtx(ctx).With("event", ev.Event, "event_id", eventID)
	defer func() {
		label := string(outcome)
		if err != nil {
			label = "error"
		}
		name := ev.Event
		if outcome == OutcomeIgnored {
			name = "other"
		}
		observ.WebhookEvents.WithLabelValues(name, label).Inc()
	}()

	if ev.Event != EventPaymentCaptured && ev.Event != EventPaymentFailed {
		log.Info("webhook event ignored")
		return OutcomeIgnored, nil
	}
	if strings.TrimSpace(ev.Payload.Payment.Entity.OrderID) == "" {
		return "", fmt.Errorf("%w: missing payment order_id", domain.ErrValidation)
	}

	if eventID != "" && uc.ledger != nil {
		claimed, lerr := uc.ledger.TryLock(ctx, webhookScope, eventID)
		switch {
		case lerr != nil:
			// CAS updates still make a reprocessed event safe.
			log.Warn("webhook ledger unavailable", "err", lerr)
		case !claimed:
			log.Info("webhook event already processed")
			return OutcomeDuplicate, nil
		default:
			defer func() {
				if err != nil {
					if rerr := uc.ledger.Release(context.WithoutCancel(ctx), webhookScope, eventID); rerr != nil {
						log.Warn("release webhook event failed", "err", rerr)
					}
				}
			}()
		}
	}

	if ev.Event == EventPaymentCaptured {
		outcome, err = uc.captured(ctx, ev.Payload.Payment.Entity)
	} else {
		outcome, err = uc.failed(ctx, ev.Payload.Payment.Entity)
	}
	if err != nil {
		log.Error("webhook processing failed", "gateway_order_id", ev.Payload.Payment.Entity.OrderID, "err", err)
		return "", err
	}
	log.Info("webhook processed", "gateway_order_id", ev.Payload.Payment.Entity.OrderID, "outcome", outcome)
	return outcome, nil
}

func (uc *PaymentWebhook) captured(ctx context.Context, e PaymentEntity) (Outcome, error) {
	log := logging.FromCtx(ctx).With("gateway_order_id", e.OrderID)

	ok, err := uc.payments.MarkCompleted(ctx, e.OrderID, e.ID)
	if err != nil {
		return "", fmt.Errorf("%w: mark completed: %v", domain.ErrPersistence, err)
	}

	p, err := uc.load(ctx, e.OrderID)
	if !ok {
		if err != nil {
			return "", err
		}
		if p.Status != domain.PaymentCompleted {
			log.Warn("capture for payment in unexpected state", "payment_id", p.ID, "status", p.Status)
		}
		return OutcomeNoop, nil
	}
	if err != nil {
		// Completed already; only the follow-up side effects are lost.
		log.Warn("reload captured payment failed", "err", err)
		uc.dropStatus(ctx, e.OrderID)
		return OutcomeApplied, nil
	}

	uc.cacheStatus(ctx, p.GatewayOrderID, p)
	if p.Metadata.OrderID != "" {
		uc.moveOrder(ctx, p.Metadata.OrderID, domain.StatusProcessing)
	}
	uc.publish(ctx, ChannelPaymentStatusChanged, statusChanged(p))
	return OutcomeApplied, nil
}

func (uc *PaymentWebhook) failed(ctx context.Context, e PaymentEntity) (Outcome, error) {
	log := logging.FromCtx(ctx).With("gateway_order_id", e.OrderID)

	p, err := uc.load(ctx, e.OrderID)
	if err != nil {
		return "", err
	}
	log = log.With("payment_id", p.ID)
	if p.Status.Terminal() {
		log.Info("failure for terminal payment ignored", "status", p.Status)
		return OutcomeNoop, nil
	}
	if e.ID != "" {
		p.GatewayPaymentID = e.ID
	}

	if !p.Metadata.CanRetry() {
		p.Status = domain.PaymentFailed
		won, err := uc.payments.UpdateIfVersion(ctx, p)
		if err != nil {
			return "", fmt.Errorf("%w: mark failed: %v", domain.ErrPersistence, err)
		}
		if !won {
			return OutcomeNoop, nil
		}
		log.Warn("payment failed permanently", "retry_count", p.Metadata.RetryCount, "reason", e.ErrorDescription)
		uc.cacheStatus(ctx, p.GatewayOrderID, p)
		if p.Metadata.OrderID != "" {
			uc.moveOrder(ctx, p.Metadata.OrderID, domain.StatusFailed)
		}
		uc.publish(ctx, ChannelPaymentStatusChanged, statusChanged(p))
		return OutcomeFailedTerminal, nil
	}

	p.Metadata = p.Metadata.NextRetry(uc.now())
	p.Status = domain.PaymentProcessing
	won, err := uc.payments.UpdateIfVersion(ctx, p)
	if err != nil {
		return "", fmt.Errorf("%w: schedule retry: %v", domain.ErrPersistence, err)
	}
	if !won {
		return OutcomeNoop, nil
	}
	// Pollers holding the old gateway order id see the retry in progress.
	uc.cacheStatus(ctx, p.GatewayOrderID, p)

	gwo, err := uc.gw.CreateOrder(ctx, GatewayOrderRequest{
		AmountMinor: domain.MinorUnits(p.Amount),
		Currency:    p.Currency,
		Receipt:     fmt.Sprintf("retry_%d_%s", p.Metadata.RetryCount, p.ID),
		Notes: map[string]string{
			"original_payment_id": p.ID,
			"retry_count":         strconv.Itoa(p.Metadata.RetryCount),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: create retry order: %v", domain.ErrGateway, err)
	}

	oldOrderID := p.GatewayOrderID
	p.GatewayOrderID = gwo.ID
	won, err = uc.payments.UpdateIfVersion(ctx, p)
	if err != nil {
		log.Error("orphan gateway order", "retry_gateway_order_id", gwo.ID, "err", err)
		return "", fmt.Errorf("%w: attach retry order: %v", domain.ErrPersistence, err)
	}
	if !won {
		log.Error("orphan gateway order", "retry_gateway_order_id", gwo.ID, "err", "lost version race")
		return OutcomeNoop, nil
	}

	uc.cacheStatus(ctx, p.GatewayOrderID, p)
	observ.PaymentRetries.Inc()
	log.Info("payment retry scheduled", "retry_count", p.Metadata.RetryCount, "retry_after", p.Metadata.RetryAfter,
		"old_gateway_order_id", oldOrderID, "new_gateway_order_id", gwo.ID)
	uc.publish(ctx, ChannelPaymentStatusChanged, statusChanged(p))
	uc.publish(ctx, ChannelPaymentRetryScheduled, PaymentRetryScheduledMsg{
		PaymentID:      p.ID,
		UserID:         p.UserID,
		GatewayOrderID: p.GatewayOrderID,
		RetryCount:     p.Metadata.RetryCount,
		RetryAfter:     *p.Metadata.RetryAfter,
	})
	return OutcomeRetryScheduled, nil
}

func (uc *PaymentWebhook) load(ctx context.Context, gatewayOrderID string) (*domain.Payment, error) {
	p, err := uc.payments.GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load payment: %v", domain.ErrPersistence, err)
	}
	return p, nil
}

// moveOrder applies a guarded transition to the linked order. A mismatch means
// the order already moved on and is logged only.
func (uc *PaymentWebhook) moveOrder(ctx context.Context, orderID string, to domain.Status) {
	log := logging.FromCtx(ctx).With("order_id", orderID, "to", to)
	ok, err := uc.orders.UpdateStatusIf(ctx, orderID, domain.AllowedFrom(to), to)
	if err != nil {
		log.Error("update linked order failed", "err", err)
		return
	}
	if !ok {
		log.Warn("linked order not in a source state for transition")
	}
}

// cacheStatus writes the payment's status under gatewayOrderID right after a
// won transition. The status queue projects the same value, but it is not
// relied on because a failed publish would leave pollers on the old status.
func (uc *PaymentWebhook) cacheStatus(ctx context.Context, gatewayOrderID string, p *domain.Payment) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.SetStatus(ctx, gatewayOrderID, p.UserID, string(p.Status)); err != nil {
		logging.FromCtx(ctx).Warn("cache payment status failed", "gateway_order_id", gatewayOrderID, "err", err)
	}
}

func (uc *PaymentWebhook) dropStatus(ctx context.Context, gatewayOrderID string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.DropStatus(ctx, gatewayOrderID); err != nil {
		logging.FromCtx(ctx).Warn("drop cached payment status failed", "gateway_order_id", gatewayOrderID, "err", err)
	}
}

func (uc *PaymentWebhook) publish(ctx context.Context, channel string, msg any) {
	if uc.pub == nil {
		return
	}
	if err := uc.pub.Publish(ctx, channel, msg); err != nil {
		logging.FromCtx(ctx).Warn("publish event failed", "channel", channel, "err", err)
	}
}

func statusChanged(p *domain.Payment) PaymentStatusChangedMsg {
	return PaymentStatusChangedMsg{
		PaymentID:      p.ID,
		UserID:         p.UserID,
		GatewayOrderID: p.GatewayOrderID,
		OrderID:        p.Metadata.OrderID,
		Status:         string(p.Status),
	}
}
