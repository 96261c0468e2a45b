package usecase

import (
	"context"
	"time"

	domain "github.com/lavanya11112/SEPROJECT/internal/entity"
)

// Every cart/order query is scoped by userID; implementations must filter on it.
type CartRepo interface {
	ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error)
	// Insert creates a cart line and returns it joined with its menu item.
	Insert(ctx context.Context, userID, menuItemID string, quantity int) (domain.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, cartItemID string, quantity int) error
	// Delete is a no-op for unknown ids.
	Delete(ctx context.Context, userID, cartItemID string) error
	DeleteByUser(ctx context.Context, userID string) error
}

type MenuRepo interface {
	GetByID(ctx context.Context, id string) (*domain.MenuItem, error)
}

type OutboxMessage struct {
	ID            int64
	Channel       string
	Payload       []byte
	RetryCount    int
	NextAttemptAt time.Time
}

type OrderRepo interface {
	// CreateWithItems persists the order header, its items and the outbox
	// message atomically.
	CreateWithItems(ctx context.Context, o *domain.Order, msg *OutboxMessage) error
	GetByID(ctx context.Context, userID, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error)
	UpdateStatusIf(ctx context.Context, id string, from []domain.Status, to domain.Status) (bool, error)
}

type PaymentRepo interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Payment, error)
	// MarkCompleted moves a pending/processing payment to completed. It reports
	// false when no row was in one of those states.
	MarkCompleted(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (bool, error)
	// UpdateIfVersion writes status, gateway ids and metadata when p.Version
	// still matches, bumping p.Version on success.
	UpdateIfVersion(ctx context.Context, p *domain.Payment) (bool, error)
}

type OutboxRepo interface {
	FetchDue(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkSent(ctx context.Context, id int64) error
	MarkRetry(ctx context.Context, id int64, retryCount int, next time.Time, dead bool) error
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
	Release(ctx context.Context, scope, key string) error
}

type PaymentStatusCache interface {
	SetStatus(ctx context.Context, gatewayOrderID, userID, status string) error
	GetStatus(ctx context.Context, gatewayOrderID string) (userID, status string, ok bool, err error)
	DropStatus(ctx context.Context, gatewayOrderID string) error
}

type GatewayOrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

type GatewayOrder struct {
	ID          string
	AmountMinor int64
	Currency    string
}

type PaymentGateway interface {
	CreateOrder(ctx context.Context, req GatewayOrderRequest) (GatewayOrder, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, msg any) error
}
