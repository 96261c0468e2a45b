package usecase

import (
	"context"
	"time"

	domain "github.com/lavanya11112/SEPROJECT/internal/entity"
	"github.com/stretchr/testify/mock"
)

type mockCartRepo struct{ mock.Mock }

func (m *mockCartRepo) ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error) {
	args := m.Called(ctx, userID)
	items, _ := args.Get(0).([]domain.CartItem)
	return items, args.Error(1)
}

func (m *mockCartRepo) Insert(ctx context.Context, userID, menuItemID string, quantity int) (domain.CartItem, error) {
	args := m.Called(ctx, userID, menuItemID, quantity)
	return args.Get(0).(domain.CartItem), args.Error(1)
}

func (m *mockCartRepo) UpdateQuantity(ctx context.Context, userID, cartItemID string, quantity int) error {
	return m.Called(ctx, userID, cartItemID, quantity).Error(0)
}

func (m *mockCartRepo) Delete(ctx context.Context, userID, cartItemID string) error {
	return m.Called(ctx, userID, cartItemID).Error(0)
}

func (m *mockCartRepo) DeleteByUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockMenuRepo struct{ mock.Mock }

func (m *mockMenuRepo) GetByID(ctx context.Context, id string) (*domain.MenuItem, error) {
	args := m.Called(ctx, id)
	mi, _ := args.Get(0).(*domain.MenuItem)
	return mi, args.Error(1)
}

type mockOrderRepo struct{ mock.Mock }

func (m *mockOrderRepo) CreateWithItems(ctx context.Context, o *domain.Order, msg *OutboxMessage) error {
	return m.Called(ctx, o, msg).Error(0)
}

func (m *mockOrderRepo) GetByID(ctx context.Context, userID, id string) (*domain.Order, error) {
	args := m.Called(ctx, userID, id)
	o, _ := args.Get(0).(*domain.Order)
	return o, args.Error(1)
}

func (m *mockOrderRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	args := m.Called(ctx, userID, limit)
	list, _ := args.Get(0).([]domain.Order)
	return list, args.Error(1)
}

func (m *mockOrderRepo) UpdateStatusIf(ctx context.Context, id string, from []domain.Status, to domain.Status) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

type mockPaymentRepo struct{ mock.Mock }

func (m *mockPaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockPaymentRepo) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Payment, error) {
	args := m.Called(ctx, gatewayOrderID)
	p, _ := args.Get(0).(*domain.Payment)
	if p != nil {
		cp := *p
		return &cp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPaymentRepo) MarkCompleted(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (bool, error) {
	args := m.Called(ctx, gatewayOrderID, gatewayPaymentID)
	return args.Bool(0), args.Error(1)
}

func (m *mockPaymentRepo) UpdateIfVersion(ctx context.Context, p *domain.Payment) (bool, error) {
	// Snapshot what was written; the caller keeps mutating p afterwards.
	cp := *p
	args := m.Called(ctx, cp)
	won := args.Bool(0)
	if won {
		p.Version++
	}
	return won, args.Error(1)
}

type mockIdem struct{ mock.Mock }

func (m *mockIdem) TryLock(ctx context.Context, scope, key string) (bool, error) {
	args := m.Called(ctx, scope, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdem) Remember(ctx context.Context, scope, key, value string) error {
	return m.Called(ctx, scope, key, value).Error(0)
}

func (m *mockIdem) Recall(ctx context.Context, scope, key string) (string, bool, error) {
	args := m.Called(ctx, scope, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockIdem) Release(ctx context.Context, scope, key string) error {
	return m.Called(ctx, scope, key).Error(0)
}

type mockGateway struct{ mock.Mock }

func (m *mockGateway) CreateOrder(ctx context.Context, req GatewayOrderRequest) (GatewayOrder, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(GatewayOrder), args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, msg any) error {
	return m.Called(ctx, routingKey, msg).Error(0)
}

type mockStatusCache struct{ mock.Mock }

func (m *mockStatusCache) SetStatus(ctx context.Context, gatewayOrderID, userID, status string) error {
	return m.Called(ctx, gatewayOrderID, userID, status).Error(0)
}

func (m *mockStatusCache) GetStatus(ctx context.Context, gatewayOrderID string) (string, string, bool, error) {
	args := m.Called(ctx, gatewayOrderID)
	return args.String(0), args.String(1), args.Bool(2), args.Error(3)
}

func (m *mockStatusCache) DropStatus(ctx context.Context, gatewayOrderID string) error {
	return m.Called(ctx, gatewayOrderID).Error(0)
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }
