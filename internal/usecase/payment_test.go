package usecase

import (
	"context"
	"errors"
	"testing"

	domain "github.com/lavanya11112/SEPROJECT/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newPayments(gw *mockGateway, repo *mockPaymentRepo, orders *mockOrderRepo, cache *mockStatusCache) *Payments {
	var c PaymentStatusCache
	if cache != nil {
		c = cache
	}
	return NewPayments(gw, repo, orders, c, PaymentsConfig{Currency: "INR", KeyID: "rzp_test_key"})
}

func TestCreatePaymentOrder_Success(t *testing.T) {
	gw := &mockGateway{}
	gw.On("CreateOrder", mock.Anything, mock.MatchedBy(func(r GatewayOrderRequest) bool {
		return r.AmountMinor == 26250 && r.Currency == "INR" &&
			r.Notes["payment_type"] == "one_time" && r.Notes["user_id"] == "u1" && r.Notes["plan_id"] == "basic"
	})).Return(GatewayOrder{ID: "order_GW1", AmountMinor: 26250, Currency: "INR"}, nil).Once()

	repo := &mockPaymentRepo{}
	var saved *domain.Payment
	repo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*domain.Payment)
	}).Return(nil).Once()

	cache := &mockStatusCache{}
	cache.On("SetStatus", mock.Anything, "order_GW1", "u1", "pending").Return(nil).Once()

	out, err := newPayments(gw, repo, &mockOrderRepo{}, cache).CreatePaymentOrder(context.Background(), CreatePaymentInput{
		UserID: "u1",
		Amount: decimal.RequireFromString("262.50"),
		PlanID: "basic",
	})
	require.NoError(t, err)

	assert.Equal(t, CreatePaymentOutput{OrderID: "order_GW1", Amount: 26250, Currency: "INR", KeyID: "rzp_test_key"}, out)
	require.NotNil(t, saved)
	assert.Equal(t, domain.PaymentPending, saved.Status)
	assert.Equal(t, domain.PaymentOneTime, saved.Type)
	assert.Equal(t, "order_GW1", saved.GatewayOrderID)
	assert.Equal(t, 0, saved.Metadata.RetryCount)
	assert.Equal(t, "basic", saved.Metadata.PlanID)
	cache.AssertExpectations(t)
}

func TestCreatePaymentOrder_Validation(t *testing.T) {
	cases := []struct {
		name string
		in   CreatePaymentInput
		want error
	}{
		{"no user", CreatePaymentInput{Amount: decimal.NewFromInt(10)}, domain.ErrAuthRequired},
		{"zero amount", CreatePaymentInput{UserID: "u1"}, domain.ErrInvalidAmount},
		{"negative amount", CreatePaymentInput{UserID: "u1", Amount: decimal.NewFromInt(-5)}, domain.ErrValidation},
		{"bad type", CreatePaymentInput{UserID: "u1", Amount: decimal.NewFromInt(5), Type: "weekly"}, domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &mockGateway{}
			_, err := newPayments(gw, &mockPaymentRepo{}, &mockOrderRepo{}, nil).CreatePaymentOrder(context.Background(), tc.in)
			assert.ErrorIs(t, err, tc.want)
			gw.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
		})
	}
}

func TestCreatePaymentOrder_GatewayFailureWritesNothing(t *testing.T) {
	gw := &mockGateway{}
	gw.On("CreateOrder", mock.Anything, mock.Anything).Return(GatewayOrder{}, errors.New("503")).Once()
	repo := &mockPaymentRepo{}

	_, err := newPayments(gw, repo, &mockOrderRepo{}, nil).CreatePaymentOrder(context.Background(), CreatePaymentInput{
		UserID: "u1", Amount: decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, domain.ErrGateway)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreatePaymentOrder_InsertFailure(t *testing.T) {
	gw := &mockGateway{}
	gw.On("CreateOrder", mock.Anything, mock.Anything).Return(GatewayOrder{ID: "order_GW2", AmountMinor: 1000, Currency: "INR"}, nil).Once()
	repo := &mockPaymentRepo{}
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("duplicate key")).Once()

	_, err := newPayments(gw, repo, &mockOrderRepo{}, nil).CreatePaymentOrder(context.Background(), CreatePaymentInput{
		UserID: "u1", Amount: decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestCreatePaymentOrder_LinkedOrder(t *testing.T) {
	orders := &mockOrderRepo{}
	orders.On("GetByID", mock.Anything, "u1", "o-1").
		Return(&domain.Order{ID: "o-1", UserID: "u1", Status: domain.StatusPending, TotalAmount: decimal.RequireFromString("262.5")}, nil)
	orders.On("GetByID", mock.Anything, "u1", "o-paid").
		Return(&domain.Order{ID: "o-paid", UserID: "u1", Status: domain.StatusProcessing, TotalAmount: decimal.RequireFromString("10")}, nil)
	orders.On("GetByID", mock.Anything, "u1", "o-other").Return(nil, domain.ErrNotFound)

	gw := &mockGateway{}
	gw.On("CreateOrder", mock.Anything, mock.MatchedBy(func(r GatewayOrderRequest) bool { return r.Notes["order_id"] == "o-1" })).
		Return(GatewayOrder{ID: "order_GW3", AmountMinor: 26250, Currency: "INR"}, nil).Once()
	repo := &mockPaymentRepo{}
	repo.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool { return p.Metadata.OrderID == "o-1" })).Return(nil).Once()
	uc := newPayments(gw, repo, orders, nil)

	_, err := uc.CreatePaymentOrder(context.Background(), CreatePaymentInput{UserID: "u1", Amount: decimal.RequireFromString("262.50"), OrderID: "o-1"})
	require.NoError(t, err)

	_, err = uc.CreatePaymentOrder(context.Background(), CreatePaymentInput{UserID: "u1", Amount: decimal.RequireFromString("100"), OrderID: "o-1"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = uc.CreatePaymentOrder(context.Background(), CreatePaymentInput{UserID: "u1", Amount: decimal.RequireFromString("10"), OrderID: "o-paid"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = uc.CreatePaymentOrder(context.Background(), CreatePaymentInput{UserID: "u1", Amount: decimal.RequireFromString("10"), OrderID: "o-other"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	gw.AssertNumberOfCalls(t, "CreateOrder", 1)
}

func TestPaymentStatus_CacheThenDB(t *testing.T) {
	cache := &mockStatusCache{}
	cache.On("GetStatus", mock.Anything, "order_hit").Return("u1", "completed", true, nil)
	cache.On("GetStatus", mock.Anything, "order_miss").Return("", "", false, nil)
	cache.On("GetStatus", mock.Anything, "order_foreign").Return("u2", "pending", true, nil)
	cache.On("SetStatus", mock.Anything, "order_miss", "u1", "processing").Return(nil).Once()

	repo := &mockPaymentRepo{}
	repo.On("GetByGatewayOrderID", mock.Anything, "order_miss").
		Return(&domain.Payment{ID: "p1", UserID: "u1", GatewayOrderID: "order_miss", Status: domain.PaymentProcessing}, nil).Once()

	uc := newPayments(&mockGateway{}, repo, &mockOrderRepo{}, cache)

	st, err := uc.PaymentStatus(context.Background(), "u1", "order_hit")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCompleted, st)

	st, err = uc.PaymentStatus(context.Background(), "u1", "order_miss")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentProcessing, st)

	_, err = uc.PaymentStatus(context.Background(), "u1", "order_foreign")
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)

	cache.AssertExpectations(t)
}
