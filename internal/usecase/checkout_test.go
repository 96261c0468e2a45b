package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	domain "github.com/lavanya11112/SEPROJECT/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeCart struct {
	user       string
	items      []domain.CartItem
	refreshErr error
	refreshed  int
	clearErr   error
	cleared    int
}

func (c *fakeCart) UserID() string           { return c.user }
func (c *fakeCart) Items() []domain.CartItem { return c.items }
func (c *fakeCart) Refresh(context.Context) error {
	c.refreshed++
	return c.refreshErr
}
func (c *fakeCart) ClearCart(context.Context) error {
	c.cleared++
	if c.clearErr != nil {
		return c.clearErr
	}
	c.items = nil
	return nil
}

var pizza = domain.MenuItem{ID: "m-pizza", Name: "Margherita", Price: decimal.RequireFromString("125")}

func pizzaCart() *fakeCart {
	return &fakeCart{user: "u1", items: []domain.CartItem{line("c1", pizza, 2)}}
}

var rules = domain.PricingRules{TaxRate: decimal.RequireFromString("0.05"), DeliveryFee: decimal.RequireFromString("40")}

func newCheckout(orders *mockOrderRepo, idem *mockIdem) *Checkout {
	uc := NewCheckout(orders, idem, rules)
	uc.now = fixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return uc
}

func TestPlaceOrder_PricesAndPersists(t *testing.T) {
	orders := &mockOrderRepo{}
	var saved *domain.Order
	var outbox *OutboxMessage
	orders.On("CreateWithItems", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*domain.Order)
			outbox = args.Get(2).(*OutboxMessage)
		}).Return(nil).Once()
	cart := pizzaCart()

	out, err := newCheckout(orders, nil).PlaceOrder(context.Background(), cart, PlaceOrderInput{})
	require.NoError(t, err)

	o := out.Order
	assert.Same(t, saved, o)
	assert.Equal(t, domain.StatusPending, o.Status)
	assert.Equal(t, "u1", o.UserID)
	assert.Equal(t, "250", o.Subtotal.String())
	assert.Equal(t, "12.5", o.Tax.String())
	assert.True(t, o.Discount.IsZero())
	assert.True(t, o.DeliveryFee.IsZero())
	assert.Equal(t, "262.5", o.TotalAmount.String())

	require.Len(t, o.Items, 1)
	assert.Equal(t, o.ID, o.Items[0].OrderID)
	assert.Equal(t, "Margherita", o.Items[0].Name)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.True(t, pizza.Price.Equal(o.Items[0].Price))

	require.NotNil(t, outbox)
	assert.Equal(t, ChannelOrderPlaced, outbox.Channel)
	var msg OrderPlacedMsg
	require.NoError(t, json.Unmarshal(outbox.Payload, &msg))
	assert.Equal(t, o.ID, msg.OrderID)
	assert.Equal(t, "262.50", msg.TotalAmount)
	assert.Equal(t, 2, msg.ItemCount)

	assert.Equal(t, 1, cart.cleared)
	assert.False(t, out.Replayed)
}

func TestPlaceOrder_PromoAndDelivery(t *testing.T) {
	orders := &mockOrderRepo{}
	orders.On("CreateWithItems", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	out, err := newCheckout(orders, nil).PlaceOrder(context.Background(), pizzaCart(), PlaceOrderInput{
		PromoCode:       "welcome10",
		DeliveryAddress: "12 Baker St",
		ContactNumber:   " 555-0100 ",
	})
	require.NoError(t, err)

	o := out.Order
	assert.Equal(t, "WELCOME10", o.PromoCode)
	assert.Equal(t, "25", o.Discount.String())
	assert.Equal(t, "40", o.DeliveryFee.String())
	assert.Equal(t, "277.5", o.TotalAmount.String())
	assert.Equal(t, "555-0100", o.ContactNumber)
}

func TestPlaceOrder_Rejections(t *testing.T) {
	cases := []struct {
		name string
		cart Cart
		in   PlaceOrderInput
		want error
	}{
		{"no user", &fakeCart{items: pizzaCart().items}, PlaceOrderInput{}, domain.ErrAuthRequired},
		{"nil cart", nil, PlaceOrderInput{}, domain.ErrAuthRequired},
		{"empty cart", &fakeCart{user: "u1"}, PlaceOrderInput{}, domain.ErrEmptyCart},
		{"unknown promo", pizzaCart(), PlaceOrderInput{PromoCode: "FREEFOOD"}, domain.ErrInvalidPromoCode},
		{"missing menu join", &fakeCart{user: "u1", items: []domain.CartItem{{ID: "c1", MenuItemID: "gone", Quantity: 1}}}, PlaceOrderInput{}, domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			orders := &mockOrderRepo{}
			_, err := newCheckout(orders, nil).PlaceOrder(context.Background(), tc.cart, tc.in)
			assert.ErrorIs(t, err, tc.want)
			orders.AssertNotCalled(t, "CreateWithItems", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestPlaceOrder_PersistenceFailureKeepsCart(t *testing.T) {
	orders := &mockOrderRepo{}
	orders.On("CreateWithItems", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("deadlock")).Once()
	idem := &mockIdem{}
	idem.On("Recall", mock.Anything, "checkout:u1", "k1").Return("", false, nil).Once()
	idem.On("TryLock", mock.Anything, "checkout:u1", "k1").Return(true, nil).Once()
	idem.On("Release", mock.Anything, "checkout:u1", "k1").Return(nil).Once()
	cart := pizzaCart()

	_, err := newCheckout(orders, idem).PlaceOrder(context.Background(), cart, PlaceOrderInput{IdempotencyKey: "k1"})
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, 0, cart.cleared)
	assert.Len(t, cart.items, 1)
	idem.AssertExpectations(t)
}

func TestPlaceOrder_ClearFailureStillSucceeds(t *testing.T) {
	orders := &mockOrderRepo{}
	orders.On("CreateWithItems", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	cart := pizzaCart()
	cart.clearErr = errors.New("timeout")

	out, err := newCheckout(orders, nil).PlaceOrder(context.Background(), cart, PlaceOrderInput{})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Order.ID)
	assert.Equal(t, 1, cart.cleared)
}

func TestPlaceOrder_IdempotencyRemembersOrder(t *testing.T) {
	orders := &mockOrderRepo{}
	orders.On("CreateWithItems", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	idem := &mockIdem{}
	idem.On("Recall", mock.Anything, "checkout:u1", "k1").Return("", false, nil).Once()
	idem.On("TryLock", mock.Anything, "checkout:u1", "k1").Return(true, nil).Once()
	idem.On("Remember", mock.Anything, "checkout:u1", "k1", mock.AnythingOfType("string")).Return(nil).Once()

	out, err := newCheckout(orders, idem).PlaceOrder(context.Background(), pizzaCart(), PlaceOrderInput{IdempotencyKey: "k1"})
	require.NoError(t, err)
	idem.AssertCalled(t, "Remember", mock.Anything, "checkout:u1", "k1", out.Order.ID)
	idem.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceOrder_ReplayReturnsOriginal(t *testing.T) {
	orders := &mockOrderRepo{}
	prior := &domain.Order{ID: "o-1", UserID: "u1", Status: domain.StatusPending}
	orders.On("GetByID", mock.Anything, "u1", "o-1").Return(prior, nil).Once()
	idem := &mockIdem{}
	idem.On("Recall", mock.Anything, "checkout:u1", "k1").Return("o-1", true, nil).Once()
	cart := pizzaCart()

	out, err := newCheckout(orders, idem).PlaceOrder(context.Background(), cart, PlaceOrderInput{IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.True(t, out.Replayed)
	assert.Equal(t, "o-1", out.Order.ID)
	assert.Equal(t, 0, cart.cleared)
	orders.AssertNotCalled(t, "CreateWithItems", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceOrder_DuplicateInFlight(t *testing.T) {
	idem := &mockIdem{}
	idem.On("Recall", mock.Anything, "checkout:u1", "k1").Return("", false, nil).Once()
	idem.On("TryLock", mock.Anything, "checkout:u1", "k1").Return(false, nil).Once()

	_, err := newCheckout(&mockOrderRepo{}, idem).PlaceOrder(context.Background(), pizzaCart(), PlaceOrderInput{IdempotencyKey: "k1"})
	assert.ErrorIs(t, err, domain.ErrDuplicateRequest)
}

func TestCheckout_ValidatePromo(t *testing.T) {
	uc := newCheckout(&mockOrderRepo{}, nil)

	code, rate, err := uc.ValidatePromo(" special25 ")
	require.NoError(t, err)
	assert.Equal(t, "SPECIAL25", code)
	assert.Equal(t, "0.25", rate.String())

	_, _, err = uc.ValidatePromo("NOPE")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCheckout_Quote(t *testing.T) {
	q, err := newCheckout(&mockOrderRepo{}, nil).Quote(pizzaCart(), "WELCOME10", false)
	require.NoError(t, err)
	assert.Equal(t, "237.5", q.Total.String())
}

func TestCheckout_GetAndListOrders(t *testing.T) {
	orders := &mockOrderRepo{}
	orders.On("GetByID", mock.Anything, "u1", "missing").Return(nil, domain.ErrNotFound).Once()
	orders.On("ListByUser", mock.Anything, "u1", 20).Return([]domain.Order{{ID: "o-1"}}, nil).Once()
	uc := newCheckout(orders, nil)

	_, err := uc.GetOrder(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := uc.ListOrders(context.Background(), "u1", 500)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = uc.ListOrders(context.Background(), "", 10)
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}

func TestPlaceOrder_ReplayAfterCartCleared(t *testing.T) {
	orders := &mockOrderRepo{}
	prior := &domain.Order{ID: "o-1", UserID: "u1", Status: domain.StatusPending}
	orders.On("GetByID", mock.Anything, "u1", "o-1").Return(prior, nil).Once()
	idem := &mockIdem{}
	idem.On("Recall", mock.Anything, "checkout:u1", "k1").Return("o-1", true, nil).Once()

	out, err := newCheckout(orders, idem).PlaceOrder(context.Background(), &fakeCart{user: "u1"}, PlaceOrderInput{IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.True(t, out.Replayed)
	idem.AssertNotCalled(t, "TryLock", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceOrder_PricesCurrentMenuRows(t *testing.T) {
	repo := &mockCartRepo{}
	sess := openSession(t, repo, []domain.CartItem{line("c1", burger, 2)})
	repriced := burger
	repriced.Price = decimal.RequireFromString("200")
	repo.On("ListByUser", mock.Anything, "u1").Return([]domain.CartItem{line("c1", repriced, 2)}, nil).Once()
	repo.On("DeleteByUser", mock.Anything, "u1").Return(nil).Once()
	orders := &mockOrderRepo{}
	orders.On("CreateWithItems", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	out, err := newCheckout(orders, nil).PlaceOrder(context.Background(), sess, PlaceOrderInput{})
	require.NoError(t, err)

	require.Len(t, out.Order.Items, 1)
	assert.Equal(t, "200", out.Order.Items[0].Price.String())
	assert.Equal(t, "400", out.Order.Subtotal.String())
	assert.Equal(t, "420", out.Order.TotalAmount.String())
	repo.AssertExpectations(t)
}

func TestPlaceOrder_RefreshFailure(t *testing.T) {
	orders := &mockOrderRepo{}
	idem := &mockIdem{}
	idem.On("Recall", mock.Anything, "checkout:u1", "k1").Return("", false, nil).Once()
	cart := pizzaCart()
	cart.refreshErr = fmt.Errorf("%w: list cart: timeout", domain.ErrPersistence)

	_, err := newCheckout(orders, idem).PlaceOrder(context.Background(), cart, PlaceOrderInput{IdempotencyKey: "k1"})
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, 1, cart.refreshed)
	idem.AssertNotCalled(t, "TryLock", mock.Anything, mock.Anything, mock.Anything)
	orders.AssertNotCalled(t, "CreateWithItems", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceOrder_SnapshotsEveryLine(t *testing.T) {
	a := domain.MenuItem{ID: "m-a", Name: "Paneer Tikka", Price: decimal.RequireFromString("100")}
	b := domain.MenuItem{ID: "m-b", Name: "Lassi", Price: decimal.RequireFromString("50")}
	cart := &fakeCart{user: "u1", items: []domain.CartItem{line("c1", a, 2), line("c2", b, 1)}}
	orders := &mockOrderRepo{}
	orders.On("CreateWithItems", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	out, err := newCheckout(orders, nil).PlaceOrder(context.Background(), cart, PlaceOrderInput{})
	require.NoError(t, err)

	o := out.Order
	assert.Equal(t, "250", o.Subtotal.String())
	assert.Equal(t, "12.5", o.Tax.String())
	assert.Equal(t, "262.5", o.TotalAmount.String())
	require.Len(t, o.Items, 2)
	assert.Equal(t, "m-a", o.Items[0].MenuItemID)
	assert.Equal(t, "Paneer Tikka", o.Items[0].Name)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Equal(t, "100", o.Items[0].Price.String())
	assert.Equal(t, "m-b", o.Items[1].MenuItemID)
	assert.Equal(t, "Lassi", o.Items[1].Name)
	assert.Equal(t, 1, o.Items[1].Quantity)
	assert.Equal(t, "50", o.Items[1].Price.String())
	for _, it := range o.Items {
		assert.Equal(t, o.ID, it.OrderID)
	}
	assert.Equal(t, 1, cart.cleared)
}
