package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type MenuItem struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// CartItem is one cart line. MenuItem is the joined live menu row and may be nil
// when the menu item has been removed since it was added.
type CartItem struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	MenuItemID string    `json:"menu_item_id"`
	Quantity   int       `json:"quantity"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	MenuItem   *MenuItem `json:"menu_item,omitempty"`
}

// UnitPrice is the joined menu price, zero when the join is missing.
func (c CartItem) UnitPrice() decimal.Decimal {
	if c.MenuItem == nil {
		return decimal.Zero
	}
	return c.MenuItem.Price
}

func (c CartItem) LineTotal() decimal.Decimal {
	return c.UnitPrice().Mul(decimal.NewFromInt(int64(c.Quantity)))
}

func TotalItems(items []CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

func TotalAmount(items []CartItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}
