package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

var DefaultTaxRate = decimal.RequireFromString("0.05")

// promoCodes are matched case-insensitively. There is no server-side promo
// authority; this table is the whole rule set.
var promoCodes = map[string]decimal.Decimal{
	"WELCOME10": decimal.RequireFromString("0.10"),
	"SPECIAL25": decimal.RequireFromString("0.25"),
}

// LookupPromo returns the discount rate for code. An empty code is valid and
// yields zero.
func LookupPromo(code string) (decimal.Decimal, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return decimal.Zero, nil
	}
	rate, ok := promoCodes[strings.ToUpper(code)]
	if !ok {
		return decimal.Zero, ErrInvalidPromoCode
	}
	return rate, nil
}

type PricingRules struct {
	TaxRate     decimal.Decimal
	DeliveryFee decimal.Decimal
}

type Quote struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Discount    decimal.Decimal `json:"discount"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Total       decimal.Decimal `json:"total"`
	PromoCode   string          `json:"promo_code,omitempty"`
}

// PriceCart computes the checkout totals. The delivery fee only applies to
// delivery orders.
func PriceCart(items []CartItem, promo string, delivery bool, rules PricingRules) (Quote, error) {
	if len(items) == 0 {
		return Quote{}, ErrEmptyCart
	}
	rate, err := LookupPromo(promo)
	if err != nil {
		return Quote{}, err
	}
	taxRate := rules.TaxRate
	if taxRate.IsZero() {
		taxRate = DefaultTaxRate
	}

	subtotal := TotalAmount(items)
	q := Quote{
		Subtotal:    subtotal,
		Tax:         subtotal.Mul(taxRate).Round(2),
		Discount:    subtotal.Mul(rate).Round(2),
		DeliveryFee: decimal.Zero,
	}
	if rate.IsPositive() {
		q.PromoCode = strings.ToUpper(strings.TrimSpace(promo))
	}
	if delivery {
		q.DeliveryFee = rules.DeliveryFee
	}
	q.Total = subtotal.Add(q.Tax).Sub(q.Discount).Add(q.DeliveryFee).Round(2)
	return q, nil
}
