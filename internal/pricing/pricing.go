package pricing

import (
	"fmt"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// Policy holds the checkout price rules
type Policy struct {
	TaxRate          decimal.Decimal
	ShippingFee      decimal.Decimal
	FreeShippingOver decimal.Decimal
}

// DefaultPolicy is 6.35% tax, $15 shipping, free shipping over $100
func DefaultPolicy() Policy {
	return Policy{
		TaxRate:          decimal.RequireFromString("0.0635"),
		ShippingFee:      decimal.NewFromInt(15),
		FreeShippingOver: decimal.NewFromInt(100),
	}
}

// ParsePolicy builds a policy from decimal strings
func ParsePolicy(taxRate, shippingFee, freeOver string) (Policy, error) {
	rate, err := decimal.NewFromString(taxRate)
	if err != nil {
		return Policy{}, fmt.Errorf("invalid tax rate %q: %w", taxRate, err)
	}
	fee, err := decimal.NewFromString(shippingFee)
	if err != nil {
		return Policy{}, fmt.Errorf("invalid shipping fee %q: %w", shippingFee, err)
	}
	threshold, err := decimal.NewFromString(freeOver)
	if err != nil {
		return Policy{}, fmt.Errorf("invalid free shipping threshold %q: %w", freeOver, err)
	}
	if rate.IsNegative() || fee.IsNegative() || threshold.IsNegative() {
		return Policy{}, fmt.Errorf("pricing values must not be negative")
	}
	return Policy{TaxRate: rate, ShippingFee: fee, FreeShippingOver: threshold}, nil
}

// Totals is the price breakdown of a cart
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Compute prices the given cart lines
func (p Policy) Compute(items []models.CartItem) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return p.ComputeSubtotal(subtotal)
}

// ComputeSubtotal derives shipping, tax and total from a subtotal.
// Shipping is free only strictly above the threshold; tax is rounded to cents.
func (p Policy) ComputeSubtotal(subtotal decimal.Decimal) Totals {
	shipping := p.ShippingFee
	if subtotal.GreaterThan(p.FreeShippingOver) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(p.TaxRate).Round(2)

	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}
