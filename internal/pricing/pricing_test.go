package pricing

import (
	"testing"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeSubtotal(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name     string
		subtotal string
		shipping string
		tax      string
		total    string
	}{
		{"free shipping above threshold", "120.00", "0", "7.62", "127.62"},
		{"flat fee below threshold", "50.00", "15", "3.18", "68.18"},
		{"threshold itself still pays shipping", "100.00", "15", "6.35", "121.35"},
		{"empty cart", "0", "15", "0", "15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.ComputeSubtotal(d(tt.subtotal))
			assert.True(t, got.Shipping.Equal(d(tt.shipping)), "shipping %s", got.Shipping)
			assert.True(t, got.Tax.Equal(d(tt.tax)), "tax %s", got.Tax)
			assert.True(t, got.Total.Equal(d(tt.total)), "total %s", got.Total)
		})
	}
}

func TestComputeSumsLines(t *testing.T) {
	items := []models.CartItem{
		{Product: models.Product{ID: "1", Price: d("40.00")}, Quantity: 2},
		{Product: models.Product{ID: "2", Price: d("19.99")}, Quantity: 1},
	}

	got := DefaultPolicy().Compute(items)

	assert.True(t, got.Subtotal.Equal(d("99.99")))
	assert.True(t, got.Shipping.Equal(d("15")))
	assert.True(t, got.Tax.Equal(d("6.35")))
	assert.True(t, got.Total.Equal(d("121.34")))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("0.10", "5", "50")
	require.NoError(t, err)
	assert.True(t, p.ComputeSubtotal(d("60")).Total.Equal(d("66")))

	_, err = ParsePolicy("ten", "5", "50")
	assert.Error(t, err)
	_, err = ParsePolicy("0.1", "-5", "50")
	assert.Error(t, err)
}
