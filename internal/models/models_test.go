package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductIDAcceptsNumbersAndStrings(t *testing.T) {
	var fromNumber, fromString Product
	require.NoError(t, json.Unmarshal([]byte(`{"id": 42, "name": "Scarf", "price": 19.5}`), &fromNumber))
	require.NoError(t, json.Unmarshal([]byte(`{"id": "42", "name": "Scarf", "price": "19.5"}`), &fromString))

	assert.Equal(t, ProductID("42"), fromNumber.ID)
	assert.Equal(t, fromNumber.ID, fromString.ID)
	assert.True(t, fromNumber.Price.Equal(decimal.RequireFromString("19.5")))
}

func TestProductIDRejectsGarbage(t *testing.T) {
	var p Product
	assert.Error(t, json.Unmarshal([]byte(`{"id": {"x": 1}}`), &p))
}

func TestNewLineKeyNormalizesVariants(t *testing.T) {
	assert.Equal(t, LineKey{ProductID: "7", Size: DefaultVariant, Color: DefaultVariant}, NewLineKey("7", "", "  "))
	assert.Equal(t, LineKey{ProductID: "7", Size: "M", Color: "Navy"}, NewLineKey("7", " M ", "Navy"))

	item := CartItem{Product: Product{ID: "7"}, Quantity: 1}
	assert.Equal(t, NewLineKey("7", "", ""), item.Key())
}

func TestOrderStatusValid(t *testing.T) {
	assert.True(t, OrderStatusRefundRequested.Valid())
	assert.True(t, OrderStatus("Pending").Valid())
	assert.False(t, OrderStatus("pending").Valid())
	assert.False(t, OrderStatus("").Valid())
}

func TestProfileUpdateApplyTo(t *testing.T) {
	name := "Ada"
	city := "Hartford"
	user := &User{Email: "ada@example.com", Name: "A", Phone: "555"}

	upd := ProfileUpdate{Name: &name, City: &city}
	assert.False(t, upd.Empty())
	upd.ApplyTo(user)

	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, "Hartford", user.City)
	assert.Equal(t, "555", user.Phone)
	assert.True(t, ProfileUpdate{}.Empty())
}

func TestBuildDashboard(t *testing.T) {
	stock := func(n int) *int { return &n }

	var orders []Order
	for i := 0; i < 7; i++ {
		orders = append(orders, Order{ID: string(rune('a' + i)), Total: decimal.RequireFromString("10.25")})
	}
	products := []Product{
		{ID: "1", Stock: stock(0)},
		{ID: "2", Stock: stock(10)},
		{ID: "3"},
		{ID: "4", Stock: stock(9)},
		{ID: "5", Stock: stock(2)},
		{ID: "6", Stock: stock(1)},
	}

	d := BuildDashboard(orders, products)

	assert.Equal(t, "71.75", d.TotalRevenue.StringFixed(2))
	assert.Equal(t, 7, d.TotalOrders)
	assert.Equal(t, 6, d.TotalProducts)
	assert.Equal(t, 4, d.LowStockCount)
	require.Len(t, d.RecentOrders, 5)
	assert.Equal(t, "a", d.RecentOrders[0].ID)
	require.Len(t, d.LowStockProducts, 3)
	assert.Equal(t, ProductID("4"), d.LowStockProducts[1].ID)

	empty := BuildDashboard(nil, nil)
	assert.True(t, empty.TotalRevenue.IsZero())
	assert.NotNil(t, empty.RecentOrders)
}

func TestNewBaseEvent(t *testing.T) {
	before := time.Now()
	a := NewBaseEvent(EventTypeCatalogChanged)
	b := NewBaseEvent(EventTypeCatalogChanged)

	assert.Equal(t, EventTypeCatalogChanged, a.EventType)
	_, err := uuid.Parse(a.EventID)
	require.NoError(t, err)
	assert.NotEqual(t, a.EventID, b.EventID)
	assert.False(t, a.Timestamp.Before(before))
}
