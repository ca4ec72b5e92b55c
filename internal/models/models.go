package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProductID is the normalized product identifier. Upstream services send
// ids both as JSON numbers and strings; both decode to the same value.
type ProductID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ProductID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid product id %s: %w", data, err)
	}
	*id = ProductID(n.String())
	return nil
}

func (id ProductID) String() string {
	return string(id)
}

// Product is a read-only, possibly stale copy of a catalog entry
type Product struct {
	ID          ProductID       `json:"id" binding:"required"`
	Name        string          `json:"name" binding:"required"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category,omitempty"`
	Description string          `json:"description,omitempty"`
	Stock       *int            `json:"stock,omitempty"`
}

// DefaultVariant is used for size and color when none is chosen
const DefaultVariant = "Default"

// LineKey identifies a cart line
type LineKey struct {
	ProductID ProductID
	Size      string
	Color     string
}

// NewLineKey builds a normalized line key
func NewLineKey(id ProductID, size, color string) LineKey {
	return LineKey{
		ProductID: id,
		Size:      normalizeVariant(size),
		Color:     normalizeVariant(color),
	}
}

func normalizeVariant(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return DefaultVariant
	}
	return v
}

// CartItem is a product line in the cart
type CartItem struct {
	Product
	Quantity int    `json:"quantity"`
	Size     string `json:"size"`
	Color    string `json:"color"`
}

// Key returns the identity key of the line
func (c CartItem) Key() LineKey {
	return NewLineKey(c.ID, c.Size, c.Color)
}

// LineTotal returns price × quantity
func (c CartItem) LineTotal() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// User is the signed-in customer or admin
type User struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
}

// ProfileUpdate carries only the fields the caller wants changed
type ProfileUpdate struct {
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
	City    *string `json:"city,omitempty"`
	State   *string `json:"state,omitempty"`
	Zip     *string `json:"zip,omitempty"`
}

// Empty reports whether no field is set
func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.Phone == nil && u.Address == nil &&
		u.City == nil && u.State == nil && u.Zip == nil
}

// ApplyTo merges the set fields into user
func (u ProfileUpdate) ApplyTo(user *User) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&user.Name, u.Name)
	set(&user.Phone, u.Phone)
	set(&user.Address, u.Address)
	set(&user.City, u.City)
	set(&user.State, u.State)
	set(&user.Zip, u.Zip)
}

// OrderStatus is the lifecycle state of an order
type OrderStatus string

// Order statuses
const (
	OrderStatusPending         OrderStatus = "Pending"
	OrderStatusProcessing      OrderStatus = "Processing"
	OrderStatusShipped         OrderStatus = "Shipped"
	OrderStatusCompleted       OrderStatus = "Completed"
	OrderStatusCancelled       OrderStatus = "Cancelled"
	OrderStatusRefundRequested OrderStatus = "Refund Requested"
	OrderStatusRefunded        OrderStatus = "Refunded"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusRefundRequested,
	OrderStatusRefunded,
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	for _, known := range orderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// OrderLine is a snapshot of a cart line taken at checkout
type OrderLine struct {
	ID       ProductID       `json:"id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Size     string          `json:"size,omitempty"`
	Color    string          `json:"color,omitempty"`
	Image    string          `json:"image,omitempty"`
}

// Order is the receipt kept for the confirmation page and the admin list
type Order struct {
	ID              string          `json:"id"`
	CustomerName    string          `json:"customer_name"`
	CustomerEmail   string          `json:"customer_email"`
	Items           []OrderLine     `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Shipping        decimal.Decimal `json:"shipping"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	Date            string          `json:"date"`
	ShippingAddress string          `json:"shipping_address"`
	UpstreamOrderID string          `json:"upstream_order_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
