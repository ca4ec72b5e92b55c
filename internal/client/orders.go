package client

import (
	"context"
	"net/http"
	"time"
)

// OrderClient talks to the order service
type OrderClient struct {
	t transport
}

// NewOrderClient creates an order service client
func NewOrderClient(baseURL string, timeout time.Duration) *OrderClient {
	return &OrderClient{t: newTransport("order", baseURL, timeout)}
}

// OrderLineItem is one product entry of the submitted cart
type OrderLineItem struct {
	Quantity int     `json:"quantity" validate:"min=1"`
	Price    float64 `json:"price" validate:"gte=0"`
	Name     string  `json:"name" validate:"required"`
}

// OrderRequest is the reduced order payload; CartItems is keyed by product id
type OrderRequest struct {
	UserID     string                   `json:"userId" validate:"required"`
	CartItems  map[string]OrderLineItem `json:"cartItems" validate:"required,min=1,dive"`
	TotalPrice float64                  `json:"totalPrice" validate:"gte=0"`
}

// OrderResponse is the order service acknowledgement
type OrderResponse struct {
	Message string `json:"message"`
	OrderID string `json:"orderId"`
}

// SubmitOrder posts the order. It is attempted exactly once.
func (c *OrderClient) SubmitOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	var resp OrderResponse
	err := c.t.do(ctx, call{
		operation: "submit_order",
		method:    http.MethodPost,
		path:      "/order",
		body:      req,
		out:       &resp,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
