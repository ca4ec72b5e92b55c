package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/config"
	"storefront/internal/client"
	"storefront/internal/models"
	"storefront/internal/pricing"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ConfirmationPath is where the storefront sends the customer after checkout
const ConfirmationPath = "/order-confirmation"

// OrderSubmitter sends the reduced order payload to the order service
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, req client.OrderRequest) (*client.OrderResponse, error)
}

// Cart is the part of the cart state checkout needs
type Cart interface {
	Cart() []models.CartItem
	Totals() pricing.Totals
	ClearCart(ctx context.Context) error
}

// CheckoutForm is the shipping and contact form
type CheckoutForm struct {
	Email         string `json:"email"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Address       string `json:"address"`
	Apartment     string `json:"apartment"`
	City          string `json:"city"`
	State         string `json:"state"`
	Zip           string `json:"zip"`
	PaymentMethod string `json:"paymentMethod"`
}

// Validate reports the blank required fields in form order
func (f CheckoutForm) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"email", f.Email},
		{"firstName", f.FirstName},
		{"lastName", f.LastName},
		{"address", f.Address},
		{"city", f.City},
		{"state", f.State},
		{"zip", f.Zip},
	}

	var missing []string
	for _, field := range fields {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// ShippingAddress formats "address[, apartment], city, state zip"
func (f CheckoutForm) ShippingAddress() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(f.Address))
	if apt := strings.TrimSpace(f.Apartment); apt != "" {
		b.WriteString(", ")
		b.WriteString(apt)
	}
	fmt.Fprintf(&b, ", %s, %s %s", strings.TrimSpace(f.City), strings.TrimSpace(f.State), strings.TrimSpace(f.Zip))
	return b.String()
}

// CheckoutResult is returned once the order has been recorded locally
type CheckoutResult struct {
	Order           models.Order `json:"order"`
	Submitted       bool         `json:"submitted"`
	UpstreamOrderID string       `json:"upstream_order_id,omitempty"`
	SubmitError     string       `json:"submit_error,omitempty"`
	Warnings        []string     `json:"warnings,omitempty"`
	Redirect        string       `json:"redirect"`
}

// CheckoutService turns a cart into an order
type CheckoutService struct {
	submitter        OrderSubmitter
	orders           *OrderBook
	store            *store.Store
	publisher        EventPublisher
	onBackendFailure string
	logger           *zap.Logger
	now              func() time.Time
}

// NewCheckoutService creates a new checkout service. onBackendFailure is
// config.FailurePolicyProceed or config.FailurePolicyBlock.
func NewCheckoutService(
	submitter OrderSubmitter,
	orders *OrderBook,
	s *store.Store,
	publisher EventPublisher,
	onBackendFailure string,
) *CheckoutService {
	if onBackendFailure != config.FailurePolicyBlock {
		onBackendFailure = config.FailurePolicyProceed
	}
	return &CheckoutService{
		submitter:        submitter,
		orders:           orders,
		store:            s,
		publisher:        publisher,
		onBackendFailure: onBackendFailure,
		logger:           util.GetLogger(),
		now:              time.Now,
	}
}

// Checkout validates the form, submits the order once and records the
// receipt. With the proceed policy a failed submission is reported in the
// result and the order is still recorded.
func (s *CheckoutService) Checkout(ctx context.Context, clientID string, cart Cart, form CheckoutForm) (*CheckoutResult, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Checkout", attribute.String("client.id", clientID))
	defer span.End()

	if err := form.Validate(); err != nil {
		util.CheckoutsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	items := cart.Cart()
	if len(items) == 0 {
		util.CheckoutsTotal.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}

	order := s.buildOrder(form, items, cart.Totals())
	span.SetAttributes(attribute.String("order.id", order.ID))

	result := &CheckoutResult{Redirect: ConfirmationPath}

	resp, err := s.submitter.SubmitOrder(ctx, buildPayload(form, items, order.Total))
	if err != nil {
		util.OrderSubmissionsFailedTotal.WithLabelValues(s.onBackendFailure).Inc()
		s.logger.Error("Order submission failed",
			zap.String("order_id", order.ID),
			zap.String("policy", s.onBackendFailure),
			zap.Error(err))

		if s.onBackendFailure == config.FailurePolicyBlock {
			util.CheckoutsTotal.WithLabelValues("blocked").Inc()
			util.RecordError(span, err)
			return nil, &SubmissionError{Err: err}
		}
		result.SubmitError = err.Error()
	} else {
		result.Submitted = true
		result.UpstreamOrderID = resp.OrderID
		order.UpstreamOrderID = resp.OrderID
		s.logger.Info("Order submitted",
			zap.String("order_id", order.ID),
			zap.String("upstream_order_id", resp.OrderID))
	}
	result.Order = order

	if err := s.store.Save(ctx, store.ClientKey(clientID, store.KeyLastOrder), order); err != nil {
		result.Warnings = append(result.Warnings, "receipt not saved")
		s.logger.Error("Failed to save receipt", zap.String("order_id", order.ID), zap.Error(err))
	}
	if err := s.orders.Append(ctx, order); err != nil {
		result.Warnings = append(result.Warnings, "order not added to admin list")
		s.logger.Error("Failed to record order", zap.String("order_id", order.ID), zap.Error(err))
	}
	if err := cart.ClearCart(ctx); err != nil {
		result.Warnings = append(result.Warnings, "cart not cleared")
		s.logger.Error("Failed to clear cart", zap.String("client_id", clientID), zap.Error(err))
	}

	notify(ctx, s.publisher, models.EventTypeOrderPlaced, func(ctx context.Context, p EventPublisher) error {
		return p.PublishOrderPlaced(ctx, &models.OrderPlacedEvent{
			BaseEvent:     models.NewBaseEvent(models.EventTypeOrderPlaced),
			OrderID:       order.ID,
			CustomerEmail: order.CustomerEmail,
			Total:         order.Total.StringFixed(2),
			ItemCount:     len(order.Items),
			Submitted:     result.Submitted,
		})
	})

	if result.Submitted {
		util.CheckoutsTotal.WithLabelValues("submitted").Inc()
	} else {
		util.CheckoutsTotal.WithLabelValues("recorded_only").Inc()
	}
	return result, nil
}

// LastOrder returns the client's most recent receipt
func (s *CheckoutService) LastOrder(ctx context.Context, clientID string) (*models.Order, error) {
	var order models.Order
	res := s.store.Load(ctx, store.ClientKey(clientID, store.KeyLastOrder), &order)
	switch res.Status {
	case store.LoadFound:
		return &order, nil
	case store.LoadUnavailable:
		return nil, fmt.Errorf("failed to load receipt: %w", res.Err)
	default:
		return nil, ErrOrderNotFound
	}
}

func (s *CheckoutService) buildOrder(form CheckoutForm, items []models.CartItem, totals pricing.Totals) models.Order {
	now := s.now()

	lines := make([]models.OrderLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, models.OrderLine{
			ID:       item.ID,
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.Price,
			Size:     item.Size,
			Color:    item.Color,
			Image:    item.Image,
		})
	}

	return models.Order{
		ID:              newOrderID(),
		CustomerName:    strings.TrimSpace(form.FirstName) + " " + strings.TrimSpace(form.LastName),
		CustomerEmail:   strings.TrimSpace(form.Email),
		Items:           lines,
		Subtotal:        totals.Subtotal,
		Shipping:        totals.Shipping,
		Tax:             totals.Tax,
		Total:           totals.Total,
		Status:          models.OrderStatusPending,
		Date:            now.UTC().Format("2006-01-02"),
		ShippingAddress: form.ShippingAddress(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func newOrderID() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "ORD-" + strings.ToUpper(raw[:8])
}

// buildPayload reduces the cart to the order service's schema. Lines of the
// same product in different variants are merged.
func buildPayload(form CheckoutForm, items []models.CartItem, total decimal.Decimal) client.OrderRequest {
	userID := strings.TrimSpace(form.Email)
	if userID == "" {
		userID = "guest"
	}

	cartItems := make(map[string]client.OrderLineItem, len(items))
	for _, item := range items {
		id := item.ID.String()
		line, ok := cartItems[id]
		if !ok {
			line = client.OrderLineItem{Price: item.Price.InexactFloat64(), Name: item.Name}
		}
		line.Quantity += item.Quantity
		cartItems[id] = line
	}
	return client.OrderRequest{
		UserID:     userID,
		CartItems:  cartItems,
		TotalPrice: total.InexactFloat64(),
	}
}
