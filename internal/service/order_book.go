package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// OrderFilter narrows the admin order list. An empty Status or "all"
// matches every status.
type OrderFilter struct {
	Query  string
	Status string
}

func (f OrderFilter) matches(o models.Order) bool {
	if f.Status != "" && !strings.EqualFold(f.Status, "all") && string(o.Status) != f.Status {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(o.ID), q) ||
		strings.Contains(strings.ToLower(o.CustomerName), q) ||
		strings.Contains(strings.ToLower(o.CustomerEmail), q)
}

// OrderBook manages the shared admin order list, most recent first
type OrderBook struct {
	mu        sync.Mutex
	store     *store.Store
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewOrderBook creates a new order book. publisher may be nil.
func NewOrderBook(s *store.Store, publisher EventPublisher) *OrderBook {
	return &OrderBook{
		store:     s,
		publisher: publisher,
		logger:    util.GetLogger(),
		now:       time.Now,
	}
}

// load reads the list; missing or corrupt data yields an empty list
func (b *OrderBook) load(ctx context.Context) ([]models.Order, error) {
	orders := []models.Order{}
	res := b.store.Load(ctx, store.SharedKey(store.KeyAdminOrders), &orders)
	if res.Status == store.LoadUnavailable {
		return nil, fmt.Errorf("failed to load orders: %w", res.Err)
	}
	return orders, nil
}

// List returns the orders matching filter
func (b *OrderBook) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderBook.List")
	defer span.End()

	orders, err := b.load(ctx)
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	matched := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if filter.matches(o) {
			matched = append(matched, o)
		}
	}
	return matched, nil
}

// Get returns one order
func (b *OrderBook) Get(ctx context.Context, id string) (*models.Order, error) {
	orders, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].ID == id {
			return &orders[i], nil
		}
	}
	return nil, ErrOrderNotFound
}

// Append puts order at the head of the list
func (b *OrderBook) Append(ctx context.Context, order models.Order) error {
	ctx, span := util.StartSpan(ctx, "OrderBook.Append", attribute.String("order.id", order.ID))
	defer span.End()

	b.mu.Lock()
	defer b.mu.Unlock()

	orders, err := b.load(ctx)
	if err != nil {
		util.RecordError(span, err)
		return err
	}

	orders = append([]models.Order{order}, orders...)
	if err := b.store.Save(ctx, store.SharedKey(store.KeyAdminOrders), orders); err != nil {
		util.RecordError(span, err)
		return fmt.Errorf("failed to save orders: %w", err)
	}
	return nil
}

// SetStatus moves an order to any known status
func (b *OrderBook) SetStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return b.transition(ctx, id, func(o *models.Order) (models.OrderStatus, error) {
		return status, nil
	})
}

// RequestRefund is the customer's refund request. The order must belong to
// email and must not already be in the refund flow.
func (b *OrderBook) RequestRefund(ctx context.Context, id, email string) (*models.Order, error) {
	return b.transition(ctx, id, func(o *models.Order) (models.OrderStatus, error) {
		if !strings.EqualFold(strings.TrimSpace(o.CustomerEmail), strings.TrimSpace(email)) {
			return "", ErrOrderNotFound
		}
		if o.Status == models.OrderStatusRefundRequested || o.Status == models.OrderStatusRefunded {
			return "", ErrRefundNotAllowed
		}
		return models.OrderStatusRefundRequested, nil
	})
}

// ResolveRefund approves (Refunded) or denies (Completed) a pending request
func (b *OrderBook) ResolveRefund(ctx context.Context, id string, approve bool) (*models.Order, error) {
	return b.transition(ctx, id, func(o *models.Order) (models.OrderStatus, error) {
		if o.Status != models.OrderStatusRefundRequested {
			return "", ErrRefundNotAllowed
		}
		if approve {
			return models.OrderStatusRefunded, nil
		}
		return models.OrderStatusCompleted, nil
	})
}

func (b *OrderBook) transition(ctx context.Context, id string, next func(*models.Order) (models.OrderStatus, error)) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderBook.transition", attribute.String("order.id", id))
	defer span.End()

	b.mu.Lock()
	orders, err := b.load(ctx)
	if err != nil {
		b.mu.Unlock()
		util.RecordError(span, err)
		return nil, err
	}

	idx := -1
	for i := range orders {
		if orders[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		return nil, ErrOrderNotFound
	}

	order := &orders[idx]
	from := order.Status
	to, err := next(order)
	if err != nil {
		b.mu.Unlock()
		return nil, err
	}

	order.Status = to
	order.UpdatedAt = b.now()
	if err := b.store.Save(ctx, store.SharedKey(store.KeyAdminOrders), orders); err != nil {
		b.mu.Unlock()
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to save orders: %w", err)
	}
	updated := *order
	b.mu.Unlock()

	util.OrderStatusChangesTotal.WithLabelValues(string(to)).Inc()
	b.logger.Info("Order status changed",
		zap.String("order_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)))

	notify(ctx, b.publisher, models.EventTypeOrderStatusChanged, func(ctx context.Context, p EventPublisher) error {
		return p.PublishOrderStatusChanged(ctx, &models.OrderStatusChangedEvent{
			BaseEvent: models.NewBaseEvent(models.EventTypeOrderStatusChanged),
			OrderID:   id,
			From:      from,
			To:        to,
		})
	})

	return &updated, nil
}

// Stats builds the admin dashboard from the order list and product cache
func (b *OrderBook) Stats(ctx context.Context) (models.Dashboard, error) {
	ctx, span := util.StartSpan(ctx, "OrderBook.Stats")
	defer span.End()

	orders, err := b.load(ctx)
	if err != nil {
		util.RecordError(span, err)
		return models.Dashboard{}, err
	}
	products := []models.Product{}
	if res := b.store.Load(ctx, store.SharedKey(store.KeyAdminProducts), &products); res.Status == store.LoadUnavailable {
		util.RecordError(span, res.Err)
		return models.Dashboard{}, fmt.Errorf("failed to load products: %w", res.Err)
	}
	return models.BuildDashboard(orders, products), nil
}
