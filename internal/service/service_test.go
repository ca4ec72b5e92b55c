package service

import (
	"context"
	"errors"
	"sync"

	"storefront/internal/client"
	"storefront/internal/models"
)

type recordingPublisher struct {
	mu      sync.Mutex
	placed  []*models.OrderPlacedEvent
	changed []*models.OrderStatusChangedEvent
	catalog []*models.CatalogChangedEvent
	err     error
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, e *models.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placed = append(p.placed, e)
	return p.err
}

func (p *recordingPublisher) PublishOrderStatusChanged(_ context.Context, e *models.OrderStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, e)
	return p.err
}

func (p *recordingPublisher) PublishCatalogChanged(_ context.Context, e *models.CatalogChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.catalog = append(p.catalog, e)
	return p.err
}

type fakeSubmitter struct {
	requests []client.OrderRequest
	err      error
}

func (f *fakeSubmitter) SubmitOrder(_ context.Context, req client.OrderRequest) (*client.OrderResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &client.OrderResponse{Message: "Order received!", OrderID: "-Nupstream"}, nil
}

var errUpstreamDown = errors.New("dial tcp: connection refused")
