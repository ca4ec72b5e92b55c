package worker

import (
	"context"
	"log"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/watch"
)

// SyncWorker refreshes the admin snapshot whenever another replica reports
// an order or catalog change
type SyncWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewSyncWorker creates a new sync worker
func NewSyncWorker(consumer *broker.Consumer, poller *watch.Poller) *SyncWorker {
	return &SyncWorker{
		consumer:     consumer,
		eventHandler: NewRefreshHandler(poller),
	}
}

// NewRefreshHandler routes every notification to an immediate poller refresh.
// It is shared by the Kafka worker and the in-process publisher.
func NewRefreshHandler(poller *watch.Poller) *broker.EventHandler {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnOrderPlaced(func(ctx context.Context, event *models.OrderPlacedEvent) error {
		return poller.Refresh(ctx)
	})
	eventHandler.OnOrderStatusChanged(func(ctx context.Context, event *models.OrderStatusChangedEvent) error {
		return poller.Refresh(ctx)
	})
	eventHandler.OnCatalogChanged(func(ctx context.Context, event *models.CatalogChangedEvent) error {
		return poller.Refresh(ctx)
	})

	return eventHandler
}

// Start starts the worker
func (w *SyncWorker) Start(ctx context.Context) error {
	log.Println("Starting sync worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *SyncWorker) Stop() error {
	log.Println("Stopping sync worker...")
	return w.consumer.Close()
}
