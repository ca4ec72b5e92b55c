package service

import (
	"context"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// EventPublisher announces storefront changes to other replicas
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishCatalogChanged(ctx context.Context, event *models.CatalogChangedEvent) error
}

// notify runs publish when a publisher is configured. Failures are logged;
// they never fail the caller's operation.
func notify(ctx context.Context, pub EventPublisher, what string, publish func(context.Context, EventPublisher) error) {
	if pub == nil {
		return
	}
	if err := publish(ctx, pub); err != nil {
		util.GetLogger().Warn("Failed to publish event", zap.String("event", what), zap.Error(err))
	}
}
