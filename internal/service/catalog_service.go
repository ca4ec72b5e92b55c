package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"storefront/internal/client"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// DefaultProductImage is used when an admin saves a product without one
const DefaultProductImage = "/diverse-clothing-rack.png"

// Product list sources
const (
	SourceCatalog = "catalog"
	SourceCache   = "cache"
)

// CatalogAPI is the catalog service
type CatalogAPI interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	CreateProduct(ctx context.Context, in client.ProductInput) (models.ProductID, error)
	UpdateProduct(ctx context.Context, id models.ProductID, in client.ProductInput) error
	DeleteProduct(ctx context.Context, id models.ProductID) error
}

// ProductListing is a product list and where it came from. Stale is set when
// the catalog could not be reached and the cached list was served instead.
type ProductListing struct {
	Products []models.Product `json:"products"`
	Source   string           `json:"source"`
	Stale    bool             `json:"stale"`
	Error    string           `json:"error,omitempty"`
}

// CatalogService reads the catalog and keeps the shared product cache
type CatalogService struct {
	mu        sync.Mutex
	api       CatalogAPI
	store     *store.Store
	publisher EventPublisher
	logger    *zap.Logger
}

// NewCatalogService creates a new catalog service. publisher may be nil.
func NewCatalogService(api CatalogAPI, s *store.Store, publisher EventPublisher) *CatalogService {
	return &CatalogService{
		api:       api,
		store:     s,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// ListProducts returns products whose name contains query. On catalog
// failure the cached list is served and the listing is marked stale.
func (c *CatalogService) ListProducts(ctx context.Context, query string) (*ProductListing, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListProducts")
	defer span.End()

	listing := &ProductListing{Source: SourceCatalog}

	products, err := c.api.ListProducts(ctx)
	if err == nil {
		c.mu.Lock()
		if saveErr := c.saveCache(ctx, products); saveErr != nil {
			c.logger.Warn("Failed to refresh product cache", zap.Error(saveErr))
		}
		c.mu.Unlock()
	} else {
		c.logger.Warn("Catalog unavailable, serving cached products", zap.Error(err))
		util.RecordError(span, err)

		cached, cacheErr := c.loadCache(ctx)
		if cacheErr != nil {
			return nil, fmt.Errorf("failed to list products: %w", err)
		}
		products = cached
		listing.Source = SourceCache
		listing.Stale = true
		listing.Error = err.Error()
	}

	listing.Products = filterByName(products, query)
	return listing, nil
}

// CreateProduct adds a product upstream and to the cache
func (c *CatalogService) CreateProduct(ctx context.Context, p models.Product) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	p = withDefaults(p)
	id, err := c.api.CreateProduct(ctx, client.ProductInputFrom(p))
	if err != nil {
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	p.ID = id

	c.updateCache(ctx, func(products []models.Product) []models.Product {
		return append(products, p)
	})
	c.announce(ctx, p.ID, "created")
	return &p, nil
}

// UpdateProduct replaces a product upstream and in the cache
func (c *CatalogService) UpdateProduct(ctx context.Context, id models.ProductID, p models.Product) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct")
	defer span.End()

	p = withDefaults(p)
	p.ID = id
	if err := c.api.UpdateProduct(ctx, id, client.ProductInputFrom(p)); err != nil {
		util.RecordError(span, err)
		if client.IsStatus(err, http.StatusNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	c.updateCache(ctx, func(products []models.Product) []models.Product {
		for i := range products {
			if products[i].ID == id {
				products[i] = p
				return products
			}
		}
		return append(products, p)
	})
	c.announce(ctx, id, "updated")
	return &p, nil
}

// DeleteProduct removes a product upstream and from the cache
func (c *CatalogService) DeleteProduct(ctx context.Context, id models.ProductID) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.DeleteProduct")
	defer span.End()

	if err := c.api.DeleteProduct(ctx, id); err != nil {
		util.RecordError(span, err)
		if client.IsStatus(err, http.StatusNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	c.updateCache(ctx, func(products []models.Product) []models.Product {
		kept := products[:0]
		for _, p := range products {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		return kept
	})
	c.announce(ctx, id, "deleted")
	return nil
}

// LowStock returns cached products with known stock below threshold
func (c *CatalogService) LowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	products, err := c.loadCache(ctx)
	if err != nil {
		return nil, err
	}
	low := []models.Product{}
	for _, p := range products {
		if p.IsLowStock(threshold) {
			low = append(low, p)
		}
	}
	return low, nil
}

func (c *CatalogService) loadCache(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	res := c.store.Load(ctx, store.SharedKey(store.KeyAdminProducts), &products)
	if res.Status == store.LoadUnavailable {
		return nil, fmt.Errorf("failed to load product cache: %w", res.Err)
	}
	return products, nil
}

func (c *CatalogService) saveCache(ctx context.Context, products []models.Product) error {
	return c.store.Save(ctx, store.SharedKey(store.KeyAdminProducts), products)
}

// updateCache applies a local edit after an upstream write succeeded. Cache
// failures are logged only; the catalog is the source of truth.
func (c *CatalogService) updateCache(ctx context.Context, edit func([]models.Product) []models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	products, err := c.loadCache(ctx)
	if err != nil {
		c.logger.Warn("Product cache not updated", zap.Error(err))
		return
	}
	if err := c.saveCache(ctx, edit(products)); err != nil {
		c.logger.Warn("Product cache not updated", zap.Error(err))
	}
}

func (c *CatalogService) announce(ctx context.Context, id models.ProductID, action string) {
	c.logger.Info("Product changed", zap.String("product_id", id.String()), zap.String("action", action))
	notify(ctx, c.publisher, models.EventTypeCatalogChanged, func(ctx context.Context, p EventPublisher) error {
		return p.PublishCatalogChanged(ctx, &models.CatalogChangedEvent{
			BaseEvent: models.NewBaseEvent(models.EventTypeCatalogChanged),
			ProductID: id,
			Action:    action,
		})
	})
}

func withDefaults(p models.Product) models.Product {
	p.Name = strings.TrimSpace(p.Name)
	if strings.TrimSpace(p.Image) == "" {
		p.Image = DefaultProductImage
	}
	if p.Stock == nil {
		zero := 0
		p.Stock = &zero
	}
	return p
}

func filterByName(products []models.Product, query string) []models.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return products
	}
	matched := []models.Product{}
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), q) {
			matched = append(matched, p)
		}
	}
	return matched
}
