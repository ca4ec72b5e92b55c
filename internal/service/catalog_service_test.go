package service

import (
	"context"
	"net/http"
	"testing"

	"storefront/internal/client"
	"storefront/internal/models"
	"storefront/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	products []models.Product
	listErr  error
	writeErr error
	created  []client.ProductInput
	nextID   models.ProductID
}

func (f *fakeCatalog) ListProducts(context.Context) ([]models.Product, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.products, nil
}

func (f *fakeCatalog) CreateProduct(_ context.Context, in client.ProductInput) (models.ProductID, error) {
	if f.writeErr != nil {
		return "", f.writeErr
	}
	f.created = append(f.created, in)
	return f.nextID, nil
}

func (f *fakeCatalog) UpdateProduct(context.Context, models.ProductID, client.ProductInput) error {
	return f.writeErr
}

func (f *fakeCatalog) DeleteProduct(context.Context, models.ProductID) error {
	return f.writeErr
}

func stockOf(n int) *int { return &n }

func TestListProductsCachesAndFallsBack(t *testing.T) {
	api := &fakeCatalog{products: []models.Product{
		{ID: "1", Name: "Navy Blazer", Price: decimal.RequireFromString("299.99"), Stock: stockOf(15)},
		{ID: "2", Name: "Khaki Chinos", Price: decimal.RequireFromString("119.99"), Stock: stockOf(4)},
	}}
	svc := NewCatalogService(api, store.NewStore(store.NewMemoryBackend(), "test"), nil)
	ctx := context.Background()

	listing, err := svc.ListProducts(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, SourceCatalog, listing.Source)
	assert.False(t, listing.Stale)
	assert.Len(t, listing.Products, 2)

	api.listErr = errUpstreamDown
	listing, err = svc.ListProducts(ctx, "blazer")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, listing.Source)
	assert.True(t, listing.Stale)
	assert.NotEmpty(t, listing.Error)
	require.Len(t, listing.Products, 1)
	assert.Equal(t, models.ProductID("1"), listing.Products[0].ID)

	low, err := svc.LowStock(ctx, models.LowStockThreshold)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, models.ProductID("2"), low[0].ID)
}

func TestProductMutationsUpdateCacheAndAnnounce(t *testing.T) {
	api := &fakeCatalog{nextID: "9"}
	pub := &recordingPublisher{}
	svc := NewCatalogService(api, store.NewStore(store.NewMemoryBackend(), "test"), pub)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, models.Product{Name: " Scarf ", Price: decimal.NewFromInt(25)})
	require.NoError(t, err)
	assert.Equal(t, models.ProductID("9"), created.ID)
	assert.Equal(t, "Scarf", created.Name)
	assert.Equal(t, DefaultProductImage, created.Image)
	require.Len(t, api.created, 1)
	assert.Equal(t, "general", api.created[0].CategoryID)

	updated, err := svc.UpdateProduct(ctx, "9", models.Product{Name: "Wool Scarf", Price: decimal.NewFromInt(30), Stock: stockOf(3)})
	require.NoError(t, err)
	assert.Equal(t, models.ProductID("9"), updated.ID)

	low, err := svc.LowStock(ctx, 10)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Wool Scarf", low[0].Name)

	require.NoError(t, svc.DeleteProduct(ctx, "9"))
	low, err = svc.LowStock(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, low)

	require.Len(t, pub.catalog, 3)
	assert.Equal(t, "deleted", pub.catalog[2].Action)

	api.writeErr = &client.StatusError{Upstream: "catalog", Operation: "delete_product", StatusCode: http.StatusNotFound}
	assert.ErrorIs(t, svc.DeleteProduct(ctx, "9"), ErrProductNotFound)
	_, err = svc.UpdateProduct(ctx, "9", models.Product{Name: "x"})
	assert.ErrorIs(t, err, ErrProductNotFound)
}
