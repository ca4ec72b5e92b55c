package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// CatalogClient talks to the catalog service
type CatalogClient struct {
	t transport
}

// NewCatalogClient creates a product service client
func NewCatalogClient(baseURL string, timeout time.Duration) *CatalogClient {
	return &CatalogClient{t: newTransport("catalog", baseURL, timeout)}
}

// CatalogProduct is the catalog service's product record
type CatalogProduct struct {
	ID          models.ProductID `json:"id" validate:"required"`
	Name        string           `json:"name" validate:"required"`
	Price       decimal.Decimal  `json:"price"`
	Description string           `json:"description"`
	Stock       int              `json:"stock"`
	CategoryID  string           `json:"categoryId"`
	ImageURL    string           `json:"imageUrl"`
}

// ToModel converts the record into the storefront product
func (p CatalogProduct) ToModel() models.Product {
	stock := p.Stock
	return models.Product{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Image:       p.ImageURL,
		Category:    p.CategoryID,
		Description: p.Description,
		Stock:       &stock,
	}
}

// ProductInput is the body of product create and update
type ProductInput struct {
	Name        string  `json:"name" validate:"required"`
	Price       float64 `json:"price" validate:"gte=0"`
	Description string  `json:"description,omitempty"`
	Stock       int     `json:"stock" validate:"gte=0"`
	CategoryID  string  `json:"categoryId,omitempty"`
	ImageURL    string  `json:"imageUrl,omitempty"`
}

// ProductInputFrom builds the upstream body from a storefront product
func ProductInputFrom(p models.Product) ProductInput {
	in := ProductInput{
		Name:        p.Name,
		Price:       p.Price.InexactFloat64(),
		Description: p.Description,
		CategoryID:  p.Category,
		ImageURL:    p.Image,
	}
	if p.Stock != nil {
		in.Stock = *p.Stock
	}
	if in.CategoryID == "" {
		in.CategoryID = "general"
	}
	return in
}

type productCreated struct {
	Message string           `json:"message"`
	ID      models.ProductID `json:"id" validate:"required"`
}

type catalogAck struct {
	Message string `json:"message"`
}

// ListProducts fetches every catalog product
func (c *CatalogClient) ListProducts(ctx context.Context) ([]models.Product, error) {
	var records []CatalogProduct
	err := c.t.do(ctx, call{
		operation: "list_products",
		method:    http.MethodGet,
		path:      "/products",
		out:       &records,
	})
	if err != nil {
		return nil, err
	}

	products := make([]models.Product, 0, len(records))
	for _, r := range records {
		products = append(products, r.ToModel())
	}
	return products, nil
}

// CreateProduct adds a product and returns its id
func (c *CatalogClient) CreateProduct(ctx context.Context, in ProductInput) (models.ProductID, error) {
	var resp productCreated
	err := c.t.do(ctx, call{
		operation: "create_product",
		method:    http.MethodPost,
		path:      "/products",
		body:      in,
		out:       &resp,
	})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// UpdateProduct replaces a product
func (c *CatalogClient) UpdateProduct(ctx context.Context, id models.ProductID, in ProductInput) error {
	return c.t.do(ctx, call{
		operation: "update_product",
		method:    http.MethodPut,
		path:      "/products/" + url.PathEscape(id.String()),
		body:      in,
		out:       &catalogAck{},
	})
}

// DeleteProduct removes a product
func (c *CatalogClient) DeleteProduct(ctx context.Context, id models.ProductID) error {
	return c.t.do(ctx, call{
		operation: "delete_product",
		method:    http.MethodDelete,
		path:      "/products/" + url.PathEscape(id.String()),
		out:       &catalogAck{},
	})
}
