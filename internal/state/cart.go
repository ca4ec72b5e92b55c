package state

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storefront/internal/models"
	"storefront/internal/pricing"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

var (
	// ErrLineNotFound is returned when a cart line does not exist
	ErrLineNotFound = errors.New("cart line not found")
	// ErrInvalidProduct is returned for a product without id or with a negative price
	ErrInvalidProduct = errors.New("invalid product")
)

// CartStore holds one client's cart and wishlist. Mutations are applied in
// memory first and then written through to the store; a failed write is
// returned to the caller but the in-memory change stays.
type CartStore struct {
	mu       sync.Mutex
	store    *store.Store
	clientID string
	policy   pricing.Policy
	logger   *zap.Logger

	cart     []models.CartItem
	wishlist []models.Product
}

// NewCartStore creates an empty store; call Init to load persisted state
func NewCartStore(s *store.Store, clientID string, policy pricing.Policy) *CartStore {
	return &CartStore{
		store:    s,
		clientID: clientID,
		policy:   policy,
		logger:   util.ClientLogger(clientID),
		cart:     []models.CartItem{},
		wishlist: []models.Product{},
	}
}

// Init loads cart and wishlist. Missing or corrupt values start empty; an
// unavailable backend is returned as an error with empty state in place.
func (c *CartStore) Init(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "CartStore.Init")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	cart := []models.CartItem{}
	cartRes := c.store.Load(ctx, c.cartKey(), &cart)
	wishlist := []models.Product{}
	wishRes := c.store.Load(ctx, c.wishlistKey(), &wishlist)

	c.cart = dedupeCart(cart)
	c.wishlist = dedupeWishlist(wishlist)

	for _, res := range []store.LoadResult{cartRes, wishRes} {
		if res.Status == store.LoadUnavailable {
			return res.Err
		}
	}
	return nil
}

// Flush writes cart and wishlist back to the store
func (c *CartStore) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.persistCart(ctx); err != nil {
		return err
	}
	return c.persistWishlist(ctx)
}

// Cart returns a copy of the cart lines
func (c *CartStore) Cart() []models.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]models.CartItem{}, c.cart...)
}

// Wishlist returns a copy of the wishlist
func (c *CartStore) Wishlist() []models.Product {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]models.Product{}, c.wishlist...)
}

// Totals prices the current cart
func (c *CartStore) Totals() pricing.Totals {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.policy.Compute(c.cart)
}

// AddToCart increments the matching line or appends a new one with quantity 1
func (c *CartStore) AddToCart(ctx context.Context, product models.Product, size, color string) error {
	if err := validateProduct(product); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := models.NewLineKey(product.ID, size, color)
	if i := c.indexOf(key); i >= 0 {
		c.cart[i].Quantity++
	} else {
		c.cart = append(c.cart, models.CartItem{
			Product:  product,
			Quantity: 1,
			Size:     key.Size,
			Color:    key.Color,
		})
	}

	util.CartMutationsTotal.WithLabelValues("add").Inc()
	return c.persistCart(ctx)
}

// RemoveFromCart decrements the line, deleting it when it would drop below 1
func (c *CartStore) RemoveFromCart(ctx context.Context, key models.LineKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrLineNotFound, key.ProductID)
	}

	if c.cart[i].Quantity > 1 {
		c.cart[i].Quantity--
	} else {
		c.cart = append(c.cart[:i], c.cart[i+1:]...)
	}

	util.CartMutationsTotal.WithLabelValues("remove").Inc()
	return c.persistCart(ctx)
}

// UpdateQuantity sets quantity to max(1, current+delta). It never removes a line.
func (c *CartStore) UpdateQuantity(ctx context.Context, key models.LineKey, delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrLineNotFound, key.ProductID)
	}

	q := c.cart[i].Quantity + delta
	if q < 1 {
		q = 1
	}
	c.cart[i].Quantity = q

	util.CartMutationsTotal.WithLabelValues("update_quantity").Inc()
	return c.persistCart(ctx)
}

// ClearCart empties the cart unconditionally
func (c *CartStore) ClearCart(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cart = []models.CartItem{}

	util.CartMutationsTotal.WithLabelValues("clear").Inc()
	return c.persistCart(ctx)
}

// AddToWishlist adds product unless its id is already present
func (c *CartStore) AddToWishlist(ctx context.Context, product models.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.wishlistIndex(product.ID) >= 0 {
		return nil
	}
	c.wishlist = append(c.wishlist, product)

	util.CartMutationsTotal.WithLabelValues("wishlist_add").Inc()
	return c.persistWishlist(ctx)
}

// RemoveFromWishlist removes id; removing an absent id is a no-op
func (c *CartStore) RemoveFromWishlist(ctx context.Context, id models.ProductID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.wishlistIndex(id)
	if i < 0 {
		return nil
	}
	c.wishlist = append(c.wishlist[:i], c.wishlist[i+1:]...)

	util.CartMutationsTotal.WithLabelValues("wishlist_remove").Inc()
	return c.persistWishlist(ctx)
}

// ClearWishlist empties the wishlist
func (c *CartStore) ClearWishlist(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.wishlist = []models.Product{}

	util.CartMutationsTotal.WithLabelValues("wishlist_clear").Inc()
	return c.persistWishlist(ctx)
}

// IsInWishlist reports whether id is in the wishlist
func (c *CartStore) IsInWishlist(id models.ProductID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.wishlistIndex(id) >= 0
}

func validateProduct(p models.Product) error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidProduct)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: negative price for %s", ErrInvalidProduct, p.ID)
	}
	return nil
}

func (c *CartStore) indexOf(key models.LineKey) int {
	for i, item := range c.cart {
		if item.Key() == key {
			return i
		}
	}
	return -1
}

func (c *CartStore) wishlistIndex(id models.ProductID) int {
	for i, p := range c.wishlist {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (c *CartStore) persistCart(ctx context.Context) error {
	if err := c.store.Save(ctx, c.cartKey(), c.cart); err != nil {
		c.logger.Error("Failed to persist cart", zap.Error(err))
		return err
	}
	return nil
}

func (c *CartStore) persistWishlist(ctx context.Context) error {
	if err := c.store.Save(ctx, c.wishlistKey(), c.wishlist); err != nil {
		c.logger.Error("Failed to persist wishlist", zap.Error(err))
		return err
	}
	return nil
}

func (c *CartStore) cartKey() string {
	return store.ClientKey(c.clientID, store.KeyCart)
}

func (c *CartStore) wishlistKey() string {
	return store.ClientKey(c.clientID, store.KeyWishlist)
}

// dedupeCart merges lines sharing an identity key and drops invalid lines,
// so state written by older clients still holds one line per key.
func dedupeCart(items []models.CartItem) []models.CartItem {
	out := make([]models.CartItem, 0, len(items))
	seen := make(map[models.LineKey]int, len(items))
	for _, item := range items {
		if validateProduct(item.Product) != nil || item.Quantity < 1 {
			continue
		}
		key := item.Key()
		item.Size, item.Color = key.Size, key.Color
		if i, ok := seen[key]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		seen[key] = len(out)
		out = append(out, item)
	}
	return out
}

func dedupeWishlist(items []models.Product) []models.Product {
	out := make([]models.Product, 0, len(items))
	seen := make(map[models.ProductID]bool, len(items))
	for _, p := range items {
		if validateProduct(p) != nil || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}
