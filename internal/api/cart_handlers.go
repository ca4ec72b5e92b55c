package api

import (
	"errors"
	"net/http"

	"storefront/internal/models"
	"storefront/internal/state"

	"github.com/gin-gonic/gin"
)

type addToCartRequest struct {
	Product models.Product `json:"product" binding:"required"`
	Size    string         `json:"size"`
	Color   string         `json:"color"`
}

type updateQuantityRequest struct {
	Size  string `json:"size"`
	Color string `json:"color"`
	Delta int    `json:"delta" binding:"required"`
}

type wishlistRequest struct {
	Product models.Product `json:"product" binding:"required"`
}

func cartBody(cart *state.CartStore) gin.H {
	return gin.H{
		"items":  cart.Cart(),
		"totals": cart.Totals(),
	}
}

// mutationFailed maps a cart mutation error; the in-memory change is not
// reported as saved
func mutationFailed(c *gin.Context, err error) {
	if errors.Is(err, state.ErrInvalidProduct) {
		badRequest(c, err)
		return
	}
	if errors.Is(err, state.ErrLineNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Cart line not found",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":   "Failed to save cart",
		"details": err.Error(),
	})
}

func lineKey(c *gin.Context, size, color string) models.LineKey {
	return models.NewLineKey(models.ProductID(c.Param("id")), size, color)
}

// getCart returns cart lines and totals
func (h *Handler) getCart(c *gin.Context) {
	cart, ok := h.loadCart(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cartBody(cart))
}

// addToCart adds one unit of a product variant
func (h *Handler) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cart, ok := h.loadCart(c)
	if !ok {
		return
	}
	if err := cart.AddToCart(c.Request.Context(), req.Product, req.Size, req.Color); err != nil {
		mutationFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, cartBody(cart))
}

// removeFromCart removes one unit; size and color come from the query
func (h *Handler) removeFromCart(c *gin.Context) {
	cart, ok := h.loadCart(c)
	if !ok {
		return
	}
	key := lineKey(c, c.Query("size"), c.Query("color"))
	if err := cart.RemoveFromCart(c.Request.Context(), key); err != nil {
		mutationFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, cartBody(cart))
}

// updateQuantity changes a line's quantity by delta, never below one
func (h *Handler) updateQuantity(c *gin.Context) {
	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cart, ok := h.loadCart(c)
	if !ok {
		return
	}
	if err := cart.UpdateQuantity(c.Request.Context(), lineKey(c, req.Size, req.Color), req.Delta); err != nil {
		mutationFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, cartBody(cart))
}

// clearCart empties the cart
func (h *Handler) clearCart(c *gin.Context) {
	cart, ok := h.loadCart(c)
	if !ok {
		return
	}
	if err := cart.ClearCart(c.Request.Context()); err != nil {
		mutationFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, cartBody(cart))
}

// getWishlist returns saved products
func (h *Handler) getWishlist(c *gin.Context) {
	cart, ok := h.loadCart(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": cart.Wishlist()})
}

// addToWishlist saves a product; adding twice is a no-op
func (h *Handler) addToWishlist(c *gin.Context) {
	var req wishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cart, ok := h.loadCart(c)
	if !ok {
		return
	}
	if err := cart.AddToWishlist(c.Request.Context(), req.Product); err != nil {
		mutationFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": cart.Wishlist()})
}

// isInWishlist reports membership
func (h *Handler) isInWishlist(c *gin.Context) {
	cart, ok := h.loadCart(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":          c.Param("id"),
		"in_wishlist": cart.IsInWishlist(models.ProductID(c.Param("id"))),
	})
}

// removeFromWishlist drops a product; absent ids are a no-op
func (h *Handler) removeFromWishlist(c *gin.Context) {
	cart, ok := h.loadCart(c)
	if !ok {
		return
	}
	if err := cart.RemoveFromWishlist(c.Request.Context(), models.ProductID(c.Param("id"))); err != nil {
		mutationFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": cart.Wishlist()})
}
