package api

import (
	"errors"
	"net/http"

	"storefront/internal/client"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// listProducts serves the catalog, falling back to the cached list
func (h *Handler) listProducts(c *gin.Context) {
	listing, err := h.catalog.ListProducts(c.Request.Context(), c.Query("q"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to list products",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, listing)
}

// placeOrder runs checkout for the client's cart
func (h *Handler) placeOrder(c *gin.Context) {
	var form service.CheckoutForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, err)
		return
	}

	cart, ok := h.loadCart(c)
	if !ok {
		return
	}

	result, err := h.checkout.Checkout(c.Request.Context(), clientID(c), cart, form)
	if err != nil {
		var verr *service.ValidationError
		var serr *service.SubmissionError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Missing required fields",
				"details": err.Error(),
				"missing": verr.Missing,
			})
		case errors.Is(err, service.ErrEmptyCart):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Cart is empty",
			})
		case errors.As(err, &serr):
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "Failed to submit order",
				"details": err.Error(),
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Checkout failed",
				"details": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusCreated, result)
}

// lastOrder returns the confirmation receipt
func (h *Handler) lastOrder(c *gin.Context) {
	order, err := h.checkout.LastOrder(c.Request.Context(), clientID(c))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":    "No recent order",
				"redirect": "/",
			})
			return
		}
		storageUnavailable(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// requestRefund lets a signed-in customer ask for a refund of their order
func (h *Handler) requestRefund(c *gin.Context) {
	session, ok := h.loadSession(c)
	if !ok {
		return
	}
	user := session.User()
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":    "Login required",
			"redirect": "/login",
		})
		return
	}

	order, err := h.orders.RequestRefund(c.Request.Context(), c.Param("id"), user.Email)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// serviceError maps service errors to responses
func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Order not found",
		})
	case errors.Is(err, service.ErrRefundNotAllowed):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Refund not allowed",
			"details": err.Error(),
		})
	case errors.Is(err, service.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid status",
			"details": err.Error(),
		})
	case errors.Is(err, service.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Product not found",
		})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "User not found",
		})
	case errors.Is(err, client.ErrInvalidPayload):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
	default:
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Request failed",
			"details": err.Error(),
		})
	}
}
