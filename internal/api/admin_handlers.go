package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/auth"
	"storefront/internal/client"
	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// productRequest is the admin product form; the id comes from the path or
// the catalog
type productRequest struct {
	Name        string          `json:"name" binding:"required"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Stock       *int            `json:"stock" binding:"omitempty,gte=0"`
}

func (r productRequest) toModel() models.Product {
	return models.Product{
		Name:        r.Name,
		Price:       r.Price,
		Image:       r.Image,
		Category:    r.Category,
		Description: r.Description,
		Stock:       r.Stock,
	}
}

type statusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

type userStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive suspended"`
}

func adminToken(c *gin.Context) string {
	return c.MustGet(sessionKey).(*auth.SessionManager).Token()
}

func orderFilter(c *gin.Context) service.OrderFilter {
	return service.OrderFilter{
		Query:  c.Query("q"),
		Status: c.Query("status"),
	}
}

// dashboard returns the overview cards
func (h *Handler) dashboard(c *gin.Context) {
	stats, err := h.orders.Stats(c.Request.Context())
	if err != nil {
		storageUnavailable(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// stream pushes a snapshot of orders and products whenever they change
func (h *Handler) stream(c *gin.Context) {
	snapshots, cancel := h.poller.Subscribe()
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			c.SSEvent("snapshot", snap)
			c.Writer.Flush()
		}
	}
}

// listOrders lists the shared orders, optionally filtered
func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.orders.List(c.Request.Context(), orderFilter(c))
	if err != nil {
		storageUnavailable(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// getOrder returns one order
func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// setOrderStatus moves an order to any known status
func (h *Handler) setOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.orders.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) approveRefund(c *gin.Context) {
	h.resolveRefund(c, true)
}

func (h *Handler) denyRefund(c *gin.Context) {
	h.resolveRefund(c, false)
}

func (h *Handler) resolveRefund(c *gin.Context, approve bool) {
	order, err := h.orders.ResolveRefund(c.Request.Context(), c.Param("id"), approve)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// exportOrders downloads the filtered orders as a workbook
func (h *Handler) exportOrders(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.orders.ExportOrders(c.Request.Context(), orderFilter(c), &buf); err != nil {
		h.logger.Error("Order export failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to export orders",
			"details": err.Error(),
		})
		return
	}

	filename := fmt.Sprintf("orders-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// lowStock lists cached products below the stock threshold
func (h *Handler) lowStock(c *gin.Context) {
	products, err := h.catalog.LowStock(c.Request.Context(), models.LowStockThreshold)
	if err != nil {
		storageUnavailable(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// createProduct adds a catalog product
func (h *Handler) createProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	created, err := h.catalog.CreateProduct(c.Request.Context(), req.toModel())
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// updateProduct replaces a catalog product
func (h *Handler) updateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	updated, err := h.catalog.UpdateProduct(c.Request.Context(), models.ProductID(c.Param("id")), req.toModel())
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// deleteProduct removes a catalog product
func (h *Handler) deleteProduct(c *gin.Context) {
	if err := h.catalog.DeleteProduct(c.Request.Context(), models.ProductID(c.Param("id"))); err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// listUsers returns users and admins; a failed list comes back empty with
// its error listed
func (h *Handler) listUsers(c *gin.Context) {
	c.JSON(http.StatusOK, h.users.Directory(c.Request.Context(), adminToken(c)))
}

// updateUser edits an account
func (h *Handler) updateUser(c *gin.Context) {
	var upd client.UserUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.users.UpdateUser(c.Request.Context(), adminToken(c), c.Param("id"), upd); err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// setUserStatus changes an account's status
func (h *Handler) setUserStatus(c *gin.Context) {
	var req userStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.users.SetStatus(c.Request.Context(), adminToken(c), c.Param("id"), req.Status); err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// deleteUser removes an account
func (h *Handler) deleteUser(c *gin.Context) {
	if err := h.users.DeleteUser(c.Request.Context(), adminToken(c), c.Param("id")); err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
