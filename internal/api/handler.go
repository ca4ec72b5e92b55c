package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront/internal/auth"
	"storefront/internal/pricing"
	"storefront/internal/service"
	"storefront/internal/state"
	"storefront/internal/store"
	"storefront/internal/util"
	"storefront/internal/watch"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Client identification
const (
	ClientIDHeader = "X-Client-ID"
	ClientCookie   = "ccb_client"

	clientIDKey = "client_id"
	sessionKey  = "session"

	clientCookieMaxAge = 365 * 24 * 60 * 60
)

// Deps are the components the handlers serve
type Deps struct {
	Store    *store.Store
	AuthAPI  auth.API
	Policy   pricing.Policy
	Checkout *service.CheckoutService
	Orders   *service.OrderBook
	Catalog  *service.CatalogService
	Users    *service.UserAdminService
	Poller   *watch.Poller
}

// Handler contains HTTP handlers
type Handler struct {
	store    *store.Store
	authAPI  auth.API
	policy   pricing.Policy
	checkout *service.CheckoutService
	orders   *service.OrderBook
	catalog  *service.CatalogService
	users    *service.UserAdminService
	poller   *watch.Poller
	carts    *state.ClientLocks
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(d Deps) *Handler {
	return &Handler{
		store:    d.Store,
		authAPI:  d.AuthAPI,
		policy:   d.Policy,
		checkout: d.Checkout,
		orders:   d.Orders,
		catalog:  d.Catalog,
		users:    d.Users,
		poller:   d.Poller,
		carts:    state.NewClientLocks(),
		logger:   util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(clientIDMiddleware())
	{
		v1.POST("/auth/login", h.login)
		v1.POST("/auth/signup/:type", h.signup)
		v1.POST("/auth/logout", h.logout)
		v1.GET("/auth/session", h.getSession)
		v1.PUT("/profile", h.updateProfile)

		v1.GET("/products", h.listProducts)

		v1.GET("/orders/last", h.lastOrder)
		v1.POST("/orders/:id/refund", h.requestRefund)
	}

	carts := v1.Group("")
	carts.Use(h.cartLockMiddleware())
	{
		carts.GET("/cart", h.getCart)
		carts.POST("/cart/items", h.addToCart)
		carts.DELETE("/cart/items/:id", h.removeFromCart)
		carts.PATCH("/cart/items/:id", h.updateQuantity)
		carts.DELETE("/cart", h.clearCart)

		carts.GET("/wishlist", h.getWishlist)
		carts.POST("/wishlist", h.addToWishlist)
		carts.GET("/wishlist/:id", h.isInWishlist)
		carts.DELETE("/wishlist/:id", h.removeFromWishlist)

		carts.POST("/checkout", h.placeOrder)
	}

	admin := v1.Group("/admin")
	admin.Use(h.adminMiddleware())
	{
		admin.GET("/dashboard", h.dashboard)
		admin.GET("/stream", h.stream)

		admin.GET("/orders", h.listOrders)
		admin.GET("/orders/:id", h.getOrder)
		admin.PATCH("/orders/:id/status", h.setOrderStatus)
		admin.POST("/orders/:id/refund/approve", h.approveRefund)
		admin.POST("/orders/:id/refund/deny", h.denyRefund)
		admin.GET("/export/orders", h.exportOrders)

		admin.GET("/products/low-stock", h.lowStock)
		admin.POST("/products", h.createProduct)
		admin.PUT("/products/:id", h.updateProduct)
		admin.DELETE("/products/:id", h.deleteProduct)

		admin.GET("/users", h.listUsers)
		admin.PUT("/users/:id", h.updateUser)
		admin.PUT("/users/:id/status", h.setUserStatus)
		admin.DELETE("/users/:id", h.deleteUser)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports whether the storage backend answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	var probe []struct{}
	if res := h.store.Load(ctx, store.SharedKey(store.KeyAdminOrders), &probe); res.Status == store.LoadUnavailable {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unavailable",
			"details": res.Err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// clientIDMiddleware assigns every browser a stable client id. Ids that are
// not UUIDs are replaced so they cannot address other keys.
func clientIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(ClientIDHeader))
		if id == "" {
			if cookie, err := c.Cookie(ClientCookie); err == nil {
				id = cookie
			}
		}
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
			c.SetCookie(ClientCookie, id, clientCookieMaxAge, "/", "", false, true)
		}

		c.Header(ClientIDHeader, id)
		c.Set(clientIDKey, id)
		c.Next()
	}
}

// adminMiddleware requires a signed-in admin session
func (h *Handler) adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := h.loadSession(c)
		if !ok {
			c.Abort()
			return
		}
		if !session.IsAuthenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    "Login required",
				"redirect": "/login",
			})
			return
		}
		if !session.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":    "Admin access required",
				"redirect": "/login",
			})
			return
		}
		c.Set(sessionKey, session)
		c.Next()
	}
}

// cartLockMiddleware holds the client's cart lock for the whole request so
// the load, mutate and save sequence of one client never interleaves
func (h *Handler) cartLockMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		unlock := h.carts.Lock(clientID(c))
		defer unlock()

		c.Next()
	}
}

func clientID(c *gin.Context) string {
	return c.GetString(clientIDKey)
}

// loadSession restores the client's session; it writes the error response
// itself when storage is unavailable
func (h *Handler) loadSession(c *gin.Context) (*auth.SessionManager, bool) {
	if v, ok := c.Get(sessionKey); ok {
		return v.(*auth.SessionManager), true
	}
	session := auth.NewSessionManager(h.authAPI, h.store, clientID(c))
	if err := session.Init(c.Request.Context()); err != nil {
		storageUnavailable(c, err)
		return nil, false
	}
	return session, true
}

// loadCart restores the client's cart and wishlist
func (h *Handler) loadCart(c *gin.Context) (*state.CartStore, bool) {
	cart := state.NewCartStore(h.store, clientID(c), h.policy)
	if err := cart.Init(c.Request.Context()); err != nil {
		storageUnavailable(c, err)
		return nil, false
	}
	return cart, true
}

func storageUnavailable(c *gin.Context, err error) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":   "Storage unavailable",
		"details": err.Error(),
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
