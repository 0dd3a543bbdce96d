// Package handlers is the gin surface over the checkout core. Handlers
// stay thin: resolve the owner, bind input, call the core, translate typed
// errors into status codes.
package handlers

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/kyznetsovserega/hopbarley-shop/internal/auth"
	"github.com/kyznetsovserega/hopbarley-shop/internal/cart"
	"github.com/kyznetsovserega/hopbarley-shop/internal/orders"
	"github.com/kyznetsovserega/hopbarley-shop/internal/owner"
	"github.com/kyznetsovserega/hopbarley-shop/internal/products"
	"github.com/kyznetsovserega/hopbarley-shop/middleware"
)

// CartService is what the handlers need from the cart store.
type CartService interface {
	Add(ctx context.Context, id owner.Identity, productID int64, qty int) (*cart.Line, error)
	Increase(ctx context.Context, id owner.Identity, lineID int64) error
	Decrease(ctx context.Context, id owner.Identity, lineID int64) error
	Remove(ctx context.Context, id owner.Identity, lineID int64) error
	Clear(ctx context.Context, id owner.Identity) error
	List(ctx context.Context, id owner.Identity) ([]cart.Item, error)
	Total(ctx context.Context, id owner.Identity) (decimal.Decimal, error)
	MergeGuestCart(ctx context.Context, sessionToken, userID string) error
}

// OrderService is what the handlers need from the checkout engine.
type OrderService interface {
	CreateOrderFromCart(ctx context.Context, id owner.Identity, form orders.CheckoutForm) (*orders.Order, error)
	GetOrder(ctx context.Context, id owner.Identity, orderID int64) (*orders.Order, error)
	ListOrders(ctx context.Context, userID string) ([]orders.Order, error)
	MarkPaid(ctx context.Context, orderID int64) error
}

// ProductService is what the handlers need from the catalog.
type ProductService interface {
	GetProduct(ctx context.Context, productID int64) (*products.Product, error)
	CreateProduct(ctx context.Context, name string, price decimal.Decimal, stock int) (*products.Product, error)
	UpdatePrice(ctx context.Context, productID int64, price decimal.Decimal) error
}

// EventProducer publishes order lifecycle events after the core commits.
type EventProducer interface {
	ProduceMessage(ctx context.Context, topic string, key, value []byte) error
}

type Handler struct {
	c        CartService
	o        OrderService
	p        ProductService
	k        EventProducer
	validate *validator.Validate
}

func NewHandler(c CartService, o OrderService, p ProductService, k EventProducer) *Handler {
	return &Handler{
		c:        c,
		o:        o,
		p:        p,
		k:        k,
		validate: validator.New(),
	}
}

func API(endpointPrefix string, a *auth.Keys, c CartService, o OrderService, p ProductService, k EventProducer) *gin.Engine {
	r := gin.New()
	mode := os.Getenv("GIN_MODE")
	if mode == gin.ReleaseMode {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	m := middleware.NewMid(a)
	h := NewHandler(c, o, p, k)

	r.Use(middleware.Logger(), gin.Recovery())
	r.GET("/ping", healthCheck)

	v1 := r.Group(endpointPrefix)
	v1.Use(m.Identify())
	{
		v1.GET("/products/:id", h.GetProduct)
		v1.POST("/products", m.RequireUser(), h.CreateProduct)
		v1.POST("/products/:id/price", m.RequireUser(), h.UpdateProductPrice)

		v1.POST("/cart/items", h.AddToCart)
		v1.GET("/cart/items", h.GetCartItems)
		v1.POST("/cart/items/:id/increase", h.IncreaseItem)
		v1.POST("/cart/items/:id/decrease", h.DecreaseItem)
		v1.DELETE("/cart/items/:id", h.RemoveItem)
		v1.DELETE("/cart", h.ClearCart)
		v1.POST("/cart/merge", m.RequireUser(), h.MergeCart)

		v1.POST("/checkout", h.Checkout)

		v1.GET("/orders", m.RequireUser(), h.ListOrders)
		v1.GET("/orders/:id", m.RequireUser(), h.GetOrder)
		v1.POST("/orders/:id/paid", m.RequireUser(), h.MarkOrderPaid)
	}

	return r
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ownerOfRequest returns the identity the middleware resolved.
func ownerOfRequest(c *gin.Context) (owner.Identity, bool) {
	id, ok := owner.FromContext(c.Request.Context())
	if !ok || !id.Valid() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return owner.Identity{}, false
	}
	return id, true
}
