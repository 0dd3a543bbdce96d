package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kyznetsovserega/hopbarley-shop/internal/orders"
	"github.com/kyznetsovserega/hopbarley-shop/internal/products"
	"github.com/kyznetsovserega/hopbarley-shop/internal/stores/kafka"
	"github.com/kyznetsovserega/hopbarley-shop/pkg/ctxmanage"
	"github.com/kyznetsovserega/hopbarley-shop/pkg/logkey"
)

type checkoutRequest struct {
	FullName        string `json:"full_name"`
	ShippingAddress string `json:"shipping_address"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	Comment         string `json:"comment"`
	PaymentMethod   string `json:"payment_method"`
}

func (h *Handler) Checkout(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	id, ok := ownerOfRequest(c)
	if !ok {
		return
	}

	var request checkoutRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		slog.Error("invalid request body",
			slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	form := orders.CheckoutForm{
		FullName:        request.FullName,
		ShippingAddress: request.ShippingAddress,
		Phone:           request.Phone,
		Email:           request.Email,
		Comment:         request.Comment,
		PaymentMethod:   request.PaymentMethod,
	}

	order, err := h.o.CreateOrderFromCart(c.Request.Context(), id, form)
	if err != nil {
		h.respondCheckoutError(c, traceID, err)
		return
	}

	slog.Info("order created",
		slog.String(logkey.TraceID, traceID),
		slog.Int64(logkey.OrderID, order.ID),
		slog.String("status", string(order.Status)),
		slog.String("total_price", order.TotalPrice.String()),
	)

	h.publishOrderCreated(traceID, order)

	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// publishOrderCreated hands the committed order to the event stream. The
// order exists regardless of broker health, so failures are only logged.
func (h *Handler) publishOrderCreated(traceID string, order *orders.Order) {
	if h.k == nil {
		return
	}

	event := kafka.OrderCreatedEvent{
		OrderID:    order.ID,
		TotalPrice: order.TotalPrice,
		CreatedAt:  order.CreatedAt,
	}
	if order.UserID != nil {
		event.UserID = *order.UserID
	}

	jsonData, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal order created event",
			slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		key := []byte(strconv.FormatInt(order.ID, 10))
		if err := h.k.ProduceMessage(ctx, kafka.TopicOrderCreated, key, jsonData); err != nil {
			slog.Error("failed to produce order created event",
				slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
			return
		}
		slog.Info("order created event produced",
			slog.String(logkey.TraceID, traceID), slog.Int64(logkey.OrderID, order.ID))
	}()
}

func (h *Handler) respondCheckoutError(c *gin.Context, traceID string, err error) {
	var missingErr *orders.MissingFieldError
	var stockErr *products.InsufficientStockError

	switch {
	case errors.Is(err, orders.ErrEmptyCart):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Cart is empty"})
	case errors.As(err, &missingErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"message": "Required field is missing",
			"field":   missingErr.Field,
		})
	case errors.As(err, &stockErr):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"message":    "Insufficient stock available",
			"product_id": stockErr.ProductID,
			"available":  stockErr.Available,
			"requested":  stockErr.Requested,
		})
	case errors.Is(err, products.ErrProductNotFound):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"message": "A product in the cart is no longer available"})
	default:
		slog.Error("checkout failed",
			slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to create order"})
	}
}
