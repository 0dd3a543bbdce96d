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
	"github.com/kyznetsovserega/hopbarley-shop/internal/stores/kafka"
	"github.com/kyznetsovserega/hopbarley-shop/pkg/ctxmanage"
	"github.com/kyznetsovserega/hopbarley-shop/pkg/logkey"
)

func (h *Handler) GetOrder(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	id, ok := ownerOfRequest(c)
	if !ok {
		return
	}

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid order id"})
		return
	}

	order, err := h.o.GetOrder(c.Request.Context(), id, orderID)
	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Order not found"})
		return
	case errors.Is(err, orders.ErrPermissionDenied):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "You cannot view this order"})
		return
	case err != nil:
		slog.Error("error fetching order",
			slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) ListOrders(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	id, ok := ownerOfRequest(c)
	if !ok {
		return
	}

	list, err := h.o.ListOrders(c.Request.Context(), id.UserID())
	if err != nil {
		slog.Error("error listing orders",
			slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()),
			slog.String(logkey.UserID, id.UserID()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to list orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": list})
}

// MarkOrderPaid is invoked by the payment confirmation collaborator. It is
// idempotent: confirming an already paid order changes nothing.
func (h *Handler) MarkOrderPaid(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid order id"})
		return
	}

	err = h.o.MarkPaid(c.Request.Context(), orderID)
	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Order not found"})
		return
	case errors.Is(err, orders.ErrIllegalTransition):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"message": "Order cannot be marked paid"})
		return
	case err != nil:
		slog.Error("error marking order paid",
			slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()),
			slog.Int64(logkey.OrderID, orderID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to update order"})
		return
	}

	slog.Info("order marked paid",
		slog.String(logkey.TraceID, traceID), slog.Int64(logkey.OrderID, orderID))

	h.publishOrderPaid(traceID, orderID)

	c.JSON(http.StatusOK, gin.H{"message": "Order paid"})
}

func (h *Handler) publishOrderPaid(traceID string, orderID int64) {
	if h.k == nil {
		return
	}

	jsonData, err := json.Marshal(kafka.OrderPaidEvent{
		OrderID: orderID,
		PaidAt:  time.Now().UTC(),
	})
	if err != nil {
		slog.Error("failed to marshal order paid event",
			slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		key := []byte(strconv.FormatInt(orderID, 10))
		if err := h.k.ProduceMessage(ctx, kafka.TopicOrderPaid, key, jsonData); err != nil {
			slog.Error("failed to produce order paid event",
				slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		}
	}()
}
