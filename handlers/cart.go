package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kyznetsovserega/hopbarley-shop/internal/cart"
	"github.com/kyznetsovserega/hopbarley-shop/internal/owner"
	"github.com/kyznetsovserega/hopbarley-shop/internal/products"
	"github.com/kyznetsovserega/hopbarley-shop/pkg/ctxmanage"
	"github.com/kyznetsovserega/hopbarley-shop/pkg/logkey"
)

func (h *Handler) AddToCart(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	id, ok := ownerOfRequest(c)
	if !ok {
		return
	}

	var request struct {
		ProductID int64 `json:"product_id" validate:"required"`
		Quantity  int   `json:"quantity" validate:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		slog.Error("invalid request body",
			slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	if err := h.validate.Struct(request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Product ID and quantity must be valid"})
		return
	}

	line, err := h.c.Add(c.Request.Context(), id, request.ProductID, request.Quantity)
	if err != nil {
		h.respondCartError(c, traceID, err)
		return
	}

	slog.Info("product added to cart",
		slog.String(logkey.TraceID, traceID),
		slog.Int64(logkey.ProductID, request.ProductID),
		slog.Int(logkey.Quantity, line.Quantity),
	)
	c.JSON(http.StatusOK, gin.H{"line": line})
}

func (h *Handler) GetCartItems(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	id, ok := ownerOfRequest(c)
	if !ok {
		return
	}

	items, err := h.c.List(c.Request.Context(), id)
	if err != nil {
		slog.Error("error fetching cart items",
			slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch cart items"})
		return
	}

	total, err := h.c.Total(c.Request.Context(), id)
	if err != nil {
		slog.Error("error computing cart total",
			slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to compute cart total"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func (h *Handler) IncreaseItem(c *gin.Context) {
	h.adjustItem(c, h.c.Increase)
}

func (h *Handler) DecreaseItem(c *gin.Context) {
	h.adjustItem(c, h.c.Decrease)
}

func (h *Handler) adjustItem(c *gin.Context, op func(ctx context.Context, id owner.Identity, lineID int64) error) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	id, ok := ownerOfRequest(c)
	if !ok {
		return
	}

	lineID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid line id"})
		return
	}

	if err := op(c.Request.Context(), id, lineID); err != nil {
		h.respondCartError(c, traceID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart updated"})
}

func (h *Handler) RemoveItem(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	id, ok := ownerOfRequest(c)
	if !ok {
		return
	}

	lineID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid line id"})
		return
	}

	if err := h.c.Remove(c.Request.Context(), id, lineID); err != nil {
		h.respondCartError(c, traceID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed"})
}

func (h *Handler) ClearCart(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	id, ok := ownerOfRequest(c)
	if !ok {
		return
	}

	if err := h.c.Clear(c.Request.Context(), id); err != nil {
		slog.Error("error clearing cart",
			slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to clear cart"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// MergeCart is called by the authentication collaborator right after a
// guest session logs in or registers.
func (h *Handler) MergeCart(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	id, ok := ownerOfRequest(c)
	if !ok {
		return
	}

	var request struct {
		SessionToken string `json:"session_token" validate:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	if err := h.validate.Struct(request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "session_token is required"})
		return
	}

	if err := h.c.MergeGuestCart(c.Request.Context(), request.SessionToken, id.UserID()); err != nil {
		slog.Error("error merging guest cart",
			slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()),
			slog.String(logkey.UserID, id.UserID()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to merge cart"})
		return
	}

	slog.Info("guest cart merged",
		slog.String(logkey.TraceID, traceID), slog.String(logkey.UserID, id.UserID()))
	c.JSON(http.StatusOK, gin.H{"message": "Cart merged"})
}

func (h *Handler) respondCartError(c *gin.Context, traceID string, err error) {
	var stockErr *products.InsufficientStockError

	switch {
	case errors.As(err, &stockErr):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"message":    "Insufficient stock available",
			"product_id": stockErr.ProductID,
			"available":  stockErr.Available,
			"requested":  stockErr.Requested,
		})
	case errors.Is(err, cart.ErrInvalidQuantity):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Quantity must be at least 1"})
	case errors.Is(err, products.ErrProductNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Product not found"})
	case errors.Is(err, cart.ErrLineNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Cart line not found"})
	default:
		slog.Error("cart operation failed",
			slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Cart operation failed"})
	}
}
