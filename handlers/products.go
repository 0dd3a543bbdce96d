package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/kyznetsovserega/hopbarley-shop/internal/products"
	"github.com/kyznetsovserega/hopbarley-shop/pkg/ctxmanage"
	"github.com/kyznetsovserega/hopbarley-shop/pkg/logkey"
)

func (h *Handler) GetProduct(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)

	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid product id"})
		return
	}

	p, err := h.p.GetProduct(c.Request.Context(), productID)
	switch {
	case errors.Is(err, products.ErrProductNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Product not found"})
		return
	case err != nil:
		slog.Error("error fetching product",
			slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()),
			slog.Int64(logkey.ProductID, productID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": p})
}

// CreateProduct seeds a catalog entry. Browsing and merchandising live in
// the storefront proper; this exists for admin tooling.
func (h *Handler) CreateProduct(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)

	var request struct {
		Name  string `json:"name" validate:"required"`
		Price string `json:"price" validate:"required"`
		Stock int    `json:"stock" validate:"min=0"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	if err := h.validate.Struct(request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Name, price and stock must be valid"})
		return
	}

	price, err := decimal.NewFromString(request.Price)
	if err != nil || price.IsNegative() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Price must be a non-negative decimal"})
		return
	}

	p, err := h.p.CreateProduct(c.Request.Context(), request.Name, price, request.Stock)
	if err != nil {
		slog.Error("error creating product",
			slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to create product"})
		return
	}

	slog.Info("product created",
		slog.String(logkey.TraceID, traceID), slog.Int64(logkey.ProductID, p.ID))
	c.JSON(http.StatusCreated, gin.H{"product": p})
}

// UpdateProductPrice changes the live catalog price. Orders already placed
// keep the price snapshotted at checkout.
func (h *Handler) UpdateProductPrice(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)

	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid product id"})
		return
	}

	var request struct {
		Price string `json:"price" validate:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	if err := h.validate.Struct(request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "price is required"})
		return
	}

	price, err := decimal.NewFromString(request.Price)
	if err != nil || price.IsNegative() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Price must be a non-negative decimal"})
		return
	}

	err = h.p.UpdatePrice(c.Request.Context(), productID, price)
	switch {
	case errors.Is(err, products.ErrProductNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Product not found"})
		return
	case err != nil:
		slog.Error("error updating product price",
			slog.String(logkey.TraceID, traceID), slog.String(logkey.ERROR, err.Error()),
			slog.Int64(logkey.ProductID, productID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to update price"})
		return
	}

	slog.Info("product price updated",
		slog.String(logkey.TraceID, traceID), slog.Int64(logkey.ProductID, productID))
	c.JSON(http.StatusOK, gin.H{"message": "Price updated"})
}
