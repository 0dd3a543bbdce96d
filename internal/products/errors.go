package products

import (
	"errors"
	"fmt"
)

// ErrProductNotFound covers both unknown ids and products withdrawn from
// sale: neither can be added to a cart.
var ErrProductNotFound = errors.New("product not found")

// InsufficientStockError reports how many units were requested against what
// the shelf actually holds. The cart is always left intact when it is
// returned, so the shopper can lower the quantity and retry.
type InsufficientStockError struct {
	ProductID int64
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}
