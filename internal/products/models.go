package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog entity as the checkout core sees it: current price,
// remaining stock and the active flag. The catalog subsystem owns everything
// else about it.
type Product struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
