package cart

import "github.com/shopspring/decimal"

// Line is one product entry in an owner's cart. At most one line exists per
// (owner, product) pair; repeated adds coalesce into the quantity.
type Line struct {
	ID        int64 `json:"id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Item is the cart line joined with current catalog data. The prices here
// are a live estimate for the shopper, not the frozen snapshot an order
// records.
type Item struct {
	LineID    int64           `json:"line_id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}
