package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

// GetProduct returns an active product. Unknown ids and inactive products
// both yield ErrProductNotFound.
func (c *Conf) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	query := `
		SELECT id, name, price, stock, is_active, created_at, updated_at
		FROM products
		WHERE id = $1
	`
	var p Product
	err := c.db.QueryRowContext(ctx, query, productID).Scan(
		&p.ID, &p.Name, &p.Price, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	if !p.IsActive {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

// CreateProduct inserts a catalog entry. The storefront core only needs it
// for seeding and admin tooling; browsing lives elsewhere.
func (c *Conf) CreateProduct(ctx context.Context, name string, price decimal.Decimal, stock int) (*Product, error) {
	query := `
		INSERT INTO products (name, price, stock)
		VALUES ($1, $2, $3)
		RETURNING id, name, price, stock, is_active, created_at, updated_at
	`
	var p Product
	err := c.db.QueryRowContext(ctx, query, name, price, stock).Scan(
		&p.ID, &p.Name, &p.Price, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}
	return &p, nil
}

// UpdatePrice changes the current catalog price. Existing order lines keep
// the price snapshotted at checkout time.
func (c *Conf) UpdatePrice(ctx context.Context, productID int64, price decimal.Decimal) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE products SET price = $1, updated_at = NOW() WHERE id = $2`,
		price, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to update price: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}
