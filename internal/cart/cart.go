// Package cart owns cart line persistence for one owner identity: adding
// with arithmetic coalescing, quantity adjustment, removal and the guest to
// user merge performed at login.
package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kyznetsovserega/hopbarley-shop/internal/owner"
	"github.com/kyznetsovserega/hopbarley-shop/internal/products"
	"github.com/kyznetsovserega/hopbarley-shop/pkg/database"
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

// ownerColumn maps an identity to the column that partitions cart lines.
// The column name comes from a fixed set, never from input.
func ownerColumn(id owner.Identity) (string, any) {
	if id.IsUser() {
		return "user_id", id.UserID()
	}
	return "session_token", id.SessionToken()
}

// Add puts qty units of a product into the owner's cart, creating the line
// or increasing an existing one. The product row is locked for the duration
// of the transaction so concurrent adds for the same product serialize and
// no increment is lost.
func (c *Conf) Add(ctx context.Context, id owner.Identity, productID int64, qty int) (*Line, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}

	col, ownerVal := ownerColumn(id)
	var line Line

	err := database.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		var stock int
		var isActive bool
		err := tx.QueryRowContext(ctx,
			`SELECT stock, is_active FROM products WHERE id = $1 FOR UPDATE`,
			productID,
		).Scan(&stock, &isActive)
		if errors.Is(err, sql.ErrNoRows) {
			return products.ErrProductNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to query product: %w", err)
		}
		if !isActive {
			return products.ErrProductNotFound
		}

		queryLine := fmt.Sprintf(
			`SELECT id, quantity FROM cart_lines WHERE %s = $1 AND product_id = $2 FOR UPDATE`, col)

		var lineID int64
		var existing int
		err = tx.QueryRowContext(ctx, queryLine, ownerVal, productID).Scan(&lineID, &existing)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			if qty > stock {
				return &products.InsufficientStockError{ProductID: productID, Available: stock, Requested: qty}
			}
			queryInsert := fmt.Sprintf(
				`INSERT INTO cart_lines (%s, product_id, quantity) VALUES ($1, $2, $3) RETURNING id`, col)
			if err := tx.QueryRowContext(ctx, queryInsert, ownerVal, productID, qty).Scan(&lineID); err != nil {
				return fmt.Errorf("failed to insert cart line: %w", err)
			}
			line = Line{ID: lineID, ProductID: productID, Quantity: qty}

		case err != nil:
			return fmt.Errorf("failed to query cart line: %w", err)

		default:
			newQty := existing + qty
			if newQty > stock {
				return &products.InsufficientStockError{ProductID: productID, Available: stock, Requested: newQty}
			}
			_, err = tx.ExecContext(ctx,
				`UPDATE cart_lines SET quantity = $1, updated_at = NOW() WHERE id = $2`,
				newQty, lineID,
			)
			if err != nil {
				return fmt.Errorf("failed to update cart line: %w", err)
			}
			line = Line{ID: lineID, ProductID: productID, Quantity: newQty}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// Increase bumps a line's quantity by one, subject to the same stock
// ceiling as Add. The product row is locked before the line row, the same
// order Add uses, so the two operations never deadlock each other.
func (c *Conf) Increase(ctx context.Context, id owner.Identity, lineID int64) error {
	col, ownerVal := ownerColumn(id)

	return database.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		// plain read, the lock on the line comes after the product lock
		queryProduct := fmt.Sprintf(
			`SELECT product_id FROM cart_lines WHERE id = $1 AND %s = $2`, col)

		var productID int64
		err := tx.QueryRowContext(ctx, queryProduct, lineID, ownerVal).Scan(&productID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrLineNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to query cart line: %w", err)
		}

		var stock int
		err = tx.QueryRowContext(ctx,
			`SELECT stock FROM products WHERE id = $1 FOR UPDATE`, productID,
		).Scan(&stock)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrLineNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to query product: %w", err)
		}

		queryLine := fmt.Sprintf(
			`SELECT quantity FROM cart_lines WHERE id = $1 AND %s = $2 FOR UPDATE`, col)

		var qty int
		err = tx.QueryRowContext(ctx, queryLine, lineID, ownerVal).Scan(&qty)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrLineNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock cart line: %w", err)
		}

		if qty+1 > stock {
			return &products.InsufficientStockError{ProductID: productID, Available: stock, Requested: qty + 1}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE cart_lines SET quantity = quantity + 1, updated_at = NOW() WHERE id = $1`,
			lineID,
		)
		if err != nil {
			return fmt.Errorf("failed to update cart line: %w", err)
		}
		return nil
	})
}

// Decrease lowers a line's quantity by one; a line that would drop below 1
// is deleted instead.
func (c *Conf) Decrease(ctx context.Context, id owner.Identity, lineID int64) error {
	col, ownerVal := ownerColumn(id)

	return database.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		queryLine := fmt.Sprintf(
			`SELECT quantity FROM cart_lines WHERE id = $1 AND %s = $2 FOR UPDATE`, col)

		var qty int
		err := tx.QueryRowContext(ctx, queryLine, lineID, ownerVal).Scan(&qty)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrLineNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to query cart line: %w", err)
		}

		if qty > 1 {
			_, err = tx.ExecContext(ctx,
				`UPDATE cart_lines SET quantity = quantity - 1, updated_at = NOW() WHERE id = $1`,
				lineID,
			)
		} else {
			_, err = tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE id = $1`, lineID)
		}
		if err != nil {
			return fmt.Errorf("failed to adjust cart line: %w", err)
		}
		return nil
	})
}

// Remove deletes a single line. Removing a line that does not exist (or
// belongs to someone else) returns ErrLineNotFound.
func (c *Conf) Remove(ctx context.Context, id owner.Identity, lineID int64) error {
	col, ownerVal := ownerColumn(id)

	query := fmt.Sprintf(`DELETE FROM cart_lines WHERE id = $1 AND %s = $2`, col)
	res, err := c.db.ExecContext(ctx, query, lineID, ownerVal)
	if err != nil {
		return fmt.Errorf("failed to delete cart line: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLineNotFound
	}
	return nil
}

// Clear deletes every line the owner has.
func (c *Conf) Clear(ctx context.Context, id owner.Identity) error {
	col, ownerVal := ownerColumn(id)

	query := fmt.Sprintf(`DELETE FROM cart_lines WHERE %s = $1`, col)
	if _, err := c.db.ExecContext(ctx, query, ownerVal); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// List returns the owner's cart joined with current product data.
func (c *Conf) List(ctx context.Context, id owner.Identity) ([]Item, error) {
	col, ownerVal := ownerColumn(id)

	query := fmt.Sprintf(`
		SELECT cl.id, cl.product_id, p.name, cl.quantity, p.price
		FROM cart_lines cl
		JOIN products p ON p.id = cl.product_id
		WHERE cl.%s = $1
		ORDER BY cl.id
	`, col)

	rows, err := c.db.QueryContext(ctx, query, ownerVal)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.LineID, &it.ProductID, &it.Name, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		it.LineTotal = it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}
	return items, nil
}

// Total sums quantity times the current product price over the whole cart.
// This is the live estimate shown to the shopper; the order freezes its own
// snapshot at checkout.
func (c *Conf) Total(ctx context.Context, id owner.Identity) (decimal.Decimal, error) {
	col, ownerVal := ownerColumn(id)

	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(cl.quantity * p.price), 0)
		FROM cart_lines cl
		JOIN products p ON p.id = cl.product_id
		WHERE cl.%s = $1
	`, col)

	var total decimal.Decimal
	if err := c.db.QueryRowContext(ctx, query, ownerVal).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum cart total: %w", err)
	}
	return total, nil
}
