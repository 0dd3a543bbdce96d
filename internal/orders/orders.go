// Package orders holds the checkout engine and the order entity: the
// transactional conversion of a cart into an immutable, priced order, plus
// the small read surface and the paid transition.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kyznetsovserega/hopbarley-shop/internal/owner"
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

// GetOrder loads one order with its lines. Only the order's owner may read
// it; guest orders keep no durable owner and are returned once, from the
// checkout call itself.
func (c *Conf) GetOrder(ctx context.Context, id owner.Identity, orderID int64) (*Order, error) {
	o, err := c.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !id.IsUser() || o.UserID == nil || *o.UserID != id.UserID() {
		return nil, ErrPermissionDenied
	}
	return o, nil
}

// ListOrders returns the user's orders, newest first, without lines.
func (c *Conf) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	query := `
		SELECT id, user_id, status, payment_method, total_price,
		       full_name, email, phone, shipping_address, comment,
		       created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var list []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.Status, &o.PaymentMethod, &o.TotalPrice,
			&o.FullName, &o.Email, &o.Phone, &o.ShippingAddress, &o.Comment,
			&o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		list = append(list, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return list, nil
}

// MarkPaid moves an order into the paid state. Calling it on an order that
// is already paid is a no-op, so a payment confirmation delivered twice
// causes no second state change.
func (c *Conf) MarkPaid(ctx context.Context, orderID int64) error {
	return database.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		var status Status
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM orders WHERE id = $1 FOR UPDATE`, orderID,
		).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to query order status: %w", err)
		}

		if status == StatusPaid {
			return nil
		}
		if !status.CanTransitionTo(StatusPaid) {
			return ErrIllegalTransition
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`,
			StatusPaid, orderID,
		)
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		return nil
	})
}

func (c *Conf) loadOrder(ctx context.Context, orderID int64) (*Order, error) {
	query := `
		SELECT id, user_id, status, payment_method, total_price,
		       full_name, email, phone, shipping_address, comment,
		       created_at, updated_at
		FROM orders
		WHERE id = $1
	`
	var o Order
	err := c.db.QueryRowContext(ctx, query, orderID).Scan(
		&o.ID, &o.UserID, &o.Status, &o.PaymentMethod, &o.TotalPrice,
		&o.FullName, &o.Email, &o.Phone, &o.ShippingAddress, &o.Comment,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	lines, err := c.loadLines(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Lines = lines
	return &o, nil
}

func (c *Conf) loadLines(ctx context.Context, orderID int64) ([]OrderLine, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, order_id, product_id, quantity, unit_price
		 FROM order_lines WHERE order_id = $1 ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	var lines []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order lines: %w", err)
	}
	return lines, nil
}
