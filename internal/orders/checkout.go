package orders

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

// lineSnapshot is one cart line with the price read while the product row
// was locked. This price is what the order line records.
type lineSnapshot struct {
	productID int64
	quantity  int
	unitPrice decimal.Decimal
}

// ownerColumn maps an identity to the cart_lines column that partitions
// ownership. It must stay in lockstep with the cart package's partitioning:
// the column name comes from the same fixed two-element set, never from
// input.
func ownerColumn(id owner.Identity) (string, any) {
	if id.IsUser() {
		return "user_id", id.UserID()
	}
	return "session_token", id.SessionToken()
}

// CreateOrderFromCart converts the owner's cart into exactly one order, or
// fails leaving everything unchanged. The whole algorithm runs in a single
// transaction:
//
//  1. load the cart lines sorted by product id
//  2. validate the form
//  3. lock each product row in that sorted order (the fixed order is what
//     prevents two overlapping checkouts from deadlocking)
//  4. check stock, snapshot prices, compute the total
//  5. insert the order and its lines, decrement stock, clear the cart
//
// Any failure before the inserts produces zero side effects; any failure
// after them rolls the transaction back as a whole.
func (c *Conf) CreateOrderFromCart(ctx context.Context, id owner.Identity, form CheckoutForm) (*Order, error) {
	ownerCol, ownerVal := ownerColumn(id)

	var created Order

	err := database.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		queryLines := fmt.Sprintf(
			`SELECT product_id, quantity FROM cart_lines WHERE %s = $1 ORDER BY product_id`, ownerCol)

		rows, err := tx.QueryContext(ctx, queryLines, ownerVal)
		if err != nil {
			return fmt.Errorf("failed to query cart lines: %w", err)
		}

		var cartLines []lineSnapshot
		for rows.Next() {
			var l lineSnapshot
			if err := rows.Scan(&l.productID, &l.quantity); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan cart line: %w", err)
			}
			cartLines = append(cartLines, l)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("error iterating cart lines: %w", err)
		}
		rows.Close()

		if len(cartLines) == 0 {
			return ErrEmptyCart
		}

		if err := form.Validate(); err != nil {
			return err
		}
		trimmed := form.Trim()
		method := NormalizePaymentMethod(trimmed.PaymentMethod)

		// cart lines are unique per product, so iterating them in
		// product id order locks each product exactly once, in the
		// same global order every checkout uses
		total := decimal.Zero
		for i := range cartLines {
			l := &cartLines[i]

			var price decimal.Decimal
			var stock int
			err := tx.QueryRowContext(ctx,
				`SELECT price, stock FROM products WHERE id = $1 FOR UPDATE`, l.productID,
			).Scan(&price, &stock)
			if errors.Is(err, sql.ErrNoRows) {
				return products.ErrProductNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to lock product %d: %w", l.productID, err)
			}

			if stock < l.quantity {
				return &products.InsufficientStockError{
					ProductID: l.productID,
					Available: stock,
					Requested: l.quantity,
				}
			}

			l.unitPrice = price
			total = total.Add(price.Mul(decimal.NewFromInt(int64(l.quantity))))
		}

		status := StatusPending
		if method == PaymentCard {
			status = StatusPendingPayment
		}

		var userID *string
		if id.IsUser() {
			uid := id.UserID()
			userID = &uid
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders
			    (user_id, status, payment_method, total_price,
			     full_name, email, phone, shipping_address, comment)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING id, created_at, updated_at`,
			userID, status, method, total,
			trimmed.FullName, trimmed.Email, trimmed.Phone,
			trimmed.ShippingAddress, trimmed.Comment,
		).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		created.UserID = userID
		created.Status = status
		created.PaymentMethod = method
		created.TotalPrice = total
		created.FullName = trimmed.FullName
		created.Email = trimmed.Email
		created.Phone = trimmed.Phone
		created.ShippingAddress = trimmed.ShippingAddress
		created.Comment = trimmed.Comment

		for _, l := range cartLines {
			var line OrderLine
			err := tx.QueryRowContext(ctx,
				`INSERT INTO order_lines (order_id, product_id, quantity, unit_price)
				 VALUES ($1, $2, $3, $4)
				 RETURNING id`,
				created.ID, l.productID, l.quantity, l.unitPrice,
			).Scan(&line.ID)
			if err != nil {
				return fmt.Errorf("failed to insert order line: %w", err)
			}
			line.OrderID = created.ID
			line.ProductID = l.productID
			line.Quantity = l.quantity
			line.UnitPrice = l.unitPrice
			created.Lines = append(created.Lines, line)

			_, err = tx.ExecContext(ctx,
				`UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2`,
				l.quantity, l.productID,
			)
			if err != nil {
				return fmt.Errorf("failed to decrement stock for product %d: %w", l.productID, err)
			}
		}

		// the cart empties in the same transaction that creates the
		// order, so a literal double-submit finds an empty cart
		queryClear := fmt.Sprintf(`DELETE FROM cart_lines WHERE %s = $1`, ownerCol)
		if _, err := tx.ExecContext(ctx, queryClear, ownerVal); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}
