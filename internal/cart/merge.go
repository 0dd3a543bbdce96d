package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kyznetsovserega/hopbarley-shop/pkg/database"
)

// MergeGuestCart folds a guest session's cart into the authenticating
// user's cart. Lines for products the user already has are coalesced into
// the user's line; the rest change owner in place. The whole merge is one
// transaction, and running it again once no guest lines remain is a no-op.
//
// No stock validation happens here: a merged cart is not yet a commitment,
// over-subscription surfaces at checkout.
func (c *Conf) MergeGuestCart(ctx context.Context, sessionToken, userID string) error {
	if sessionToken == "" {
		return nil
	}

	return database.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT id, product_id, quantity FROM cart_lines WHERE session_token = $1 ORDER BY product_id`,
			sessionToken,
		)
		if err != nil {
			return fmt.Errorf("failed to query guest cart: %w", err)
		}

		var guestLines []Line
		for rows.Next() {
			var l Line
			if err := rows.Scan(&l.ID, &l.ProductID, &l.Quantity); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan guest cart line: %w", err)
			}
			guestLines = append(guestLines, l)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("error iterating guest cart: %w", err)
		}
		rows.Close()

		for _, gl := range guestLines {
			var userLineID int64
			err := tx.QueryRowContext(ctx,
				`SELECT id FROM cart_lines WHERE user_id = $1 AND product_id = $2 FOR UPDATE`,
				userID, gl.ProductID,
			).Scan(&userLineID)

			switch {
			case errors.Is(err, sql.ErrNoRows):
				// the row changes owner, no copy
				_, err = tx.ExecContext(ctx,
					`UPDATE cart_lines SET user_id = $1, session_token = NULL, updated_at = NOW() WHERE id = $2`,
					userID, gl.ID,
				)
				if err != nil {
					return fmt.Errorf("failed to reassign cart line: %w", err)
				}

			case err != nil:
				return fmt.Errorf("failed to query user cart line: %w", err)

			default:
				_, err = tx.ExecContext(ctx,
					`UPDATE cart_lines SET quantity = quantity + $1, updated_at = NOW() WHERE id = $2`,
					gl.Quantity, userLineID,
				)
				if err != nil {
					return fmt.Errorf("failed to coalesce cart line: %w", err)
				}
				if _, err = tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE id = $1`, gl.ID); err != nil {
					return fmt.Errorf("failed to delete guest cart line: %w", err)
				}
			}
		}
		return nil
	})
}
