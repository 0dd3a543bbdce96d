package cart

import "errors"

var (
	// ErrInvalidQuantity rejects adds with a quantity below 1.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrLineNotFound means the line does not exist or belongs to a
	// different owner. The two cases are deliberately indistinguishable.
	ErrLineNotFound = errors.New("cart line not found")
)
