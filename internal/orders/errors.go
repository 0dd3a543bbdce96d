package orders

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

	ErrOrderNotFound = errors.New("order not found")

	// ErrPermissionDenied covers an owner acting on another owner's order.
	ErrPermissionDenied = errors.New("order belongs to a different owner")

	// ErrIllegalTransition rejects status changes the lifecycle forbids,
	// e.g. marking a cancelled order paid.
	ErrIllegalTransition = errors.New("illegal order status transition")
)

// MissingFieldError names the required checkout form field that was blank
// after trimming.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("field %q is required", e.Field)
}
