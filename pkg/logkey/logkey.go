// Package logkey holds the attribute keys used across slog call sites so the
// log output stays queryable.
package logkey

const (
	TraceID = "trace_id"
	ERROR   = "error"

	UserID    = "user_id"
	SessionID = "session_id"
	ProductID = "product_id"
	LineID    = "line_id"
	OrderID   = "order_id"
	Quantity  = "quantity"
)
