package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusPendingPayment Status = "pending_payment"
	StatusPaid           Status = "paid"
	StatusShipped        Status = "shipped"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo encodes the order lifecycle:
// pending -> pending_payment -> paid -> shipped -> delivered, with
// cancelled reachable from any non-terminal state.
func (s Status) CanTransitionTo(to Status) bool {
	if s.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	switch s {
	case StatusPending:
		return to == StatusPendingPayment || to == StatusPaid
	case StatusPendingPayment:
		return to == StatusPaid
	case StatusPaid:
		return to == StatusShipped
	case StatusShipped:
		return to == StatusDelivered
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
	PaymentCOD  PaymentMethod = "cod"
)

// NormalizePaymentMethod maps form input onto the closed payment method
// set. Unrecognized or empty values fall back to cash, matching the lenient
// behavior of the order form.
func NormalizePaymentMethod(raw string) PaymentMethod {
	switch PaymentMethod(raw) {
	case PaymentCard:
		return PaymentCard
	case PaymentCOD:
		return PaymentCOD
	default:
		return PaymentCash
	}
}

// Order is created exactly once by checkout. The total and the owner are
// frozen at creation; only the status moves afterwards.
type Order struct {
	ID              int64           `json:"id"`
	UserID          *string         `json:"user_id,omitempty"` // nil for guest orders
	Status          Status          `json:"status"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	FullName        string          `json:"full_name"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone"`
	ShippingAddress string          `json:"shipping_address"`
	Comment         string          `json:"comment"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Lines           []OrderLine     `json:"items"`
}

// OrderLine is the permanent snapshot of one cart line: quantity and the
// unit price as captured at checkout time. Later catalog price changes
// never touch it.
type OrderLine struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// LineTotal is quantity times the snapshot price.
func (l OrderLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
