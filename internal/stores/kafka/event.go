package kafka

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TopicOrderCreated = `order-service.order-created`
	TopicOrderPaid    = `order-service.order-paid`
)

// OrderCreatedEvent is published after a checkout commits. Downstream
// consumers (notifications, fulfillment) react to it; the checkout
// transaction itself never depends on the broker.
type OrderCreatedEvent struct {
	OrderID    int64           `json:"order_id"`
	UserID     string          `json:"user_id,omitempty"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

type OrderPaidEvent struct {
	OrderID int64     `json:"order_id"`
	PaidAt  time.Time `json:"paid_at"`
}
