package model

import "time"

// Order statuses.
const (
	OrderPending   = "pending"
	OrderPaid      = "paid"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
	OrderRefunded  = "refunded"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderPending, OrderPaid, OrderShipped, OrderDelivered, OrderCancelled, OrderRefunded:
		return true
	}
	return false
}

// OrderItem is a product line captured at purchase time.  Name and Price
// are copies, so later catalog edits do not change past orders.
type OrderItem struct {
	ProductID uint64 `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// Order is a purchase.  PaymentRef holds the provider's checkout id for
// orders reconciled from a payment and is unique across orders.
type Order struct {
	ID              uint64      `json:"id"`
	UserID          uint64      `json:"user_id"`
	Items           []OrderItem `json:"items"`
	Amount          int64       `json:"amount"`
	Currency        string      `json:"currency"`
	Status          string      `json:"status"`
	PaymentProvider string      `json:"payment_provider,omitempty"`
	PaymentRef      string      `json:"payment_ref,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}
