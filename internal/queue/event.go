// Package queue defines message payloads exchanged over the message broker
// and the background consumer that turns them into notification emails.
package queue

// Queue names.  Both are durable and bound to the default exchange.
const (
	BookingCreatedQueue = "booking.created"
	OrderPaidQueue      = "order.paid"
)

// BookingCreatedEvent is published once a booking has been persisted and
// its seats reserved.  It carries enough information for the consumer to
// send a confirmation without querying the primary database.
type BookingCreatedEvent struct {
	BookingID  uint64 `json:"booking_id"`
	UserID     uint64 `json:"user_id"`
	UserName   string `json:"user_name"`
	UserEmail  string `json:"user_email"`
	SessionID  uint64 `json:"session_id"`
	Instructor string `json:"instructor"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Seats      int    `json:"seats"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	CreatedAt  string `json:"created_at"`
}

// OrderPaidEvent is published when a checkout is reconciled into a paid
// order for the first time.  Replayed verifications do not publish.
type OrderPaidEvent struct {
	OrderID    uint64 `json:"order_id"`
	UserID     uint64 `json:"user_id"`
	UserName   string `json:"user_name"`
	UserEmail  string `json:"user_email"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	PaymentRef string `json:"payment_ref"`
	PaidAt     string `json:"paid_at"`
}
