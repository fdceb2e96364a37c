package model

import "time"

// Booking statuses.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// ValidBookingStatus reports whether s is a known booking status.
func ValidBookingStatus(s string) bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled:
		return true
	}
	return false
}

// Booking reserves Seats on a YogaSession for a user.  Amount is the
// session price multiplied by Seats at the time of booking.
type Booking struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	SessionID uint64    `json:"session_id"`
	Seats     int       `json:"seats"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Phone     string    `json:"phone"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BookingUser is the user snapshot attached to a BookingDetail.
type BookingUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// BookingSession is the session snapshot attached to a BookingDetail.
type BookingSession struct {
	Instructor string `json:"instructor"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

// BookingDetail is a Booking enriched at read time with the current state
// of its user and session.  Either side is nil when the row is gone.
type BookingDetail struct {
	Booking
	User    *BookingUser    `json:"user"`
	Session *BookingSession `json:"session"`
}
