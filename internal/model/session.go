package model

import "time"

// Session types offered by the studio.
const (
	SessionRegular   = "regular"
	SessionCorporate = "corporate"
	SessionPrivate   = "private"
)

// ValidSessionType reports whether t is a known session type.
func ValidSessionType(t string) bool {
	switch t {
	case SessionRegular, SessionCorporate, SessionPrivate:
		return true
	}
	return false
}

// YogaSession is a bookable class.  TotalSeats and BookedSeats form the
// capacity ledger: 0 <= BookedSeats <= TotalSeats at all times.
//
// Fields:
//
//	Date      – "YYYY-MM-DD".
//	StartTime – "HH:MM".
//	EndTime   – "HH:MM".
//	Price     – per seat, in minor currency units.
type YogaSession struct {
	ID          uint64    `json:"id"`
	Instructor  string    `json:"instructor"`
	Date        string    `json:"date"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	TotalSeats  int       `json:"total_seats"`
	BookedSeats int       `json:"booked_seats"`
	Price       int64     `json:"price"`
	SessionType string    `json:"session_type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AvailableSeats returns the seats still open for booking.
func (s YogaSession) AvailableSeats() int {
	if s.BookedSeats >= s.TotalSeats {
		return 0
	}
	return s.TotalSeats - s.BookedSeats
}

// AvailableSlot is an admin-curated time slot.  (SessionType, Date, Time)
// is unique.
type AvailableSlot struct {
	ID          uint64    `json:"id"`
	SessionType string    `json:"session_type"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	IsBooked    bool      `json:"is_booked"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
