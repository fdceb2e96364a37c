package model

import "time"

// Enquiry statuses.
const (
	EnquiryPending   = "pending"
	EnquiryContacted = "contacted"
	EnquiryCompleted = "completed"
)

// ValidEnquiryStatus reports whether s is a known enquiry status.
func ValidEnquiryStatus(s string) bool {
	switch s {
	case EnquiryPending, EnquiryContacted, EnquiryCompleted:
		return true
	}
	return false
}

// SessionEnquiry is a lead captured from the contact form.
type SessionEnquiry struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	SessionType string    `json:"session_type"`
	Message     string    `json:"message"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Event is a studio event listed on the public site.
type Event struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Date        string    `json:"date"`
	Image       string    `json:"image"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Blog is a blog post.  Slug is unique; unpublished posts are hidden
// from the public listing.
type Blog struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Image     string    `json:"image"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
