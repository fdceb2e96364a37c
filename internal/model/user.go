package model

import "time"

// Principal roles carried in the access token's "role" claim.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a customer account as stored in the `users` table.
// A row with Registered=false is a placeholder created by an
// administrator; registering with the same email upgrades it in place.
//
// Fields:
//
//	ID                    – primary key identifier.
//	Name                  – display name.
//	Email                 – unique, lower-cased email address.
//	PasswordHash          – bcrypt hash; empty for placeholders.
//	Role                  – always RoleUser.
//	EmailVerified         – whether password login is allowed.
//	Registered            – false for admin-created placeholders.
//	VerificationToken     – pending OTP or email verification token.
//	VerificationExpiresAt – when VerificationToken stops being accepted.
//	Phone, Address        – contact details.
//	IsActive              – false once an administrator deactivates the account.
type User struct {
	ID                    uint64     `json:"id"`
	Name                  string     `json:"name"`
	Email                 string     `json:"email"`
	PasswordHash          string     `json:"-"`
	Role                  string     `json:"role"`
	EmailVerified         bool       `json:"email_verified"`
	Registered            bool       `json:"registered"`
	VerificationToken     string     `json:"-"`
	VerificationExpiresAt *time.Time `json:"-"`
	Phone                 string     `json:"phone"`
	Address               string     `json:"address"`
	IsActive              bool       `json:"is_active"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// Admin is an administrator account from the `admins` table.  Admins
// live in their own table and are never User rows with a flag.
type Admin struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
