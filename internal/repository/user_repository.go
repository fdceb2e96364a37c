package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/studio-booking/internal/model"
)

const userColumns = `id, name, email, password_hash, role, email_verified, registered,
	verification_token, verification_expires_at, phone, address, is_active, created_at, updated_at`

// UserRepo persists customer accounts.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// NormalizeEmail lower-cases and trims an email address.  All lookups and
// inserts go through it so the unique index sees one canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var (
		u       model.User
		hash    sql.NullString
		token   sql.NullString
		expires sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &hash, &u.Role, &u.EmailVerified, &u.Registered,
		&token, &expires, &u.Phone, &u.Address, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.PasswordHash = hash.String
	u.VerificationToken = token.String
	if expires.Valid {
		t := expires.Time.UTC()
		u.VerificationExpiresAt = &t
	}
	return u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC().Truncate(time.Second), Valid: true}
}

// Create inserts u and populates its ID and timestamps.  A taken email
// yields ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	ts := now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, role, email_verified, registered,
			verification_token, verification_expires_at, phone, address, is_active, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.Name, u.Email, nullString(u.PasswordHash), u.Role, u.EmailVerified, u.Registered,
		nullString(u.VerificationToken), nullTime(u.VerificationExpiresAt), u.Phone, u.Address, u.IsActive, ts, ts)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	u.CreatedAt, u.UpdatedAt = ts, ts
	return nil
}

// UpgradePlaceholder turns an admin-created placeholder into a registered
// account, keeping its ID.  It fails with ErrEmailExists when the row has
// been registered in the meantime.
func (r *UserRepo) UpgradePlaceholder(ctx context.Context, u *model.User) error {
	ts := now()
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name=?, password_hash=?, email_verified=?, registered=1,
			verification_token=?, verification_expires_at=?, phone=?, address=?, is_active=1, updated_at=?
		 WHERE id=? AND registered=0`,
		u.Name, nullString(u.PasswordHash), u.EmailVerified,
		nullString(u.VerificationToken), nullTime(u.VerificationExpiresAt), u.Phone, u.Address, ts, u.ID)
	if err := affectedOne(res, err); err != nil {
		if err == ErrNotFound {
			return ErrEmailExists
		}
		return err
	}
	u.Registered, u.IsActive, u.UpdatedAt = true, true, ts
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email)))
	return u, notFound(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	return u, notFound(err)
}

// GetByVerificationToken fetches the user holding token, expired or not.
func (r *UserRepo) GetByVerificationToken(ctx context.Context, token string) (model.User, error) {
	if token == "" {
		return model.User{}, ErrNotFound
	}
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE verification_token=? LIMIT 1", token))
	return u, notFound(err)
}

// UpdateProfile changes the editable contact fields of a user.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, name, phone, address string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET name=?, phone=?, address=?, updated_at=? WHERE id=?",
		name, phone, address, now(), id)
	return affectedOne(res, err)
}

// SetActive activates or deactivates a user.  Users are never deleted.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET is_active=?, updated_at=? WHERE id=?", active, now(), id)
	return affectedOne(res, err)
}

// List returns every user, newest first.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
