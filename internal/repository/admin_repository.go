package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/studio-booking/internal/model"
)

// AdminRepo persists administrator accounts.
type AdminRepo struct{ db *sql.DB }

func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{db: db} }

// Create inserts an admin and populates its ID.
func (r *AdminRepo) Create(ctx context.Context, a *model.Admin) error {
	a.Email = NormalizeEmail(a.Email)
	ts := now()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO admins (name, email, password_hash, created_at, updated_at) VALUES (?,?,?,?,?)",
		a.Name, a.Email, a.PasswordHash, ts, ts)
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
	a.ID = uint64(id)
	a.CreatedAt, a.UpdatedAt = ts, ts
	return nil
}

// GetByEmail fetches an admin by normalized email.
func (r *AdminRepo) GetByEmail(ctx context.Context, email string) (model.Admin, error) {
	var a model.Admin
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, created_at, updated_at FROM admins WHERE email=? LIMIT 1",
		NormalizeEmail(email)).Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	return a, notFound(err)
}

// GetByID fetches an admin by id.
func (r *AdminRepo) GetByID(ctx context.Context, id uint64) (model.Admin, error) {
	var a model.Admin
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, created_at, updated_at FROM admins WHERE id=? LIMIT 1",
		id).Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	return a, notFound(err)
}
