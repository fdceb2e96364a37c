package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/studio-booking/internal/model"
)

const enquiryColumns = `id, name, email, phone, session_type, message, status, created_at, updated_at`

// EnquiryRepo persists session enquiries captured from the contact form.
type EnquiryRepo struct{ db *sql.DB }

func NewEnquiryRepo(db *sql.DB) *EnquiryRepo { return &EnquiryRepo{db: db} }

// Create inserts an enquiry with status pending.
func (r *EnquiryRepo) Create(ctx context.Context, e *model.SessionEnquiry) error {
	ts := now()
	e.Email = NormalizeEmail(e.Email)
	e.Status = model.EnquiryPending
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO session_enquiries (name, email, phone, session_type, message, status, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		e.Name, e.Email, e.Phone, e.SessionType, e.Message, e.Status, ts, ts)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	e.CreatedAt, e.UpdatedAt = ts, ts
	return nil
}

// List returns enquiries, newest first, optionally only one status.
func (r *EnquiryRepo) List(ctx context.Context, status string) ([]model.SessionEnquiry, error) {
	q := "SELECT " + enquiryColumns + " FROM session_enquiries"
	var args []any
	if status != "" {
		q += " WHERE status=?"
		args = append(args, status)
	}
	q += " ORDER BY id DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.SessionEnquiry{}
	for rows.Next() {
		var (
			e   model.SessionEnquiry
			msg sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.Phone, &e.SessionType, &msg, &e.Status,
			&e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Message = msg.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateStatus sets the status of an enquiry.
func (r *EnquiryRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE session_enquiries SET status=?, updated_at=? WHERE id=?", status, now(), id)
	return affectedOne(res, err)
}
