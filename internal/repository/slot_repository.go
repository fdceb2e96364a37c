package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/studio-booking/internal/model"
)

const slotColumns = `id, session_type, date, time, is_booked, created_at, updated_at`

// SlotRepo persists admin-curated available slots.  (session_type, date,
// time) is unique; inserting or moving a slot onto a taken triple yields
// ErrDuplicate.
type SlotRepo struct{ db *sql.DB }

func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

// SlotFilter narrows List.  Empty fields are ignored.
type SlotFilter struct {
	SessionType string
	Date        string
	OnlyFree    bool
}

func scanSlot(row interface{ Scan(...any) error }) (model.AvailableSlot, error) {
	var s model.AvailableSlot
	err := row.Scan(&s.ID, &s.SessionType, &s.Date, &s.Time, &s.IsBooked, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Create inserts a slot.
func (r *SlotRepo) Create(ctx context.Context, s *model.AvailableSlot) error {
	ts := now()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO available_slots (session_type, date, time, is_booked, created_at, updated_at) VALUES (?,?,?,?,?,?)",
		s.SessionType, s.Date, s.Time, s.IsBooked, ts, ts)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.CreatedAt, s.UpdatedAt = ts, ts
	return nil
}

// GetByID loads one slot.
func (r *SlotRepo) GetByID(ctx context.Context, id uint64) (model.AvailableSlot, error) {
	s, err := scanSlot(r.db.QueryRowContext(ctx, "SELECT "+slotColumns+" FROM available_slots WHERE id=?", id))
	return s, notFound(err)
}

// List returns slots ordered by date and time.
func (r *SlotRepo) List(ctx context.Context, f SlotFilter) ([]model.AvailableSlot, error) {
	var (
		where []string
		args  []any
	)
	if f.SessionType != "" {
		where = append(where, "session_type=?")
		args = append(args, f.SessionType)
	}
	if f.Date != "" {
		where = append(where, "date=?")
		args = append(args, f.Date)
	}
	if f.OnlyFree {
		where = append(where, "is_booked=0")
	}
	q := "SELECT " + slotColumns + " FROM available_slots"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY date, time, id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AvailableSlot{}
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update replaces the fields of a slot.
func (r *SlotRepo) Update(ctx context.Context, s *model.AvailableSlot) error {
	ts := now()
	res, err := r.db.ExecContext(ctx,
		"UPDATE available_slots SET session_type=?, date=?, time=?, is_booked=?, updated_at=? WHERE id=?",
		s.SessionType, s.Date, s.Time, s.IsBooked, ts, s.ID)
	if err != nil && isDuplicate(err) {
		return ErrDuplicate
	}
	if err := affectedOne(res, err); err != nil {
		return err
	}
	s.UpdatedAt = ts
	return nil
}

// SetBooked flips the is_booked flag of a slot.
func (r *SlotRepo) SetBooked(ctx context.Context, id uint64, booked bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE available_slots SET is_booked=?, updated_at=? WHERE id=?", booked, now(), id)
	return affectedOne(res, err)
}

// Delete removes a slot.
func (r *SlotRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM available_slots WHERE id=?", id)
	return affectedOne(res, err)
}
