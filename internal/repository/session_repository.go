package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/studio-booking/internal/model"
)

const sessionColumns = `id, instructor, date, start_time, end_time, total_seats, booked_seats,
	price, session_type, description, created_at, updated_at`

// SessionRepo manages persistence for yoga sessions and owns the capacity
// ledger (total_seats / booked_seats).
type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// SessionFilter narrows List.  Empty fields are ignored.
type SessionFilter struct {
	Type     string // session_type
	FromDate string // inclusive, "YYYY-MM-DD"
}

func scanSession(row interface{ Scan(...any) error }) (model.YogaSession, error) {
	var (
		s    model.YogaSession
		desc sql.NullString
	)
	err := row.Scan(&s.ID, &s.Instructor, &s.Date, &s.StartTime, &s.EndTime, &s.TotalSeats,
		&s.BookedSeats, &s.Price, &s.SessionType, &desc, &s.CreatedAt, &s.UpdatedAt)
	s.Description = desc.String
	return s, err
}

// Create inserts a new session with zero booked seats.
func (r *SessionRepo) Create(ctx context.Context, s *model.YogaSession) error {
	ts := now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO yoga_sessions (instructor, date, start_time, end_time, total_seats, booked_seats,
			price, session_type, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?)`,
		s.Instructor, s.Date, s.StartTime, s.EndTime, s.TotalSeats, s.Price, s.SessionType, s.Description, ts, ts)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.BookedSeats = 0
	s.CreatedAt, s.UpdatedAt = ts, ts
	return nil
}

// GetByID loads one session.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (model.YogaSession, error) {
	return r.getByID(ctx, r.db, id)
}

// GetByIDTx loads one session inside tx.
func (r *SessionRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.YogaSession, error) {
	return r.getByID(ctx, tx, id)
}

func (r *SessionRepo) getByID(ctx context.Context, q queryer, id uint64) (model.YogaSession, error) {
	s, err := scanSession(q.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM yoga_sessions WHERE id = ?", id))
	return s, notFound(err)
}

// List returns sessions ordered by date and start time.
func (r *SessionRepo) List(ctx context.Context, f SessionFilter) ([]model.YogaSession, error) {
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		where = append(where, "session_type = ?")
		args = append(args, f.Type)
	}
	if f.FromDate != "" {
		where = append(where, "date >= ?")
		args = append(args, f.FromDate)
	}
	q := "SELECT " + sessionColumns + " FROM yoga_sessions"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY date, start_time, id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.YogaSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update replaces the editable fields of a session.  Capacity cannot be
// lowered below the seats already booked; that case yields ErrConflict.
func (r *SessionRepo) Update(ctx context.Context, s *model.YogaSession) error {
	ts := now()
	res, err := r.db.ExecContext(ctx,
		`UPDATE yoga_sessions SET instructor = ?, date = ?, start_time = ?, end_time = ?, total_seats = ?,
			price = ?, session_type = ?, description = ?, updated_at = ?
		 WHERE id = ? AND booked_seats <= ?`,
		s.Instructor, s.Date, s.StartTime, s.EndTime, s.TotalSeats, s.Price, s.SessionType, s.Description, ts,
		s.ID, s.TotalSeats)
	if err := affectedOne(res, err); err != nil {
		if err != ErrNotFound {
			return err
		}
		if _, gerr := r.GetByID(ctx, s.ID); gerr != nil {
			return gerr
		}
		return ErrConflict
	}
	updated, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = updated
	return nil
}

// Delete removes a session.  Sessions that still have bookings (of any
// status) cannot be deleted and yield ErrConflict.
func (r *SessionRepo) Delete(ctx context.Context, id uint64) error {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings WHERE session_id = ?", id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM yoga_sessions WHERE id = ?", id)
	return affectedOne(res, err)
}

// ReserveSeatsTx adds seats to booked_seats only if the result stays
// within total_seats.  The check and the increment are one statement, so
// concurrent reservations can never overbook.  It returns ErrNotFound for
// an unknown session and ErrInsufficientCapacity when it is too full.
func (r *SessionRepo) ReserveSeatsTx(ctx context.Context, tx *sql.Tx, id uint64, seats int) (model.YogaSession, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE yoga_sessions SET booked_seats = booked_seats + ?, updated_at = ?
		 WHERE id = ? AND booked_seats + ? <= total_seats`,
		seats, now(), id, seats)
	if err != nil {
		return model.YogaSession{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.YogaSession{}, err
	}
	s, err := r.GetByIDTx(ctx, tx, id)
	if err != nil {
		return model.YogaSession{}, err
	}
	if n == 0 {
		return s, ErrInsufficientCapacity
	}
	return s, nil
}

// ReleaseSeatsTx returns seats to the session, never going below zero.
func (r *SessionRepo) ReleaseSeatsTx(ctx context.Context, tx *sql.Tx, id uint64, seats int) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE yoga_sessions
		 SET booked_seats = CASE WHEN booked_seats >= ? THEN booked_seats - ? ELSE 0 END, updated_at = ?
		 WHERE id = ?`,
		seats, seats, now(), id)
	return affectedOne(res, err)
}
