package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/studio-booking/internal/model"
)

const bookingColumns = `id, user_id, session_id, seats, amount, status, phone, comment, created_at, updated_at`

// BookingRepo provides CRUD operations for bookings.  Capacity is not
// touched here; callers pair CreateTx with SessionRepo.ReserveSeatsTx in
// the same transaction.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

func scanBooking(row interface{ Scan(...any) error }) (model.Booking, error) {
	var (
		b       model.Booking
		comment sql.NullString
	)
	err := row.Scan(&b.ID, &b.UserID, &b.SessionID, &b.Seats, &b.Amount, &b.Status, &b.Phone,
		&comment, &b.CreatedAt, &b.UpdatedAt)
	b.Comment = comment.String
	return b, err
}

// CreateTx inserts a new booking within the scope of an existing
// transaction and populates the generated ID and timestamps.  The caller
// must commit or rollback the transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	ts := now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (user_id, session_id, seats, amount, status, phone, comment, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.SessionID, b.Seats, b.Amount, b.Status, b.Phone, nullString(b.Comment), ts, ts)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.CreatedAt, b.UpdatedAt = ts, ts
	return nil
}

// GetByID loads one booking.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id = ?", id))
	return b, notFound(err)
}

// GetByIDTx loads one booking inside tx.
func (r *BookingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id = ?", id))
	return b, notFound(err)
}

// ListByUser returns the bookings of one user, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	return r.listDetailed(ctx, "WHERE b.user_id = ?", userID)
}

// ListDetailed returns every booking, optionally only those of one
// session (sessionID > 0).  Each row carries the current user and
// session snapshot, resolved at read time through LEFT JOINs.
func (r *BookingRepo) ListDetailed(ctx context.Context, sessionID uint64) ([]model.BookingDetail, error) {
	if sessionID > 0 {
		return r.listDetailed(ctx, "WHERE b.session_id = ?", sessionID)
	}
	return r.listDetailed(ctx, "")
}

func (r *BookingRepo) listDetailed(ctx context.Context, where string, args ...any) ([]model.BookingDetail, error) {
	q := `SELECT b.id, b.user_id, b.session_id, b.seats, b.amount, b.status, b.phone, b.comment,
	             b.created_at, b.updated_at,
	             u.id, u.name, u.email, u.phone,
	             s.id, s.instructor, s.date, s.start_time, s.end_time
	      FROM bookings b
	      LEFT JOIN users u ON u.id = b.user_id
	      LEFT JOIN yoga_sessions s ON s.id = b.session_id
	      ` + where + `
	      ORDER BY b.id DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.BookingDetail{}
	for rows.Next() {
		var (
			d                                  model.BookingDetail
			comment                            sql.NullString
			uid, sid                           sql.NullInt64
			uname, uemail, uphone              sql.NullString
			instructor, date, startTime, endTm sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.UserID, &d.SessionID, &d.Seats, &d.Amount, &d.Status, &d.Phone, &comment,
			&d.CreatedAt, &d.UpdatedAt,
			&uid, &uname, &uemail, &uphone,
			&sid, &instructor, &date, &startTime, &endTm); err != nil {
			return nil, err
		}
		d.Comment = comment.String
		if uid.Valid {
			d.User = &model.BookingUser{Name: uname.String, Email: uemail.String, Phone: uphone.String}
		}
		if sid.Valid {
			d.Session = &model.BookingSession{
				Instructor: instructor.String,
				Date:       date.String,
				StartTime:  startTime.String,
				EndTime:    endTm.String,
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateStatusTx moves a booking from status from to status to inside tx.
// The row lock taken by the UPDATE serializes concurrent changes to the
// same booking; when another transaction has already moved it away from
// from, no row matches and ErrConflict is returned.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, from, to string) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		to, now(), id, from)
	if err := affectedOne(res, err); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrConflict
		}
		return err
	}
	return nil
}
