package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/studio-booking/internal/metrics"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/queue"
	"github.com/iliyamo/studio-booking/internal/repository"
)

// BookingService reserves and releases session seats.  Every change to
// booked_seats happens in the same transaction as the booking row it
// belongs to.
type BookingService struct {
	DB        *sql.DB
	Sessions  *repository.SessionRepo
	Bookings  *repository.BookingRepo
	Users     *repository.UserRepo
	Publisher EventPublisher
	Currency  string
	Log       *zerolog.Logger
}

// NewBookingService wires a BookingService over db.
func NewBookingService(db *sql.DB, pub EventPublisher, currency string, log *zerolog.Logger) *BookingService {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &BookingService{
		DB:        db,
		Sessions:  repository.NewSessionRepo(db),
		Bookings:  repository.NewBookingRepo(db),
		Users:     repository.NewUserRepo(db),
		Publisher: pub,
		Currency:  currency,
		Log:       log,
	}
}

// CreateBookingInput is what a user submits to book a session.
type CreateBookingInput struct {
	SessionID uint64
	Seats     int
	Phone     string
	Comment   string
}

func (in CreateBookingInput) validate() error {
	v := invalid{}
	if in.SessionID == 0 {
		v["session_id"] = "required"
	}
	if in.Seats <= 0 {
		v["seats"] = "gt=0"
	}
	if strings.TrimSpace(in.Phone) == "" {
		v["phone"] = "required"
	}
	return v.err()
}

// CreateBooking reserves in.Seats on the session and records a pending
// booking for userID.  It fails with repository.ErrNotFound for an
// unknown session and repository.ErrInsufficientCapacity when the session
// is too full; in both cases nothing is written.
func (s *BookingService) CreateBooking(ctx context.Context, userID uint64, in CreateBookingInput) (model.Booking, error) {
	if err := in.validate(); err != nil {
		return model.Booking{}, err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Booking{}, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	session, err := s.Sessions.ReserveSeatsTx(ctx, tx, in.SessionID, in.Seats)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientCapacity):
			metrics.IncBookingRejected("capacity")
		case errors.Is(err, repository.ErrNotFound):
			metrics.IncBookingRejected("not_found")
		}
		return model.Booking{}, err
	}

	b := model.Booking{
		UserID:    userID,
		SessionID: session.ID,
		Seats:     in.Seats,
		Amount:    session.Price * int64(in.Seats),
		Status:    model.BookingPending,
		Phone:     strings.TrimSpace(in.Phone),
		Comment:   strings.TrimSpace(in.Comment),
	}
	if err := s.Bookings.CreateTx(ctx, tx, &b); err != nil {
		return model.Booking{}, fmt.Errorf("insert booking: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Booking{}, fmt.Errorf("commit booking: %w", err)
	}
	committed = true

	metrics.IncBookingCreated()
	s.Log.Info().Uint64("booking_id", b.ID).Uint64("user_id", userID).
		Uint64("session_id", session.ID).Int("seats", b.Seats).Msg("booking created")
	s.publishCreated(ctx, b, session)
	return b, nil
}

func (s *BookingService) publishCreated(ctx context.Context, b model.Booking, session model.YogaSession) {
	if s.Publisher == nil {
		return
	}
	ev := queue.BookingCreatedEvent{
		BookingID:  b.ID,
		UserID:     b.UserID,
		SessionID:  session.ID,
		Instructor: session.Instructor,
		Date:       session.Date,
		StartTime:  session.StartTime,
		EndTime:    session.EndTime,
		Seats:      b.Seats,
		Amount:     b.Amount,
		Currency:   s.Currency,
		CreatedAt:  b.CreatedAt.Format(time.RFC3339),
	}
	if u, err := s.Users.GetByID(ctx, b.UserID); err == nil {
		ev.UserName, ev.UserEmail = u.Name, u.Email
	}
	if err := s.Publisher.PublishBookingCreated(ctx, ev); err != nil {
		s.Log.Warn().Err(err).Uint64("booking_id", b.ID).Msg("publish booking.created failed")
	}
}

// CancelBooking cancels a booking owned by userID and returns its seats.
// Cancelling an already cancelled booking is a no-op.  Bookings of other
// users yield repository.ErrForbidden.
func (s *BookingService) CancelBooking(ctx context.Context, userID, bookingID uint64) (model.Booking, error) {
	return s.transition(ctx, bookingID, model.BookingCancelled, func(b model.Booking) error {
		if b.UserID != userID {
			return repository.ErrForbidden
		}
		return nil
	})
}

// UpdateStatus is the administrator's status change.  Moving to
// cancelled releases the seats; a cancelled booking cannot be moved back
// because its seats may already be taken.
func (s *BookingService) UpdateStatus(ctx context.Context, bookingID uint64, status string) (model.Booking, error) {
	if !model.ValidBookingStatus(status) {
		return model.Booking{}, &ValidationError{Fields: map[string]string{"status": "oneof=pending confirmed cancelled"}}
	}
	return s.transition(ctx, bookingID, status, nil)
}

// statusRetries bounds how often transition re-reads a booking whose
// status changed under it.
const statusRetries = 3

func (s *BookingService) transition(ctx context.Context, bookingID uint64, status string, check func(model.Booking) error) (model.Booking, error) {
	for attempt := 1; ; attempt++ {
		b, err := s.transitionOnce(ctx, bookingID, status, check)
		if errors.Is(err, repository.ErrConflict) && attempt < statusRetries {
			continue
		}
		return b, err
	}
}

// transitionOnce moves the booking in one transaction.  The conditional
// status UPDATE runs before the seats are released, so only the
// transaction that actually leaves the old status gives seats back.
func (s *BookingService) transitionOnce(ctx context.Context, bookingID uint64, status string, check func(model.Booking) error) (model.Booking, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Booking{}, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := s.Bookings.GetByIDTx(ctx, tx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if check != nil {
		if err := check(b); err != nil {
			return model.Booking{}, err
		}
	}
	if b.Status == status {
		return b, nil
	}
	if b.Status == model.BookingCancelled {
		return model.Booking{}, ErrInvalidTransition
	}

	if err := s.Bookings.UpdateStatusTx(ctx, tx, b.ID, b.Status, status); err != nil {
		return model.Booking{}, err
	}
	if status == model.BookingCancelled {
		if err := s.Sessions.ReleaseSeatsTx(ctx, tx, b.SessionID, b.Seats); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return model.Booking{}, fmt.Errorf("release seats: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return model.Booking{}, fmt.Errorf("commit status: %w", err)
	}
	committed = true

	s.Log.Info().Uint64("booking_id", b.ID).Str("from", b.Status).Str("to", status).Msg("booking status changed")
	b.Status = status
	return b, nil
}
