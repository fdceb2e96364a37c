package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/queue"
	"github.com/iliyamo/studio-booking/internal/repository"
)

func TestCreateBooking_CapacityLedger(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "member@example.com")
	session := createSession(t, db, 5)
	svc := NewBookingService(db, nil, "thb", nil)

	b, err := svc.CreateBooking(ctx, user.ID, CreateBookingInput{SessionID: session.ID, Seats: 3, Phone: "0812345678"})
	require.NoError(t, err)
	assert.Equal(t, int64(150000), b.Amount)
	assert.Equal(t, model.BookingPending, b.Status)

	_, err = svc.CreateBooking(ctx, user.ID, CreateBookingInput{SessionID: session.ID, Seats: 2, Phone: "0812345678"})
	require.NoError(t, err)

	got, err := svc.Sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.BookedSeats)

	_, err = svc.CreateBooking(ctx, user.ID, CreateBookingInput{SessionID: session.ID, Seats: 1, Phone: "0812345678"})
	assert.ErrorIs(t, err, repository.ErrInsufficientCapacity)

	got, err = svc.Sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.BookedSeats)
	assert.Equal(t, 2, countRows(t, db, "bookings"))
}

func TestCreateBooking_ValidationWritesNothing(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "member@example.com")
	session := createSession(t, db, 5)
	svc := NewBookingService(db, nil, "thb", nil)

	cases := map[string]CreateBookingInput{
		"zero seats":     {SessionID: session.ID, Seats: 0, Phone: "0812345678"},
		"negative seats": {SessionID: session.ID, Seats: -2, Phone: "0812345678"},
		"missing phone":  {SessionID: session.ID, Seats: 1, Phone: "  "},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateBooking(ctx, user.ID, in)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
		})
	}

	got, err := svc.Sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.BookedSeats)
	assert.Equal(t, 0, countRows(t, db, "bookings"))
}

func TestCreateBooking_UnknownSession(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, "member@example.com")
	svc := NewBookingService(db, nil, "thb", nil)

	_, err := svc.CreateBooking(context.Background(), user.ID, CreateBookingInput{SessionID: 999, Seats: 1, Phone: "1"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreateBooking_ConcurrentNeverOverbooks(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "member@example.com")
	session := createSession(t, db, 3)
	svc := NewBookingService(db, nil, "thb", nil)

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.CreateBooking(ctx, user.ID, CreateBookingInput{SessionID: session.ID, Seats: 1, Phone: "1"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, repository.ErrInsufficientCapacity):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, workers-3, rejected)
	got, err := svc.Sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.BookedSeats)
	assert.Equal(t, 3, countRows(t, db, "bookings"))
}

func TestCancelBooking_ConcurrentReleasesOnce(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "member@example.com")
	other := createUser(t, db, "other@example.com")
	session := createSession(t, db, 10)
	svc := NewBookingService(db, nil, "thb", nil)

	b, err := svc.CreateBooking(ctx, user.ID, CreateBookingInput{SessionID: session.ID, Seats: 3, Phone: "1"})
	require.NoError(t, err)
	_, err = svc.CreateBooking(ctx, other.ID, CreateBookingInput{SessionID: session.ID, Seats: 2, Phone: "1"})
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = svc.CancelBooking(ctx, user.ID, b.ID)
			} else {
				_, err = svc.UpdateStatus(ctx, b.ID, model.BookingCancelled)
			}
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := svc.Sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.BookedSeats)
	cancelled, err := svc.Bookings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, cancelled.Status)
}

func TestCreateBooking_PublishesEvent(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, "member@example.com")
	session := createSession(t, db, 5)

	pub := &mockPublisher{}
	pub.On("PublishBookingCreated", mock.MatchedBy(func(ev queue.BookingCreatedEvent) bool {
		return ev.UserEmail == "member@example.com" && ev.Seats == 2 && ev.Amount == 100000 && ev.Instructor == "Asha"
	})).Return(errors.New("broker down")).Once()

	svc := NewBookingService(db, pub, "thb", nil)
	_, err := svc.CreateBooking(context.Background(), user.ID, CreateBookingInput{SessionID: session.ID, Seats: 2, Phone: "1"})
	require.NoError(t, err, "publish failures must not fail the booking")
	pub.AssertExpectations(t)
}

func TestCancelBooking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	owner := createUser(t, db, "owner@example.com")
	other := createUser(t, db, "other@example.com")
	session := createSession(t, db, 5)
	svc := NewBookingService(db, nil, "thb", nil)

	b, err := svc.CreateBooking(ctx, owner.ID, CreateBookingInput{SessionID: session.ID, Seats: 4, Phone: "1"})
	require.NoError(t, err)

	_, err = svc.CancelBooking(ctx, other.ID, b.ID)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	cancelled, err := svc.CancelBooking(ctx, owner.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, cancelled.Status)

	got, err := svc.Sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.BookedSeats)

	// a second cancel must not release the seats again
	_, err = svc.CreateBooking(ctx, owner.ID, CreateBookingInput{SessionID: session.ID, Seats: 2, Phone: "1"})
	require.NoError(t, err)
	_, err = svc.CancelBooking(ctx, owner.ID, b.ID)
	require.NoError(t, err)
	got, err = svc.Sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.BookedSeats)

	_, err = svc.CancelBooking(ctx, owner.ID, 12345)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "member@example.com")
	session := createSession(t, db, 5)
	svc := NewBookingService(db, nil, "thb", nil)

	b, err := svc.CreateBooking(ctx, user.ID, CreateBookingInput{SessionID: session.ID, Seats: 2, Phone: "1"})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, b.ID, "archived")
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))

	confirmed, err := svc.UpdateStatus(ctx, b.ID, model.BookingConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, confirmed.Status)

	got, _ := svc.Sessions.GetByID(ctx, session.ID)
	assert.Equal(t, 2, got.BookedSeats)

	_, err = svc.UpdateStatus(ctx, b.ID, model.BookingCancelled)
	require.NoError(t, err)
	got, _ = svc.Sessions.GetByID(ctx, session.ID)
	assert.Equal(t, 0, got.BookedSeats)

	_, err = svc.UpdateStatus(ctx, b.ID, model.BookingConfirmed)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
