package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-booking/internal/model"
)

func reserve(t *testing.T, repo *SessionRepo, id uint64, seats int) error {
	t.Helper()
	ctx := context.Background()
	tx, err := repo.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	if _, err := repo.ReserveSeatsTx(ctx, tx, id, seats); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func TestSessionRepo_ReserveSeats(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db)
	ctx := context.Background()
	s := createSession(t, db, 5)

	require.NoError(t, reserve(t, repo, s.ID, 3))
	require.NoError(t, reserve(t, repo, s.ID, 2))
	assert.ErrorIs(t, reserve(t, repo, s.ID, 1), ErrInsufficientCapacity)
	assert.ErrorIs(t, reserve(t, repo, 999, 1), ErrNotFound)

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.BookedSeats)
	assert.Equal(t, 0, got.AvailableSeats())
}

func TestSessionRepo_ConcurrentReserve(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db)
	ctx := context.Background()
	s := createSession(t, db, 3)

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	results := make(chan error, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				results <- err
				return
			}
			if _, err := repo.ReserveSeatsTx(ctx, tx, s.ID, 1); err != nil {
				_ = tx.Rollback()
				results <- err
				return
			}
			results <- tx.Commit()
		}()
	}
	wg.Wait()
	close(results)

	ok, rejected := 0, 0
	for err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientCapacity)
			rejected++
		}
	}
	assert.Equal(t, 3, ok)
	assert.Equal(t, numGoroutines-3, rejected)

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.BookedSeats)
}

func TestSessionRepo_ReleaseNeverNegative(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db)
	ctx := context.Background()
	s := createSession(t, db, 4)
	require.NoError(t, reserve(t, repo, s.ID, 1))

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.ReleaseSeatsTx(ctx, tx, s.ID, 3))
	require.NoError(t, tx.Commit())

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.BookedSeats)
}

func TestSessionRepo_UpdateAndDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db)
	ctx := context.Background()
	s := createSession(t, db, 4)
	require.NoError(t, reserve(t, repo, s.ID, 3))

	s.TotalSeats = 2
	assert.ErrorIs(t, repo.Update(ctx, &s), ErrConflict)

	s.TotalSeats = 10
	s.Instructor = "Ben"
	require.NoError(t, repo.Update(ctx, &s))
	assert.Equal(t, 3, s.BookedSeats)
	assert.Equal(t, "Ben", s.Instructor)

	missing := model.YogaSession{ID: 777, TotalSeats: 1}
	assert.ErrorIs(t, repo.Update(ctx, &missing), ErrNotFound)

	// a session with a booking cannot be deleted
	u := createUser(t, db, "del@example.com")
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	b := model.Booking{UserID: u.ID, SessionID: s.ID, Seats: 1, Amount: s.Price, Status: model.BookingPending, Phone: "1"}
	require.NoError(t, NewBookingRepo(db).CreateTx(ctx, tx, &b))
	require.NoError(t, tx.Commit())
	assert.ErrorIs(t, repo.Delete(ctx, s.ID), ErrConflict)

	free := createSession(t, db, 1)
	require.NoError(t, repo.Delete(ctx, free.ID))
	assert.ErrorIs(t, repo.Delete(ctx, free.ID), ErrNotFound)
}

func TestSessionRepo_ListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db)
	ctx := context.Background()

	createSession(t, db, 5)
	private := model.YogaSession{Instructor: "Kai", Date: "2029-12-31", StartTime: "10:00", EndTime: "11:00",
		TotalSeats: 1, Price: 1, SessionType: model.SessionPrivate}
	require.NoError(t, repo.Create(ctx, &private))

	all, err := repo.List(ctx, SessionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, private.ID, all[0].ID)

	onlyPrivate, err := repo.List(ctx, SessionFilter{Type: model.SessionPrivate})
	require.NoError(t, err)
	assert.Len(t, onlyPrivate, 1)

	fromJan, err := repo.List(ctx, SessionFilter{FromDate: "2030-01-01"})
	require.NoError(t, err)
	assert.Len(t, fromJan, 1)
}
