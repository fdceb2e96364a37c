package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-booking/internal/database"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
)

type countingSweeper struct {
	calls int32
	err   error
}

func (c *countingSweeper) SweepExpired(context.Context, time.Time) (int64, error) {
	atomic.AddInt32(&c.calls, 1)
	return 1, c.err
}

func TestNew_RejectsBadSpec(t *testing.T) {
	_, err := New("every now and then", &countingSweeper{}, nil)
	assert.Error(t, err)
}

func TestScheduler_RunsOnSchedule(t *testing.T) {
	sw := &countingSweeper{}
	s, err := New("@every 1s", sw, nil)
	require.NoError(t, err)
	s.Start()
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&sw.calls) > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestSweepTokens_ToleratesErrors(t *testing.T) {
	sw := &countingSweeper{err: errors.New("db down")}
	s, err := New("@every 1h", sw, nil)
	require.NoError(t, err)
	s.SweepTokens()
	assert.Equal(t, int32(1), sw.calls)
}

func TestSweepTokens_ClearsExpired(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, database.Migrate(ctx, db, database.DriverSQLite))

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	stale := model.User{Name: "Stale", Email: "stale@example.com", Registered: true, IsActive: true}
	fresh := model.User{Name: "Fresh", Email: "fresh@example.com", Registered: true, IsActive: true}
	require.NoError(t, users.Create(ctx, &stale))
	require.NoError(t, users.Create(ctx, &fresh))
	require.NoError(t, tokens.Store(ctx, repository.EmailVerification, stale.ID, "111111", time.Now().Add(-time.Minute)))
	require.NoError(t, tokens.Store(ctx, repository.EmailVerification, fresh.ID, "222222", time.Now().Add(time.Hour)))

	s, err := New("@every 1h", tokens, nil)
	require.NoError(t, err)
	s.SweepTokens()

	got, err := users.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Empty(t, got.VerificationToken)
	got, err = users.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, "222222", got.VerificationToken)
}
