package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-booking/internal/config"
)

func TestOpenSQLite_CreatesNestedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "studio.db")
	db, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, path)
}

func TestMigrate_Idempotent(t *testing.T) {
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, DriverSQLite))
	require.NoError(t, Migrate(ctx, db, DriverSQLite))

	for _, tbl := range schema {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", tbl.name).Scan(&name)
		require.NoError(t, err, tbl.name)
	}
}

func TestMigrate_UnsupportedDriver(t *testing.T) {
	assert.Error(t, Migrate(context.Background(), nil, "postgres"))
}

func TestMigrate_UniqueSlotTriple(t *testing.T) {
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "slots.db"))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, DriverSQLite))

	now := time.Now().UTC()
	const q = `INSERT INTO available_slots (session_type, date, time, is_booked, created_at, updated_at) VALUES (?, ?, ?, 0, ?, ?)`
	_, err = db.ExecContext(ctx, q, "private", "2025-01-01", "09:00", now, now)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, q, "private", "2025-01-01", "09:00", now, now)
	assert.Error(t, err)
	_, err = db.ExecContext(ctx, q, "corporate", "2025-01-01", "09:00", now, now)
	assert.NoError(t, err)
}

func TestRender_MySQLKeepsIndexesInline(t *testing.T) {
	var bookings table
	for _, tbl := range schema {
		if tbl.name == "bookings" {
			bookings = tbl
		}
	}
	stmts := bookings.render(DriverMySQL)
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "INDEX idx_bookings_session (session_id)")
	assert.Contains(t, stmts[0], "ENGINE=InnoDB")

	stmts = bookings.render(DriverSQLite)
	assert.Len(t, stmts, 3)
	assert.Contains(t, stmts[0], "INTEGER PRIMARY KEY AUTOINCREMENT")
}

func TestGateway_OpensOnce(t *testing.T) {
	var calls int32
	path := filepath.Join(t.TempDir(), "gateway.db")
	g := NewGatewayFunc(func(ctx context.Context) (*sql.DB, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(10 * time.Millisecond)
		return OpenSQLite(ctx, path)
	})
	defer g.Close()

	const n = 16
	handles := make([]*sql.DB, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			db, err := g.Conn(context.Background())
			assert.NoError(t, err)
			handles[i] = db
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, h := range handles {
		assert.Same(t, handles[0], h)
	}
}

func TestGateway_RemembersError(t *testing.T) {
	boom := errors.New("boom")
	var calls int32
	g := NewGatewayFunc(func(ctx context.Context) (*sql.DB, error) {
		atomic.AddInt32(&calls, 1)
		return nil, boom
	})

	_, err := g.Conn(context.Background())
	assert.ErrorIs(t, err, boom)
	_, err = g.Conn(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), calls)
	assert.NoError(t, g.Close())
}

func TestNewGateway_SQLite(t *testing.T) {
	g := NewGateway(config.Config{DBDriver: DriverSQLite, DBPath: filepath.Join(t.TempDir(), "cfg.db")})
	db, err := g.Conn(context.Background())
	require.NoError(t, err)
	assert.NoError(t, db.Ping())
	assert.NoError(t, g.Close())
}
