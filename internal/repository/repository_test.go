package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-booking/internal/database"
	"github.com/iliyamo/studio-booking/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, db, database.DriverSQLite))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createUser(t *testing.T, db *sql.DB, email string) model.User {
	t.Helper()
	u := model.User{Name: "Test", Email: email, PasswordHash: "hash", Registered: true, IsActive: true, EmailVerified: true}
	require.NoError(t, NewUserRepo(db).Create(context.Background(), &u))
	return u
}

func createSession(t *testing.T, db *sql.DB, total int) model.YogaSession {
	t.Helper()
	s := model.YogaSession{
		Instructor:  "Asha",
		Date:        "2030-01-15",
		StartTime:   "07:00",
		EndTime:     "08:00",
		TotalSeats:  total,
		Price:       50000,
		SessionType: model.SessionRegular,
	}
	require.NoError(t, NewSessionRepo(db).Create(context.Background(), &s))
	return s
}
