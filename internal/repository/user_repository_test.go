package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-booking/internal/model"
)

func TestUserRepo_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	u := model.User{Name: "Mira", Email: "  Mira@Example.COM ", PasswordHash: "h", Registered: true, IsActive: true}
	require.NoError(t, repo.Create(ctx, &u))
	assert.NotZero(t, u.ID)
	assert.Equal(t, model.RoleUser, u.Role)

	got, err := repo.GetByEmail(ctx, "mira@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "h", got.PasswordHash)
	assert.False(t, got.EmailVerified)

	_, err = repo.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepo_DuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	createUser(t, db, "dup@example.com")
	second := model.User{Email: "DUP@example.com", Registered: true}
	assert.ErrorIs(t, repo.Create(ctx, &second), ErrEmailExists)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUserRepo_UpgradePlaceholder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	ph := model.User{Name: "Walk-in", Email: "walkin@example.com", Registered: false, IsActive: true}
	require.NoError(t, repo.Create(ctx, &ph))

	ph.PasswordHash = "new-hash"
	ph.Name = "Real Name"
	require.NoError(t, repo.UpgradePlaceholder(ctx, &ph))

	got, err := repo.GetByID(ctx, ph.ID)
	require.NoError(t, err)
	assert.True(t, got.Registered)
	assert.Equal(t, "Real Name", got.Name)
	assert.Equal(t, "new-hash", got.PasswordHash)

	// a registered row cannot be upgraded again
	assert.ErrorIs(t, repo.UpgradePlaceholder(ctx, &ph), ErrEmailExists)
}

func TestUserRepo_ProfileAndActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()
	u := createUser(t, db, "p@example.com")

	require.NoError(t, repo.UpdateProfile(ctx, u.ID, "New", "0800", "Bangkok"))
	require.NoError(t, repo.UpdateProfile(ctx, u.ID, "New", "0800", "Bangkok"))
	require.NoError(t, repo.SetActive(ctx, u.ID, false))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)
	assert.Equal(t, "0800", got.Phone)
	assert.False(t, got.IsActive)

	assert.ErrorIs(t, repo.SetActive(ctx, 4242, true), ErrNotFound)
}

func TestTokenRepo_SingleUse(t *testing.T) {
	db := setupTestDB(t)
	tokens := NewTokenRepo(db)
	users := NewUserRepo(db)
	ctx := context.Background()
	u := model.User{Email: "otp@example.com", Registered: true, IsActive: true}
	require.NoError(t, users.Create(ctx, &u))

	now := time.Now().UTC()
	require.NoError(t, tokens.Store(ctx, LoginOTP, u.ID, "123456", now.Add(10*time.Minute)))

	assert.ErrorIs(t, tokens.Consume(ctx, LoginOTP, u.ID, "654321", now, true), ErrNotFound)
	assert.ErrorIs(t, tokens.Consume(ctx, EmailVerification, u.ID, "123456", now, true), ErrNotFound)
	require.NoError(t, tokens.Consume(ctx, LoginOTP, u.ID, "123456", now, true))
	assert.ErrorIs(t, tokens.Consume(ctx, LoginOTP, u.ID, "123456", now, true), ErrNotFound)

	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.EmailVerified)
	var otp sql.NullString
	require.NoError(t, db.QueryRow("SELECT login_otp FROM users WHERE id = ?", u.ID).Scan(&otp))
	assert.False(t, otp.Valid)
}

func TestTokenRepo_KindsAreSeparate(t *testing.T) {
	db := setupTestDB(t)
	tokens := NewTokenRepo(db)
	users := NewUserRepo(db)
	ctx := context.Background()
	u := model.User{Email: "both@example.com", Registered: true, IsActive: true}
	require.NoError(t, users.Create(ctx, &u))

	exp := time.Now().Add(time.Hour)
	require.NoError(t, tokens.Store(ctx, EmailVerification, u.ID, "linktoken", exp))
	require.NoError(t, tokens.Store(ctx, LoginOTP, u.ID, "482913", exp))

	_, err := tokens.ConsumeByToken(ctx, "482913", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = users.GetByVerificationToken(ctx, "482913")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, tokens.Clear(ctx, EmailVerification, u.ID))
	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, got.VerificationToken)
	assert.NoError(t, tokens.Consume(ctx, LoginOTP, u.ID, "482913", time.Now(), false))
}

func TestTokenRepo_Expiry(t *testing.T) {
	db := setupTestDB(t)
	tokens := NewTokenRepo(db)
	ctx := context.Background()
	u := createUser(t, db, "exp@example.com")

	now := time.Now().UTC()
	require.NoError(t, tokens.Store(ctx, EmailVerification, u.ID, "deadbeef", now.Add(-time.Minute)))
	require.NoError(t, tokens.Store(ctx, LoginOTP, u.ID, "111111", now.Add(-time.Minute)))
	assert.ErrorIs(t, tokens.Consume(ctx, LoginOTP, u.ID, "111111", now, false), ErrNotFound)

	n, err := tokens.SweepExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := NewUserRepo(db).GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, got.VerificationToken)
	assert.Nil(t, got.VerificationExpiresAt)
}

func TestTokenRepo_ConsumeByToken(t *testing.T) {
	db := setupTestDB(t)
	tokens := NewTokenRepo(db)
	ctx := context.Background()
	u := model.User{Email: "verify@example.com", Registered: true, IsActive: true}
	require.NoError(t, NewUserRepo(db).Create(ctx, &u))

	require.NoError(t, tokens.Store(ctx, EmailVerification, u.ID, "abcdef", time.Now().Add(time.Hour)))
	id, err := tokens.ConsumeByToken(ctx, "abcdef", time.Now())
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	_, err = tokens.ConsumeByToken(ctx, "abcdef", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)

	// verified users no longer match
	require.NoError(t, tokens.Store(ctx, EmailVerification, u.ID, "fedcba", time.Now().Add(time.Hour)))
	_, err = tokens.ConsumeByToken(ctx, "fedcba", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdminRepo(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAdminRepo(db)
	ctx := context.Background()

	a := model.Admin{Name: "Root", Email: "Admin@Studio.io", PasswordHash: "h"}
	require.NoError(t, repo.Create(ctx, &a))
	dup := model.Admin{Email: "admin@studio.io", PasswordHash: "h"}
	assert.ErrorIs(t, repo.Create(ctx, &dup), ErrEmailExists)

	got, err := repo.GetByEmail(ctx, "ADMIN@studio.io")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	// admins and users are disjoint tables
	_, err = NewUserRepo(db).GetByEmail(ctx, "admin@studio.io")
	assert.ErrorIs(t, err, ErrNotFound)
}
