package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-booking/internal/database"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/payment"
	"github.com/iliyamo/studio-booking/internal/queue"
	"github.com/iliyamo/studio-booking/internal/repository"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, db, database.DriverSQLite))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createUser(t *testing.T, db *sql.DB, email string) model.User {
	t.Helper()
	u := model.User{Name: "Member", Email: email, PasswordHash: "hash", Registered: true, IsActive: true, EmailVerified: true}
	require.NoError(t, repository.NewUserRepo(db).Create(context.Background(), &u))
	return u
}

func createSession(t *testing.T, db *sql.DB, total int) model.YogaSession {
	t.Helper()
	s := model.YogaSession{
		Instructor: "Asha", Date: "2030-02-01", StartTime: "07:00", EndTime: "08:00",
		TotalSeats: total, Price: 50000, SessionType: model.SessionRegular,
	}
	require.NoError(t, repository.NewSessionRepo(db).Create(context.Background(), &s))
	return s
}

func createProduct(t *testing.T, db *sql.DB, name string, price int64) model.Product {
	t.Helper()
	p := model.Product{Name: name, Price: price}
	require.NoError(t, repository.NewProductRepo(db).Create(context.Background(), &p))
	return p
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishBookingCreated(ctx context.Context, ev queue.BookingCreatedEvent) error {
	return m.Called(ev).Error(0)
}

func (m *mockPublisher) PublishOrderPaid(ctx context.Context, ev queue.OrderPaidEvent) error {
	return m.Called(ev).Error(0)
}

type mockProvider struct{ mock.Mock }

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	args := m.Called(req)
	s, _ := args.Get(0).(*payment.CheckoutSession)
	return s, args.Error(1)
}

func (m *mockProvider) RetrieveCheckout(ctx context.Context, id string) (*payment.CheckoutSession, error) {
	args := m.Called(id)
	s, _ := args.Get(0).(*payment.CheckoutSession)
	return s, args.Error(1)
}

// fakeProvider serves fixed sessions and counts lookups; it is safe for
// concurrent use.
type fakeProvider struct {
	mu       sync.Mutex
	sessions map[string]*payment.CheckoutSession
	lookups  int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	return nil, nil
}

func (f *fakeProvider) RetrieveCheckout(ctx context.Context, id string) (*payment.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	s, ok := f.sessions[id]
	if !ok {
		return nil, payment.ErrNotFound
	}
	cp := *s
	return &cp, nil
}
