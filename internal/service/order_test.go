package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/payment"
	"github.com/iliyamo/studio-booking/internal/queue"
	"github.com/iliyamo/studio-booking/internal/repository"
)

func TestCreateOrder_PricesServerSide(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "member@example.com")
	mat := createProduct(t, db, "Mat", 120000)
	block := createProduct(t, db, "Block", 25000)
	svc := NewOrderService(db, nil, nil, "thb", "", nil)

	o, err := svc.CreateOrder(ctx, user.ID, []LineItem{
		{ProductID: mat.ID, Quantity: 1, Price: 1},
		{ProductID: block.ID, Quantity: 2},
		{ProductID: mat.ID, Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, o.Status)
	assert.Equal(t, int64(2*120000+2*25000), o.Amount)
	require.Len(t, o.Items, 2)
	assert.Equal(t, mat.ID, o.Items[0].ProductID)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Equal(t, "Mat", o.Items[0].Name)

	stored, err := svc.Orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)
}

func TestCreateOrder_Rejects(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "member@example.com")
	mat := createProduct(t, db, "Mat", 120000)
	svc := NewOrderService(db, nil, nil, "thb", "", nil)

	_, err := svc.CreateOrder(ctx, user.ID, []LineItem{{ProductID: 404, Quantity: 1}})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	var ve *ValidationError
	_, err = svc.CreateOrder(ctx, user.ID, []LineItem{{ProductID: mat.ID, Quantity: 0}})
	assert.True(t, errors.As(err, &ve))
	_, err = svc.CreateOrder(ctx, user.ID, nil)
	assert.True(t, errors.As(err, &ve))

	assert.Equal(t, 0, countRows(t, db, "orders"))
}

func TestCreateInstantOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "member@example.com")
	strap := createProduct(t, db, "Strap", 9900)
	svc := NewOrderService(db, nil, nil, "thb", "", nil)

	o, err := svc.CreateInstantOrder(ctx, user.ID, strap.ID, 0)
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 1, o.Items[0].Quantity)
	assert.Equal(t, int64(9900), o.Amount)

	var ve *ValidationError
	_, err = svc.CreateInstantOrder(ctx, user.ID, strap.ID, -2)
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, 1, countRows(t, db, "orders"))
}

func TestCreateCheckout(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "member@example.com")
	mat := createProduct(t, db, "Mat", 120000)

	prov := &mockProvider{}
	prov.On("CreateCheckout", mock.MatchedBy(func(req payment.CheckoutRequest) bool {
		var items []model.OrderItem
		if err := json.Unmarshal([]byte(req.Metadata["items"]), &items); err != nil {
			return false
		}
		return req.Amount == 240000 && req.Currency == "thb" && req.ReturnURL == "https://studio.example/done" &&
			req.Metadata["user_id"] == strconv.FormatUint(user.ID, 10) && len(items) == 1 && items[0].Quantity == 2
	})).Return(&payment.CheckoutSession{ID: "chrg_1", URL: "https://pay.example/chrg_1"}, nil).Once()

	svc := NewOrderService(db, prov, nil, "thb", "https://studio.example/done", nil)

	_, err := svc.CreateCheckout(ctx, user.ID, CheckoutInput{Items: []LineItem{{ProductID: mat.ID, Quantity: 2}}, Total: 1000})
	assert.ErrorIs(t, err, ErrTotalMismatch)
	_, err = svc.CreateCheckout(ctx, user.ID, CheckoutInput{Items: []LineItem{{ProductID: mat.ID, Quantity: 2, Price: 1}}})
	assert.ErrorIs(t, err, ErrTotalMismatch)

	res, err := svc.CreateCheckout(ctx, user.ID, CheckoutInput{Items: []LineItem{{ProductID: mat.ID, Quantity: 2, Price: 120000}}, Total: 240000})
	require.NoError(t, err)
	assert.Equal(t, "chrg_1", res.SessionID)
	assert.Equal(t, "https://pay.example/chrg_1", res.URL)
	assert.Equal(t, int64(240000), res.Amount)
	prov.AssertExpectations(t)
	assert.Equal(t, 0, countRows(t, db, "orders"))
}

func paidSession(id string, userID uint64, amount int64) *payment.CheckoutSession {
	items, _ := json.Marshal([]model.OrderItem{{ProductID: 1, Name: "Mat", Price: 120000, Quantity: 1}})
	return &payment.CheckoutSession{
		ID: id, Paid: true, Status: "successful", Amount: amount, Currency: "THB",
		Metadata: map[string]string{"user_id": strconv.FormatUint(userID, 10), "items": string(items)},
	}
}

func TestVerifyCheckout_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "member@example.com")

	prov := &mockProvider{}
	prov.On("RetrieveCheckout", "chrg_paid").Return(paidSession("chrg_paid", user.ID, 99900), nil).Once()
	pub := &mockPublisher{}
	pub.On("PublishOrderPaid", mock.MatchedBy(func(ev queue.OrderPaidEvent) bool {
		return ev.PaymentRef == "chrg_paid" && ev.UserEmail == "member@example.com"
	})).Return(nil).Once()

	svc := NewOrderService(db, prov, pub, "thb", "", nil)

	first, replayed, err := svc.VerifyCheckout(ctx, user.ID, "chrg_paid")
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, model.OrderPaid, first.Status)
	assert.Equal(t, int64(99900), first.Amount, "amount comes from the provider")
	assert.Equal(t, "thb", first.Currency)
	assert.Equal(t, "mock", first.PaymentProvider)
	require.Len(t, first.Items, 1)

	second, replayed, err := svc.VerifyCheckout(ctx, user.ID, "chrg_paid")
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, countRows(t, db, "orders"))

	prov.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestVerifyCheckout_Concurrent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "member@example.com")
	prov := &fakeProvider{sessions: map[string]*payment.CheckoutSession{
		"chrg_race": paidSession("chrg_race", user.ID, 5000),
	}}
	svc := NewOrderService(db, prov, nil, "thb", "", nil)

	const workers = 8
	ids := make([]uint64, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			o, _, err := svc.VerifyCheckout(ctx, user.ID, "chrg_race")
			assert.NoError(t, err)
			ids[i] = o.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, countRows(t, db, "orders"))
}

func TestVerifyCheckout_Failures(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "member@example.com")
	other := createUser(t, db, "other@example.com")

	unpaid := paidSession("chrg_unpaid", user.ID, 100)
	unpaid.Paid = false
	prov := &fakeProvider{sessions: map[string]*payment.CheckoutSession{
		"chrg_unpaid": unpaid,
		"chrg_other":  paidSession("chrg_other", other.ID, 100),
	}}
	svc := NewOrderService(db, prov, nil, "thb", "", nil)

	_, _, err := svc.VerifyCheckout(ctx, user.ID, "chrg_unpaid")
	assert.ErrorIs(t, err, ErrNotPaid)

	_, _, err = svc.VerifyCheckout(ctx, user.ID, "chrg_other")
	assert.ErrorIs(t, err, repository.ErrForbidden)

	_, _, err = svc.VerifyCheckout(ctx, user.ID, "chrg_missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	var ve *ValidationError
	_, _, err = svc.VerifyCheckout(ctx, user.ID, " ")
	assert.True(t, errors.As(err, &ve))

	assert.Equal(t, 0, countRows(t, db, "orders"))

	// the rightful owner reconciles; a replay by someone else is refused
	_, _, err = svc.VerifyCheckout(ctx, other.ID, "chrg_other")
	require.NoError(t, err)
	_, _, err = svc.VerifyCheckout(ctx, user.ID, "chrg_other")
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestOrderUpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "member@example.com")
	mat := createProduct(t, db, "Mat", 100)
	svc := NewOrderService(db, nil, nil, "thb", "", nil)

	o, err := svc.CreateOrder(ctx, user.ID, []LineItem{{ProductID: mat.ID, Quantity: 1}})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, o.ID, model.OrderShipped)
	require.NoError(t, err)
	assert.Equal(t, model.OrderShipped, updated.Status)

	_, err = svc.UpdateStatus(ctx, o.ID, "lost")
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))

	_, err = svc.UpdateStatus(ctx, 999, model.OrderShipped)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
