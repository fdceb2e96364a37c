package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/studio-booking/internal/metrics"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/payment"
	"github.com/iliyamo/studio-booking/internal/queue"
	"github.com/iliyamo/studio-booking/internal/repository"
)

// Metadata keys stored on the provider checkout.
const (
	metaUserID = "user_id"
	metaItems  = "items"
)

// OrderService creates orders from carts and reconciles paid checkouts
// into orders exactly once.
type OrderService struct {
	Orders    *repository.OrderRepo
	Products  *repository.ProductRepo
	Users     *repository.UserRepo
	Provider  payment.Provider
	Publisher EventPublisher
	Currency  string
	ReturnURL string
	Log       *zerolog.Logger
}

// NewOrderService wires an OrderService over db.
func NewOrderService(db *sql.DB, provider payment.Provider, pub EventPublisher, currency, returnURL string, log *zerolog.Logger) *OrderService {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &OrderService{
		Orders:    repository.NewOrderRepo(db),
		Products:  repository.NewProductRepo(db),
		Users:     repository.NewUserRepo(db),
		Provider:  provider,
		Publisher: pub,
		Currency:  currency,
		ReturnURL: returnURL,
		Log:       log,
	}
}

// LineItem is one cart line as submitted by a client.  Price is only
// used to cross-check a checkout; the stored price always comes from the
// catalog.
type LineItem struct {
	ProductID uint64 `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price,omitempty"`
}

// CheckoutInput opens a hosted checkout.  Total, when non-zero, must
// equal the server-side cart total.
type CheckoutInput struct {
	Items []LineItem
	Total int64
	Token string
}

// CheckoutResult tells the client where to pay.
type CheckoutResult struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

// priceCart merges duplicate product lines and resolves names and prices
// from the catalog.  Unknown products yield repository.ErrNotFound.  With
// strict set, a client-declared price that differs from the catalog
// yields ErrTotalMismatch; otherwise declared prices are ignored.
func (s *OrderService) priceCart(ctx context.Context, items []LineItem, strict bool) ([]model.OrderItem, int64, error) {
	if len(items) == 0 {
		return nil, 0, &ValidationError{Fields: map[string]string{"items": "required"}}
	}
	qty := make(map[uint64]int, len(items))
	declared := make(map[uint64]int64, len(items))
	order := make([]uint64, 0, len(items))
	v := invalid{}
	for i, it := range items {
		if it.ProductID == 0 {
			v[fmt.Sprintf("items[%d].product_id", i)] = "required"
			continue
		}
		if it.Quantity <= 0 {
			v[fmt.Sprintf("items[%d].quantity", i)] = "gt=0"
			continue
		}
		if _, seen := qty[it.ProductID]; !seen {
			order = append(order, it.ProductID)
		}
		qty[it.ProductID] += it.Quantity
		if it.Price > 0 {
			declared[it.ProductID] = it.Price
		}
	}
	if err := v.err(); err != nil {
		return nil, 0, err
	}

	products, err := s.Products.GetByIDs(ctx, order)
	if err != nil {
		return nil, 0, err
	}
	lines := make([]model.OrderItem, 0, len(order))
	var total int64
	for _, id := range order {
		p, ok := products[id]
		if !ok {
			return nil, 0, fmt.Errorf("product %d: %w", id, repository.ErrNotFound)
		}
		if d, ok := declared[id]; strict && ok && d != p.Price {
			return nil, 0, fmt.Errorf("product %d price %d, catalog %d: %w", id, d, p.Price, ErrTotalMismatch)
		}
		lines = append(lines, model.OrderItem{ProductID: id, Name: p.Name, Price: p.Price, Quantity: qty[id]})
		total += p.Price * int64(qty[id])
	}
	return lines, total, nil
}

// CreateOrder stores a pending order for userID at catalog prices.
func (s *OrderService) CreateOrder(ctx context.Context, userID uint64, items []LineItem) (model.Order, error) {
	return s.createOrder(ctx, userID, items, "cart")
}

// CreateInstantOrder is the single-product "buy now" variant of
// CreateOrder.
func (s *OrderService) CreateInstantOrder(ctx context.Context, userID, productID uint64, quantity int) (model.Order, error) {
	if quantity == 0 {
		quantity = 1
	}
	return s.createOrder(ctx, userID, []LineItem{{ProductID: productID, Quantity: quantity}}, "instant")
}

func (s *OrderService) createOrder(ctx context.Context, userID uint64, items []LineItem, source string) (model.Order, error) {
	lines, total, err := s.priceCart(ctx, items, false)
	if err != nil {
		return model.Order{}, err
	}
	o := model.Order{
		UserID:   userID,
		Items:    lines,
		Amount:   total,
		Currency: s.Currency,
		Status:   model.OrderPending,
	}
	if err := s.Orders.Create(ctx, &o); err != nil {
		return model.Order{}, fmt.Errorf("create order: %w", err)
	}
	metrics.IncOrderCreated(source)
	s.Log.Info().Uint64("order_id", o.ID).Uint64("user_id", userID).Str("source", source).Int64("amount", o.Amount).Msg("order created")
	return o, nil
}

// CreateCheckout prices the cart, checks the client's total and opens a
// provider checkout carrying the caller and the priced items as metadata.
func (s *OrderService) CreateCheckout(ctx context.Context, userID uint64, in CheckoutInput) (CheckoutResult, error) {
	lines, total, err := s.priceCart(ctx, in.Items, true)
	if err != nil {
		return CheckoutResult{}, err
	}
	if in.Total != 0 && in.Total != total {
		return CheckoutResult{}, fmt.Errorf("declared %d, cart %d: %w", in.Total, total, ErrTotalMismatch)
	}
	if total <= 0 {
		return CheckoutResult{}, &ValidationError{Fields: map[string]string{"total": "gt=0"}}
	}

	itemsJSON, err := json.Marshal(lines)
	if err != nil {
		return CheckoutResult{}, err
	}
	sess, err := s.Provider.CreateCheckout(ctx, payment.CheckoutRequest{
		Amount:    total,
		Currency:  s.Currency,
		Token:     in.Token,
		ReturnURL: s.ReturnURL,
		Metadata: map[string]string{
			metaUserID: strconv.FormatUint(userID, 10),
			metaItems:  string(itemsJSON),
		},
	})
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("create checkout: %w", err)
	}
	s.Log.Info().Str("session_id", sess.ID).Uint64("user_id", userID).Int64("amount", total).Msg("checkout opened")
	return CheckoutResult{SessionID: sess.ID, URL: sess.URL, Amount: total, Currency: s.Currency}, nil
}

// VerifyCheckout turns a paid provider checkout into a paid order.  The
// payment reference is unique, so repeated or concurrent calls for the
// same session all return the one order; replayed reports whether it
// existed before this call.
func (s *OrderService) VerifyCheckout(ctx context.Context, userID uint64, sessionID string) (o model.Order, replayed bool, err error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return model.Order{}, false, &ValidationError{Fields: map[string]string{"session_id": "required"}}
	}

	if existing, err := s.Orders.GetByPaymentRef(ctx, sessionID); err == nil {
		return s.replay(existing, userID)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.Order{}, false, err
	}

	sess, err := s.Provider.RetrieveCheckout(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			return model.Order{}, false, fmt.Errorf("checkout %s: %w", sessionID, repository.ErrNotFound)
		}
		return model.Order{}, false, fmt.Errorf("retrieve checkout: %w", err)
	}
	if !sess.Paid {
		metrics.IncCheckoutVerification("unpaid")
		return model.Order{}, false, ErrNotPaid
	}
	if sess.Metadata[metaUserID] != strconv.FormatUint(userID, 10) {
		return model.Order{}, false, repository.ErrForbidden
	}

	var items []model.OrderItem
	if raw := sess.Metadata[metaItems]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			s.Log.Warn().Err(err).Str("session_id", sessionID).Msg("checkout items metadata unreadable")
			items = nil
		}
	}
	currency := strings.ToLower(sess.Currency)
	if currency == "" {
		currency = s.Currency
	}
	o = model.Order{
		UserID:          userID,
		Items:           items,
		Amount:          sess.Amount,
		Currency:        currency,
		Status:          model.OrderPaid,
		PaymentProvider: s.Provider.Name(),
		PaymentRef:      sessionID,
	}
	if err := s.Orders.Create(ctx, &o); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			winner, gerr := s.Orders.GetByPaymentRef(ctx, sessionID)
			if gerr != nil {
				return model.Order{}, false, gerr
			}
			return s.replay(winner, userID)
		}
		return model.Order{}, false, fmt.Errorf("create paid order: %w", err)
	}

	metrics.IncOrderCreated("checkout")
	metrics.IncCheckoutVerification("new")
	s.Log.Info().Uint64("order_id", o.ID).Str("payment_ref", sessionID).Int64("amount", o.Amount).Msg("checkout reconciled")
	s.publishPaid(ctx, o)
	return o, false, nil
}

func (s *OrderService) replay(o model.Order, userID uint64) (model.Order, bool, error) {
	if o.UserID != userID {
		return model.Order{}, false, repository.ErrForbidden
	}
	metrics.IncCheckoutVerification("replayed")
	return o, true, nil
}

func (s *OrderService) publishPaid(ctx context.Context, o model.Order) {
	if s.Publisher == nil {
		return
	}
	ev := queue.OrderPaidEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Amount:     o.Amount,
		Currency:   o.Currency,
		PaymentRef: o.PaymentRef,
		PaidAt:     o.CreatedAt.Format(time.RFC3339),
	}
	if u, err := s.Users.GetByID(ctx, o.UserID); err == nil {
		ev.UserName, ev.UserEmail = u.Name, u.Email
	}
	if err := s.Publisher.PublishOrderPaid(ctx, ev); err != nil {
		s.Log.Warn().Err(err).Uint64("order_id", o.ID).Msg("publish order.paid failed")
	}
}

// UpdateStatus is the administrator's order status change.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint64, status string) (model.Order, error) {
	if !model.ValidOrderStatus(status) {
		allowed := []string{model.OrderPending, model.OrderPaid, model.OrderShipped,
			model.OrderDelivered, model.OrderCancelled, model.OrderRefunded}
		sort.Strings(allowed)
		return model.Order{}, &ValidationError{Fields: map[string]string{"status": "oneof=" + strings.Join(allowed, " ")}}
	}
	if err := s.Orders.UpdateStatus(ctx, orderID, status); err != nil {
		return model.Order{}, err
	}
	return s.Orders.GetByID(ctx, orderID)
}
