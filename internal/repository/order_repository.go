package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/studio-booking/internal/model"
)

const orderColumns = `id, user_id, amount, currency, status, payment_provider, payment_ref, created_at, updated_at`

// OrderRepo persists orders and their line items.
type OrderRepo struct{ db *sql.DB }

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

func scanOrder(row interface{ Scan(...any) error }) (model.Order, error) {
	var (
		o        model.Order
		provider sql.NullString
		ref      sql.NullString
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Amount, &o.Currency, &o.Status, &provider, &ref, &o.CreatedAt, &o.UpdatedAt)
	o.PaymentProvider = provider.String
	o.PaymentRef = ref.String
	o.Items = []model.OrderItem{}
	return o, err
}

// Create inserts an order and its items in one transaction.  A payment
// reference that is already recorded yields ErrDuplicate and nothing is
// written.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ts := now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (user_id, amount, currency, status, payment_provider, payment_ref, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		o.UserID, o.Amount, o.Currency, o.Status, nullString(o.PaymentProvider), nullString(o.PaymentRef), ts, ts)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := createItemsBulkTx(ctx, tx, uint64(id), o.Items); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	committed = true
	o.ID = uint64(id)
	o.CreatedAt, o.UpdatedAt = ts, ts
	if o.Items == nil {
		o.Items = []model.OrderItem{}
	}
	return nil
}

// createItemsBulkTx inserts all order_items rows in a single statement.
// Passing an empty slice has no effect.
func createItemsBulkTx(ctx context.Context, tx *sql.Tx, orderID uint64, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	query := `INSERT INTO order_items (order_id, product_id, name, price, quantity) VALUES `
	args := make([]any, 0, len(items)*5)
	for i, it := range items {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, orderID, it.ProductID, it.Name, it.Price, it.Quantity)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// GetByID loads one order with its items.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (model.Order, error) {
	return r.getOne(ctx, "WHERE id=?", id)
}

// GetByPaymentRef loads the order reconciled from a provider checkout.
func (r *OrderRepo) GetByPaymentRef(ctx context.Context, ref string) (model.Order, error) {
	if ref == "" {
		return model.Order{}, ErrNotFound
	}
	return r.getOne(ctx, "WHERE payment_ref=?", ref)
}

func (r *OrderRepo) getOne(ctx context.Context, where string, arg any) (model.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders "+where+" LIMIT 1", arg))
	if err != nil {
		return model.Order{}, notFound(err)
	}
	orders := []model.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return model.Order{}, err
	}
	return orders[0], nil
}

// ListByUser returns a user's orders, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Order, error) {
	return r.list(ctx, "WHERE user_id=?", userID)
}

// ListAll returns every order, newest first.
func (r *OrderRepo) ListAll(ctx context.Context) ([]model.Order, error) {
	return r.list(ctx, "")
}

func (r *OrderRepo) list(ctx context.Context, where string, args ...any) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+orderColumns+" FROM orders "+where+" ORDER BY id DESC", args...)
	if err != nil {
		return nil, err
	}
	out := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// close before the items query; SQLite runs on a single connection
	rows.Close()
	if err := r.attachItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachItems loads the items of all given orders with one query.
func (r *OrderRepo) attachItems(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	idx := make(map[uint64]int, len(orders))
	args := make([]any, len(orders))
	for i, o := range orders {
		idx[o.ID] = i
		args[i] = o.ID
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT order_id, product_id, name, price, quantity FROM order_items
		 WHERE order_id IN (`+placeholders(len(orders))+`) ORDER BY id`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			orderID uint64
			it      model.OrderItem
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Price, &it.Quantity); err != nil {
			return err
		}
		if i, ok := idx[orderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return rows.Err()
}

// UpdateStatus sets the status of an order.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE orders SET status=?, updated_at=? WHERE id=?", status, now(), id)
	return affectedOne(res, err)
}
