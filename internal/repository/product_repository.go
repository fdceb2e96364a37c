package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/iliyamo/studio-booking/internal/model"
)

const productColumns = `id, name, description, price, images, created_at, updated_at`

// ProductRepo persists catalog products.  Image references are stored as
// a JSON array in the images column.
type ProductRepo struct{ db *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

func scanProduct(row interface{ Scan(...any) error }) (model.Product, error) {
	var (
		p      model.Product
		desc   sql.NullString
		images sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &desc, &p.Price, &images, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return model.Product{}, err
	}
	p.Description = desc.String
	p.Images = []string{}
	if images.Valid && images.String != "" {
		if err := json.Unmarshal([]byte(images.String), &p.Images); err != nil {
			return model.Product{}, err
		}
	}
	return p, nil
}

func encodeImages(images []string) (string, error) {
	if images == nil {
		images = []string{}
	}
	b, err := json.Marshal(images)
	return string(b), err
}

// Create inserts a product.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	images, err := encodeImages(p.Images)
	if err != nil {
		return err
	}
	ts := now()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO products (name, description, price, images, created_at, updated_at) VALUES (?,?,?,?,?,?)",
		p.Name, p.Description, p.Price, images, ts, ts)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	if p.Images == nil {
		p.Images = []string{}
	}
	p.CreatedAt, p.UpdatedAt = ts, ts
	return nil
}

// GetByID loads one product.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id=?", id))
	return p, notFound(err)
}

// GetByIDs loads several products at once, keyed by id.  Unknown ids are
// simply absent from the map.
func (r *ProductRepo) GetByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Product, error) {
	out := make(map[uint64]model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// List returns every product, newest first.
func (r *ProductRepo) List(ctx context.Context) ([]model.Product, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+productColumns+" FROM products ORDER BY id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update replaces the editable fields of a product.
func (r *ProductRepo) Update(ctx context.Context, p *model.Product) error {
	images, err := encodeImages(p.Images)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE products SET name=?, description=?, price=?, images=?, updated_at=? WHERE id=?",
		p.Name, p.Description, p.Price, images, now(), p.ID)
	if err := affectedOne(res, err); err != nil {
		return err
	}
	updated, err := r.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	*p = updated
	return nil
}

// Delete removes a product.  Past orders keep their item snapshots.
func (r *ProductRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id=?", id)
	return affectedOne(res, err)
}
