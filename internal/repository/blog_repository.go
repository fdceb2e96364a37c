package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/studio-booking/internal/model"
)

const blogColumns = `id, title, slug, content, author, image, published, created_at, updated_at`

// BlogRepo persists blog posts.  Slugs are unique; a clash yields
// ErrDuplicate.
type BlogRepo struct{ db *sql.DB }

func NewBlogRepo(db *sql.DB) *BlogRepo { return &BlogRepo{db: db} }

func scanBlog(row interface{ Scan(...any) error }) (model.Blog, error) {
	var (
		b       model.Blog
		content sql.NullString
	)
	err := row.Scan(&b.ID, &b.Title, &b.Slug, &content, &b.Author, &b.Image, &b.Published, &b.CreatedAt, &b.UpdatedAt)
	b.Content = content.String
	return b, err
}

// Create inserts a blog post.
func (r *BlogRepo) Create(ctx context.Context, b *model.Blog) error {
	ts := now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO blogs (title, slug, content, author, image, published, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		b.Title, b.Slug, b.Content, b.Author, b.Image, b.Published, ts, ts)
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
	b.ID = uint64(id)
	b.CreatedAt, b.UpdatedAt = ts, ts
	return nil
}

// GetByID loads one post.
func (r *BlogRepo) GetByID(ctx context.Context, id uint64) (model.Blog, error) {
	b, err := scanBlog(r.db.QueryRowContext(ctx, "SELECT "+blogColumns+" FROM blogs WHERE id=?", id))
	return b, notFound(err)
}

// GetBySlug loads one post by slug.
func (r *BlogRepo) GetBySlug(ctx context.Context, slug string) (model.Blog, error) {
	b, err := scanBlog(r.db.QueryRowContext(ctx, "SELECT "+blogColumns+" FROM blogs WHERE slug=?", slug))
	return b, notFound(err)
}

// List returns posts, newest first.  publishedOnly hides drafts.
func (r *BlogRepo) List(ctx context.Context, publishedOnly bool) ([]model.Blog, error) {
	q := "SELECT " + blogColumns + " FROM blogs"
	if publishedOnly {
		q += " WHERE published=1"
	}
	q += " ORDER BY id DESC"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Blog{}
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Update replaces the fields of a post.
func (r *BlogRepo) Update(ctx context.Context, b *model.Blog) error {
	ts := now()
	res, err := r.db.ExecContext(ctx,
		"UPDATE blogs SET title=?, slug=?, content=?, author=?, image=?, published=?, updated_at=? WHERE id=?",
		b.Title, b.Slug, b.Content, b.Author, b.Image, b.Published, ts, b.ID)
	if err != nil && isDuplicate(err) {
		return ErrDuplicate
	}
	if err := affectedOne(res, err); err != nil {
		return err
	}
	b.UpdatedAt = ts
	return nil
}

// Delete removes a post.
func (r *BlogRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM blogs WHERE id=?", id)
	return affectedOne(res, err)
}
