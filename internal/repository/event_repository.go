package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/studio-booking/internal/model"
)

const eventColumns = `id, title, description, location, date, image, created_at, updated_at`

// EventRepo persists studio events.
type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func scanEvent(row interface{ Scan(...any) error }) (model.Event, error) {
	var (
		e    model.Event
		desc sql.NullString
	)
	err := row.Scan(&e.ID, &e.Title, &desc, &e.Location, &e.Date, &e.Image, &e.CreatedAt, &e.UpdatedAt)
	e.Description = desc.String
	return e, err
}

// Create inserts an event.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	ts := now()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO events (title, description, location, date, image, created_at, updated_at) VALUES (?,?,?,?,?,?,?)",
		e.Title, e.Description, e.Location, e.Date, e.Image, ts, ts)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	e.CreatedAt, e.UpdatedAt = ts, ts
	return nil
}

// GetByID loads one event.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id=?", id))
	return e, notFound(err)
}

// List returns events ordered by date.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+eventColumns+" FROM events ORDER BY date, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update replaces the fields of an event.
func (r *EventRepo) Update(ctx context.Context, e *model.Event) error {
	ts := now()
	res, err := r.db.ExecContext(ctx,
		"UPDATE events SET title=?, description=?, location=?, date=?, image=?, updated_at=? WHERE id=?",
		e.Title, e.Description, e.Location, e.Date, e.Image, ts, e.ID)
	if err := affectedOne(res, err); err != nil {
		return err
	}
	e.UpdatedAt = ts
	return nil
}

// Delete removes an event.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE id=?", id)
	return affectedOne(res, err)
}
