package database

import (
	"context"
	"database/sql"
	"sync"

	"github.com/iliyamo/studio-booking/internal/config"
)

// Gateway owns the process-wide *sql.DB.  The first call to Conn opens it;
// every later or concurrent call receives the same handle (or the same
// error).  main opens it eagerly and hands the handle to the repositories.
type Gateway struct {
	open func(ctx context.Context) (*sql.DB, error)

	once sync.Once
	db   *sql.DB
	err  error
}

// NewGateway returns a Gateway that opens the database described by cfg.
func NewGateway(cfg config.Config) *Gateway {
	return &Gateway{open: func(ctx context.Context) (*sql.DB, error) { return Open(ctx, cfg) }}
}

// NewGatewayFunc returns a Gateway backed by a custom opener.
func NewGatewayFunc(open func(ctx context.Context) (*sql.DB, error)) *Gateway {
	return &Gateway{open: open}
}

// Conn returns the shared handle, opening it on first use.  A failed open
// is remembered; restart the process to retry.
func (g *Gateway) Conn(ctx context.Context) (*sql.DB, error) {
	g.once.Do(func() {
		g.db, g.err = g.open(ctx)
	})
	return g.db, g.err
}

// Close releases the handle if it was opened.
func (g *Gateway) Close() error {
	if g.db == nil {
		return nil
	}
	return g.db.Close()
}
