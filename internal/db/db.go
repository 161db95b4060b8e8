package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

const pingTimeout = 5 * time.Second

// NewDB opens the postgres pool backing the audit log and the outbox,
// and applies pending goose migrations before anyone touches the tables.
func NewDB(ctx context.Context, dsn, migrationsDir string) (*sql.DB, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		pool.Close()
		return nil, fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.Up(pool, migrationsDir); err != nil {
		pool.Close()
		return nil, fmt.Errorf("goose up: %w", err)
	}

	return pool, nil
}
