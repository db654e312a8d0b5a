package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to Postgres and waits for it to accept connections; the
// database may still be starting when the service boots.
func Open(ctx context.Context, pgURL string, attempts int, wait time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", pgURL)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			return db, nil
		}
		slog.WarnContext(ctx, "waiting for db", "attempt", i+1, "error", err)
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	_ = db.Close()
	return nil, fmt.Errorf("could not connect to db: %w", err)
}
