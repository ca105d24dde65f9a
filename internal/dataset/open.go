package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/mbd888/sellerrisk/internal/config"
	"github.com/mbd888/sellerrisk/internal/retry"
)

// Postgres may still be starting when the service comes up.
const (
	connectAttempts = 5
	connectDelay    = 500 * time.Millisecond
)

// Backend is a store that can also bulk-replace its tables.
type Backend interface {
	Store
	Writer
}

// Open returns a PostgresStore when cfg.DatabaseURL is set and a CSVStore
// over cfg.DataDir otherwise. db is nil for the CSV backend; callers own
// closing it.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (b Backend, db *sql.DB, err error) {
	if cfg.DatabaseURL == "" {
		return NewCSVStore(cfg.DataDir), nil, nil
	}

	db, err = sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	err = retry.DoNotify(ctx, connectAttempts, connectDelay, func() error {
		return db.PingContext(ctx)
	}, func(attempt int, err error, wait time.Duration) {
		logger.Warn("database not reachable, retrying", "attempt", attempt, "wait", wait, "error", err)
	})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewPostgresStore(db), db, nil
}
