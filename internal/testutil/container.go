//go:build integration

package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// PGContainer starts a throwaway PostgreSQL container, migrates it and
// returns a connection plus a cleanup that also terminates the container.
// Requires a Docker daemon.
func PGContainer(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("sellerrisk"),
		postgres.WithUsername("sellerrisk"),
		postgres.WithPassword("sellerrisk"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("pgcontainer: start: %v", err)
	}
	terminate := func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("pgcontainer: terminate: %v", err)
		}
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminate()
		t.Fatalf("pgcontainer: connection string: %v", err)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		terminate()
		t.Fatalf("pgcontainer: open database: %v", err)
	}

	_, cleanup := prepare(ctx, t, db)
	return db, func() {
		cleanup()
		terminate()
	}
}
