// Package dbtest starts a throwaway PostgreSQL container for store tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/quizethic/quizethic-ai/internal/platform/database"
)

const image = "postgres:16-alpine"

// NewPool starts PostgreSQL, applies the schema and returns a pool closed at
// test cleanup. The test is skipped in -short mode or when Docker is unavailable.
func NewPool(t testing.TB) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := run(ctx)
	if err != nil {
		if ctr != nil {
			_ = ctr.Terminate(context.Background())
		}
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	db, err := database.New(ctx, url, 4, 1)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(db.Close)

	if _, err := database.Migrate(ctx, db.Pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db.Pool
}

// run starts the container. testcontainers panics when no Docker host can be
// found, which is reported as an error here.
func run(ctx context.Context) (ctr *postgres.PostgresContainer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("start container: %v", r)
		}
	}()
	return postgres.Run(ctx, image,
		postgres.WithDatabase("quizethic"),
		postgres.WithUsername("quizethic"),
		postgres.WithPassword("quizethic"),
		postgres.BasicWaitStrategies(),
	)
}
