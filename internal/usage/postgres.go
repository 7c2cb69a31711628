package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresTierStore reads tiers from the user_tiers table.
type PostgresTierStore struct {
	pool *pgxpool.Pool
}

// NewPostgresTierStore creates a PostgreSQL-backed tier store.
func NewPostgresTierStore(pool *pgxpool.Pool) (*PostgresTierStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresTierStore{pool: pool}, nil
}

func (s *PostgresTierStore) GetTier(ctx context.Context, userID string) (Tier, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var tier string
	err := s.pool.QueryRow(ctx,
		`SELECT tier FROM user_tiers WHERE user_id = $1`,
		userID,
	).Scan(&tier)
	if errors.Is(err, pgx.ErrNoRows) {
		return TierFree, nil
	}
	if err != nil {
		return "", fmt.Errorf("query tier: %w", err)
	}
	return ParseTier(tier)
}

func (s *PostgresTierStore) SetTier(ctx context.Context, userID string, tier Tier) error {
	if _, err := ParseTier(string(tier)); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_tiers (user_id, tier, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET tier = EXCLUDED.tier, updated_at = NOW()`,
		userID, string(tier),
	)
	if err != nil {
		return fmt.Errorf("upsert tier: %w", err)
	}
	return nil
}

// PostgresCounter keeps daily counters in the usage_counters table.
type PostgresCounter struct {
	pool *pgxpool.Pool
}

// NewPostgresCounter creates a PostgreSQL-backed counter store.
func NewPostgresCounter(pool *pgxpool.Pool) (*PostgresCounter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresCounter{pool: pool}, nil
}

func (c *PostgresCounter) Count(ctx context.Context, userID string, day time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var n int
	err := c.pool.QueryRow(ctx,
		`SELECT count FROM usage_counters WHERE user_id = $1 AND day = $2::date`,
		userID, dayKey(day),
	).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query usage: %w", err)
	}
	return n, nil
}

func (c *PostgresCounter) Increment(ctx context.Context, userID string, day time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var n int
	err := c.pool.QueryRow(ctx,
		`INSERT INTO usage_counters (user_id, day, count, updated_at)
		 VALUES ($1, $2::date, 1, NOW())
		 ON CONFLICT (user_id, day) DO UPDATE
		 SET count = usage_counters.count + 1, updated_at = NOW()
		 RETURNING count`,
		userID, dayKey(day),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("increment usage: %w", err)
	}
	return n, nil
}
