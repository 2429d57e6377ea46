package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfeidau/orgkeys/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL.
// Cross-entity rules (admin membership, key cascade, admin-only deletes) are enforced by
// foreign keys and single-statement predicates so concurrent callers can't interleave.
type Store struct {
	pool *pgxpool.Pool
	cfg  *StoreConfig
}

// NewStore creates a new PostgreSQL-backed record store on an existing pool.
// Migrations run first when cfg.AutoMigrate is set.
func NewStore(ctx context.Context, pool *pgxpool.Pool, cfg *StoreConfig) (*Store, error) {
	if cfg == nil {
		cfg = &StoreConfig{}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.AutoMigrate {
		if err := runMigrations(ctx, pool); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &Store{pool: pool, cfg: cfg}, nil
}

// Migrate applies all pending migrations to the database behind pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	return runMigrations(ctx, pool)
}

// withTimeout bounds a single query by the configured timeout.
func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.QueryTimeoutSeconds <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, time.Duration(s.cfg.QueryTimeoutSeconds)*time.Second)
}
