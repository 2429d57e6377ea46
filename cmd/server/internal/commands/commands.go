package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/orgkeys/internal/store"
	memorystore "github.com/wolfeidau/orgkeys/internal/store/memory"
	postgresstore "github.com/wolfeidau/orgkeys/internal/store/postgres"
)

type Globals struct {
	Debug   bool
	Version string
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}

// StoreFlags selects and configures the record store.
type StoreFlags struct {
	StoreType string             `help:"store type (memory or postgres)" default:"memory" env:"ORGKEYS_STORE_TYPE" enum:"memory,postgres"`
	Postgres  PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"5"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`
	PingMaxElapsed  int32 `help:"maximum seconds spent waiting for the database on startup" default:"30" env:"ORGKEYS_POSTGRES_PING_MAX_ELAPSED"`

	// Store Configuration
	QueryTimeout int32 `help:"per query timeout in seconds" default:"10" env:"ORGKEYS_POSTGRES_QUERY_TIMEOUT"`
	AutoMigrate  bool  `help:"run database migrations on startup" default:"false" env:"ORGKEYS_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

func (s *PostgresStoreFlags) poolConfig() *postgresstore.PoolConfig {
	return &postgresstore.PoolConfig{
		ConnString:         s.ConnString,
		MaxConns:           s.MaxConns,
		MinConns:           s.MinConns,
		MaxConnLifetime:    s.MaxConnLifetime,
		MaxConnIdleTime:    s.MaxConnIdleTime,
		PingMaxElapsedTime: s.PingMaxElapsed,
	}
}

func (s *PostgresStoreFlags) openPool(ctx context.Context) (*pgxpool.Pool, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate postgres flags: %w", err)
	}

	pool, err := postgresstore.NewPool(ctx, s.poolConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	return pool, nil
}

// openStore creates the configured store. The returned close function is never nil.
func (f *StoreFlags) openStore(ctx context.Context, log zerolog.Logger) (store.Store, func(), error) {
	switch f.StoreType {
	case "postgres":
		pool, err := f.Postgres.openPool(ctx)
		if err != nil {
			return nil, nil, err
		}

		pgStore, err := postgresstore.NewStore(ctx, pool, &postgresstore.StoreConfig{
			AutoMigrate:         f.Postgres.AutoMigrate,
			QueryTimeoutSeconds: f.Postgres.QueryTimeout,
		})
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to create postgres store: %w", err)
		}

		log.Info().Bool("auto_migrate", f.Postgres.AutoMigrate).Msg("Using PostgreSQL record store")
		return pgStore, pool.Close, nil

	default:
		log.Info().Msg("Using in-memory record store")
		return memorystore.NewStore(), func() {}, nil
	}
}
