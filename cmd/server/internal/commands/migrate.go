package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/orgkeys/internal/logger"
	postgresstore "github.com/wolfeidau/orgkeys/internal/store/postgres"
)

type MigrateCmd struct {
	Postgres PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

func (c *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	pool, err := c.Postgres.openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgresstore.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	log.Info().Msg("Migrations complete")
	return nil
}
