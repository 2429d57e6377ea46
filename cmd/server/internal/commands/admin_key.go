package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeys/internal/credentials"
	"github.com/wolfeidau/orgkeys/internal/logger"
)

type AdminKeyCmd struct {
	Create AdminKeyCreateCmd `cmd:"" help:"Issue an admin API key"`
	Delete AdminKeyDeleteCmd `cmd:"" help:"Revoke an admin API key"`
}

type AdminKeyCreateCmd struct {
	Name  string     `help:"name of the admin key" required:""`
	Store StoreFlags `embed:""`
}

func (c *AdminKeyCreateCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	records, closeStore, err := c.Store.openStore(ctx, log)
	if err != nil {
		return err
	}
	defer closeStore()

	manager, err := credentials.NewManager(records, credentials.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to create credential manager: %w", err)
	}

	key, err := manager.CreateAdminAPIKey(ctx, c.Name)
	if err != nil {
		return fmt.Errorf("failed to create admin key: %w", err)
	}

	log.Info().Str("key_id", key.KeyID.String()).Str("name", key.Name).Msg("Admin key issued")

	fmt.Fprintf(os.Stdout, "key_id:  %s\n", key.KeyID)
	fmt.Fprintf(os.Stdout, "raw_key: %s\n", key.RawKey)
	fmt.Fprintln(os.Stdout, "Store the raw key now, it cannot be recovered.")

	return nil
}

type AdminKeyDeleteCmd struct {
	KeyID string     `arg:"" help:"id of the admin key to revoke"`
	Store StoreFlags `embed:""`
}

func (c *AdminKeyDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	keyID, err := uuid.Parse(c.KeyID)
	if err != nil {
		return fmt.Errorf("invalid key id: %w", err)
	}

	records, closeStore, err := c.Store.openStore(ctx, log)
	if err != nil {
		return err
	}
	defer closeStore()

	manager, err := credentials.NewManager(records, credentials.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to create credential manager: %w", err)
	}

	if err := manager.DeleteAdminAPIKey(ctx, keyID); err != nil {
		return fmt.Errorf("failed to delete admin key: %w", err)
	}

	log.Info().Str("key_id", keyID.String()).Msg("Admin key revoked")
	return nil
}
