package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/orgkeys/cmd/server/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug    bool `help:"Enable debug mode." env:"ORGKEYS_DEBUG"`
		Version  kong.VersionFlag
		Serve    commands.ServeCmd    `cmd:"" help:"Start the API server"`
		AdminKey commands.AdminKeyCmd `cmd:"" help:"Manage admin API keys"`
		User     commands.UserCmd     `cmd:"" help:"Manage users"`
		Migrate  commands.MigrateCmd  `cmd:"" help:"Apply database migrations"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
