package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/orgkeys/cmd/cli/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Provision commands.ProvisionCmd `cmd:"" help:"Provision organizations"`
		Verify    commands.VerifyCmd    `cmd:"" help:"Verify an organization API key"`
		Debug     bool                  `help:"Enable debug mode."`
		Version   kong.VersionFlag
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
