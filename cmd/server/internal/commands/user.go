package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/wolfeidau/orgkeys/internal/credentials"
	"github.com/wolfeidau/orgkeys/internal/logger"
)

type UserCmd struct {
	Create UserCreateCmd `cmd:"" help:"Create a user"`
}

type UserCreateCmd struct {
	Email         string     `help:"email address of the user" required:""`
	Admin         bool       `help:"mark the user as a platform admin" default:"false"`
	PasswordStdin bool       `help:"read a password for the user from stdin" default:"false"`
	Store         StoreFlags `embed:""`
}

func (c *UserCreateCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	var passwordHash *string
	if c.PasswordStdin {
		password, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && password == "" {
			return fmt.Errorf("failed to read password: %w", err)
		}

		hash, err := credentials.HashPassword(strings.TrimRight(password, "\r\n"))
		if err != nil {
			return err
		}
		passwordHash = &hash
	}

	records, closeStore, err := c.Store.openStore(ctx, log)
	if err != nil {
		return err
	}
	defer closeStore()

	user, err := records.CreateUser(ctx, c.Email, passwordHash, c.Admin)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Str("user_id", user.UserID.String()).Bool("has_password", user.HasPassword()).Msg("User created")
	fmt.Fprintf(os.Stdout, "user_id: %s\n", user.UserID)

	return nil
}
