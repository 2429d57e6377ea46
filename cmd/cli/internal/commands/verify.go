package commands

import (
	"context"
	"fmt"
)

type VerifyCmd struct {
	ServerFlags `embed:""`

	Key string `arg:"" help:"API key to verify" env:"ORGKEYS_API_KEY"`
}

func (v *VerifyCmd) Run(ctx context.Context, globals *Globals) error {
	result, err := v.client(globals).VerifyAPIKey(ctx, v.Key)
	if err != nil {
		return fmt.Errorf("failed to verify key: %w", err)
	}

	fmt.Printf("valid: %t\norganization_id: %s\nkey_id: %s\n", result.Valid, result.OrganizationID, result.KeyID)
	return nil
}
