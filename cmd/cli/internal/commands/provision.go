package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wolfeidau/orgkeys/internal/client"
	"github.com/wolfeidau/orgkeys/internal/provision"
	"gopkg.in/yaml.v3"
)

// BatchFile is the on disk format for provisioning many tenants at once.
type BatchFile struct {
	Tenants []provision.Request `yaml:"tenants" json:"tenants"`
}

type ProvisionCmd struct {
	ServerFlags `embed:""`

	AdminKey string `help:"Admin API key" required:"" env:"ORGKEYS_ADMIN_KEY"`

	Email            string `help:"Email of the organization admin"`
	OrganizationName string `help:"Name of the new organization" name:"org-name"`
	APIKeyName       string `help:"Name of the first API key" name:"key-name" default:"default"`
	CustomerID       string `help:"Billing customer id to attach"`

	File string `help:"YAML/JSON file listing tenants to provision" type:"existingfile"`
}

func (p *ProvisionCmd) Run(ctx context.Context, globals *Globals) error {
	requests, err := p.requests()
	if err != nil {
		return err
	}

	return provisionAll(ctx, p.client(globals), p.AdminKey, requests, os.Stdout)
}

func (p *ProvisionCmd) requests() ([]provision.Request, error) {
	if p.File == "" {
		if p.Email == "" || p.OrganizationName == "" {
			return nil, errors.New("--email and --org-name are required unless --file is given")
		}
		return []provision.Request{{
			Email:            p.Email,
			OrganizationName: p.OrganizationName,
			APIKeyName:       p.APIKeyName,
			CustomerID:       p.CustomerID,
		}}, nil
	}

	batch, err := loadBatchFile(p.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch file: %w", err)
	}
	if len(batch.Tenants) == 0 {
		return nil, fmt.Errorf("no tenants listed in %s", p.File)
	}

	return batch.Tenants, nil
}

func loadBatchFile(path string) (*BatchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var batch BatchFile

	if strings.HasSuffix(strings.ToLower(path), ".json") {
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	return &batch, nil
}

// provisionAll provisions each tenant in turn. A failure does not stop the
// batch, the failures are reported together at the end.
func provisionAll(ctx context.Context, c *client.Client, adminKey string, requests []provision.Request, w io.Writer) error {
	var failed, critical int

	for _, req := range requests {
		result, err := c.SetupOrganization(ctx, adminKey, req)
		if err != nil {
			failed++

			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.Critical() {
				critical++
				fmt.Fprintf(w, "CRITICAL %s: %v\n", req.Email, err)
				continue
			}

			fmt.Fprintf(w, "FAILED   %s: %v\n", req.Email, err)
			continue
		}

		fmt.Fprintf(w, "OK       %s org=%s user=%s key_id=%s\n",
			req.Email, result.OrganizationID, result.UserID, result.APIKey.ID)
		fmt.Fprintf(w, "         api_key: %s\n", result.APIKey.RawKey)
	}

	if critical > 0 {
		return fmt.Errorf("%d of %d tenants failed, %d left partial records that need manual cleanup", failed, len(requests), critical)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tenants failed", failed, len(requests))
	}

	return nil
}
