package credentials

import (
	"fmt"
	"maps"
	"strings"

	"github.com/wolfeidau/orgkeys/internal/apikey"
)

// KeyKind identifies which collection a key belongs to.
type KeyKind string

const (
	KindOrganization KeyKind = "organization"
	KindAdmin        KeyKind = "admin"
)

// Config holds configuration for the credential manager.
type Config struct {
	// KeyKinds maps each key kind to the prefix its raw keys carry.
	// Default: organization => sk, admin => ak
	KeyKinds map[KeyKind]apikey.Prefix
}

// DefaultConfig returns a Config with the standard key prefixes.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults applies default values to unset configuration fields.
// KeyKinds is copied first, the caller's map is never written to or retained.
func (c *Config) ApplyDefaults() {
	c.KeyKinds = maps.Clone(c.KeyKinds)
	if c.KeyKinds == nil {
		c.KeyKinds = make(map[KeyKind]apikey.Prefix, 2)
	}
	if c.KeyKinds[KindOrganization] == "" {
		c.KeyKinds[KindOrganization] = apikey.PrefixSecret
	}
	if c.KeyKinds[KindAdmin] == "" {
		c.KeyKinds[KindAdmin] = apikey.PrefixAdmin
	}
}

// Validate checks that the configuration is valid.
// Prefixes must be distinct so a raw key identifies its kind.
func (c *Config) Validate() error {
	seen := make(map[apikey.Prefix]KeyKind, len(c.KeyKinds))
	for _, kind := range []KeyKind{KindOrganization, KindAdmin} {
		prefix, ok := c.KeyKinds[kind]
		if !ok || prefix == "" {
			return fmt.Errorf("prefix for %s keys is required", kind)
		}
		if strings.Contains(string(prefix), "_") {
			return fmt.Errorf("prefix %q for %s keys must not contain '_'", prefix, kind)
		}
		if other, dup := seen[prefix]; dup {
			return fmt.Errorf("prefix %q is shared by %s and %s keys", prefix, other, kind)
		}
		seen[prefix] = kind
	}
	return nil
}

func (c *Config) prefix(kind KeyKind) apikey.Prefix {
	return c.KeyKinds[kind]
}
