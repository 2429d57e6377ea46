package postgres

import "fmt"

// StoreConfig holds store-specific configuration for the PostgreSQL record store.
// Pool configuration is handled separately via PoolConfig.
type StoreConfig struct {
	// AutoMigrate applies pending migrations when the store is created.
	AutoMigrate bool

	// QueryTimeoutSeconds is the maximum time a query can run before timing out.
	// Default: 10 seconds
	// Set to 0 to use context timeouts only (no additional timeout)
	QueryTimeoutSeconds int32
}

// Validate checks that the configuration is valid.
func (c *StoreConfig) Validate() error {
	if c.QueryTimeoutSeconds < 0 {
		return fmt.Errorf("query timeout must not be negative")
	}
	return nil
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *StoreConfig) ApplyDefaults() {
	if c.QueryTimeoutSeconds == 0 {
		c.QueryTimeoutSeconds = 10 // 10 seconds
	}
}
