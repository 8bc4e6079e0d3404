// File: internal/services/consultation/config.go
package consultation

import (
	"fmt"
	"time"
)

type Config struct {
	// Persistence calls are the only operations allowed to suspend; every
	// store call runs under this timeout so a slow database never hangs a
	// connection handler.
	StoreTimeout time.Duration

	// Relay limits
	MaxMessageLength int
	DefaultPageSize  int
	MaxPageSize      int
}

func (c *Config) Validate() error {
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("store_timeout must be positive")
	}
	if c.MaxMessageLength <= 0 {
		return fmt.Errorf("max_message_length must be positive")
	}
	if c.DefaultPageSize <= 0 {
		return fmt.Errorf("default_page_size must be positive")
	}
	if c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("max_page_size must be at least default_page_size")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		StoreTimeout:     5 * time.Second,
		MaxMessageLength: 10000,
		DefaultPageSize:  50,
		MaxPageSize:      500,
	}
}
