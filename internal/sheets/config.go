// Package sheets provides the Google Sheets ledger: expense rows are
// appended to per-month tabs and reference lists are read from the
// Definitions tab.
package sheets

import (
	"fmt"
	"os"
	"time"

	"github.com/jqlim/expense-bot/internal/common"
)

// Config holds the configuration for the Google Sheets ledger client.
type Config struct {
	ServiceAccountPath string
	SpreadsheetID      string
	DefinitionsTab     string
	CacheTTL           time.Duration
	RetryAttempts      int
	RetryDelay         time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DefinitionsTab: "Definitions",
		CacheTTL:       5 * time.Minute,
		RetryAttempts:  3,
		RetryDelay:     time.Second,
	}
}

// LoadFromEnv loads the configuration from environment variables.
func (c *Config) LoadFromEnv() error {
	c.ServiceAccountPath = os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH")
	c.SpreadsheetID = os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID")
	if tab := os.Getenv("GOOGLE_SHEETS_DEFINITIONS_TAB"); tab != "" {
		c.DefinitionsTab = tab
	}
	return c.Validate()
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.ServiceAccountPath == "" {
		return fmt.Errorf("%w: Google Sheets service account path", common.ErrMissingConfig)
	}
	if c.SpreadsheetID == "" {
		return fmt.Errorf("%w: Google Sheets spreadsheet ID", common.ErrMissingConfig)
	}
	if c.DefinitionsTab == "" {
		return fmt.Errorf("%w: definitions tab name cannot be empty", common.ErrInvalidConfig)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("%w: cache TTL cannot be negative", common.ErrInvalidConfig)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("%w: retry attempts cannot be negative", common.ErrInvalidConfig)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay cannot be negative", common.ErrInvalidConfig)
	}
	return nil
}
