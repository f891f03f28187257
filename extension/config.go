package extension

import (
	"time"

	"github.com/xraph/cashier"
)

// Store drivers understood by Config.Driver.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// Config holds the Cashier extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.cashier" or "cashier" keys).
type Config struct {
	// DisableMigrate skips store migration and plugin init on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Driver selects the store backend (default: "memory"). The SQL and
	// mongo drivers need a grove.DB supplied with WithGroveDB.
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// AccessCacheTTL is how long computed access snapshots are cached
	// (default: 5m).
	AccessCacheTTL time.Duration `json:"access_cache_ttl" mapstructure:"access_cache_ttl" yaml:"access_cache_ttl"`

	// DefaultPlan is the plan slug granted to users without a subscription
	// (default: "free").
	DefaultPlan string `json:"default_plan" mapstructure:"default_plan" yaml:"default_plan"`

	// Currency is the ISO code used for prices that omit one (default: "sar").
	Currency string `json:"currency" mapstructure:"currency" yaml:"currency"`

	// ReminderDays is how many days before expiry reminders go out (default: 3).
	ReminderDays int `json:"reminder_days" mapstructure:"reminder_days" yaml:"reminder_days"`

	// SeedCatalog inserts the built-in plans and payment methods on start.
	SeedCatalog bool `json:"seed_catalog" mapstructure:"seed_catalog" yaml:"seed_catalog"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Driver:         DriverMemory,
		AccessCacheTTL: cashier.DefaultAccessCacheTTL,
		DefaultPlan:    cashier.DefaultPlanSlug,
		Currency:       cashier.DefaultCurrency,
		ReminderDays:   cashier.DefaultReminderDays,
	}
}
