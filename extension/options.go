package extension

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/cashier"
	"github.com/xraph/cashier/plugin"
	"github.com/xraph/cashier/store"
)

// Option configures the Cashier Forge extension.
type Option func(*Extension)

// WithStore sets the store for the engine. It takes precedence over Driver.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGroveDB supplies the database used by the postgres, sqlite and
// mongo drivers.
func WithGroveDB(db *grove.DB) Option {
	return func(e *Extension) {
		e.groveDB = db
	}
}

// WithCashierOption passes a cashier.Option through to the engine.
func WithCashierOption(opt cashier.Option) Option {
	return func(e *Extension) {
		e.cashierOpts = append(e.cashierOpts, opt)
	}
}

// WithPlugin registers a cashier plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.cashierOpts = append(e.cashierOpts, cashier.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithDriver selects the store backend by name.
func WithDriver(driver string) Option {
	return func(e *Extension) { e.config.Driver = driver }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithAccessCacheTTL sets how long access snapshots are cached.
func WithAccessCacheTTL(d time.Duration) Option {
	return func(e *Extension) { e.config.AccessCacheTTL = d }
}

// WithDefaultPlan sets the plan slug for users without a subscription.
func WithDefaultPlan(slug string) Option {
	return func(e *Extension) { e.config.DefaultPlan = slug }
}

// WithSeedCatalog seeds the built-in catalog on start.
func WithSeedCatalog() Option {
	return func(e *Extension) { e.config.SeedCatalog = true }
}
