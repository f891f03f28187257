// Package extension provides the Forge extension adapter for Cashier.
//
// It implements the forge.Extension interface to integrate the billing
// engine into a Forge application with DI registration and lifecycle
// management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.cashier" or "cashier" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/cashier"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/store"
	"github.com/xraph/cashier/store/memory"
	"github.com/xraph/cashier/store/mongo"
	"github.com/xraph/cashier/store/postgres"
	"github.com/xraph/cashier/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "cashier"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Subscription and billing engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Cashier as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config      Config
	engine      *cashier.Cashier
	store       store.Store
	groveDB     *grove.DB
	cashierOpts []cashier.Option
}

// New creates a new Cashier Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Cashier instance.
// This is nil until Register is called.
func (e *Extension) Engine() *cashier.Cashier { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// builds the store and engine, and registers the engine in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil {
		s, err := openStore(e.config.Driver, e.groveDB)
		if err != nil {
			return err
		}
		e.store = s
	}

	e.engine = cashier.New(e.store, e.buildCashierOpts()...)

	return vessel.Provide(fapp.Container(), func() (*cashier.Cashier, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("cashier: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	if e.config.SeedCatalog {
		if err := seed(ctx, e.engine); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("cashier: store not initialized")
	}
	return e.store.Ping(ctx)
}

// openStore builds the backend named by driver.
func openStore(driver string, db *grove.DB) (store.Store, error) {
	if driver == "" || driver == DriverMemory {
		return memory.New(), nil
	}
	if db == nil {
		return nil, fmt.Errorf("cashier: driver %q needs a grove database (use WithGroveDB)", driver)
	}
	switch driver {
	case DriverPostgres:
		return postgres.New(db), nil
	case DriverSQLite:
		return sqlite.New(db), nil
	case DriverMongo:
		return mongo.New(db), nil
	default:
		return nil, fmt.Errorf("cashier: unknown store driver %q", driver)
	}
}

func seed(ctx context.Context, engine *cashier.Cashier) error {
	plans, err := engine.SeedCatalog(ctx, plan.DefaultCatalog())
	if err != nil {
		return fmt.Errorf("cashier: seed catalog: %w", err)
	}
	methods, err := engine.SeedPaymentMethods(ctx)
	if err != nil {
		return fmt.Errorf("cashier: seed payment methods: %w", err)
	}
	engine.Logger().Info("cashier: catalog seeded", "plans", plans, "payment_methods", methods)
	return nil
}

// buildCashierOpts constructs cashier.Option values from the resolved config.
func (e *Extension) buildCashierOpts() []cashier.Option {
	opts := make([]cashier.Option, 0, len(e.cashierOpts)+4)

	if e.config.AccessCacheTTL > 0 {
		opts = append(opts, cashier.WithAccessCacheTTL(e.config.AccessCacheTTL))
	}
	if e.config.DefaultPlan != "" {
		opts = append(opts, cashier.WithDefaultPlanSlug(e.config.DefaultPlan))
	}
	if e.config.Currency != "" {
		opts = append(opts, cashier.WithCurrency(e.config.Currency))
	}
	if e.config.ReminderDays > 0 {
		opts = append(opts, cashier.WithReminderDays(e.config.ReminderDays))
	}

	// Pass-through options apply last so they win over config.
	opts = append(opts, e.cashierOpts...)

	return opts
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("cashier: configuration is required but not found in config files; " +
				"ensure 'extensions.cashier' or 'cashier' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("cashier: configuration loaded",
		forge.F("driver", e.config.Driver),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("access_cache_ttl", e.config.AccessCacheTTL),
		forge.F("default_plan", e.config.DefaultPlan),
		forge.F("currency", e.config.Currency),
		forge.F("seed_catalog", e.config.SeedCatalog),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.cashier", "cashier"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("cashier: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("cashier: loaded config from file", forge.F("key", key))
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Driver == "" {
		cfg.Driver = defaults.Driver
	}
	if cfg.AccessCacheTTL == 0 {
		cfg.AccessCacheTTL = defaults.AccessCacheTTL
	}
	if cfg.DefaultPlan == "" {
		cfg.DefaultPlan = defaults.DefaultPlan
	}
	if cfg.Currency == "" {
		cfg.Currency = defaults.Currency
	}
	if cfg.ReminderDays == 0 {
		cfg.ReminderDays = defaults.ReminderDays
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML takes precedence; programmatic values fill gaps and true flags stick.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.SeedCatalog {
		yamlConfig.SeedCatalog = true
	}

	if yamlConfig.Driver == "" {
		yamlConfig.Driver = programmaticConfig.Driver
	}
	if yamlConfig.DefaultPlan == "" {
		yamlConfig.DefaultPlan = programmaticConfig.DefaultPlan
	}
	if yamlConfig.Currency == "" {
		yamlConfig.Currency = programmaticConfig.Currency
	}
	if yamlConfig.AccessCacheTTL == 0 {
		yamlConfig.AccessCacheTTL = programmaticConfig.AccessCacheTTL
	}
	if yamlConfig.ReminderDays == 0 {
		yamlConfig.ReminderDays = programmaticConfig.ReminderDays
	}

	return mergeWithDefaults(yamlConfig)
}
