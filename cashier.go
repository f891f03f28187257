package cashier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/cashier/entitlement"
	"github.com/xraph/cashier/plugin"
	"github.com/xraph/cashier/store"
	"github.com/xraph/cashier/types"
)

// Defaults applied by New.
const (
	DefaultAccessCacheTTL = 5 * time.Minute
	DefaultPlanSlug       = "free"
	DefaultReminderDays   = 3
	DefaultCurrency       = types.DefaultCurrency
)

// Cashier is the subscription and billing engine.
type Cashier struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	cache   entitlement.Cache
	now     func() time.Time

	// Configuration
	accessCacheTTL time.Duration
	defaultPlan    string
	currency       string
	reminderDays   int
}

// New creates a new Cashier instance.
func New(s store.Store, opts ...Option) *Cashier {
	c := &Cashier{
		store:          s,
		plugins:        plugin.NewRegistry(),
		logger:         slog.Default(),
		cache:          entitlement.NewMemoryCache(),
		now:            time.Now,
		accessCacheTTL: DefaultAccessCacheTTL,
		defaultPlan:    DefaultPlanSlug,
		currency:       DefaultCurrency,
		reminderDays:   DefaultReminderDays,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Option configures a Cashier instance.
type Option func(*Cashier)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cashier) {
		c.logger = logger
		c.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(c *Cashier) {
		_ = c.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithEntitlementCache replaces the in-process access cache.
func WithEntitlementCache(cache entitlement.Cache) Option {
	return func(c *Cashier) {
		if cache == nil {
			cache = entitlement.NopCache{}
		}
		c.cache = cache
	}
}

// WithAccessCacheTTL sets how long an access snapshot stays cached.
func WithAccessCacheTTL(ttl time.Duration) Option {
	return func(c *Cashier) {
		c.accessCacheTTL = ttl
	}
}

// WithDefaultPlanSlug sets the plan granted to users without a subscription.
func WithDefaultPlanSlug(slug string) Option {
	return func(c *Cashier) {
		c.defaultPlan = slug
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cashier) {
		c.now = now
	}
}

// WithCurrency sets the currency for records created without one.
func WithCurrency(currency string) Option {
	return func(c *Cashier) {
		c.currency = currency
	}
}

// WithReminderDays sets how many days before expiry reminders go out when
// the email settings do not say otherwise.
func WithReminderDays(days int) Option {
	return func(c *Cashier) {
		c.reminderDays = days
	}
}

// Start migrates the store and initializes plugins.
func (c *Cashier) Start(ctx context.Context) error {
	if err := c.store.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}

	c.plugins.EmitInit(ctx, c)

	c.logger.Info("cashier started",
		"plugins", c.plugins.Count(),
		"access_cache_ttl", c.accessCacheTTL,
		"default_plan", c.defaultPlan,
		"currency", c.currency,
	)

	return nil
}

// Stop notifies plugins and closes the store.
func (c *Cashier) Stop() error {
	ctx := context.Background()
	c.plugins.EmitShutdown(ctx)

	return c.store.Close()
}

// Store returns the underlying store.
func (c *Cashier) Store() store.Store { return c.store }

// Plugins returns the plugin registry.
func (c *Cashier) Plugins() *plugin.Registry { return c.plugins }

// Logger returns the engine logger.
func (c *Cashier) Logger() *slog.Logger { return c.logger }

// Now is the engine clock in UTC.
func (c *Cashier) Now() time.Time { return c.now().UTC() }

// Currency is the default currency.
func (c *Cashier) Currency() string { return c.currency }

// SweepAccessCache drops expired snapshots from a process-local access
// cache and returns how many were removed. Caches that expire entries on
// their own report zero.
func (c *Cashier) SweepAccessCache() int {
	if s, ok := c.cache.(interface{ Sweep() int }); ok {
		return s.Sweep()
	}
	return 0
}

func (c *Cashier) invalidate(ctx context.Context, userID string) {
	if err := c.cache.Invalidate(ctx, userID); err != nil {
		c.logger.Warn("access cache invalidation failed",
			"user_id", userID,
			"error", err,
		)
	}
}
