package extension

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/cashier"
	"github.com/xraph/cashier/store/memory"
)

func TestMergeWithDefaults(t *testing.T) {
	cfg := mergeWithDefaults(Config{Currency: "usd"})

	assert.Equal(t, DriverMemory, cfg.Driver)
	assert.Equal(t, cashier.DefaultAccessCacheTTL, cfg.AccessCacheTTL)
	assert.Equal(t, cashier.DefaultPlanSlug, cfg.DefaultPlan)
	assert.Equal(t, "usd", cfg.Currency)
	assert.Equal(t, cashier.DefaultReminderDays, cfg.ReminderDays)
}

func TestMergeConfigurations(t *testing.T) {
	file := Config{Driver: DriverPostgres, ReminderDays: 5}
	prog := Config{
		Driver:         DriverSQLite,
		DefaultPlan:    "basic",
		AccessCacheTTL: time.Minute,
		SeedCatalog:    true,
	}

	cfg := mergeConfigurations(file, prog)

	assert.Equal(t, DriverPostgres, cfg.Driver)
	assert.Equal(t, 5, cfg.ReminderDays)
	assert.Equal(t, "basic", cfg.DefaultPlan)
	assert.Equal(t, time.Minute, cfg.AccessCacheTTL)
	assert.True(t, cfg.SeedCatalog)
	assert.False(t, cfg.DisableMigrate)
}

func TestOpenStore(t *testing.T) {
	s, err := openStore("", nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s)

	_, err = openStore(DriverPostgres, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grove database")
}

func TestBuildCashierOpts(t *testing.T) {
	e := New(WithDefaultPlan("basic"), WithAccessCacheTTL(time.Minute))
	e.config = mergeWithDefaults(e.config)

	opts := e.buildCashierOpts()
	assert.Len(t, opts, 4)

	c := cashier.New(memory.New(), opts...)
	assert.Equal(t, cashier.DefaultCurrency, c.Currency())
}
