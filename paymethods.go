package cashier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/paymethod"
	"github.com/xraph/cashier/types"
)

// ──────────────────────────────────────────────────
// Payment Methods
// ──────────────────────────────────────────────────

// UpsertPaymentMethod creates or replaces the config for a method code.
func (c *Cashier) UpsertPaymentMethod(ctx context.Context, cfg *paymethod.Config) error {
	cfg.Code = strings.ToLower(strings.TrimSpace(cfg.Code))
	for _, m := range []*types.Money{&cfg.FixedFee, &cfg.MinAmount, &cfg.MaxAmount} {
		if m.Currency == "" {
			m.Currency = c.currency
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	now := c.Now()
	existing, err := c.store.GetPaymentMethod(ctx, cfg.Code)
	switch {
	case err == nil:
		cfg.ID = existing.ID
		cfg.CreatedAt = existing.CreatedAt
		cfg.TouchAt(now)
	case errors.Is(err, ErrPaymentMethodNotFound):
		if cfg.ID.IsNil() {
			cfg.ID = id.NewPaymentMethodID()
		}
		cfg.Entity = types.NewEntityAt(now)
	default:
		return err
	}

	return c.store.UpsertPaymentMethod(ctx, cfg)
}

// GetPaymentMethod retrieves a method config by code.
func (c *Cashier) GetPaymentMethod(ctx context.Context, code string) (*paymethod.Config, error) {
	return c.store.GetPaymentMethod(ctx, strings.ToLower(strings.TrimSpace(code)))
}

// ListPaymentMethods lists method configs in display order.
func (c *Cashier) ListPaymentMethods(ctx context.Context, enabledOnly bool) ([]*paymethod.Config, error) {
	return c.store.ListPaymentMethods(ctx, enabledOnly)
}

// DeletePaymentMethod removes a method config.
func (c *Cashier) DeletePaymentMethod(ctx context.Context, code string) error {
	return c.store.DeletePaymentMethod(ctx, strings.ToLower(strings.TrimSpace(code)))
}

// SeedPaymentMethods stores paymethod.Defaults for every code not yet
// configured and returns how many were created.
func (c *Cashier) SeedPaymentMethods(ctx context.Context) (int, error) {
	created := 0
	for _, cfg := range paymethod.Defaults() {
		_, err := c.store.GetPaymentMethod(ctx, cfg.Code)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrPaymentMethodNotFound) {
			return created, err
		}
		if err := c.UpsertPaymentMethod(ctx, cfg); err != nil {
			return created, fmt.Errorf("seed payment method %q: %w", cfg.Code, err)
		}
		created++
	}
	return created, nil
}
