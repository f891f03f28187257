package cashier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/subscription"
	"github.com/xraph/cashier/types"
)

// ──────────────────────────────────────────────────
// Plan Management
// ──────────────────────────────────────────────────

// CreatePlan creates a new plan. Missing status defaults to active and a
// missing price currency to the engine currency.
func (c *Cashier) CreatePlan(ctx context.Context, p *plan.Plan) error {
	if p.ID.IsNil() {
		p.ID = id.NewPlanID()
	}
	c.normalizePlan(p)
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	p.Entity = types.NewEntityAt(c.Now())

	if err := c.store.CreatePlan(ctx, p); err != nil {
		return err
	}

	c.plugins.EmitPlanCreated(ctx, p)
	return nil
}

// UpdatePlan replaces a plan. Cached access snapshots pick up the change
// when they expire.
func (c *Cashier) UpdatePlan(ctx context.Context, p *plan.Plan) error {
	old, err := c.store.GetPlan(ctx, p.ID)
	if err != nil {
		return err
	}

	c.normalizePlan(p)
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	p.CreatedAt = old.CreatedAt
	p.TouchAt(c.Now())

	if err := c.store.UpdatePlan(ctx, p); err != nil {
		return err
	}

	c.plugins.EmitPlanUpdated(ctx, old, p)
	return nil
}

func (c *Cashier) normalizePlan(p *plan.Plan) {
	p.Slug = strings.ToLower(strings.TrimSpace(p.Slug))
	if p.Status == "" {
		p.Status = plan.StatusActive
	}
	if p.BillingPeriod == "" {
		p.BillingPeriod = plan.BillingMonthly
	}
	if p.Price.Currency == "" {
		p.Price.Currency = c.currency
	}
	if p.Features == nil {
		p.Features = map[string]bool{}
	}
	if p.Limits == nil {
		p.Limits = map[string]plan.Limit{}
	}
}

// GetPlan retrieves a plan by ID.
func (c *Cashier) GetPlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error) {
	return c.store.GetPlan(ctx, planID)
}

// GetPlanBySlug retrieves a plan by slug.
func (c *Cashier) GetPlanBySlug(ctx context.Context, slug string) (*plan.Plan, error) {
	return c.store.GetPlanBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
}

// ListPlans lists plans ordered by tier.
func (c *Cashier) ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	return c.store.ListPlans(ctx, opts)
}

// ArchivePlan hides a plan from checkout. Existing subscriptions keep it.
func (c *Cashier) ArchivePlan(ctx context.Context, planID id.PlanID) error {
	if err := c.store.ArchivePlan(ctx, planID); err != nil {
		return err
	}

	c.plugins.EmitPlanArchived(ctx, planID)
	return nil
}

// DeletePlan removes a plan that no active subscription uses.
func (c *Cashier) DeletePlan(ctx context.Context, planID id.PlanID) error {
	inUse, err := c.store.ListSubscriptions(ctx, subscription.ListOpts{
		PlanID: planID,
		Status: subscription.StatusActive,
		Limit:  1,
	})
	if err != nil {
		return err
	}
	if len(inUse) > 0 {
		return ErrPlanInUse
	}
	return c.store.DeletePlan(ctx, planID)
}

// SeedCatalog creates every plan whose slug is not stored yet and returns
// how many were created. A nil catalog seeds plan.DefaultCatalog.
func (c *Cashier) SeedCatalog(ctx context.Context, catalog []*plan.Plan) (int, error) {
	if catalog == nil {
		catalog = plan.DefaultCatalog()
	}

	created := 0
	for _, p := range catalog {
		_, err := c.store.GetPlanBySlug(ctx, p.Slug)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrPlanNotFound) {
			return created, err
		}
		if err := c.CreatePlan(ctx, p); err != nil {
			if errors.Is(err, ErrSlugTaken) {
				continue
			}
			return created, fmt.Errorf("seed plan %q: %w", p.Slug, err)
		}
		created++
	}

	if created > 0 {
		c.logger.Info("plan catalog seeded", "created", created)
	}
	return created, nil
}
