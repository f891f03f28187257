package cashier

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/xraph/cashier/entitlement"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/subscription"
	"github.com/xraph/cashier/usage"
)

// ──────────────────────────────────────────────────
// Status and Access
// ──────────────────────────────────────────────────

type userState struct {
	facts  subscription.Facts
	active *subscription.Subscription
}

// state gathers the row-presence facts for a user and the subscription that
// currently grants access. A paid subscription wins over a trial.
func (c *Cashier) state(ctx context.Context, userID string) (*userState, error) {
	subs, err := c.store.ListSubscriptions(ctx, subscription.ListOpts{UserID: userID})
	if err != nil {
		return nil, err
	}

	now := c.Now()
	st := &userState{}
	for _, sub := range subs {
		active := sub.ActiveAt(now)
		if !sub.IsTrial {
			st.facts.HadSubscription = true
			if active {
				st.facts.HasActiveSubscription = true
			}
		}
		if active && (st.active == nil || (st.active.IsTrial && !sub.IsTrial)) {
			st.active = sub
		}
	}

	t, err := c.store.GetTrialByUser(ctx, userID)
	switch {
	case err == nil:
		st.facts.TrialUsed = true
		st.facts.HasActiveTrial = t.ActiveAt(now)
	case !errors.Is(err, ErrTrialNotFound):
		return nil, err
	}
	return st, nil
}

// Status classifies the user from scratch.
func (c *Cashier) Status(ctx context.Context, userID string) (subscription.UserStatus, error) {
	st, err := c.state(ctx, userID)
	if err != nil {
		return "", err
	}
	return subscription.Classify(st.facts), nil
}

// Access returns what the user may use right now. Users without an active
// subscription or trial get the default plan. Snapshots are cached.
func (c *Cashier) Access(ctx context.Context, userID string) (*entitlement.Snapshot, error) {
	cached, err := c.cache.Get(ctx, userID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, entitlement.ErrCacheMiss) {
		c.logger.Warn("access cache read failed", "user_id", userID, "error", err)
	}

	st, err := c.state(ctx, userID)
	if err != nil {
		return nil, err
	}

	snap := &entitlement.Snapshot{
		UserID:     userID,
		Status:     subscription.Classify(st.facts),
		Features:   map[string]bool{},
		Limits:     map[string]plan.Limit{},
		ComputedAt: c.Now(),
	}

	var p *plan.Plan
	if st.active != nil {
		p, err = c.store.GetPlan(ctx, st.active.PlanID)
		if err != nil {
			return nil, err
		}
		expires := st.active.ExpiresAt
		snap.ExpiresAt = &expires
		snap.IsTrial = st.active.IsTrial
	} else {
		p, err = c.store.GetPlanBySlug(ctx, c.defaultPlan)
		if err != nil && !errors.Is(err, ErrPlanNotFound) {
			return nil, err
		}
	}

	if p != nil {
		snap.PlanID = p.ID.String()
		snap.PlanSlug = p.Slug
		snap.PlanName = p.Name
		maps.Copy(snap.Features, p.Features)
		maps.Copy(snap.Limits, p.Limits)
	}

	if err := c.cache.Set(ctx, snap, c.accessCacheTTL); err != nil {
		c.logger.Warn("access cache write failed", "user_id", userID, "error", err)
	}
	return snap, nil
}

// InvalidateAccess drops the user's cached snapshot.
func (c *Cashier) InvalidateAccess(ctx context.Context, userID string) {
	c.invalidate(ctx, userID)
}

// HasFeature checks a boolean feature flag.
func (c *Cashier) HasFeature(ctx context.Context, userID, key string) (*entitlement.Result, error) {
	snap, err := c.Access(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := snap.Feature(key)
	c.plugins.EmitEntitlementChecked(ctx, userID, result)
	return result, nil
}

// CheckLimit reports current usage of a limit without consuming it.
func (c *Cashier) CheckLimit(ctx context.Context, userID, key string) (*entitlement.Result, error) {
	snap, err := c.Access(ctx, userID)
	if err != nil {
		return nil, err
	}
	l, ok := snap.Limits[key]
	if !ok {
		return &entitlement.Result{Feature: key, Reason: entitlement.ReasonLimitUnknown}, ErrUnknownLimit
	}

	now := c.Now()
	used, err := c.store.GetUsage(ctx, userID, key, usage.Window(l.Period, now))
	if err != nil {
		return nil, err
	}

	result := entitlement.LimitResult(key, l, used)
	result.ResetsAt = usage.ResetsAt(l.Period, now)
	c.plugins.EmitEntitlementChecked(ctx, userID, result)
	return result, nil
}

// ConsumeLimit atomically uses n units of a limit. When the limit would be
// exceeded nothing is consumed and ErrQuotaExceeded is returned with the
// current usage.
func (c *Cashier) ConsumeLimit(ctx context.Context, userID, key string, n int64) (*entitlement.Result, error) {
	if n <= 0 || n > usage.MaxIncrement {
		return nil, ValidationError{Field: "n", Message: fmt.Sprintf("must be between 1 and %d", usage.MaxIncrement)}
	}

	snap, err := c.Access(ctx, userID)
	if err != nil {
		return nil, err
	}
	l, ok := snap.Limits[key]
	if !ok {
		return &entitlement.Result{Feature: key, Reason: entitlement.ReasonLimitUnknown}, ErrUnknownLimit
	}

	now := c.Now()
	count, err := c.store.IncrementUsage(ctx, userID, key, usage.Window(l.Period, now), n, l.Max)
	if errors.Is(err, ErrQuotaExceeded) {
		result := entitlement.LimitResult(key, l, count)
		result.Allowed = false
		result.Reason = entitlement.ReasonQuotaExceeded
		result.ResetsAt = usage.ResetsAt(l.Period, now)

		c.plugins.EmitLimitExceeded(ctx, userID, key, count, l.Max)
		return result, ErrQuotaExceeded
	}
	if err != nil {
		return nil, err
	}

	result := entitlement.LimitResult(key, l, count)
	result.Allowed = true
	result.Reason = ""
	result.ResetsAt = usage.ResetsAt(l.Period, now)
	return result, nil
}
