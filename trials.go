package cashier

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/subscription"
	"github.com/xraph/cashier/trial"
	"github.com/xraph/cashier/types"
)

// Reasons reported by TrialEligibility.
const (
	TrialReasonUsed               = "trial already used"
	TrialReasonActiveSubscription = "active subscription"
)

// ──────────────────────────────────────────────────
// Trials
// ──────────────────────────────────────────────────

// GetTrial returns the user's trial, whatever its state.
func (c *Cashier) GetTrial(ctx context.Context, userID string) (*trial.Trial, error) {
	return c.store.GetTrialByUser(ctx, userID)
}

// TrialEligibility reports whether the user may start a trial.
func (c *Cashier) TrialEligibility(ctx context.Context, userID string) (*trial.Eligibility, error) {
	t, err := c.store.GetTrialByUser(ctx, userID)
	switch {
	case err == nil:
		return &trial.Eligibility{Reason: TrialReasonUsed, Trial: t}, nil
	case !errors.Is(err, ErrTrialNotFound):
		return nil, err
	}

	paid, err := c.hasActivePaidSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if paid {
		return &trial.Eligibility{Reason: TrialReasonActiveSubscription}, nil
	}
	return &trial.Eligibility{Eligible: true}, nil
}

// StartTrial starts the user's one trial of the plan with slug. Access is
// granted through a trial subscription that expires with the trial.
func (c *Cashier) StartTrial(ctx context.Context, userID, planSlug string) (*trial.Trial, error) {
	if userID == "" {
		return nil, ValidationError{Field: "user_id", Message: "required"}
	}
	p, err := c.GetPlanBySlug(ctx, planSlug)
	if err != nil {
		return nil, err
	}
	if p.Status != plan.StatusActive {
		return nil, ErrPlanArchived
	}
	if !p.TrialEnabled || p.TrialDays <= 0 {
		return nil, ErrTrialNotAvailable
	}

	switch _, err := c.store.GetTrialByUser(ctx, userID); {
	case err == nil:
		return nil, ErrTrialAlreadyUsed
	case !errors.Is(err, ErrTrialNotFound):
		return nil, err
	}
	paid, err := c.hasActivePaidSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if paid {
		return nil, ErrTrialNotEligible
	}

	now := c.Now()
	t := &trial.Trial{
		Entity:    types.NewEntityAt(now),
		ID:        id.NewTrialID(),
		UserID:    userID,
		PlanID:    p.ID,
		Status:    trial.StatusActive,
		StartsAt:  now,
		ExpiresAt: now.AddDate(0, 0, p.TrialDays),
	}
	sub := &subscription.Subscription{
		Entity:    types.NewEntityAt(now),
		ID:        id.NewSubscriptionID(),
		UserID:    userID,
		PlanID:    p.ID,
		Status:    subscription.StatusActive,
		StartsAt:  now,
		ExpiresAt: t.ExpiresAt,
		IsTrial:   true,
	}

	// The subscription goes first: a paid one activated since the
	// eligibility check above makes this fail instead of stacking.
	err = c.store.ActivateSubscription(ctx, sub, subscription.SupersedeLapsed)
	if errors.Is(err, ErrSubscriptionActive) {
		return nil, ErrTrialNotEligible
	}
	if err != nil {
		return nil, err
	}
	if err := c.store.CreateTrial(ctx, t); err != nil {
		if cerr := c.store.CancelSubscription(ctx, sub.ID, now); cerr != nil {
			c.logger.Error("trial subscription rollback failed",
				"subscription_id", sub.ID.String(),
				"error", cerr,
			)
		}
		return nil, err
	}

	c.invalidate(ctx, userID)

	c.logger.Info("trial started",
		"trial_id", t.ID.String(),
		"user_id", userID,
		"plan", p.Slug,
		"expires_at", t.ExpiresAt,
	)

	c.plugins.EmitTrialStarted(ctx, t)
	return t, nil
}

// ExpireTrials marks every active trial that ended at or before now as
// expired, along with its trial subscription, and returns how many changed.
func (c *Cashier) ExpireTrials(ctx context.Context, now time.Time) (int, error) {
	due, err := c.store.ListTrials(ctx, trial.ListOpts{
		Status:        trial.StatusActive,
		ExpiresBefore: now.Add(time.Nanosecond),
	})
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, t := range due {
		t.Status = trial.StatusExpired
		t.TouchAt(now)
		if err := c.store.UpdateTrial(ctx, t); err != nil {
			return expired, err
		}

		subs, err := c.store.ListSubscriptions(ctx, subscription.ListOpts{
			UserID: t.UserID,
			Status: subscription.StatusActive,
		})
		if err != nil {
			return expired, err
		}
		for _, sub := range subs {
			if !sub.IsTrial {
				continue
			}
			sub.Status = subscription.StatusExpired
			sub.TouchAt(now)
			if err := c.store.UpdateSubscription(ctx, sub); err != nil {
				return expired, err
			}
		}
		expired++

		c.invalidate(ctx, t.UserID)
		c.plugins.EmitTrialExpired(ctx, t)
	}

	if expired > 0 {
		c.logger.Info("trials expired", "count", expired)
	}
	return expired, nil
}

func (c *Cashier) hasActivePaidSubscription(ctx context.Context, userID string) (bool, error) {
	subs, err := c.store.ListSubscriptions(ctx, subscription.ListOpts{
		UserID: userID,
		Status: subscription.StatusActive,
	})
	if err != nil {
		return false, err
	}
	now := c.Now()
	for _, sub := range subs {
		if !sub.IsTrial && sub.ActiveAt(now) {
			return true, nil
		}
	}
	return false, nil
}
