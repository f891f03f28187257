package cashier

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/subscription"
	"github.com/xraph/cashier/trial"
)

// ──────────────────────────────────────────────────
// Subscription Management
// ──────────────────────────────────────────────────

// GetSubscription retrieves a subscription by ID.
func (c *Cashier) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	return c.store.GetSubscription(ctx, subID)
}

// GetActiveSubscription returns the subscription granting the user access
// right now. A trial shows up here with IsTrial set.
func (c *Cashier) GetActiveSubscription(ctx context.Context, userID string) (*subscription.Subscription, error) {
	sub, err := c.store.GetActiveSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !sub.ActiveAt(c.Now()) {
		return nil, ErrNoActiveSubscription
	}
	return sub, nil
}

// ListSubscriptions lists subscriptions newest first.
func (c *Cashier) ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	return c.store.ListSubscriptions(ctx, opts)
}

// CancelSubscription ends a subscription immediately. Canceling a trial
// subscription cancels the trial too.
func (c *Cashier) CancelSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	sub, err := c.store.GetSubscription(ctx, subID)
	if err != nil {
		return nil, err
	}
	switch sub.Status {
	case subscription.StatusCanceled:
		return nil, ErrSubscriptionCanceled
	case subscription.StatusExpired:
		return nil, ErrSubscriptionExpired
	}

	now := c.Now()
	if err := c.store.CancelSubscription(ctx, subID, now); err != nil {
		return nil, err
	}
	sub.Status = subscription.StatusCanceled
	sub.CanceledAt = &now

	if sub.IsTrial {
		t, err := c.store.GetTrialByUser(ctx, sub.UserID)
		switch {
		case err == nil && t.Status == trial.StatusActive:
			t.Status = trial.StatusCanceled
			t.TouchAt(now)
			if err := c.store.UpdateTrial(ctx, t); err != nil {
				return nil, err
			}
		case err != nil && !errors.Is(err, ErrTrialNotFound):
			return nil, err
		}
	}

	c.invalidate(ctx, sub.UserID)

	c.logger.Info("subscription canceled",
		"subscription_id", sub.ID.String(),
		"user_id", sub.UserID,
	)

	c.plugins.EmitSubscriptionCanceled(ctx, sub)
	return sub, nil
}

// ExtendSubscription pushes an active subscription's expiry out by days
// and re-arms its expiry reminder.
func (c *Cashier) ExtendSubscription(ctx context.Context, subID id.SubscriptionID, days int) (*subscription.Subscription, error) {
	if days <= 0 {
		return nil, ValidationError{Field: "days", Message: "must be positive"}
	}

	sub, err := c.store.GetSubscription(ctx, subID)
	if err != nil {
		return nil, err
	}
	switch sub.Status {
	case subscription.StatusCanceled:
		return nil, ErrSubscriptionCanceled
	case subscription.StatusExpired:
		return nil, ErrSubscriptionExpired
	}

	now := c.Now()
	sub.ExpiresAt = sub.ExpiresAt.AddDate(0, 0, days)
	delete(sub.Metadata, subscription.MetaRemindedAt)
	sub.TouchAt(now)

	if err := c.store.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	c.invalidate(ctx, sub.UserID)

	c.logger.Info("subscription extended",
		"subscription_id", sub.ID.String(),
		"user_id", sub.UserID,
		"days", days,
		"expires_at", sub.ExpiresAt,
	)
	return sub, nil
}

// ExpireSubscriptions marks every paid subscription whose period ended at
// or before now as expired and returns how many changed. Trial
// subscriptions are handled by ExpireTrials.
func (c *Cashier) ExpireSubscriptions(ctx context.Context, now time.Time) (int, error) {
	due, err := c.store.ListSubscriptions(ctx, subscription.ListOpts{
		Status:        subscription.StatusActive,
		ExpiresBefore: now.Add(time.Nanosecond),
	})
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, sub := range due {
		if sub.IsTrial {
			continue
		}
		sub.Status = subscription.StatusExpired
		sub.TouchAt(now)
		if err := c.store.UpdateSubscription(ctx, sub); err != nil {
			return expired, err
		}
		expired++

		c.invalidate(ctx, sub.UserID)
		c.plugins.EmitSubscriptionExpired(ctx, sub)
	}

	if expired > 0 {
		c.logger.Info("subscriptions expired", "count", expired)
	}
	return expired, nil
}
