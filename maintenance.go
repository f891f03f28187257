package cashier

import (
	"context"
	"time"

	"github.com/xraph/cashier/settings"
	"github.com/xraph/cashier/subscription"
)

// SendExpiryReminders emits OnSubscriptionExpiring once for every active
// subscription ending within the reminder window and returns how many
// reminders went out. A stored email setting with reminder_days overrides
// WithReminderDays.
func (c *Cashier) SendExpiryReminders(ctx context.Context, now time.Time) (int, error) {
	days := c.reminderDays
	if s, err := c.store.GetSetting(ctx, settings.KeyEmail); err == nil {
		var cfg settings.EmailSettings
		if settings.Decode(s, &cfg) == nil && cfg.ReminderDays > 0 {
			days = cfg.ReminderDays
		}
	}
	if days <= 0 {
		return 0, nil
	}

	due, err := c.store.ListSubscriptions(ctx, subscription.ListOpts{
		Status:        subscription.StatusActive,
		ExpiresBefore: now.AddDate(0, 0, days),
	})
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, sub := range due {
		if !sub.ActiveAt(now) || sub.Metadata[subscription.MetaRemindedAt] != "" {
			continue
		}
		if sub.Metadata == nil {
			sub.Metadata = map[string]string{}
		}
		sub.Metadata[subscription.MetaRemindedAt] = now.UTC().Format(time.RFC3339)
		if err := c.store.UpdateSubscription(ctx, sub); err != nil {
			return sent, err
		}
		sent++

		c.plugins.EmitSubscriptionExpiring(ctx, sub, sub.DaysLeft(now))
	}

	if sent > 0 {
		c.logger.Info("expiry reminders sent", "count", sent, "window_days", days)
	}
	return sent, nil
}

// PurgeUsage drops usage counters whose window started before the cutoff.
func (c *Cashier) PurgeUsage(ctx context.Context, before time.Time) (int64, error) {
	n, err := c.store.PurgeUsage(ctx, before)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		c.logger.Info("usage counters purged", "count", n, "before", before)
	}
	return n, nil
}
