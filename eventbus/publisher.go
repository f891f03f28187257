// Package eventbus publishes Cashier lifecycle events to a message broker so
// other services can react to payments, subscriptions and trials.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/payment"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/plugin"
	"github.com/xraph/cashier/subscription"
	"github.com/xraph/cashier/trial"
)

// Routing keys.
const (
	KeyPlanCreated           = "plan.created"
	KeyPlanUpdated           = "plan.updated"
	KeyPlanArchived          = "plan.archived"
	KeySubscriptionActivated = "subscription.activated"
	KeySubscriptionCanceled  = "subscription.canceled"
	KeySubscriptionExpired   = "subscription.expired"
	KeySubscriptionExpiring  = "subscription.expiring"
	KeyTrialStarted          = "trial.started"
	KeyTrialExpired          = "trial.expired"
	KeyTrialConverted        = "trial.converted"
	KeyCouponRedeemed        = "coupon.redeemed"
	KeyPaymentCreated        = "payment.created"
	KeyPaymentCompleted      = "payment.completed"
	KeyPaymentFailed         = "payment.failed"
	KeyPaymentRefunded       = "payment.refunded"
	KeyLimitExceeded         = "usage.limit_exceeded"
)

var (
	_ plugin.Plugin                  = (*Publisher)(nil)
	_ plugin.OnShutdown              = (*Publisher)(nil)
	_ plugin.OnPlanCreated           = (*Publisher)(nil)
	_ plugin.OnPlanUpdated           = (*Publisher)(nil)
	_ plugin.OnPlanArchived          = (*Publisher)(nil)
	_ plugin.OnSubscriptionActivated = (*Publisher)(nil)
	_ plugin.OnSubscriptionCanceled  = (*Publisher)(nil)
	_ plugin.OnSubscriptionExpired   = (*Publisher)(nil)
	_ plugin.OnSubscriptionExpiring  = (*Publisher)(nil)
	_ plugin.OnTrialStarted          = (*Publisher)(nil)
	_ plugin.OnTrialExpired          = (*Publisher)(nil)
	_ plugin.OnTrialConverted        = (*Publisher)(nil)
	_ plugin.OnCouponRedeemed        = (*Publisher)(nil)
	_ plugin.OnPaymentCreated        = (*Publisher)(nil)
	_ plugin.OnPaymentCompleted      = (*Publisher)(nil)
	_ plugin.OnPaymentFailed         = (*Publisher)(nil)
	_ plugin.OnPaymentRefunded       = (*Publisher)(nil)
	_ plugin.OnLimitExceeded         = (*Publisher)(nil)
)

// Event is the envelope written to the broker.
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// Publisher is a plugin that forwards lifecycle hooks to a Transport.
type Publisher struct {
	transport Transport
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithClock overrides time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

// NewPublisher creates a Publisher writing to t.
func NewPublisher(t Transport, opts ...Option) *Publisher {
	if t == nil {
		t = Noop{}
	}
	p := &Publisher{transport: t, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements plugin.Plugin.
func (p *Publisher) Name() string { return "eventbus" }

// OnShutdown closes the transport.
func (p *Publisher) OnShutdown(context.Context) error {
	return p.transport.Close()
}

func (p *Publisher) publish(ctx context.Context, key, userID string, data any) error {
	body, err := json.Marshal(Event{
		Type:       key,
		UserID:     userID,
		OccurredAt: p.now().UTC(),
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("eventbus: encode %s: %w", key, err)
	}
	if err := p.transport.Publish(ctx, key, body); err != nil {
		return fmt.Errorf("eventbus: publish %s: %w", key, err)
	}
	p.logger.Debug("eventbus: published", "type", key, "user_id", userID)
	return nil
}

func (p *Publisher) OnPlanCreated(ctx context.Context, pl *plan.Plan) error {
	return p.publish(ctx, KeyPlanCreated, "", pl)
}

func (p *Publisher) OnPlanUpdated(ctx context.Context, _, newPlan *plan.Plan) error {
	return p.publish(ctx, KeyPlanUpdated, "", newPlan)
}

func (p *Publisher) OnPlanArchived(ctx context.Context, planID id.PlanID) error {
	return p.publish(ctx, KeyPlanArchived, "", map[string]string{"plan_id": planID.String()})
}

func (p *Publisher) OnSubscriptionActivated(ctx context.Context, sub *subscription.Subscription) error {
	return p.publish(ctx, KeySubscriptionActivated, sub.UserID, sub)
}

func (p *Publisher) OnSubscriptionCanceled(ctx context.Context, sub *subscription.Subscription) error {
	return p.publish(ctx, KeySubscriptionCanceled, sub.UserID, sub)
}

func (p *Publisher) OnSubscriptionExpired(ctx context.Context, sub *subscription.Subscription) error {
	return p.publish(ctx, KeySubscriptionExpired, sub.UserID, sub)
}

func (p *Publisher) OnSubscriptionExpiring(ctx context.Context, sub *subscription.Subscription, daysLeft int) error {
	return p.publish(ctx, KeySubscriptionExpiring, sub.UserID, map[string]any{
		"subscription": sub,
		"days_left":    daysLeft,
	})
}

func (p *Publisher) OnTrialStarted(ctx context.Context, t *trial.Trial) error {
	return p.publish(ctx, KeyTrialStarted, t.UserID, t)
}

func (p *Publisher) OnTrialExpired(ctx context.Context, t *trial.Trial) error {
	return p.publish(ctx, KeyTrialExpired, t.UserID, t)
}

func (p *Publisher) OnTrialConverted(ctx context.Context, t *trial.Trial, sub *subscription.Subscription) error {
	return p.publish(ctx, KeyTrialConverted, t.UserID, map[string]any{
		"trial":        t,
		"subscription": sub,
	})
}

func (p *Publisher) OnCouponRedeemed(ctx context.Context, c *coupon.Coupon, userID string) error {
	return p.publish(ctx, KeyCouponRedeemed, userID, map[string]any{
		"coupon_id":  c.ID.String(),
		"code":       c.Code,
		"used_count": c.UsedCount,
	})
}

func (p *Publisher) OnPaymentCreated(ctx context.Context, pay *payment.Payment) error {
	return p.publish(ctx, KeyPaymentCreated, pay.UserID, pay)
}

func (p *Publisher) OnPaymentCompleted(ctx context.Context, pay *payment.Payment) error {
	return p.publish(ctx, KeyPaymentCompleted, pay.UserID, pay)
}

func (p *Publisher) OnPaymentFailed(ctx context.Context, pay *payment.Payment, reason string) error {
	return p.publish(ctx, KeyPaymentFailed, pay.UserID, map[string]any{
		"payment": pay,
		"reason":  reason,
	})
}

func (p *Publisher) OnPaymentRefunded(ctx context.Context, pay *payment.Payment) error {
	return p.publish(ctx, KeyPaymentRefunded, pay.UserID, pay)
}

func (p *Publisher) OnLimitExceeded(ctx context.Context, userID, key string, used, limit int64) error {
	return p.publish(ctx, KeyLimitExceeded, userID, map[string]any{
		"key":   key,
		"used":  used,
		"limit": limit,
	})
}
