// Package plugin provides an extensible plugin system for Cashier.
// Plugins can hook into billing lifecycle events to extend functionality.
package plugin

import (
	"context"

	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/entitlement"
	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/payment"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/subscription"
	"github.com/xraph/cashier/trial"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts. c is the *cashier.Cashier.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, c interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Plan lifecycle hooks
// ──────────────────────────────────────────────────

// OnPlanCreated is called when a new plan is created.
type OnPlanCreated interface {
	Plugin
	OnPlanCreated(ctx context.Context, p *plan.Plan) error
}

// OnPlanUpdated is called when a plan is updated.
type OnPlanUpdated interface {
	Plugin
	OnPlanUpdated(ctx context.Context, oldPlan, newPlan *plan.Plan) error
}

// OnPlanArchived is called when a plan is archived.
type OnPlanArchived interface {
	Plugin
	OnPlanArchived(ctx context.Context, planID id.PlanID) error
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionActivated is called when a paid subscription starts.
type OnSubscriptionActivated interface {
	Plugin
	OnSubscriptionActivated(ctx context.Context, sub *subscription.Subscription) error
}

// OnSubscriptionCanceled is called when a subscription is canceled.
type OnSubscriptionCanceled interface {
	Plugin
	OnSubscriptionCanceled(ctx context.Context, sub *subscription.Subscription) error
}

// OnSubscriptionExpired is called when a subscription expires.
type OnSubscriptionExpired interface {
	Plugin
	OnSubscriptionExpired(ctx context.Context, sub *subscription.Subscription) error
}

// OnSubscriptionExpiring is called once per subscription when it enters
// the reminder window.
type OnSubscriptionExpiring interface {
	Plugin
	OnSubscriptionExpiring(ctx context.Context, sub *subscription.Subscription, daysLeft int) error
}

// ──────────────────────────────────────────────────
// Trial hooks
// ──────────────────────────────────────────────────

// OnTrialStarted is called when a user starts their trial.
type OnTrialStarted interface {
	Plugin
	OnTrialStarted(ctx context.Context, t *trial.Trial) error
}

// OnTrialExpired is called when a trial runs out unconverted.
type OnTrialExpired interface {
	Plugin
	OnTrialExpired(ctx context.Context, t *trial.Trial) error
}

// OnTrialConverted is called when a trial user pays.
type OnTrialConverted interface {
	Plugin
	OnTrialConverted(ctx context.Context, t *trial.Trial, sub *subscription.Subscription) error
}

// ──────────────────────────────────────────────────
// Coupon hooks
// ──────────────────────────────────────────────────

// OnCouponRedeemed is called after a redemption is counted.
type OnCouponRedeemed interface {
	Plugin
	OnCouponRedeemed(ctx context.Context, c *coupon.Coupon, userID string) error
}

// CouponValidator adds custom coupon rules. A non-nil error rejects the coupon.
type CouponValidator interface {
	Plugin
	ValidateCoupon(ctx context.Context, c *coupon.Coupon, userID string, p *plan.Plan) error
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentCreated is called when checkout creates a pending payment.
type OnPaymentCreated interface {
	Plugin
	OnPaymentCreated(ctx context.Context, p *payment.Payment) error
}

// OnPaymentCompleted is called when a payment succeeds.
type OnPaymentCompleted interface {
	Plugin
	OnPaymentCompleted(ctx context.Context, p *payment.Payment) error
}

// OnPaymentFailed is called when a payment fails.
type OnPaymentFailed interface {
	Plugin
	OnPaymentFailed(ctx context.Context, p *payment.Payment, reason string) error
}

// OnPaymentRefunded is called when a payment is refunded.
type OnPaymentRefunded interface {
	Plugin
	OnPaymentRefunded(ctx context.Context, p *payment.Payment) error
}

// OnWebhookReceived is called for every verified gateway callback.
type OnWebhookReceived interface {
	Plugin
	OnWebhookReceived(ctx context.Context, provider string, payload []byte) error
}

// ──────────────────────────────────────────────────
// Entitlement hooks
// ──────────────────────────────────────────────────

// OnEntitlementChecked is called when a feature or limit is checked.
type OnEntitlementChecked interface {
	Plugin
	OnEntitlementChecked(ctx context.Context, userID string, result *entitlement.Result) error
}

// OnLimitExceeded is called when consuming a limit is refused.
type OnLimitExceeded interface {
	Plugin
	OnLimitExceeded(ctx context.Context, userID, key string, used, limit int64) error
}
