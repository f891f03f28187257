// Package observability provides a metrics extension for Cashier that records
// lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/entitlement"
	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/payment"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/plugin"
	"github.com/xraph/cashier/subscription"
	"github.com/xraph/cashier/trial"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                  = (*MetricsExtension)(nil)
	_ plugin.OnPlanCreated           = (*MetricsExtension)(nil)
	_ plugin.OnPlanUpdated           = (*MetricsExtension)(nil)
	_ plugin.OnPlanArchived          = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionActivated = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCanceled  = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionExpired   = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionExpiring  = (*MetricsExtension)(nil)
	_ plugin.OnTrialStarted          = (*MetricsExtension)(nil)
	_ plugin.OnTrialExpired          = (*MetricsExtension)(nil)
	_ plugin.OnTrialConverted        = (*MetricsExtension)(nil)
	_ plugin.OnCouponRedeemed        = (*MetricsExtension)(nil)
	_ plugin.OnPaymentCreated        = (*MetricsExtension)(nil)
	_ plugin.OnPaymentCompleted      = (*MetricsExtension)(nil)
	_ plugin.OnPaymentFailed         = (*MetricsExtension)(nil)
	_ plugin.OnPaymentRefunded       = (*MetricsExtension)(nil)
	_ plugin.OnEntitlementChecked    = (*MetricsExtension)(nil)
	_ plugin.OnLimitExceeded         = (*MetricsExtension)(nil)
	_ plugin.OnWebhookReceived       = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Cashier plugin to track billing metrics.
type MetricsExtension struct {
	// Plan metrics
	PlanCreated  Counter
	PlanUpdated  Counter
	PlanArchived Counter

	// Subscription metrics
	SubscriptionActivated Counter
	SubscriptionCanceled  Counter
	SubscriptionExpired   Counter
	ExpiryReminders       Counter

	// Trial metrics
	TrialStarted   Counter
	TrialExpired   Counter
	TrialConverted Counter

	// Coupon metrics
	CouponRedeemed Counter

	// Payment metrics
	PaymentCreated   Counter
	PaymentCompleted Counter
	PaymentFailed    Counter
	PaymentRefunded  Counter
	PaymentAmount    Histogram
	WebhookReceived  Counter

	// Entitlement metrics
	EntitlementChecks Counter
	EntitlementDenied Counter
	QuotaExceeded     Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		PlanCreated:  factory.Counter("cashier.plan.created"),
		PlanUpdated:  factory.Counter("cashier.plan.updated"),
		PlanArchived: factory.Counter("cashier.plan.archived"),

		SubscriptionActivated: factory.Counter("cashier.subscription.activated"),
		SubscriptionCanceled:  factory.Counter("cashier.subscription.canceled"),
		SubscriptionExpired:   factory.Counter("cashier.subscription.expired"),
		ExpiryReminders:       factory.Counter("cashier.subscription.reminders"),

		TrialStarted:   factory.Counter("cashier.trial.started"),
		TrialExpired:   factory.Counter("cashier.trial.expired"),
		TrialConverted: factory.Counter("cashier.trial.converted"),

		CouponRedeemed: factory.Counter("cashier.coupon.redeemed"),

		PaymentCreated:   factory.Counter("cashier.payment.created"),
		PaymentCompleted: factory.Counter("cashier.payment.completed"),
		PaymentFailed:    factory.Counter("cashier.payment.failed"),
		PaymentRefunded:  factory.Counter("cashier.payment.refunded"),
		PaymentAmount:    factory.Histogram("cashier.payment.amount_minor"),
		WebhookReceived:  factory.Counter("cashier.webhook.received"),

		EntitlementChecks: factory.Counter("cashier.entitlement.checks"),
		EntitlementDenied: factory.Counter("cashier.entitlement.denied"),
		QuotaExceeded:     factory.Counter("cashier.entitlement.quota_exceeded"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// ──────────────────────────────────────────────────
// Plan lifecycle hooks
// ──────────────────────────────────────────────────

func (m *MetricsExtension) OnPlanCreated(context.Context, *plan.Plan) error {
	m.PlanCreated.Inc()
	return nil
}

func (m *MetricsExtension) OnPlanUpdated(_ context.Context, _, _ *plan.Plan) error {
	m.PlanUpdated.Inc()
	return nil
}

func (m *MetricsExtension) OnPlanArchived(context.Context, id.PlanID) error {
	m.PlanArchived.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Subscription and trial hooks
// ──────────────────────────────────────────────────

func (m *MetricsExtension) OnSubscriptionActivated(context.Context, *subscription.Subscription) error {
	m.SubscriptionActivated.Inc()
	return nil
}

func (m *MetricsExtension) OnSubscriptionCanceled(context.Context, *subscription.Subscription) error {
	m.SubscriptionCanceled.Inc()
	return nil
}

func (m *MetricsExtension) OnSubscriptionExpired(context.Context, *subscription.Subscription) error {
	m.SubscriptionExpired.Inc()
	return nil
}

func (m *MetricsExtension) OnSubscriptionExpiring(context.Context, *subscription.Subscription, int) error {
	m.ExpiryReminders.Inc()
	return nil
}

func (m *MetricsExtension) OnTrialStarted(context.Context, *trial.Trial) error {
	m.TrialStarted.Inc()
	return nil
}

func (m *MetricsExtension) OnTrialExpired(context.Context, *trial.Trial) error {
	m.TrialExpired.Inc()
	return nil
}

func (m *MetricsExtension) OnTrialConverted(context.Context, *trial.Trial, *subscription.Subscription) error {
	m.TrialConverted.Inc()
	return nil
}

func (m *MetricsExtension) OnCouponRedeemed(context.Context, *coupon.Coupon, string) error {
	m.CouponRedeemed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

func (m *MetricsExtension) OnPaymentCreated(context.Context, *payment.Payment) error {
	m.PaymentCreated.Inc()
	return nil
}

// OnPaymentCompleted counts the payment and observes its amount in minor units.
func (m *MetricsExtension) OnPaymentCompleted(_ context.Context, p *payment.Payment) error {
	m.PaymentCompleted.Inc()
	m.PaymentAmount.Observe(float64(p.Amount.Amount))
	return nil
}

func (m *MetricsExtension) OnPaymentFailed(context.Context, *payment.Payment, string) error {
	m.PaymentFailed.Inc()
	return nil
}

func (m *MetricsExtension) OnPaymentRefunded(context.Context, *payment.Payment) error {
	m.PaymentRefunded.Inc()
	return nil
}

func (m *MetricsExtension) OnWebhookReceived(context.Context, string, []byte) error {
	m.WebhookReceived.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Entitlement hooks
// ──────────────────────────────────────────────────

func (m *MetricsExtension) OnEntitlementChecked(_ context.Context, _ string, result *entitlement.Result) error {
	m.EntitlementChecks.Inc()
	if result != nil && !result.Allowed {
		m.EntitlementDenied.Inc()
	}
	return nil
}

func (m *MetricsExtension) OnLimitExceeded(context.Context, string, string, int64, int64) error {
	m.QuotaExceeded.Inc()
	return nil
}
