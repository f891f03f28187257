// Package audithook bridges Cashier lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// any audit backend directly. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/entitlement"
	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/payment"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/plugin"
	"github.com/xraph/cashier/subscription"
	"github.com/xraph/cashier/trial"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                  = (*Extension)(nil)
	_ plugin.OnPlanCreated           = (*Extension)(nil)
	_ plugin.OnPlanUpdated           = (*Extension)(nil)
	_ plugin.OnPlanArchived          = (*Extension)(nil)
	_ plugin.OnSubscriptionActivated = (*Extension)(nil)
	_ plugin.OnSubscriptionCanceled  = (*Extension)(nil)
	_ plugin.OnSubscriptionExpired   = (*Extension)(nil)
	_ plugin.OnSubscriptionExpiring  = (*Extension)(nil)
	_ plugin.OnTrialStarted          = (*Extension)(nil)
	_ plugin.OnTrialExpired          = (*Extension)(nil)
	_ plugin.OnTrialConverted        = (*Extension)(nil)
	_ plugin.OnCouponRedeemed        = (*Extension)(nil)
	_ plugin.OnPaymentCreated        = (*Extension)(nil)
	_ plugin.OnPaymentCompleted      = (*Extension)(nil)
	_ plugin.OnPaymentFailed         = (*Extension)(nil)
	_ plugin.OnPaymentRefunded       = (*Extension)(nil)
	_ plugin.OnEntitlementChecked    = (*Extension)(nil)
	_ plugin.OnLimitExceeded         = (*Extension)(nil)
	_ plugin.OnWebhookReceived       = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Cashier lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Plan lifecycle hooks
// ──────────────────────────────────────────────────

// OnPlanCreated implements plugin.OnPlanCreated.
func (e *Extension) OnPlanCreated(ctx context.Context, p *plan.Plan) error {
	return e.record(ctx, ActionPlanCreated, SeverityInfo, OutcomeSuccess,
		ResourcePlan, p.ID.String(), CategoryCatalog, "", nil,
		"slug", p.Slug,
		"price", p.Price.String(),
	)
}

// OnPlanUpdated implements plugin.OnPlanUpdated.
func (e *Extension) OnPlanUpdated(ctx context.Context, oldPlan, newPlan *plan.Plan) error {
	return e.record(ctx, ActionPlanUpdated, SeverityInfo, OutcomeSuccess,
		ResourcePlan, newPlan.ID.String(), CategoryCatalog, "", nil,
		"slug", newPlan.Slug,
		"old_price", oldPlan.Price.String(),
		"new_price", newPlan.Price.String(),
	)
}

// OnPlanArchived implements plugin.OnPlanArchived.
func (e *Extension) OnPlanArchived(ctx context.Context, planID id.PlanID) error {
	return e.record(ctx, ActionPlanArchived, SeverityInfo, OutcomeSuccess,
		ResourcePlan, planID.String(), CategoryCatalog, "", nil,
	)
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionActivated implements plugin.OnSubscriptionActivated.
func (e *Extension) OnSubscriptionActivated(ctx context.Context, sub *subscription.Subscription) error {
	return e.record(ctx, ActionSubscriptionActivated, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, sub.ID.String(), CategorySubscription, sub.UserID, nil,
		"plan_id", sub.PlanID.String(),
		"expires_at", sub.ExpiresAt,
	)
}

// OnSubscriptionCanceled implements plugin.OnSubscriptionCanceled.
func (e *Extension) OnSubscriptionCanceled(ctx context.Context, sub *subscription.Subscription) error {
	return e.record(ctx, ActionSubscriptionCanceled, SeverityWarning, OutcomeSuccess,
		ResourceSubscription, sub.ID.String(), CategorySubscription, sub.UserID, nil,
		"plan_id", sub.PlanID.String(),
	)
}

// OnSubscriptionExpired implements plugin.OnSubscriptionExpired.
func (e *Extension) OnSubscriptionExpired(ctx context.Context, sub *subscription.Subscription) error {
	return e.record(ctx, ActionSubscriptionExpired, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, sub.ID.String(), CategorySubscription, sub.UserID, nil,
		"plan_id", sub.PlanID.String(),
	)
}

// OnSubscriptionExpiring implements plugin.OnSubscriptionExpiring.
func (e *Extension) OnSubscriptionExpiring(ctx context.Context, sub *subscription.Subscription, daysLeft int) error {
	return e.record(ctx, ActionSubscriptionExpiring, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, sub.ID.String(), CategorySubscription, sub.UserID, nil,
		"days_left", daysLeft,
	)
}

// ──────────────────────────────────────────────────
// Trial hooks
// ──────────────────────────────────────────────────

// OnTrialStarted implements plugin.OnTrialStarted.
func (e *Extension) OnTrialStarted(ctx context.Context, t *trial.Trial) error {
	return e.record(ctx, ActionTrialStarted, SeverityInfo, OutcomeSuccess,
		ResourceTrial, t.ID.String(), CategorySubscription, t.UserID, nil,
		"plan_id", t.PlanID.String(),
		"expires_at", t.ExpiresAt,
	)
}

// OnTrialExpired implements plugin.OnTrialExpired.
func (e *Extension) OnTrialExpired(ctx context.Context, t *trial.Trial) error {
	return e.record(ctx, ActionTrialExpired, SeverityInfo, OutcomeSuccess,
		ResourceTrial, t.ID.String(), CategorySubscription, t.UserID, nil,
	)
}

// OnTrialConverted implements plugin.OnTrialConverted.
func (e *Extension) OnTrialConverted(ctx context.Context, t *trial.Trial, sub *subscription.Subscription) error {
	return e.record(ctx, ActionTrialConverted, SeverityInfo, OutcomeSuccess,
		ResourceTrial, t.ID.String(), CategorySubscription, t.UserID, nil,
		"subscription_id", sub.ID.String(),
	)
}

// ──────────────────────────────────────────────────
// Coupon hooks
// ──────────────────────────────────────────────────

// OnCouponRedeemed implements plugin.OnCouponRedeemed.
func (e *Extension) OnCouponRedeemed(ctx context.Context, c *coupon.Coupon, userID string) error {
	return e.record(ctx, ActionCouponRedeemed, SeverityInfo, OutcomeSuccess,
		ResourceCoupon, c.ID.String(), CategoryPromotion, userID, nil,
		"code", c.Code,
		"used_count", c.UsedCount,
	)
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentCreated implements plugin.OnPaymentCreated.
func (e *Extension) OnPaymentCreated(ctx context.Context, p *payment.Payment) error {
	return e.record(ctx, ActionPaymentCreated, SeverityInfo, OutcomeSuccess,
		ResourcePayment, p.ID.String(), CategoryPayment, p.UserID, nil,
		paymentPairs(p)...,
	)
}

// OnPaymentCompleted implements plugin.OnPaymentCompleted.
func (e *Extension) OnPaymentCompleted(ctx context.Context, p *payment.Payment) error {
	return e.record(ctx, ActionPaymentCompleted, SeverityInfo, OutcomeSuccess,
		ResourcePayment, p.ID.String(), CategoryPayment, p.UserID, nil,
		append(paymentPairs(p), "gateway_ref", p.GatewayRef)...,
	)
}

// OnPaymentFailed implements plugin.OnPaymentFailed.
func (e *Extension) OnPaymentFailed(ctx context.Context, p *payment.Payment, reason string) error {
	return e.record(ctx, ActionPaymentFailed, SeverityError, OutcomeFailure,
		ResourcePayment, p.ID.String(), CategoryPayment, p.UserID, errors.New(reason),
		paymentPairs(p)...,
	)
}

// OnPaymentRefunded implements plugin.OnPaymentRefunded.
func (e *Extension) OnPaymentRefunded(ctx context.Context, p *payment.Payment) error {
	return e.record(ctx, ActionPaymentRefunded, SeverityCritical, OutcomeSuccess,
		ResourcePayment, p.ID.String(), CategoryPayment, p.UserID, nil,
		paymentPairs(p)...,
	)
}

// OnWebhookReceived implements plugin.OnWebhookReceived.
func (e *Extension) OnWebhookReceived(ctx context.Context, provider string, payload []byte) error {
	return e.record(ctx, ActionWebhookReceived, SeverityInfo, OutcomeSuccess,
		ResourceWebhook, provider, CategoryIntegration, "", nil,
		"bytes", len(payload),
	)
}

// ──────────────────────────────────────────────────
// Entitlement hooks
// ──────────────────────────────────────────────────

// OnEntitlementChecked implements plugin.OnEntitlementChecked.
// Only denied checks are audited.
func (e *Extension) OnEntitlementChecked(ctx context.Context, userID string, result *entitlement.Result) error {
	if result == nil || result.Allowed {
		return nil
	}
	return e.record(ctx, ActionEntitlementDenied, SeverityInfo, OutcomeFailure,
		ResourceEntitlement, result.Feature, CategoryAccess, userID, nil,
		"reason", result.Reason,
	)
}

// OnLimitExceeded implements plugin.OnLimitExceeded.
func (e *Extension) OnLimitExceeded(ctx context.Context, userID, key string, used, limit int64) error {
	return e.record(ctx, ActionQuotaExceeded, SeverityWarning, OutcomeFailure,
		ResourceEntitlement, key, CategoryAccess, userID, nil,
		"used", used,
		"limit", limit,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func paymentPairs(p *payment.Payment) []any {
	return []any{
		"plan_id", p.PlanID.String(),
		"amount", p.Amount.String(),
		"method", p.Method,
		"coupon_code", p.CouponCode,
	}
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category, userID string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		UserID:     userID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
