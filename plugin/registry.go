package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/entitlement"
	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/payment"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/subscription"
	"github.com/xraph/cashier/trial"
)

// DefaultTimeout bounds a single plugin call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// Hook implementations are discovered once at registration time.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                  []OnInit
	onShutdown              []OnShutdown
	onPlanCreated           []OnPlanCreated
	onPlanUpdated           []OnPlanUpdated
	onPlanArchived          []OnPlanArchived
	onSubscriptionActivated []OnSubscriptionActivated
	onSubscriptionCanceled  []OnSubscriptionCanceled
	onSubscriptionExpired   []OnSubscriptionExpired
	onSubscriptionExpiring  []OnSubscriptionExpiring
	onTrialStarted          []OnTrialStarted
	onTrialExpired          []OnTrialExpired
	onTrialConverted        []OnTrialConverted
	onCouponRedeemed        []OnCouponRedeemed
	couponValidators        []CouponValidator
	onPaymentCreated        []OnPaymentCreated
	onPaymentCompleted      []OnPaymentCompleted
	onPaymentFailed         []OnPaymentFailed
	onPaymentRefunded       []OnPaymentRefunded
	onWebhookReceived       []OnWebhookReceived
	onEntitlementChecked    []OnEntitlementChecked
	onLimitExceeded         []OnLimitExceeded
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-call plugin timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	var hooks []string
	add := func(ok bool, name string) bool {
		if ok {
			hooks = append(hooks, name)
		}
		return ok
	}

	if v, ok := p.(OnInit); add(ok, "OnInit") {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); add(ok, "OnShutdown") {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnPlanCreated); add(ok, "OnPlanCreated") {
		r.onPlanCreated = append(r.onPlanCreated, v)
	}
	if v, ok := p.(OnPlanUpdated); add(ok, "OnPlanUpdated") {
		r.onPlanUpdated = append(r.onPlanUpdated, v)
	}
	if v, ok := p.(OnPlanArchived); add(ok, "OnPlanArchived") {
		r.onPlanArchived = append(r.onPlanArchived, v)
	}
	if v, ok := p.(OnSubscriptionActivated); add(ok, "OnSubscriptionActivated") {
		r.onSubscriptionActivated = append(r.onSubscriptionActivated, v)
	}
	if v, ok := p.(OnSubscriptionCanceled); add(ok, "OnSubscriptionCanceled") {
		r.onSubscriptionCanceled = append(r.onSubscriptionCanceled, v)
	}
	if v, ok := p.(OnSubscriptionExpired); add(ok, "OnSubscriptionExpired") {
		r.onSubscriptionExpired = append(r.onSubscriptionExpired, v)
	}
	if v, ok := p.(OnSubscriptionExpiring); add(ok, "OnSubscriptionExpiring") {
		r.onSubscriptionExpiring = append(r.onSubscriptionExpiring, v)
	}
	if v, ok := p.(OnTrialStarted); add(ok, "OnTrialStarted") {
		r.onTrialStarted = append(r.onTrialStarted, v)
	}
	if v, ok := p.(OnTrialExpired); add(ok, "OnTrialExpired") {
		r.onTrialExpired = append(r.onTrialExpired, v)
	}
	if v, ok := p.(OnTrialConverted); add(ok, "OnTrialConverted") {
		r.onTrialConverted = append(r.onTrialConverted, v)
	}
	if v, ok := p.(OnCouponRedeemed); add(ok, "OnCouponRedeemed") {
		r.onCouponRedeemed = append(r.onCouponRedeemed, v)
	}
	if v, ok := p.(CouponValidator); add(ok, "CouponValidator") {
		r.couponValidators = append(r.couponValidators, v)
	}
	if v, ok := p.(OnPaymentCreated); add(ok, "OnPaymentCreated") {
		r.onPaymentCreated = append(r.onPaymentCreated, v)
	}
	if v, ok := p.(OnPaymentCompleted); add(ok, "OnPaymentCompleted") {
		r.onPaymentCompleted = append(r.onPaymentCompleted, v)
	}
	if v, ok := p.(OnPaymentFailed); add(ok, "OnPaymentFailed") {
		r.onPaymentFailed = append(r.onPaymentFailed, v)
	}
	if v, ok := p.(OnPaymentRefunded); add(ok, "OnPaymentRefunded") {
		r.onPaymentRefunded = append(r.onPaymentRefunded, v)
	}
	if v, ok := p.(OnWebhookReceived); add(ok, "OnWebhookReceived") {
		r.onWebhookReceived = append(r.onWebhookReceived, v)
	}
	if v, ok := p.(OnEntitlementChecked); add(ok, "OnEntitlementChecked") {
		r.onEntitlementChecked = append(r.onEntitlementChecked, v)
	}
	if v, ok := p.(OnLimitExceeded); add(ok, "OnLimitExceeded") {
		r.onLimitExceeded = append(r.onLimitExceeded, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", hooks,
	)

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// emit calls fn for every plugin in list. Failures are logged, never returned.
func emit[T Plugin](ctx context.Context, r *Registry, list *[]T, hook string, fn func(T) error) {
	r.mu.RLock()
	plugins := *list
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return fn(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, c interface{}) {
	emit(ctx, r, &r.onInit, "OnInit", func(p OnInit) error { return p.OnInit(ctx, c) })
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(ctx, r, &r.onShutdown, "OnShutdown", func(p OnShutdown) error { return p.OnShutdown(ctx) })
}

// EmitPlanCreated emits a plan created event.
func (r *Registry) EmitPlanCreated(ctx context.Context, pl *plan.Plan) {
	emit(ctx, r, &r.onPlanCreated, "OnPlanCreated", func(p OnPlanCreated) error {
		return p.OnPlanCreated(ctx, pl)
	})
}

// EmitPlanUpdated emits a plan updated event.
func (r *Registry) EmitPlanUpdated(ctx context.Context, oldPlan, newPlan *plan.Plan) {
	emit(ctx, r, &r.onPlanUpdated, "OnPlanUpdated", func(p OnPlanUpdated) error {
		return p.OnPlanUpdated(ctx, oldPlan, newPlan)
	})
}

// EmitPlanArchived emits a plan archived event.
func (r *Registry) EmitPlanArchived(ctx context.Context, planID id.PlanID) {
	emit(ctx, r, &r.onPlanArchived, "OnPlanArchived", func(p OnPlanArchived) error {
		return p.OnPlanArchived(ctx, planID)
	})
}

// EmitSubscriptionActivated emits a subscription activated event.
func (r *Registry) EmitSubscriptionActivated(ctx context.Context, sub *subscription.Subscription) {
	emit(ctx, r, &r.onSubscriptionActivated, "OnSubscriptionActivated", func(p OnSubscriptionActivated) error {
		return p.OnSubscriptionActivated(ctx, sub)
	})
}

// EmitSubscriptionCanceled emits a subscription canceled event.
func (r *Registry) EmitSubscriptionCanceled(ctx context.Context, sub *subscription.Subscription) {
	emit(ctx, r, &r.onSubscriptionCanceled, "OnSubscriptionCanceled", func(p OnSubscriptionCanceled) error {
		return p.OnSubscriptionCanceled(ctx, sub)
	})
}

// EmitSubscriptionExpired emits a subscription expired event.
func (r *Registry) EmitSubscriptionExpired(ctx context.Context, sub *subscription.Subscription) {
	emit(ctx, r, &r.onSubscriptionExpired, "OnSubscriptionExpired", func(p OnSubscriptionExpired) error {
		return p.OnSubscriptionExpired(ctx, sub)
	})
}

// EmitSubscriptionExpiring emits an expiry reminder event.
func (r *Registry) EmitSubscriptionExpiring(ctx context.Context, sub *subscription.Subscription, daysLeft int) {
	emit(ctx, r, &r.onSubscriptionExpiring, "OnSubscriptionExpiring", func(p OnSubscriptionExpiring) error {
		return p.OnSubscriptionExpiring(ctx, sub, daysLeft)
	})
}

// EmitTrialStarted emits a trial started event.
func (r *Registry) EmitTrialStarted(ctx context.Context, t *trial.Trial) {
	emit(ctx, r, &r.onTrialStarted, "OnTrialStarted", func(p OnTrialStarted) error {
		return p.OnTrialStarted(ctx, t)
	})
}

// EmitTrialExpired emits a trial expired event.
func (r *Registry) EmitTrialExpired(ctx context.Context, t *trial.Trial) {
	emit(ctx, r, &r.onTrialExpired, "OnTrialExpired", func(p OnTrialExpired) error {
		return p.OnTrialExpired(ctx, t)
	})
}

// EmitTrialConverted emits a trial converted event.
func (r *Registry) EmitTrialConverted(ctx context.Context, t *trial.Trial, sub *subscription.Subscription) {
	emit(ctx, r, &r.onTrialConverted, "OnTrialConverted", func(p OnTrialConverted) error {
		return p.OnTrialConverted(ctx, t, sub)
	})
}

// EmitCouponRedeemed emits a coupon redeemed event.
func (r *Registry) EmitCouponRedeemed(ctx context.Context, c *coupon.Coupon, userID string) {
	emit(ctx, r, &r.onCouponRedeemed, "OnCouponRedeemed", func(p OnCouponRedeemed) error {
		return p.OnCouponRedeemed(ctx, c, userID)
	})
}

// EmitPaymentCreated emits a payment created event.
func (r *Registry) EmitPaymentCreated(ctx context.Context, pay *payment.Payment) {
	emit(ctx, r, &r.onPaymentCreated, "OnPaymentCreated", func(p OnPaymentCreated) error {
		return p.OnPaymentCreated(ctx, pay)
	})
}

// EmitPaymentCompleted emits a payment completed event.
func (r *Registry) EmitPaymentCompleted(ctx context.Context, pay *payment.Payment) {
	emit(ctx, r, &r.onPaymentCompleted, "OnPaymentCompleted", func(p OnPaymentCompleted) error {
		return p.OnPaymentCompleted(ctx, pay)
	})
}

// EmitPaymentFailed emits a payment failed event.
func (r *Registry) EmitPaymentFailed(ctx context.Context, pay *payment.Payment, reason string) {
	emit(ctx, r, &r.onPaymentFailed, "OnPaymentFailed", func(p OnPaymentFailed) error {
		return p.OnPaymentFailed(ctx, pay, reason)
	})
}

// EmitPaymentRefunded emits a payment refunded event.
func (r *Registry) EmitPaymentRefunded(ctx context.Context, pay *payment.Payment) {
	emit(ctx, r, &r.onPaymentRefunded, "OnPaymentRefunded", func(p OnPaymentRefunded) error {
		return p.OnPaymentRefunded(ctx, pay)
	})
}

// EmitWebhookReceived emits a webhook received event.
func (r *Registry) EmitWebhookReceived(ctx context.Context, provider string, payload []byte) {
	emit(ctx, r, &r.onWebhookReceived, "OnWebhookReceived", func(p OnWebhookReceived) error {
		return p.OnWebhookReceived(ctx, provider, payload)
	})
}

// EmitEntitlementChecked emits an entitlement checked event.
func (r *Registry) EmitEntitlementChecked(ctx context.Context, userID string, result *entitlement.Result) {
	emit(ctx, r, &r.onEntitlementChecked, "OnEntitlementChecked", func(p OnEntitlementChecked) error {
		return p.OnEntitlementChecked(ctx, userID, result)
	})
}

// EmitLimitExceeded emits a limit exceeded event.
func (r *Registry) EmitLimitExceeded(ctx context.Context, userID, key string, used, limit int64) {
	emit(ctx, r, &r.onLimitExceeded, "OnLimitExceeded", func(p OnLimitExceeded) error {
		return p.OnLimitExceeded(ctx, userID, key, used, limit)
	})
}

// ValidateCoupon runs every CouponValidator and returns the first rejection.
// Unlike the Emit methods, validator errors are returned to the caller.
func (r *Registry) ValidateCoupon(ctx context.Context, c *coupon.Coupon, userID string, p *plan.Plan) error {
	r.mu.RLock()
	validators := r.couponValidators
	r.mu.RUnlock()

	for _, v := range validators {
		if err := r.callWithTimeout(ctx, v.Name(), func() error {
			return v.ValidateCoupon(ctx, c, userID, p)
		}); err != nil {
			return fmt.Errorf("plugin %s: %w", v.Name(), err)
		}
	}
	return nil
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the billing pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("plugin panic: %s: %v", pluginName, rec)
			}
		}()
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
