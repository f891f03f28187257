package store

import (
	"context"
	"time"

	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/notify"
	"github.com/xraph/cashier/payment"
	"github.com/xraph/cashier/paymethod"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/settings"
	"github.com/xraph/cashier/subscription"
	"github.com/xraph/cashier/trial"
)

// Store is the unified storage interface for all cashier entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts. Semantics follow the per-package Store
// interfaces.
type Store interface {
	// Plan methods
	CreatePlan(ctx context.Context, p *plan.Plan) error
	GetPlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error)
	GetPlanBySlug(ctx context.Context, slug string) (*plan.Plan, error)
	ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error)
	UpdatePlan(ctx context.Context, p *plan.Plan) error
	DeletePlan(ctx context.Context, planID id.PlanID) error
	ArchivePlan(ctx context.Context, planID id.PlanID) error

	// Subscription methods
	CreateSubscription(ctx context.Context, s *subscription.Subscription) error
	GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error)
	GetActiveSubscription(ctx context.Context, userID string) (*subscription.Subscription, error)
	ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error)
	UpdateSubscription(ctx context.Context, s *subscription.Subscription) error
	CancelSubscription(ctx context.Context, subID id.SubscriptionID, canceledAt time.Time) error
	ActivateSubscription(ctx context.Context, s *subscription.Subscription, mode subscription.Supersede) error

	// Trial methods
	CreateTrial(ctx context.Context, t *trial.Trial) error
	GetTrial(ctx context.Context, trialID id.TrialID) (*trial.Trial, error)
	GetTrialByUser(ctx context.Context, userID string) (*trial.Trial, error)
	ListTrials(ctx context.Context, opts trial.ListOpts) ([]*trial.Trial, error)
	UpdateTrial(ctx context.Context, t *trial.Trial) error

	// Coupon methods
	CreateCoupon(ctx context.Context, c *coupon.Coupon) error
	GetCoupon(ctx context.Context, code string) (*coupon.Coupon, error)
	GetCouponByID(ctx context.Context, couponID id.CouponID) (*coupon.Coupon, error)
	ListCoupons(ctx context.Context, opts coupon.ListOpts) ([]*coupon.Coupon, error)
	UpdateCoupon(ctx context.Context, c *coupon.Coupon) error
	DeleteCoupon(ctx context.Context, couponID id.CouponID) error
	RedeemCoupon(ctx context.Context, couponID id.CouponID, now time.Time) (*coupon.Coupon, error)
	ReleaseCoupon(ctx context.Context, couponID id.CouponID) error

	// Payment methods
	CreatePayment(ctx context.Context, p *payment.Payment) error
	GetPayment(ctx context.Context, paymentID id.PaymentID) (*payment.Payment, error)
	GetPaymentByReference(ctx context.Context, gatewayRef string) (*payment.Payment, error)
	ListPayments(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error)
	MarkPaymentCompleted(ctx context.Context, paymentID id.PaymentID, gatewayRef string, paidAt time.Time) error
	MarkPaymentFailed(ctx context.Context, paymentID id.PaymentID, reason string, at time.Time) error
	MarkPaymentRefunded(ctx context.Context, paymentID id.PaymentID, refundedAt time.Time) error
	SetPaymentSubscription(ctx context.Context, paymentID id.PaymentID, subID id.SubscriptionID) error

	// Payment-method config methods
	UpsertPaymentMethod(ctx context.Context, c *paymethod.Config) error
	GetPaymentMethod(ctx context.Context, code string) (*paymethod.Config, error)
	ListPaymentMethods(ctx context.Context, enabledOnly bool) ([]*paymethod.Config, error)
	DeletePaymentMethod(ctx context.Context, code string) error

	// Usage methods
	IncrementUsage(ctx context.Context, userID, key string, window time.Time, delta, limit int64) (int64, error)
	GetUsage(ctx context.Context, userID, key string, window time.Time) (int64, error)
	PurgeUsage(ctx context.Context, before time.Time) (int64, error)

	// Notification methods
	notify.Store

	// Settings methods
	settings.Store

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
