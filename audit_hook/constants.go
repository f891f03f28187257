package audithook

// Action constants for audit events.
const (
	// Plan actions
	ActionPlanCreated  = "plan.created"
	ActionPlanUpdated  = "plan.updated"
	ActionPlanArchived = "plan.archived"

	// Subscription actions
	ActionSubscriptionActivated = "subscription.activated"
	ActionSubscriptionCanceled  = "subscription.canceled"
	ActionSubscriptionExpired   = "subscription.expired"
	ActionSubscriptionExpiring  = "subscription.expiring"

	// Trial actions
	ActionTrialStarted   = "trial.started"
	ActionTrialExpired   = "trial.expired"
	ActionTrialConverted = "trial.converted"

	// Coupon actions
	ActionCouponRedeemed = "coupon.redeemed"

	// Payment actions
	ActionPaymentCreated   = "payment.created"
	ActionPaymentCompleted = "payment.completed"
	ActionPaymentFailed    = "payment.failed"
	ActionPaymentRefunded  = "payment.refunded"

	// Entitlement actions
	ActionEntitlementDenied = "entitlement.denied"
	ActionQuotaExceeded     = "quota.exceeded"

	// Gateway actions
	ActionWebhookReceived = "webhook.received"
)

// Resource constants for audit events.
const (
	ResourcePlan         = "plan"
	ResourceSubscription = "subscription"
	ResourceTrial        = "trial"
	ResourceCoupon       = "coupon"
	ResourcePayment      = "payment"
	ResourceEntitlement  = "entitlement"
	ResourceWebhook      = "webhook"
)

// Category constants for audit events.
const (
	CategoryCatalog      = "catalog"
	CategorySubscription = "subscription"
	CategoryPromotion    = "promotion"
	CategoryAccess       = "access"
	CategoryPayment      = "payment"
	CategoryIntegration  = "integration"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
