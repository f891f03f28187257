package cashier

import (
	"errors"
	"fmt"

	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/entitlement"
	"github.com/xraph/cashier/notify"
	"github.com/xraph/cashier/settings"
	"github.com/xraph/cashier/webhook"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("cashier: not found")
	ErrAlreadyExists = errors.New("cashier: already exists")
	ErrInvalidInput  = errors.New("cashier: invalid input")
	ErrUnauthorized  = errors.New("cashier: unauthorized")
	ErrForbidden     = errors.New("cashier: forbidden")

	// Plan errors
	ErrPlanNotFound = errors.New("cashier: plan not found")
	ErrPlanArchived = errors.New("cashier: plan is archived")
	ErrPlanInUse    = errors.New("cashier: plan is in use by subscriptions")
	ErrSlugTaken    = errors.New("cashier: plan slug already taken")

	// Subscription errors
	ErrSubscriptionNotFound = errors.New("cashier: subscription not found")
	ErrSubscriptionCanceled = errors.New("cashier: subscription is canceled")
	ErrSubscriptionExpired  = errors.New("cashier: subscription is expired")
	ErrNoActiveSubscription = errors.New("cashier: no active subscription")
	ErrSubscriptionActive   = errors.New("cashier: user already has an active subscription")

	// Trial errors
	ErrTrialNotFound     = errors.New("cashier: trial not found")
	ErrTrialAlreadyUsed  = errors.New("cashier: trial already used")
	ErrTrialNotAvailable = errors.New("cashier: plan has no trial")
	ErrTrialNotEligible  = errors.New("cashier: user already has an active subscription")

	// Coupon errors. Validation failures share identity with the coupon
	// package so that coupon.Validate results match with errors.Is.
	ErrCouponNotFound      = errors.New("cashier: coupon not found")
	ErrCouponInactive      = coupon.ErrInactive
	ErrCouponNotStarted    = coupon.ErrNotStarted
	ErrCouponExpired       = coupon.ErrExpired
	ErrCouponExhausted     = coupon.ErrExhausted
	ErrCouponNotApplicable = coupon.ErrNotApplicable
	ErrCouponCodeTaken     = errors.New("cashier: coupon code already taken")

	// Payment errors
	ErrPaymentNotFound     = errors.New("cashier: payment not found")
	ErrPaymentNotPending   = errors.New("cashier: payment is not pending")
	ErrPaymentNotCompleted = errors.New("cashier: payment is not completed")

	// Payment method errors
	ErrPaymentMethodNotFound    = errors.New("cashier: payment method not found")
	ErrPaymentMethodDisabled    = errors.New("cashier: payment method disabled")
	ErrPaymentMethodUnsupported = errors.New("cashier: payment method does not support this country or amount")

	// Usage and entitlement errors
	ErrQuotaExceeded = errors.New("cashier: quota exceeded")
	ErrUnknownLimit  = errors.New("cashier: unknown limit")

	// Notification errors
	ErrTemplateNotFound     = notify.ErrTemplateNotFound
	ErrNotificationNotFound = notify.ErrNotificationNotFound
	ErrSettingNotFound      = settings.ErrNotFound

	// Webhook errors
	ErrWebhookSignature = webhook.ErrSignature
	ErrWebhookExpired   = webhook.ErrExpired
	ErrWebhookEvent     = webhook.ErrUnknownEvent

	// Store errors
	ErrStoreNotReady     = errors.New("cashier: store not ready")
	ErrStoreClosed       = errors.New("cashier: store is closed")
	ErrTransactionFailed = errors.New("cashier: transaction failed")
	ErrMigrationFailed   = errors.New("cashier: migration failed")

	// Cache errors
	ErrCacheMiss = entitlement.ErrCacheMiss
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("cashier: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match any ValidationError.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "cashier: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("cashier: %d errors occurred", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// ErrOrNil returns e when it holds errors, nil otherwise.
func (e MultiError) ErrOrNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrTrialNotFound) ||
		errors.Is(err, ErrCouponNotFound) ||
		errors.Is(err, ErrPaymentNotFound) ||
		errors.Is(err, ErrPaymentMethodNotFound) ||
		errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrNotificationNotFound) ||
		errors.Is(err, ErrSettingNotFound) ||
		errors.Is(err, ErrNoActiveSubscription)
}

// IsValidation returns true if the error rejects caller input.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrCouponInactive) ||
		errors.Is(err, ErrCouponNotStarted) ||
		errors.Is(err, ErrCouponExpired) ||
		errors.Is(err, ErrCouponNotApplicable) ||
		errors.Is(err, ErrPlanArchived) ||
		errors.Is(err, ErrTrialNotAvailable) ||
		errors.Is(err, ErrPaymentMethodDisabled) ||
		errors.Is(err, ErrPaymentMethodUnsupported) ||
		errors.Is(err, ErrUnknownLimit) ||
		errors.Is(err, ErrWebhookEvent)
}

// IsConflict returns true if the error reports a state change that lost a
// race or was already applied.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrSlugTaken) ||
		errors.Is(err, ErrCouponCodeTaken) ||
		errors.Is(err, ErrCouponExhausted) ||
		errors.Is(err, ErrTrialAlreadyUsed) ||
		errors.Is(err, ErrTrialNotEligible) ||
		errors.Is(err, ErrSubscriptionActive) ||
		errors.Is(err, ErrPaymentNotPending) ||
		errors.Is(err, ErrPaymentNotCompleted) ||
		errors.Is(err, ErrPlanInUse)
}

// IsQuotaError returns true if the error is related to quota/limits.
func IsQuotaError(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

// IsAuthError returns true for authentication and authorization failures.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrWebhookSignature) ||
		errors.Is(err, ErrWebhookExpired)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}
