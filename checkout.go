package cashier

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/payment"
	"github.com/xraph/cashier/paymethod"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/pricing"
	"github.com/xraph/cashier/subscription"
	"github.com/xraph/cashier/trial"
	"github.com/xraph/cashier/types"
	"github.com/xraph/cashier/webhook"
)

// QuoteRequest prices a plan purchase. Either PlanID or PlanSlug selects
// the plan. UserID is optional and only feeds CouponValidator plugins.
type QuoteRequest struct {
	PlanID     id.PlanID `json:"plan_id"`
	PlanSlug   string    `json:"plan_slug,omitempty"`
	CouponCode string    `json:"coupon_code,omitempty"`
	Method     string    `json:"method,omitempty"`
	UserID     string    `json:"-"`
}

// CheckoutRequest starts a purchase.
type CheckoutRequest struct {
	UserID     string            `json:"-"`
	PlanID     id.PlanID         `json:"plan_id"`
	PlanSlug   string            `json:"plan_slug,omitempty"`
	CouponCode string            `json:"coupon_code,omitempty"`
	Method     string            `json:"method,omitempty"`
	Country    string            `json:"country,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type priced struct {
	plan   *plan.Plan
	coupon *coupon.Coupon
	method *paymethod.Config
	quote  pricing.Quote
}

// ──────────────────────────────────────────────────
// Quotes
// ──────────────────────────────────────────────────

// Quote prices a purchase without side effects.
func (c *Cashier) Quote(ctx context.Context, req QuoteRequest) (*pricing.Quote, error) {
	pr, err := c.price(ctx, req, c.Now())
	if err != nil {
		return nil, err
	}
	return &pr.quote, nil
}

func (c *Cashier) price(ctx context.Context, req QuoteRequest, now time.Time) (*priced, error) {
	p, err := c.purchasablePlan(ctx, req.PlanID, req.PlanSlug)
	if err != nil {
		return nil, err
	}
	pr := &priced{plan: p}

	if code := strings.TrimSpace(req.CouponCode); code != "" {
		if pr.coupon, err = c.checkCoupon(ctx, code, req.UserID, p, now); err != nil {
			return nil, err
		}
	}

	if req.Method != "" {
		m, err := c.GetPaymentMethod(ctx, req.Method)
		if err != nil {
			return nil, err
		}
		if !m.Enabled {
			return nil, ErrPaymentMethodDisabled
		}
		pr.method = m
	}

	pr.quote, err = pricing.Compute(pricing.QuoteInput{
		Plan:   p,
		Coupon: pr.coupon,
		Method: pr.method,
		Now:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return pr, nil
}

func (c *Cashier) purchasablePlan(ctx context.Context, planID id.PlanID, slug string) (*plan.Plan, error) {
	var (
		p   *plan.Plan
		err error
	)
	switch {
	case !planID.IsNil():
		p, err = c.store.GetPlan(ctx, planID)
	case slug != "":
		p, err = c.GetPlanBySlug(ctx, slug)
	default:
		return nil, ValidationError{Field: "plan", Message: "plan_id or plan_slug is required"}
	}
	if err != nil {
		return nil, err
	}
	if p.Status != plan.StatusActive {
		return nil, ErrPlanArchived
	}
	return p, nil
}

// ──────────────────────────────────────────────────
// Checkout
// ──────────────────────────────────────────────────

// Checkout creates a pending payment for a plan purchase. The coupon, if
// any, is redeemed atomically here and released again if the payment fails.
// A purchase that totals zero completes immediately.
func (c *Cashier) Checkout(ctx context.Context, req CheckoutRequest) (*payment.Payment, error) {
	if req.UserID == "" {
		return nil, ValidationError{Field: "user_id", Message: "required"}
	}
	now := c.Now()

	pr, err := c.price(ctx, QuoteRequest{
		PlanID:     req.PlanID,
		PlanSlug:   req.PlanSlug,
		CouponCode: req.CouponCode,
		Method:     req.Method,
		UserID:     req.UserID,
	}, now)
	if err != nil {
		return nil, err
	}
	q := pr.quote

	if q.Total.IsPositive() {
		if pr.method == nil {
			return nil, ValidationError{Field: "method", Message: "required for a paid plan"}
		}
		if !pr.method.Supports(req.Country, q.Total) {
			return nil, ErrPaymentMethodUnsupported
		}
	}

	if pr.coupon != nil {
		redeemed, err := c.store.RedeemCoupon(ctx, pr.coupon.ID, now)
		if err != nil {
			return nil, err
		}
		pr.coupon = redeemed
	}

	p := &payment.Payment{
		Entity:     types.NewEntityAt(now),
		ID:         id.NewPaymentID(),
		UserID:     req.UserID,
		PlanID:     pr.plan.ID,
		Amount:     q.Total,
		Subtotal:   q.Subtotal,
		Fee:        q.Fee,
		Discount:   q.Discount(),
		Currency:   q.Total.Currency,
		Method:     q.Method,
		Status:     payment.StatusPending,
		CouponCode: q.CouponCode,
		LineItems:  q.LineItems,
		Metadata:   maps.Clone(req.Metadata),
	}
	if pr.coupon != nil {
		p.CouponID = pr.coupon.ID
	}

	if err := c.store.CreatePayment(ctx, p); err != nil {
		if pr.coupon != nil {
			c.releaseCoupon(ctx, pr.coupon.ID)
		}
		return nil, err
	}

	c.logger.Info("checkout started",
		"payment_id", p.ID.String(),
		"user_id", p.UserID,
		"plan", pr.plan.Slug,
		"total", p.Amount.String(),
	)

	c.plugins.EmitPaymentCreated(ctx, p)
	if pr.coupon != nil {
		c.plugins.EmitCouponRedeemed(ctx, pr.coupon, req.UserID)
	}

	if !q.Total.IsPositive() {
		if _, err := c.CompletePayment(ctx, p.ID, ""); err != nil {
			return nil, err
		}
		return c.store.GetPayment(ctx, p.ID)
	}
	return p, nil
}

func (c *Cashier) releaseCoupon(ctx context.Context, couponID id.CouponID) {
	if err := c.store.ReleaseCoupon(ctx, couponID); err != nil {
		c.logger.Error("failed to release coupon",
			"coupon_id", couponID.String(),
			"error", err,
		)
	}
}

// ──────────────────────────────────────────────────
// Payment outcomes
// ──────────────────────────────────────────────────

// GetPayment retrieves a payment by ID.
func (c *Cashier) GetPayment(ctx context.Context, paymentID id.PaymentID) (*payment.Payment, error) {
	return c.store.GetPayment(ctx, paymentID)
}

// ListPayments lists payments newest first.
func (c *Cashier) ListPayments(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	return c.store.ListPayments(ctx, opts)
}

// CompletePayment settles a pending payment and activates the purchased
// plan. Any subscription the user still holds, including a trial, ends so
// that at most one is ever active.
func (c *Cashier) CompletePayment(ctx context.Context, paymentID id.PaymentID, gatewayRef string) (*subscription.Subscription, error) {
	p, err := c.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	pl, err := c.store.GetPlan(ctx, p.PlanID)
	if err != nil {
		return nil, err
	}

	now := c.Now()
	if err := c.store.MarkPaymentCompleted(ctx, paymentID, gatewayRef, now); err != nil {
		return nil, err
	}
	p.Status = payment.StatusCompleted
	p.PaidAt = &now
	if gatewayRef != "" {
		p.GatewayRef = gatewayRef
	}

	sub := &subscription.Subscription{
		Entity:        types.NewEntityAt(now),
		ID:            id.NewSubscriptionID(),
		UserID:        p.UserID,
		PlanID:        pl.ID,
		Status:        subscription.StatusActive,
		StartsAt:      now,
		ExpiresAt:     now.Add(pl.Duration()),
		PaymentMethod: p.Method,
		PaymentRef:    p.GatewayRef,
		PaymentID:     p.ID,
	}
	if err := c.store.ActivateSubscription(ctx, sub, subscription.SupersedeAll); err != nil {
		return nil, err
	}
	if err := c.store.SetPaymentSubscription(ctx, p.ID, sub.ID); err != nil {
		return nil, err
	}
	p.SubscriptionID = sub.ID

	t, err := c.store.GetTrialByUser(ctx, p.UserID)
	switch {
	case err == nil && t.Status == trial.StatusActive:
		t.Status = trial.StatusConverted
		t.ConvertedSubscriptionID = sub.ID
		t.TouchAt(now)
		if err := c.store.UpdateTrial(ctx, t); err != nil {
			return nil, err
		}
		c.plugins.EmitTrialConverted(ctx, t, sub)
	case err != nil && !errors.Is(err, ErrTrialNotFound):
		return nil, err
	}

	c.invalidate(ctx, p.UserID)

	c.logger.Info("payment completed",
		"payment_id", p.ID.String(),
		"user_id", p.UserID,
		"subscription_id", sub.ID.String(),
		"expires_at", sub.ExpiresAt,
	)

	c.plugins.EmitPaymentCompleted(ctx, p)
	c.plugins.EmitSubscriptionActivated(ctx, sub)
	return sub, nil
}

// FailPayment marks a pending payment failed and gives back its coupon.
func (c *Cashier) FailPayment(ctx context.Context, paymentID id.PaymentID, reason string) error {
	p, err := c.store.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}

	now := c.Now()
	if err := c.store.MarkPaymentFailed(ctx, paymentID, reason, now); err != nil {
		return err
	}
	p.Status = payment.StatusFailed
	p.FailureReason = reason

	if !p.CouponID.IsNil() {
		c.releaseCoupon(ctx, p.CouponID)
	}

	c.logger.Warn("payment failed",
		"payment_id", p.ID.String(),
		"user_id", p.UserID,
		"reason", reason,
	)

	c.plugins.EmitPaymentFailed(ctx, p, reason)
	return nil
}

// RefundPayment marks a completed payment refunded and cancels the
// subscription it bought.
func (c *Cashier) RefundPayment(ctx context.Context, paymentID id.PaymentID) error {
	p, err := c.store.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}

	now := c.Now()
	if err := c.store.MarkPaymentRefunded(ctx, paymentID, now); err != nil {
		return err
	}
	p.Status = payment.StatusRefunded
	p.RefundedAt = &now

	if !p.SubscriptionID.IsNil() {
		sub, err := c.store.GetSubscription(ctx, p.SubscriptionID)
		if err != nil {
			return err
		}
		if sub.Status == subscription.StatusActive {
			sub.Status = subscription.StatusCanceled
			sub.CanceledAt = &now
			if sub.Metadata == nil {
				sub.Metadata = map[string]string{}
			}
			sub.Metadata[subscription.MetaRefunded] = p.ID.String()
			sub.TouchAt(now)
			if err := c.store.UpdateSubscription(ctx, sub); err != nil {
				return err
			}
			c.invalidate(ctx, sub.UserID)
			c.plugins.EmitSubscriptionCanceled(ctx, sub)
		}
	}

	c.logger.Info("payment refunded",
		"payment_id", p.ID.String(),
		"user_id", p.UserID,
	)

	c.plugins.EmitPaymentRefunded(ctx, p)
	return nil
}

// HandleWebhook applies a verified gateway event. Replaying an event that
// was already applied is a no-op.
func (c *Cashier) HandleWebhook(ctx context.Context, ev *webhook.Event) error {
	paymentID := ev.PaymentID
	if paymentID.IsNil() {
		p, err := c.store.GetPaymentByReference(ctx, ev.GatewayRef)
		if err != nil {
			return err
		}
		paymentID = p.ID
	}

	var (
		err    error
		target payment.Status
	)
	switch ev.Type {
	case webhook.PaymentSucceeded:
		target = payment.StatusCompleted
		_, err = c.CompletePayment(ctx, paymentID, ev.GatewayRef)
	case webhook.PaymentFailed:
		target = payment.StatusFailed
		err = c.FailPayment(ctx, paymentID, ev.Reason)
	case webhook.PaymentRefunded:
		target = payment.StatusRefunded
		err = c.RefundPayment(ctx, paymentID)
	default:
		return fmt.Errorf("%w: %q", ErrWebhookEvent, ev.Type)
	}

	if errors.Is(err, ErrPaymentNotPending) || errors.Is(err, ErrPaymentNotCompleted) {
		current, getErr := c.store.GetPayment(ctx, paymentID)
		if getErr == nil && current.Status == target {
			c.logger.Debug("webhook already applied",
				"payment_id", paymentID.String(),
				"type", ev.Type,
			)
			return nil
		}
	}
	return err
}
