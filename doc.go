// Package cashier is a subscription and billing engine for a matchmaking
// platform.
//
// Cashier is a library. The host application owns users and calls the
// engine with opaque user ids. It provides:
//
//   - A tiered plan catalog with boolean features and daily or monthly limits
//   - Checkout quotes with plan discounts, coupons and payment-method fees
//   - One free trial per user, converted by the first paid purchase
//   - Atomic usage counters that never exceed a plan limit
//   - Expiry sweeps, expiry reminders and templated notifications
//   - Signed payment-gateway webhooks
//
// # Quick Start
//
//	st := memory.New()
//	c := cashier.New(st, cashier.WithLogger(slog.Default()))
//	if err := c.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Stop()
//
//	if _, err := c.SeedCatalog(ctx, nil); err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := c.SeedPaymentMethods(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Purchases
//
// Checkout creates a pending payment. The gateway reports the outcome
// through a signed webhook, which lands in HandleWebhook:
//
//	p, err := c.Checkout(ctx, cashier.CheckoutRequest{
//	    UserID:     "user-42",
//	    PlanSlug:   "premium",
//	    CouponCode: "SAVE20",
//	    Method:     "visa",
//	    Country:    "SA",
//	})
//
// Completing a payment ends whatever the user held before, including a
// trial, and activates the purchased plan for its billing period.
//
// # Access
//
// Access returns a cached snapshot of the user's plan. Users without an
// active subscription or trial fall back to the free plan:
//
//	r, err := c.ConsumeLimit(ctx, "user-42", plan.LimitDailyLikes, 1)
//	if errors.Is(err, cashier.ErrQuotaExceeded) {
//	    // r.ResetsAt says when the counter starts over
//	}
//
// # Money
//
// All amounts are integer minor units (halalas for SAR). Percentages are
// basis points, so 290 is 2.9%.
package cashier
