package cashier_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/cashier"
	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/entitlement"
	"github.com/xraph/cashier/notify"
	"github.com/xraph/cashier/payment"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/settings"
	"github.com/xraph/cashier/store/memory"
	"github.com/xraph/cashier/subscription"
	"github.com/xraph/cashier/trial"
	"github.com/xraph/cashier/types"
	"github.com/xraph/cashier/webhook"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type expiringRecorder struct {
	mu   sync.Mutex
	subs []string
}

func (r *expiringRecorder) Name() string { return "expiring-recorder" }

func (r *expiringRecorder) OnSubscriptionExpiring(_ context.Context, sub *subscription.Subscription, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, sub.ID.String())
	return nil
}

type harness struct {
	c     *cashier.Cashier
	store *memory.Store
	clock *clock
}

func newHarness(t *testing.T, opts ...cashier.Option) *harness {
	t.Helper()

	st := memory.New()
	clk := &clock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	opts = append([]cashier.Option{
		cashier.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		cashier.WithClock(clk.Now),
		cashier.WithEntitlementCache(nil),
	}, opts...)

	c := cashier.New(st, opts...)
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() { _ = c.Stop() })

	_, err := c.SeedCatalog(ctx, nil)
	require.NoError(t, err)
	_, err = c.SeedPaymentMethods(ctx)
	require.NoError(t, err)

	return &harness{c: c, store: st, clock: clk}
}

func (h *harness) goldPlan(t *testing.T) *plan.Plan {
	t.Helper()
	p := &plan.Plan{
		Name:          "Gold",
		Slug:          "gold",
		Price:         types.SAR(10000),
		BillingPeriod: plan.BillingMonthly,
		Tier:          5,
		Features:      map[string]bool{plan.FeatureSendMessages: true},
		Limits: map[string]plan.Limit{
			plan.LimitDailyLikes: {Max: 3, Period: plan.PeriodDaily},
		},
	}
	require.NoError(t, h.c.CreatePlan(context.Background(), p))
	return p
}

func (h *harness) coupon(t *testing.T, code string, percent int64, maxUses int) *coupon.Coupon {
	t.Helper()
	cp := &coupon.Coupon{
		Code:    code,
		Type:    coupon.CouponTypePercentage,
		Percent: types.Percent(percent),
		MaxUses: maxUses,
		Active:  true,
	}
	require.NoError(t, h.c.CreateCoupon(context.Background(), cp))
	return cp
}

func (h *harness) buy(t *testing.T, userID, slug string) *subscription.Subscription {
	t.Helper()
	ctx := context.Background()
	p, err := h.c.Checkout(ctx, cashier.CheckoutRequest{UserID: userID, PlanSlug: slug, Method: "visa", Country: "SA"})
	require.NoError(t, err)
	sub, err := h.c.CompletePayment(ctx, p.ID, "gw-"+p.ID.String())
	require.NoError(t, err)
	return sub
}

func TestCheckoutWithCoupon(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	gold := h.goldPlan(t)
	h.coupon(t, "save20", 20, 10)

	q, err := h.c.Quote(ctx, cashier.QuoteRequest{PlanID: gold.ID, CouponCode: "SAVE20", Method: "visa"})
	require.NoError(t, err)
	assert.Equal(t, int64(8000), q.Subtotal.Amount)
	assert.Equal(t, int64(232), q.Fee.Amount)
	assert.Equal(t, int64(8232), q.Total.Amount)

	p, err := h.c.Checkout(ctx, cashier.CheckoutRequest{
		UserID:     "u1",
		PlanID:     gold.ID,
		CouponCode: "save20",
		Method:     "visa",
		Country:    "SA",
	})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, p.Status)
	assert.Equal(t, "SAR 82.32", p.Amount.String())
	assert.Equal(t, "SAVE20", p.CouponCode)

	cp, err := h.c.GetCoupon(ctx, "SAVE20")
	require.NoError(t, err)
	assert.Equal(t, 1, cp.UsedCount)

	sub, err := h.c.CompletePayment(ctx, p.ID, "gw-1")
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, sub.Status)
	assert.Equal(t, h.clock.Now().Add(30*24*time.Hour), sub.ExpiresAt)

	paid, err := h.c.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusCompleted, paid.Status)
	assert.Equal(t, sub.ID.String(), paid.SubscriptionID.String())

	snap, err := h.c.Access(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "gold", snap.PlanSlug)
	assert.True(t, snap.HasFeature(plan.FeatureSendMessages))

	status, err := h.c.Status(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, subscription.UserActive, status)
}

func TestCheckoutRequiresMethodForPaidPlan(t *testing.T) {
	h := newHarness(t)
	_, err := h.c.Checkout(context.Background(), cashier.CheckoutRequest{UserID: "u1", PlanSlug: "premium"})
	assert.True(t, cashier.IsValidation(err), "got %v", err)
}

func TestFixedCouponCurrency(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.c.CreateCoupon(ctx, &coupon.Coupon{
		Code: "USD50", Type: coupon.CouponTypeFixed, Amount: types.USD(5000), Active: true,
	}))
	require.NoError(t, h.c.CreateCoupon(ctx, &coupon.Coupon{
		Code: "SAR50", Type: coupon.CouponTypeFixed, Amount: types.Money{Amount: 5000}, Active: true,
	}))

	_, err := h.c.Quote(ctx, cashier.QuoteRequest{PlanSlug: "premium", CouponCode: "USD50", Method: "visa"})
	assert.ErrorIs(t, err, cashier.ErrCouponNotApplicable)

	q, err := h.c.Quote(ctx, cashier.QuoteRequest{PlanSlug: "premium", CouponCode: "SAR50", Method: "visa"})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), q.CouponDiscount.Amount)
}

func TestCheckoutMethodCountry(t *testing.T) {
	h := newHarness(t)
	_, err := h.c.Checkout(context.Background(), cashier.CheckoutRequest{
		UserID: "u1", PlanSlug: "premium", Method: "mada", Country: "AE",
	})
	assert.ErrorIs(t, err, cashier.ErrPaymentMethodUnsupported)

	_, err = h.c.Checkout(context.Background(), cashier.CheckoutRequest{
		UserID: "u1", PlanSlug: "premium", Method: "mada",
	})
	assert.ErrorIs(t, err, cashier.ErrPaymentMethodUnsupported)
}

func TestFreeCheckoutCompletesImmediately(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.coupon(t, "FREEMONTH", 100, 0)

	p, err := h.c.Checkout(ctx, cashier.CheckoutRequest{UserID: "u1", PlanSlug: "premium", CouponCode: "FREEMONTH"})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusCompleted, p.Status)
	assert.True(t, p.Amount.IsZero())

	sub, err := h.c.GetActiveSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, p.SubscriptionID.String(), sub.ID.String())
}

func TestFailPaymentReleasesCoupon(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.coupon(t, "ONCE", 10, 1)

	p, err := h.c.Checkout(ctx, cashier.CheckoutRequest{UserID: "u1", PlanSlug: "basic", CouponCode: "ONCE", Method: "visa"})
	require.NoError(t, err)

	_, err = h.c.Checkout(ctx, cashier.CheckoutRequest{UserID: "u2", PlanSlug: "basic", CouponCode: "ONCE", Method: "visa"})
	assert.ErrorIs(t, err, cashier.ErrCouponExhausted)

	require.NoError(t, h.c.FailPayment(ctx, p.ID, "card declined"))
	assert.ErrorIs(t, h.c.FailPayment(ctx, p.ID, "again"), cashier.ErrPaymentNotPending)

	cp, err := h.c.GetCoupon(ctx, "ONCE")
	require.NoError(t, err)
	assert.Equal(t, 0, cp.UsedCount)

	_, err = h.c.Checkout(ctx, cashier.CheckoutRequest{UserID: "u2", PlanSlug: "basic", CouponCode: "ONCE", Method: "visa"})
	assert.NoError(t, err)
}

func TestTrialLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	status, err := h.c.Status(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, subscription.UserNew, status)

	tr, err := h.c.StartTrial(ctx, "u1", "premium")
	require.NoError(t, err)
	assert.Equal(t, h.clock.Now().AddDate(0, 0, 7), tr.ExpiresAt)

	snap, err := h.c.Access(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, snap.IsTrial)
	assert.Equal(t, "premium", snap.PlanSlug)
	assert.Equal(t, subscription.UserActive, snap.Status)

	_, err = h.c.StartTrial(ctx, "u1", "basic")
	assert.ErrorIs(t, err, cashier.ErrTrialAlreadyUsed)

	h.clock.Advance(8 * 24 * time.Hour)
	n, err := h.c.ExpireTrials(ctx, h.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	status, err = h.c.Status(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, subscription.UserTrialExpired, status)

	snap, err = h.c.Access(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "free", snap.PlanSlug)
	assert.False(t, snap.IsTrial)

	h.buy(t, "u1", "premium")
	status, err = h.c.Status(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, subscription.UserActive, status)

	h.clock.Advance(31 * 24 * time.Hour)
	n, err = h.c.ExpireSubscriptions(ctx, h.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	status, err = h.c.Status(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, subscription.UserSubscriptionExpired, status)
}

func TestTrialConvertedByPurchase(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.c.StartTrial(ctx, "u1", "basic")
	require.NoError(t, err)

	sub := h.buy(t, "u1", "vip")

	tr, err := h.c.GetTrial(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, trial.StatusConverted, tr.Status)
	assert.Equal(t, sub.ID.String(), tr.ConvertedSubscriptionID.String())

	active, err := h.c.ListSubscriptions(ctx, subscription.ListOpts{UserID: "u1", Status: subscription.StatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.False(t, active[0].IsTrial)

	_, err = h.c.StartTrial(ctx, "u2", "vip")
	assert.ErrorIs(t, err, cashier.ErrTrialNotAvailable)

	elig, err := h.c.TrialEligibility(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, elig.Eligible)
}

func TestStartTrialWithPaidSubscription(t *testing.T) {
	h := newHarness(t)
	h.buy(t, "u1", "basic")

	_, err := h.c.StartTrial(context.Background(), "u1", "premium")
	assert.ErrorIs(t, err, cashier.ErrTrialNotEligible)
}

// slowStore widens the gap between reading and writing subscriptions, as
// a networked database would.
type slowStore struct {
	*memory.Store
}

func (s slowStore) ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	time.Sleep(20 * time.Millisecond)
	return s.Store.ListSubscriptions(ctx, opts)
}

func newSlowEngine(t *testing.T) *cashier.Cashier {
	t.Helper()
	ctx := context.Background()
	c := cashier.New(slowStore{memory.New()},
		cashier.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		cashier.WithEntitlementCache(nil),
	)
	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() { _ = c.Stop() })
	_, err := c.SeedCatalog(ctx, nil)
	require.NoError(t, err)
	_, err = c.SeedPaymentMethods(ctx)
	require.NoError(t, err)
	return c
}

func TestCompletePaymentConcurrent(t *testing.T) {
	c := newSlowEngine(t)
	ctx := context.Background()

	var pending []*payment.Payment
	for range 2 {
		p, err := c.Checkout(ctx, cashier.CheckoutRequest{UserID: "u1", PlanSlug: "premium", Method: "visa", Country: "SA"})
		require.NoError(t, err)
		pending = append(pending, p)
	}

	var wg sync.WaitGroup
	for _, p := range pending {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.CompletePayment(ctx, p.ID, "gw-"+p.ID.String())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	active, err := c.ListSubscriptions(ctx, subscription.ListOpts{UserID: "u1", Status: subscription.StatusActive})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestStartTrialRacingPurchase(t *testing.T) {
	c := newSlowEngine(t)
	ctx := context.Background()

	p, err := c.Checkout(ctx, cashier.CheckoutRequest{UserID: "u1", PlanSlug: "vip", Method: "visa", Country: "SA"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var trialErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, trialErr = c.StartTrial(ctx, "u1", "premium")
	}()
	go func() {
		defer wg.Done()
		_, err := c.CompletePayment(ctx, p.ID, "gw-1")
		assert.NoError(t, err)
	}()
	wg.Wait()

	if trialErr != nil {
		assert.ErrorIs(t, trialErr, cashier.ErrTrialNotEligible)
	}
	active, err := c.ListSubscriptions(ctx, subscription.ListOpts{UserID: "u1", Status: subscription.StatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.False(t, active[0].IsTrial)
}

func TestConsumeLimit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		r, err := h.c.ConsumeLimit(ctx, "u1", plan.LimitDailyLikes, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(9-i), r.Remaining)
	}

	r, err := h.c.ConsumeLimit(ctx, "u1", plan.LimitDailyLikes, 1)
	require.ErrorIs(t, err, cashier.ErrQuotaExceeded)
	assert.False(t, r.Allowed)
	assert.Equal(t, int64(10), r.Used)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), r.ResetsAt)

	check, err := h.c.CheckLimit(ctx, "u1", plan.LimitDailyLikes)
	require.NoError(t, err)
	assert.False(t, check.Allowed)
	assert.Equal(t, int64(10), check.Used)

	_, err = h.c.ConsumeLimit(ctx, "u1", plan.LimitDailyMessages, 1)
	assert.ErrorIs(t, err, cashier.ErrQuotaExceeded)

	_, err = h.c.ConsumeLimit(ctx, "u1", "unknown", 1)
	assert.ErrorIs(t, err, cashier.ErrUnknownLimit)

	_, err = h.c.ConsumeLimit(ctx, "u1", plan.LimitDailyLikes, 0)
	assert.True(t, cashier.IsValidation(err))

	h.clock.Advance(24 * time.Hour)
	_, err = h.c.ConsumeLimit(ctx, "u1", plan.LimitDailyLikes, 1)
	assert.NoError(t, err)
}

func TestConsumeLimitHugeCount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.c.ConsumeLimit(ctx, "u1", plan.LimitDailyLikes, 1)
	require.NoError(t, err)

	_, err = h.c.ConsumeLimit(ctx, "u1", plan.LimitDailyLikes, math.MaxInt64)
	assert.True(t, cashier.IsValidation(err))

	allowed := 0
	for range 20 {
		if _, err := h.c.ConsumeLimit(ctx, "u1", plan.LimitDailyLikes, 1); err == nil {
			allowed++
		}
	}
	assert.Equal(t, 9, allowed)
}

func TestConsumeUnlimited(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.buy(t, "u1", "vip")

	r, err := h.c.ConsumeLimit(ctx, "u1", plan.LimitDailyLikes, 500)
	require.NoError(t, err)
	assert.True(t, r.Unlimited)
	assert.Equal(t, int64(-1), r.Remaining)
}

func TestHasFeature(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	r, err := h.c.HasFeature(ctx, "u1", plan.FeatureSendMessages)
	require.NoError(t, err)
	assert.False(t, r.Allowed)
	assert.NotEmpty(t, r.Reason)

	h.buy(t, "u1", "basic")
	r, err = h.c.HasFeature(ctx, "u1", plan.FeatureSendMessages)
	require.NoError(t, err)
	assert.True(t, r.Allowed)
}

func TestHandleWebhookIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p, err := h.c.Checkout(ctx, cashier.CheckoutRequest{UserID: "u1", PlanSlug: "premium", Method: "visa"})
	require.NoError(t, err)

	ev := &webhook.Event{Type: webhook.PaymentSucceeded, PaymentID: p.ID, GatewayRef: "gw-77"}
	require.NoError(t, h.c.HandleWebhook(ctx, ev))
	require.NoError(t, h.c.HandleWebhook(ctx, ev))

	active, err := h.c.ListSubscriptions(ctx, subscription.ListOpts{UserID: "u1", Status: subscription.StatusActive})
	require.NoError(t, err)
	assert.Len(t, active, 1)

	err = h.c.HandleWebhook(ctx, &webhook.Event{Type: webhook.PaymentFailed, PaymentID: p.ID})
	assert.ErrorIs(t, err, cashier.ErrPaymentNotPending)

	refund := &webhook.Event{Type: webhook.PaymentRefunded, GatewayRef: "gw-77"}
	require.NoError(t, h.c.HandleWebhook(ctx, refund))
	require.NoError(t, h.c.HandleWebhook(ctx, refund))

	sub, err := h.c.GetSubscription(ctx, active[0].ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusCanceled, sub.Status)
	assert.Equal(t, p.ID.String(), sub.Metadata[subscription.MetaRefunded])

	_, err = h.c.GetActiveSubscription(ctx, "u1")
	assert.ErrorIs(t, err, cashier.ErrNoActiveSubscription)
}

func TestDeletePlanInUse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	gold := h.goldPlan(t)

	h.buy(t, "u1", "gold")
	assert.ErrorIs(t, h.c.DeletePlan(ctx, gold.ID), cashier.ErrPlanInUse)

	require.NoError(t, h.c.ArchivePlan(ctx, gold.ID))
	_, err := h.c.Quote(ctx, cashier.QuoteRequest{PlanSlug: "gold"})
	assert.ErrorIs(t, err, cashier.ErrPlanArchived)

	snap, err := h.c.Access(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "gold", snap.PlanSlug)
}

func TestSeedCatalogIsIdempotent(t *testing.T) {
	h := newHarness(t)
	n, err := h.c.SeedCatalog(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	plans, err := h.c.ListPlans(context.Background(), plan.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, plans, 5)
}

func TestExpiryRemindersOnce(t *testing.T) {
	rec := &expiringRecorder{}
	h := newHarness(t, cashier.WithPlugin(rec))
	ctx := context.Background()

	sub := h.buy(t, "u1", "basic")

	n, err := h.c.SendExpiryReminders(ctx, h.clock.Now())
	require.NoError(t, err)
	assert.Zero(t, n)

	h.clock.Advance(28 * 24 * time.Hour)
	n, err = h.c.SendExpiryReminders(ctx, h.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = h.c.SendExpiryReminders(ctx, h.clock.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []string{sub.ID.String()}, rec.subs)

	_, err = h.c.ExtendSubscription(ctx, sub.ID, 30)
	require.NoError(t, err)
	h.clock.Advance(30 * 24 * time.Hour)
	n, err = h.c.SendExpiryReminders(ctx, h.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReminderDaysFromSettings(t *testing.T) {
	h := newHarness(t, cashier.WithReminderDays(1))
	ctx := context.Background()
	h.buy(t, "u1", "basic")
	h.clock.Advance(26 * 24 * time.Hour)

	n, err := h.c.SendExpiryReminders(ctx, h.clock.Now())
	require.NoError(t, err)
	assert.Zero(t, n)

	raw, err := json.Marshal(settings.EmailSettings{ReminderDays: 7})
	require.NoError(t, err)
	_, err = h.c.PutSetting(ctx, settings.KeyEmail, raw)
	require.NoError(t, err)

	n, err = h.c.SendExpiryReminders(ctx, h.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPutSettingValidatesKnownKeys(t *testing.T) {
	h := newHarness(t)
	_, err := h.c.PutSetting(context.Background(), settings.KeyEmail, json.RawMessage(`{"enabled":"yes"}`))
	assert.True(t, cashier.IsValidation(err))

	_, err = h.c.PutSetting(context.Background(), "custom", json.RawMessage(`{"anything":1}`))
	assert.NoError(t, err)
}

func TestTemplates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	all, err := h.c.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(notify.Types()))

	err = h.c.UpsertTemplate(ctx, &notify.Template{Type: notify.TypeWelcome, Subject: "{{.Broken", TextBody: "x"})
	assert.True(t, cashier.IsValidation(err))

	require.NoError(t, h.c.UpsertTemplate(ctx, &notify.Template{
		Type: notify.TypeWelcome, Subject: "Hello {{.Name}}", TextBody: "Welcome aboard", Enabled: true,
	}))
	tpl, err := h.c.GetTemplate(ctx, notify.TypeWelcome)
	require.NoError(t, err)
	assert.Equal(t, "Hello {{.Name}}", tpl.Subject)

	require.NoError(t, h.c.DeleteTemplate(ctx, notify.TypeWelcome))
	tpl, err = h.c.GetTemplate(ctx, notify.TypeWelcome)
	require.NoError(t, err)
	assert.NotEqual(t, "Hello {{.Name}}", tpl.Subject)
}

func TestNotifierPlugin(t *testing.T) {
	st := memory.New()
	c := cashier.New(st,
		cashier.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		cashier.WithPlugin(notify.NewNotifier(st)),
	)
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	_, err := c.SeedCatalog(ctx, nil)
	require.NoError(t, err)

	_, err = c.StartTrial(ctx, "u1", "premium")
	require.NoError(t, err)

	list, err := c.ListNotifications(ctx, "u1", notify.NotificationOpts{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, notify.TypeTrialStarted, list[0].Type)

	require.NoError(t, c.MarkNotificationRead(ctx, "u1", list[0].ID))
	unread, err := c.ListNotifications(ctx, "u1", notify.NotificationOpts{UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestPurgeUsage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.c.ConsumeLimit(ctx, "u1", plan.LimitDailyLikes, 1)
	require.NoError(t, err)

	h.clock.Advance(3 * 24 * time.Hour)
	n, err := h.c.PurgeUsage(ctx, h.clock.Now().AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

type brokenMigrations struct {
	*memory.Store
}

func (brokenMigrations) Migrate(context.Context) error {
	return errors.New("relation already exists")
}

func TestStartReportsMigrationFailure(t *testing.T) {
	c := cashier.New(brokenMigrations{memory.New()},
		cashier.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	err := c.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, cashier.ErrMigrationFailed)
	assert.Contains(t, err.Error(), "relation already exists")
}

func TestSweepAccessCache(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t,
		cashier.WithEntitlementCache(entitlement.NewMemoryCache()),
		cashier.WithAccessCacheTTL(time.Millisecond),
	)

	for _, user := range []string{"u1", "u2"} {
		_, err := h.c.Access(ctx, user)
		require.NoError(t, err)
	}
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, 2, h.c.SweepAccessCache())
	assert.Equal(t, 0, h.c.SweepAccessCache())
}

func TestSweepAccessCacheWithoutLocalCache(t *testing.T) {
	h := newHarness(t)

	_, err := h.c.Access(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, h.c.SweepAccessCache())
}
