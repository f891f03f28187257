package memory

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/cashier"
	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/notify"
	"github.com/xraph/cashier/payment"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/subscription"
	"github.com/xraph/cashier/trial"
	"github.com/xraph/cashier/types"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestPlans(t *testing.T) {
	ctx := context.Background()
	s := New()

	basic := &plan.Plan{ID: id.NewPlanID(), Slug: "basic", Tier: 1, Status: plan.StatusActive, Features: map[string]bool{"see_likes": true}}
	free := &plan.Plan{ID: id.NewPlanID(), Slug: "free", Tier: 0, Status: plan.StatusActive}
	require.NoError(t, s.CreatePlan(ctx, basic))
	require.NoError(t, s.CreatePlan(ctx, free))

	dup := &plan.Plan{ID: id.NewPlanID(), Slug: "basic"}
	assert.ErrorIs(t, s.CreatePlan(ctx, dup), cashier.ErrSlugTaken)

	list, err := s.ListPlans(ctx, plan.ListOpts{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "free", list[0].Slug)

	got, err := s.GetPlanBySlug(ctx, "basic")
	require.NoError(t, err)
	got.Features["see_likes"] = false
	again, _ := s.GetPlan(ctx, basic.ID)
	assert.True(t, again.Features["see_likes"], "store must not share maps with callers")

	require.NoError(t, s.ArchivePlan(ctx, basic.ID))
	active, _ := s.ListPlans(ctx, plan.ListOpts{Status: plan.StatusActive})
	assert.Len(t, active, 1)

	require.NoError(t, s.DeletePlan(ctx, free.ID))
	_, err = s.GetPlan(ctx, free.ID)
	assert.ErrorIs(t, err, cashier.ErrPlanNotFound)
}

func TestRedeemCouponRespectsMaxUses(t *testing.T) {
	ctx := context.Background()
	s := New()

	c := &coupon.Coupon{ID: id.NewCouponID(), Code: "SAVE20", Active: true, MaxUses: 10, Percent: types.Percent(20)}
	require.NoError(t, s.CreateCoupon(ctx, c))

	var ok atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.RedeemCoupon(ctx, c.ID, t0); err == nil {
				ok.Add(1)
			} else {
				assert.ErrorIs(t, err, coupon.ErrExhausted)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), ok.Load())
	got, err := s.GetCoupon(ctx, "save20")
	require.NoError(t, err)
	assert.Equal(t, 10, got.UsedCount)

	require.NoError(t, s.ReleaseCoupon(ctx, c.ID))
	got, _ = s.GetCouponByID(ctx, c.ID)
	assert.Equal(t, 9, got.UsedCount)
}

func TestRedeemCouponWindow(t *testing.T) {
	ctx := context.Background()
	s := New()

	from, until := t0.Add(time.Hour), t0.Add(48*time.Hour)
	c := &coupon.Coupon{ID: id.NewCouponID(), Code: "LATER", Active: true, ValidFrom: &from, ExpiresAt: &until}
	require.NoError(t, s.CreateCoupon(ctx, c))

	_, err := s.RedeemCoupon(ctx, c.ID, t0)
	assert.ErrorIs(t, err, coupon.ErrNotStarted)
	_, err = s.RedeemCoupon(ctx, c.ID, until.Add(time.Second))
	assert.ErrorIs(t, err, coupon.ErrExpired)
	_, err = s.RedeemCoupon(ctx, c.ID, from)
	assert.NoError(t, err)

	assert.ErrorIs(t, s.CreateCoupon(ctx, &coupon.Coupon{ID: id.NewCouponID(), Code: "LATER"}), cashier.ErrCouponCodeTaken)
}

func TestUpdateCouponKeepsUsedCount(t *testing.T) {
	ctx := context.Background()
	s := New()

	c := &coupon.Coupon{ID: id.NewCouponID(), Code: "X", Active: true}
	require.NoError(t, s.CreateCoupon(ctx, c))
	_, err := s.RedeemCoupon(ctx, c.ID, t0)
	require.NoError(t, err)

	c.Description = "edited"
	c.UsedCount = 0
	require.NoError(t, s.UpdateCoupon(ctx, c))

	got, _ := s.GetCouponByID(ctx, c.ID)
	assert.Equal(t, 1, got.UsedCount)
	assert.Equal(t, "edited", got.Description)
}

func TestIncrementUsage(t *testing.T) {
	ctx := context.Background()
	s := New()
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		n, err := s.IncrementUsage(ctx, "u1", "daily_likes", day, 1, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(i), n)
	}

	n, err := s.IncrementUsage(ctx, "u1", "daily_likes", day, 1, 3)
	assert.ErrorIs(t, err, cashier.ErrQuotaExceeded)
	assert.Equal(t, int64(3), n)

	n, err = s.IncrementUsage(ctx, "u1", "daily_likes", day, 100, -1)
	require.NoError(t, err)
	assert.Equal(t, int64(103), n)

	_, err = s.IncrementUsage(ctx, "u1", "boosts", time.Time{}, 1, 5)
	require.NoError(t, err)

	purged, err := s.PurgeUsage(ctx, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	left, _ := s.GetUsage(ctx, "u1", "boosts", time.Time{})
	assert.Equal(t, int64(1), left)
}

func TestIncrementUsageHugeDelta(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.IncrementUsage(ctx, "u1", "daily_likes", t0, 1, 10)
	require.NoError(t, err)

	n, err := s.IncrementUsage(ctx, "u1", "daily_likes", t0, math.MaxInt64, 10)
	assert.ErrorIs(t, err, cashier.ErrQuotaExceeded)
	assert.Equal(t, int64(1), n)

	allowed := 0
	for range 20 {
		if _, err := s.IncrementUsage(ctx, "u1", "daily_likes", t0, 1, 10); err == nil {
			allowed++
		}
	}
	assert.Equal(t, 9, allowed)

	_, err = s.IncrementUsage(ctx, "u2", "boosts", t0, math.MaxInt64, -1)
	require.NoError(t, err)
	n, err = s.IncrementUsage(ctx, "u2", "boosts", t0, 1, -1)
	assert.ErrorIs(t, err, cashier.ErrQuotaExceeded)
	assert.Equal(t, int64(math.MaxInt64), n)
}

func TestIncrementUsageConcurrent(t *testing.T) {
	ctx := context.Background()
	s := New()

	var wg sync.WaitGroup
	var allowed atomic.Int32
	for range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.IncrementUsage(ctx, "u1", "messages", t0, 1, 25); err == nil {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(25), allowed.Load())
}

func TestPaymentTransitions(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := &payment.Payment{ID: id.NewPaymentID(), UserID: "u1", Status: payment.StatusPending, Amount: types.SAR(8232)}
	require.NoError(t, s.CreatePayment(ctx, p))

	assert.ErrorIs(t, s.MarkPaymentRefunded(ctx, p.ID, t0), cashier.ErrPaymentNotCompleted)
	require.NoError(t, s.MarkPaymentCompleted(ctx, p.ID, "gw_1", t0))
	assert.ErrorIs(t, s.MarkPaymentCompleted(ctx, p.ID, "gw_1", t0), cashier.ErrPaymentNotPending)
	assert.ErrorIs(t, s.MarkPaymentFailed(ctx, p.ID, "late", t0), cashier.ErrPaymentNotPending)

	byRef, err := s.GetPaymentByReference(ctx, "gw_1")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusCompleted, byRef.Status)
	require.NotNil(t, byRef.PaidAt)

	require.NoError(t, s.MarkPaymentRefunded(ctx, p.ID, t0.Add(time.Hour)))
	got, _ := s.GetPayment(ctx, p.ID)
	assert.Equal(t, payment.StatusRefunded, got.Status)

	assert.ErrorIs(t, s.MarkPaymentCompleted(ctx, id.NewPaymentID(), "", t0), cashier.ErrPaymentNotFound)
}

func TestTrialOncePerUser(t *testing.T) {
	ctx := context.Background()
	s := New()

	first := &trial.Trial{ID: id.NewTrialID(), UserID: "u1", Status: trial.StatusActive, ExpiresAt: t0.Add(72 * time.Hour)}
	require.NoError(t, s.CreateTrial(ctx, first))
	second := &trial.Trial{ID: id.NewTrialID(), UserID: "u1", Status: trial.StatusActive}
	assert.ErrorIs(t, s.CreateTrial(ctx, second), cashier.ErrTrialAlreadyUsed)

	due, err := s.ListTrials(ctx, trial.ListOpts{Status: trial.StatusActive, ExpiresBefore: t0.Add(73 * time.Hour)})
	require.NoError(t, err)
	assert.Len(t, due, 1)

	_, err = s.GetTrialByUser(ctx, "u2")
	assert.ErrorIs(t, err, cashier.ErrTrialNotFound)
}

func TestSubscriptions(t *testing.T) {
	ctx := context.Background()
	s := New()

	old := &subscription.Subscription{ID: id.NewSubscriptionID(), UserID: "u1", Status: subscription.StatusExpired, Entity: types.NewEntityAt(t0)}
	cur := &subscription.Subscription{ID: id.NewSubscriptionID(), UserID: "u1", Status: subscription.StatusActive, ExpiresAt: t0.AddDate(0, 0, 30), Entity: types.NewEntityAt(t0.Add(time.Hour))}
	require.NoError(t, s.CreateSubscription(ctx, old))
	require.NoError(t, s.CreateSubscription(ctx, cur))

	active, err := s.GetActiveSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, cur.ID.String(), active.ID.String())

	list, _ := s.ListSubscriptions(ctx, subscription.ListOpts{UserID: "u1"})
	require.Len(t, list, 2)
	assert.Equal(t, cur.ID.String(), list[0].ID.String())

	require.NoError(t, s.CancelSubscription(ctx, cur.ID, t0))
	assert.ErrorIs(t, s.CancelSubscription(ctx, cur.ID, t0), cashier.ErrSubscriptionCanceled)

	_, err = s.GetActiveSubscription(ctx, "u1")
	assert.ErrorIs(t, err, cashier.ErrNoActiveSubscription)
}

func TestOneActiveSubscriptionPerUser(t *testing.T) {
	ctx := context.Background()
	s := New()

	cur := &subscription.Subscription{ID: id.NewSubscriptionID(), UserID: "u1", Status: subscription.StatusActive, StartsAt: t0, ExpiresAt: t0.AddDate(0, 0, 30)}
	require.NoError(t, s.CreateSubscription(ctx, cur))

	second := &subscription.Subscription{ID: id.NewSubscriptionID(), UserID: "u1", Status: subscription.StatusActive, StartsAt: t0, ExpiresAt: t0.AddDate(0, 0, 7)}
	assert.ErrorIs(t, s.CreateSubscription(ctx, second), cashier.ErrSubscriptionActive)
	assert.ErrorIs(t, s.ActivateSubscription(ctx, second, subscription.SupersedeLapsed), cashier.ErrSubscriptionActive)

	other := &subscription.Subscription{ID: id.NewSubscriptionID(), UserID: "u2", Status: subscription.StatusActive}
	require.NoError(t, s.CreateSubscription(ctx, other))

	upgrade := &subscription.Subscription{ID: id.NewSubscriptionID(), UserID: "u1", Status: subscription.StatusActive, StartsAt: t0.Add(time.Hour), ExpiresAt: t0.AddDate(0, 0, 90)}
	require.NoError(t, s.ActivateSubscription(ctx, upgrade, subscription.SupersedeAll))

	old, err := s.GetSubscription(ctx, cur.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusExpired, old.Status)
	assert.Equal(t, upgrade.StartsAt, old.ExpiresAt)

	old.Status = subscription.StatusActive
	assert.ErrorIs(t, s.UpdateSubscription(ctx, old), cashier.ErrSubscriptionActive)

	active, err := s.GetActiveSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, upgrade.ID.String(), active.ID.String())
}

func TestActivateSubscriptionLapsedOnly(t *testing.T) {
	ctx := context.Background()
	s := New()

	stale := &subscription.Subscription{ID: id.NewSubscriptionID(), UserID: "u1", Status: subscription.StatusActive, StartsAt: t0.AddDate(0, -1, 0), ExpiresAt: t0.Add(-time.Hour)}
	require.NoError(t, s.CreateSubscription(ctx, stale))

	next := &subscription.Subscription{ID: id.NewSubscriptionID(), UserID: "u1", Status: subscription.StatusActive, StartsAt: t0, ExpiresAt: t0.AddDate(0, 0, 7), IsTrial: true}
	require.NoError(t, s.ActivateSubscription(ctx, next, subscription.SupersedeLapsed))

	got, _ := s.GetSubscription(ctx, stale.ID)
	assert.Equal(t, subscription.StatusExpired, got.Status)
	assert.Equal(t, t0.Add(-time.Hour), got.ExpiresAt)
}

func TestActivateSubscriptionConcurrent(t *testing.T) {
	ctx := context.Background()
	s := New()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := &subscription.Subscription{
				ID:        id.NewSubscriptionID(),
				UserID:    "u1",
				Status:    subscription.StatusActive,
				StartsAt:  t0.Add(time.Duration(i) * time.Second),
				ExpiresAt: t0.AddDate(0, 0, 30),
			}
			assert.NoError(t, s.ActivateSubscription(ctx, sub, subscription.SupersedeAll))
		}()
	}
	wg.Wait()

	active, err := s.ListSubscriptions(ctx, subscription.ListOpts{UserID: "u1", Status: subscription.StatusActive})
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, _ := s.ListSubscriptions(ctx, subscription.ListOpts{UserID: "u1"})
	assert.Len(t, all, 20)
}

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	s := New()

	n1 := &notify.Notification{ID: id.NewNotificationID(), UserID: "u1", Type: notify.TypeWelcome, CreatedAt: t0}
	n2 := &notify.Notification{ID: id.NewNotificationID(), UserID: "u1", Type: notify.TypeTrialStarted, CreatedAt: t0.Add(time.Minute)}
	require.NoError(t, s.CreateNotification(ctx, n1))
	require.NoError(t, s.CreateNotification(ctx, n2))

	assert.ErrorIs(t, s.MarkNotificationRead(ctx, n1.ID, "u2", t0), notify.ErrNotificationNotFound)
	require.NoError(t, s.MarkNotificationRead(ctx, n1.ID, "u1", t0))

	unread, err := s.ListNotifications(ctx, "u1", notify.NotificationOpts{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, notify.TypeTrialStarted, unread[0].Type)

	all, _ := s.ListNotifications(ctx, "u1", notify.NotificationOpts{})
	require.Len(t, all, 2)
	assert.Equal(t, n2.ID.String(), all[0].ID.String())
}

func TestPingAfterClose(t *testing.T) {
	s := New()
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Ping(context.Background()), cashier.ErrStoreClosed)
}
