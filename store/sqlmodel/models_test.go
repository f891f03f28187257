package sqlmodel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/payment"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/pricing"
	"github.com/xraph/cashier/subscription"
	"github.com/xraph/cashier/types"
)

func TestPlanModelKeepsLimitsAndDiscount(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := &plan.Plan{
		ID:       id.NewPlanID(),
		Slug:     "gold",
		Price:    types.SAR(10000),
		Features: map[string]bool{"see_who_liked": true},
		Limits:   map[string]plan.Limit{plan.LimitDailyLikes: {Max: 50, Period: plan.PeriodDaily}},
		Discount: &plan.Discount{Percent: types.Percent(20), StartsAt: start, ExpiresAt: start.AddDate(0, 1, 0)},
	}

	got, err := FromPlanModel(ToPlanModel(p))
	require.NoError(t, err)
	assert.Equal(t, p.Limits, got.Limits)
	assert.Equal(t, p.Features, got.Features)
	require.NotNil(t, got.Discount)
	assert.Equal(t, types.Percent(20), got.Discount.Percent)
	assert.Equal(t, p.Price, got.Price)
}

func TestPlanModelWithoutDiscount(t *testing.T) {
	got, err := FromPlanModel(ToPlanModel(&plan.Plan{ID: id.NewPlanID(), Slug: "free"}))
	require.NoError(t, err)
	assert.Nil(t, got.Discount)
	assert.NotNil(t, got.Features)
	assert.NotNil(t, got.Limits)
}

func TestSubscriptionModelOptionalPayment(t *testing.T) {
	sub := &subscription.Subscription{ID: id.NewSubscriptionID(), PlanID: id.NewPlanID(), UserID: "u1"}

	m := ToSubscriptionModel(sub)
	assert.Empty(t, m.PaymentID)

	got, err := FromSubscriptionModel(m)
	require.NoError(t, err)
	assert.True(t, got.PaymentID.IsNil())
}

func TestPaymentModelRestoresCurrency(t *testing.T) {
	p := &payment.Payment{
		ID:       id.NewPaymentID(),
		PlanID:   id.NewPlanID(),
		Amount:   types.SAR(8232),
		Fee:      types.SAR(232),
		Currency: types.SAR(0).Currency,
		CouponID: id.NewCouponID(),
		LineItems: []pricing.LineItem{
			{Type: pricing.LineItemPlan, Description: "Gold", Amount: types.SAR(10000)},
		},
	}

	got, err := FromPaymentModel(ToPaymentModel(p))
	require.NoError(t, err)
	assert.Equal(t, p.Amount, got.Amount)
	assert.Equal(t, p.Fee, got.Fee)
	assert.Equal(t, p.CouponID.String(), got.CouponID.String())
	assert.True(t, got.SubscriptionID.IsNil())
	assert.Equal(t, p.LineItems, got.LineItems)
}

func TestCouponModelPlanIDs(t *testing.T) {
	planID := id.NewPlanID()
	c := &coupon.Coupon{ID: id.NewCouponID(), Code: "SAVE20", PlanIDs: []id.PlanID{planID}}

	got, err := FromCouponModel(ToCouponModel(c))
	require.NoError(t, err)
	require.Len(t, got.PlanIDs, 1)
	assert.Equal(t, planID.String(), got.PlanIDs[0].String())
}

func TestFromModelRejectsForeignPrefix(t *testing.T) {
	m := ToSubscriptionModel(&subscription.Subscription{ID: id.NewSubscriptionID(), PlanID: id.NewPlanID()})
	m.PlanID = id.NewCouponID().String()

	_, err := FromSubscriptionModel(m)
	assert.Error(t, err)
}
