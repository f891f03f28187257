package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/paymethod"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/types"
)

var now = time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

func TestComputeSave20(t *testing.T) {
	q, err := Compute(QuoteInput{
		Plan:   &plan.Plan{Name: "Premium", Price: types.SAR(10000)},
		Coupon: &coupon.Coupon{Code: "SAVE20", Type: coupon.CouponTypePercentage, Percent: types.Percent(20)},
		Method: &paymethod.Config{Code: paymethod.CodeVisa, Name: "Visa", FeePercent: 290},
		Now:    now,
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	checks := []struct {
		name string
		got  types.Money
		want types.Money
	}{
		{"base", q.Base, types.SAR(10000)},
		{"coupon discount", q.CouponDiscount, types.SAR(2000)},
		{"subtotal", q.Subtotal, types.SAR(8000)},
		{"fee", q.Fee, types.SAR(232)},
		{"total", q.Total, types.SAR(8232)},
	}
	for _, c := range checks {
		if !c.got.Equal(c.want) {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
	if q.Total.String() != "SAR 82.32" {
		t.Errorf("display: got %s", q.Total)
	}
	if len(q.LineItems) != 3 {
		t.Errorf("expected plan, coupon and fee line items, got %d", len(q.LineItems))
	}
	if sum := types.Sum(lineAmounts(q)...); !sum.Equal(q.Total) {
		t.Errorf("line items sum to %v, total %v", sum, q.Total)
	}
}

func TestComputePlanDiscountThenCoupon(t *testing.T) {
	p := &plan.Plan{
		Name:  "VIP",
		Price: types.SAR(20000),
		Discount: &plan.Discount{
			Percent:   types.Percent(10),
			StartsAt:  now.Add(-time.Hour),
			ExpiresAt: now.Add(time.Hour),
		},
	}
	c := &coupon.Coupon{Code: "FLAT50", Type: coupon.CouponTypeFixed, Amount: types.SAR(5000)}

	q, err := Compute(QuoteInput{Plan: p, Coupon: c, Now: now})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !q.AfterPlanDiscount.Equal(types.SAR(18000)) {
		t.Errorf("after plan discount: got %v", q.AfterPlanDiscount)
	}
	if !q.Total.Equal(types.SAR(13000)) {
		t.Errorf("total: got %v", q.Total)
	}
	if !q.Discount().Equal(types.SAR(7000)) {
		t.Errorf("discount: got %v", q.Discount())
	}

	// Outside the window the plan discount does not apply.
	q, _ = Compute(QuoteInput{Plan: p, Now: now.Add(2 * time.Hour)})
	if !q.Total.Equal(types.SAR(20000)) {
		t.Errorf("total after window: got %v", q.Total)
	}
}

func TestComputeFixedCouponFloorsAtZero(t *testing.T) {
	q, err := Compute(QuoteInput{
		Plan:   &plan.Plan{Name: "Basic", Price: types.SAR(4999)},
		Coupon: &coupon.Coupon{Code: "BIG", Type: coupon.CouponTypeFixed, Amount: types.SAR(100000)},
		Method: &paymethod.Config{Code: "visa", FeePercent: 290, FixedFee: types.SAR(100)},
		Now:    now,
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !q.Subtotal.IsZero() {
		t.Errorf("subtotal: got %v", q.Subtotal)
	}
	if !q.Fee.IsZero() {
		t.Errorf("no fee is charged on a zero subtotal, got %v", q.Fee)
	}
	if !q.Total.IsZero() {
		t.Errorf("total: got %v", q.Total)
	}
}

func TestComputeMonotonicInDiscount(t *testing.T) {
	p := &plan.Plan{Name: "Elite", Price: types.SAR(49999)}
	m := &paymethod.Config{Code: "mada", FeePercent: 175}

	prev := types.SAR(1 << 40)
	for pct := int64(0); pct <= 100; pct++ {
		q, err := Compute(QuoteInput{
			Plan:   p,
			Coupon: &coupon.Coupon{Code: "X", Type: coupon.CouponTypePercentage, Percent: types.Percent(pct)},
			Method: m,
			Now:    now,
		})
		if err != nil {
			t.Fatalf("Compute(%d%%): %v", pct, err)
		}
		if q.Total.IsNegative() {
			t.Fatalf("negative total at %d%%: %v", pct, q.Total)
		}
		if q.Total.GreaterThan(prev) {
			t.Fatalf("total increased at %d%%: %v > %v", pct, q.Total, prev)
		}
		prev = q.Total
	}
	if !prev.IsZero() {
		t.Errorf("100%% coupon should be free, got %v", prev)
	}
}

func TestComputeRequiresPlan(t *testing.T) {
	if _, err := Compute(QuoteInput{}); !errors.Is(err, ErrNoPlan) {
		t.Errorf("expected ErrNoPlan, got %v", err)
	}
}

func lineAmounts(q Quote) []types.Money {
	out := make([]types.Money, len(q.LineItems))
	for i, li := range q.LineItems {
		out[i] = li.Amount
	}
	return out
}
