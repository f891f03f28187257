package coupon

import (
	"errors"
	"testing"
	"time"

	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/types"
)

func ptr(t time.Time) *time.Time { return &t }

func TestValidateOrder(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	planA, planB := id.NewPlanID(), id.NewPlanID()

	base := func() *Coupon {
		return &Coupon{
			Code:      "SAVE20",
			Type:      CouponTypePercentage,
			Percent:   types.Percent(20),
			Active:    true,
			MaxUses:   10,
			ValidFrom: ptr(now.AddDate(0, 0, -1)),
			ExpiresAt: ptr(now.AddDate(0, 0, 1)),
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Coupon)
		want   error
	}{
		{"valid", func(*Coupon) {}, nil},
		{"inactive beats everything", func(c *Coupon) {
			c.Active = false
			c.ExpiresAt = ptr(now.AddDate(0, 0, -1))
			c.UsedCount = 10
		}, ErrInactive},
		{"not started", func(c *Coupon) { c.ValidFrom = ptr(now.Add(time.Hour)) }, ErrNotStarted},
		{"expired before exhausted", func(c *Coupon) {
			c.ExpiresAt = ptr(now.Add(-time.Second))
			c.UsedCount = 10
		}, ErrExpired},
		{"expires exactly now is still valid", func(c *Coupon) { c.ExpiresAt = ptr(now) }, nil},
		{"exhausted", func(c *Coupon) { c.UsedCount = 10 }, ErrExhausted},
		{"unlimited never exhausted", func(c *Coupon) { c.MaxUses = 0; c.UsedCount = 1000 }, nil},
		{"other plan", func(c *Coupon) { c.PlanIDs = []id.PlanID{planB} }, ErrNotApplicable},
		{"listed plan", func(c *Coupon) { c.PlanIDs = []id.PlanID{planB, planA} }, nil},
		{"fixed in plan currency", func(c *Coupon) { c.Type = CouponTypeFixed; c.Amount = types.SAR(500) }, nil},
		{"fixed in other currency", func(c *Coupon) { c.Type = CouponTypeFixed; c.Amount = types.USD(500) }, ErrNotApplicable},
		{"fixed without currency", func(c *Coupon) { c.Type = CouponTypeFixed; c.Amount = types.Money{Amount: 500} }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate(now, planA, "SAR")
			if !errors.Is(err, tt.want) || (tt.want == nil && err != nil) {
				t.Errorf("Validate: got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name         string
		coupon       Coupon
		total        types.Money
		wantTotal    types.Money
		wantDiscount types.Money
	}{
		{"SAVE20", Coupon{Type: CouponTypePercentage, Percent: types.Percent(20)}, types.SAR(10000), types.SAR(8000), types.SAR(2000)},
		{"percent rounds", Coupon{Type: CouponTypePercentage, Percent: 3333}, types.SAR(100), types.SAR(67), types.SAR(33)},
		{"full percent", Coupon{Type: CouponTypePercentage, Percent: types.RateFull}, types.SAR(4999), types.SAR(0), types.SAR(4999)},
		{"fixed", Coupon{Type: CouponTypeFixed, Amount: types.SAR(1500)}, types.SAR(10000), types.SAR(8500), types.SAR(1500)},
		{"fixed floors at zero", Coupon{Type: CouponTypeFixed, Amount: types.SAR(50000)}, types.SAR(10000), types.SAR(0), types.SAR(10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, discount := tt.coupon.Apply(tt.total)
			if !got.Equal(tt.wantTotal) {
				t.Errorf("total: got %v, want %v", got, tt.wantTotal)
			}
			if !discount.Equal(tt.wantDiscount) {
				t.Errorf("discount: got %v, want %v", discount, tt.wantDiscount)
			}
			if got.IsNegative() {
				t.Error("total must never be negative")
			}
		})
	}
}

func TestCheckConfig(t *testing.T) {
	ok := &Coupon{Code: "welcome", Type: CouponTypeFixed, Amount: types.SAR(500)}
	if err := ok.CheckConfig(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := &Coupon{Code: " ", Type: CouponTypePercentage, Percent: 0, MaxUses: -1}
	if err := bad.CheckConfig(); err == nil {
		t.Fatal("expected config error")
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := NormalizeCode("  save20 "); got != "SAVE20" {
		t.Errorf("got %q", got)
	}
}
