package plan

import (
	"strings"
	"testing"
	"time"

	"github.com/xraph/cashier/types"
)

func TestDiscountActiveAt(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 10)
	d := &Discount{Percent: types.Percent(25), StartsAt: start, ExpiresAt: end}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before start", start.Add(-time.Second), false},
		{"at start", start, true},
		{"inside", start.AddDate(0, 0, 5), true},
		{"at expiry", end, false},
		{"after expiry", end.Add(time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.ActiveAt(tt.now); got != tt.want {
				t.Errorf("ActiveAt: got %v, want %v", got, tt.want)
			}
		})
	}

	var none *Discount
	if none.ActiveAt(start) {
		t.Error("nil discount should never be active")
	}
}

func TestEffectivePrice(t *testing.T) {
	now := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	p := &Plan{
		Price: types.SAR(10000),
		Discount: &Discount{
			Percent:   types.Percent(25),
			StartsAt:  now.AddDate(0, 0, -1),
			ExpiresAt: now.AddDate(0, 0, 1),
		},
	}

	if got := p.EffectivePrice(now); !got.Equal(types.SAR(7500)) {
		t.Errorf("discounted price: got %v", got)
	}
	if got := p.EffectivePrice(now.AddDate(0, 0, 2)); !got.Equal(types.SAR(10000)) {
		t.Errorf("expired discount price: got %v", got)
	}
}

func TestDuration(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		plan Plan
		want time.Duration
	}{
		{Plan{BillingPeriod: BillingMonthly}, 30 * day},
		{Plan{BillingPeriod: BillingQuarterly}, 90 * day},
		{Plan{BillingPeriod: BillingYearly}, 365 * day},
		{Plan{BillingPeriod: BillingMonthly, DurationDays: 14}, 14 * day},
	}

	for _, tt := range tests {
		t.Run(string(tt.plan.BillingPeriod), func(t *testing.T) {
			if got := tt.plan.Duration(); got != tt.want {
				t.Errorf("Duration: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	now := time.Now()
	valid := func() *Plan {
		return &Plan{Name: "Basic", Slug: "basic", Price: types.SAR(4999), BillingPeriod: BillingMonthly}
	}

	tests := []struct {
		name    string
		mutate  func(p *Plan)
		wantErr string
	}{
		{"valid", func(*Plan) {}, ""},
		{"missing name", func(p *Plan) { p.Name = "" }, "name is required"},
		{"missing slug", func(p *Plan) { p.Slug = "" }, "slug is required"},
		{"negative price", func(p *Plan) { p.Price = types.SAR(-1) }, "negative"},
		{"trial without days", func(p *Plan) { p.TrialEnabled = true }, "trial days"},
		{"discount over 100%", func(p *Plan) {
			p.Discount = &Discount{Percent: 10001, StartsAt: now, ExpiresAt: now.Add(time.Hour)}
		}, "out of range"},
		{"discount window inverted", func(p *Plan) {
			p.Discount = &Discount{Percent: 1000, StartsAt: now, ExpiresAt: now}
		}, "start before"},
		{"limit below -1", func(p *Plan) { p.Limits = map[string]Limit{"x": {Max: -2}} }, "must be >= -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultCatalog(t *testing.T) {
	plans := DefaultCatalog()
	if len(plans) != 5 {
		t.Fatalf("expected 5 tiers, got %d", len(plans))
	}

	wantSlugs := []string{"free", "basic", "premium", "vip", "elite"}
	for i, p := range plans {
		if p.Slug != wantSlugs[i] {
			t.Errorf("tier %d: got slug %q, want %q", i, p.Slug, wantSlugs[i])
		}
		if p.Tier != i {
			t.Errorf("%s: tier %d, want %d", p.Slug, p.Tier, i)
		}
		if p.Price.Currency != "sar" {
			t.Errorf("%s: currency %q", p.Slug, p.Price.Currency)
		}
		if !p.HasFeature(FeatureViewProfiles) {
			t.Errorf("%s: every tier should view profiles", p.Slug)
		}
	}

	free, elite := plans[0], plans[4]
	if !free.IsFree() {
		t.Error("free tier should cost nothing")
	}
	if free.HasFeature(FeatureSendMessages) {
		t.Error("free tier should not send messages")
	}
	if !elite.HasFeature(FeatureIncognitoMode) {
		t.Error("elite tier should have incognito mode")
	}
	if l, ok := elite.LimitFor(LimitDailyLikes); !ok || !l.IsUnlimited() {
		t.Errorf("elite daily likes: got %+v", l)
	}
	if l, _ := free.LimitFor(LimitDailyLikes); l.Max != 10 || l.Period != PeriodDaily {
		t.Errorf("free daily likes: got %+v", l)
	}
}

func TestLoadCatalogRejectsDuplicates(t *testing.T) {
	doc := `
plans:
  - {slug: a, name: A, price: "1"}
  - {slug: a, name: A2, price: "2"}
`
	if _, err := LoadCatalog(strings.NewReader(doc)); err == nil {
		t.Fatal("expected duplicate slug error")
	}
}

func TestLoadCatalogBadPrice(t *testing.T) {
	doc := `
plans:
  - {slug: a, name: A, price: "1.999"}
`
	if _, err := LoadCatalog(strings.NewReader(doc)); err == nil {
		t.Fatal("expected price error")
	}
}
