package plan

import (
	"errors"
	"fmt"
	"time"

	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/types"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	StatusDraft    Status = "draft"
)

type BillingPeriod string

const (
	BillingMonthly   BillingPeriod = "monthly"
	BillingQuarterly BillingPeriod = "quarterly"
	BillingYearly    BillingPeriod = "yearly"
	BillingLifetime  BillingPeriod = "lifetime"
)

// Period is the reset window of a usage limit.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodMonthly Period = "monthly"
	PeriodNone    Period = "none"
)

// Unlimited is the Limit.Max sentinel for an uncapped counter.
const Unlimited int64 = -1

// Feature flags known to the catalog.
const (
	FeatureViewProfiles    = "view_profiles"
	FeatureSendMessages    = "send_messages"
	FeatureSeeWhoLiked     = "see_who_liked"
	FeatureAdvancedSearch  = "advanced_search"
	FeatureReadReceipts    = "read_receipts"
	FeatureProfileBoost    = "profile_boost"
	FeaturePrioritySupport = "priority_support"
	FeatureIncognitoMode   = "incognito_mode"
)

// Usage limits known to the catalog.
const (
	LimitDailyLikes         = "daily_likes"
	LimitDailyMessages      = "daily_messages"
	LimitProfileViewsPerDay = "profile_views_per_day"
	LimitMonthlyBoosts      = "monthly_boosts"
)

type Plan struct {
	types.Entity
	ID            id.PlanID         `json:"id"`
	Name          string            `json:"name"`
	Slug          string            `json:"slug"`
	Description   string            `json:"description"`
	Price         types.Money       `json:"price"`
	BillingPeriod BillingPeriod     `json:"billing_period"`
	DurationDays  int               `json:"duration_days"`
	Tier          int               `json:"tier"`
	Status        Status            `json:"status"`
	TrialEnabled  bool              `json:"trial_enabled"`
	TrialDays     int               `json:"trial_days"`
	Discount      *Discount         `json:"discount,omitempty"`
	Features      map[string]bool   `json:"features"`
	Limits        map[string]Limit  `json:"limits"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type Limit struct {
	Max    int64  `json:"max" yaml:"max"`
	Period Period `json:"period" yaml:"period"`
}

// IsUnlimited reports whether the limit has no ceiling.
func (l Limit) IsUnlimited() bool { return l.Max == Unlimited }

// Discount is a time-boxed percentage reduction of the plan price.
type Discount struct {
	Percent   types.Rate `json:"percent"`
	StartsAt  time.Time  `json:"starts_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// ActiveAt reports whether now falls in [StartsAt, ExpiresAt).
func (d *Discount) ActiveAt(now time.Time) bool {
	if d == nil || d.Percent.IsZero() {
		return false
	}
	return !now.Before(d.StartsAt) && now.Before(d.ExpiresAt)
}

func (p *Plan) HasFeature(key string) bool {
	return p.Features[key]
}

func (p *Plan) LimitFor(key string) (Limit, bool) {
	l, ok := p.Limits[key]
	return l, ok
}

// Duration is the access period bought by one payment.
func (p *Plan) Duration() time.Duration {
	days := p.DurationDays
	if days <= 0 {
		switch p.BillingPeriod {
		case BillingQuarterly:
			days = 90
		case BillingYearly:
			days = 365
		case BillingLifetime:
			days = 365 * 100
		default:
			days = 30
		}
	}
	return time.Duration(days) * 24 * time.Hour
}

// EffectivePrice is the price after the plan discount active at now.
func (p *Plan) EffectivePrice(now time.Time) types.Money {
	if p.Discount.ActiveAt(now) {
		return p.Price.Subtract(p.Discount.Percent.Of(p.Price))
	}
	return p.Price
}

// IsFree reports whether the plan costs nothing.
func (p *Plan) IsFree() bool { return !p.Price.IsPositive() }

func (p *Plan) Validate() error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, errors.New("plan: name is required"))
	}
	if p.Slug == "" {
		errs = append(errs, errors.New("plan: slug is required"))
	}
	if p.Price.IsNegative() {
		errs = append(errs, errors.New("plan: price must not be negative"))
	}
	switch p.BillingPeriod {
	case BillingMonthly, BillingQuarterly, BillingYearly, BillingLifetime, "":
	default:
		errs = append(errs, fmt.Errorf("plan: unknown billing period %q", p.BillingPeriod))
	}
	if p.TrialEnabled && p.TrialDays <= 0 {
		errs = append(errs, errors.New("plan: trial days must be positive when trial is enabled"))
	}
	if d := p.Discount; d != nil {
		if !d.Percent.Valid() {
			errs = append(errs, fmt.Errorf("plan: discount %s out of range", d.Percent))
		}
		if !d.StartsAt.Before(d.ExpiresAt) {
			errs = append(errs, errors.New("plan: discount must start before it expires"))
		}
	}
	for key, l := range p.Limits {
		if l.Max < Unlimited {
			errs = append(errs, fmt.Errorf("plan: limit %s must be >= -1", key))
		}
	}
	return errors.Join(errs...)
}
