package entitlement

import (
	"time"

	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/subscription"
)

// Result is the outcome of a feature or limit check. Remaining is -1 for
// unlimited counters.
type Result struct {
	Allowed   bool      `json:"allowed"`
	Feature   string    `json:"feature"`
	Used      int64     `json:"used"`
	Limit     int64     `json:"limit"`
	Remaining int64     `json:"remaining"`
	Unlimited bool      `json:"unlimited"`
	ResetsAt  time.Time `json:"resets_at,omitzero"`
	Reason    string    `json:"reason,omitempty"`
}

// Reasons reported on denied results.
const (
	ReasonNotInPlan     = "feature not in plan"
	ReasonLimitUnknown  = "limit not defined for plan"
	ReasonQuotaExceeded = "quota exceeded"
)

// Snapshot is everything a user may access right now.
type Snapshot struct {
	UserID     string                  `json:"user_id"`
	Status     subscription.UserStatus `json:"status"`
	PlanID     string                  `json:"plan_id"`
	PlanSlug   string                  `json:"plan_slug"`
	PlanName   string                  `json:"plan_name"`
	ExpiresAt  *time.Time              `json:"expires_at,omitempty"`
	IsTrial    bool                    `json:"is_trial"`
	Features   map[string]bool         `json:"features"`
	Limits     map[string]plan.Limit   `json:"limits"`
	ComputedAt time.Time               `json:"computed_at"`
}

func (s *Snapshot) HasFeature(key string) bool {
	return s.Features[key]
}

// Feature builds the result of a boolean feature check.
func (s *Snapshot) Feature(key string) *Result {
	r := &Result{Feature: key, Allowed: s.Features[key]}
	if !r.Allowed {
		r.Reason = ReasonNotInPlan
	}
	return r
}

// LimitResult builds the result of a limit check for the given usage.
func LimitResult(key string, l plan.Limit, used int64) *Result {
	r := &Result{Feature: key, Used: used, Limit: l.Max}
	if l.IsUnlimited() {
		r.Allowed = true
		r.Unlimited = true
		r.Remaining = -1
		return r
	}
	r.Remaining = max(0, l.Max-used)
	r.Allowed = used < l.Max
	if !r.Allowed {
		r.Reason = ReasonQuotaExceeded
	}
	return r
}
