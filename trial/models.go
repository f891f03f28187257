package trial

import (
	"time"

	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/types"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusConverted Status = "converted"
	StatusCanceled  Status = "canceled"
)

// Trial is a user's single time-boxed free access period.
type Trial struct {
	types.Entity
	ID                      id.TrialID        `json:"id"`
	UserID                  string            `json:"user_id"`
	PlanID                  id.PlanID         `json:"plan_id"`
	Status                  Status            `json:"status"`
	StartsAt                time.Time         `json:"starts_at"`
	ExpiresAt               time.Time         `json:"expires_at"`
	ConvertedSubscriptionID id.SubscriptionID `json:"converted_subscription_id"`
}

func (t *Trial) ActiveAt(now time.Time) bool {
	return t.Status == StatusActive && now.Before(t.ExpiresAt)
}

// Eligibility describes whether a user may start a trial.
type Eligibility struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
	Trial    *Trial `json:"trial,omitempty"`
}
