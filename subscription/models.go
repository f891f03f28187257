package subscription

import (
	"time"

	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/types"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusCanceled Status = "canceled"
	StatusExpired  Status = "expired"
)

// Metadata keys written by the engine.
const (
	MetaRemindedAt = "reminded_at"
	MetaRefunded   = "refunded"
)

type Subscription struct {
	types.Entity
	ID            id.SubscriptionID `json:"id"`
	UserID        string            `json:"user_id"`
	PlanID        id.PlanID         `json:"plan_id"`
	Status        Status            `json:"status"`
	StartsAt      time.Time         `json:"starts_at"`
	ExpiresAt     time.Time         `json:"expires_at"`
	CanceledAt    *time.Time        `json:"canceled_at,omitempty"`
	PaymentMethod string            `json:"payment_method,omitempty"`
	PaymentRef    string            `json:"payment_ref,omitempty"`
	PaymentID     id.PaymentID      `json:"payment_id"`
	IsTrial       bool              `json:"is_trial"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ActiveAt reports whether the subscription grants access at now.
func (s *Subscription) ActiveAt(now time.Time) bool {
	return s.Status == StatusActive && now.Before(s.ExpiresAt)
}

// DaysLeft is the number of whole days until expiry, never negative.
func (s *Subscription) DaysLeft(now time.Time) int {
	if !now.Before(s.ExpiresAt) {
		return 0
	}
	return int(s.ExpiresAt.Sub(now) / (24 * time.Hour))
}
