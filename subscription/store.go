package subscription

import (
	"context"
	"time"

	"github.com/xraph/cashier/id"
)

// Store persists subscriptions. A user has at most one subscription with
// StatusActive: Create and Update report a conflict when a write would
// leave two.
type Store interface {
	Create(ctx context.Context, s *Subscription) error
	Get(ctx context.Context, subID id.SubscriptionID) (*Subscription, error)
	GetActive(ctx context.Context, userID string) (*Subscription, error)
	List(ctx context.Context, opts ListOpts) ([]*Subscription, error)
	Update(ctx context.Context, s *Subscription) error
	Cancel(ctx context.Context, subID id.SubscriptionID, canceledAt time.Time) error

	// Activate stores s as the user's one active subscription in a single
	// step. The active rows it supersedes are expired at s.StartsAt, with
	// any later expiry pulled in to that time.
	Activate(ctx context.Context, s *Subscription, mode Supersede) error
}

// Supersede selects which active subscriptions Activate may end.
type Supersede int

const (
	// SupersedeAll ends every active subscription of the user.
	SupersedeAll Supersede = iota
	// SupersedeLapsed ends only active rows whose period already ran out.
	// A subscription still running makes Activate fail with a conflict.
	SupersedeLapsed
)

// ListOpts filters subscription listings. Zero values match everything.
// Results are ordered newest first.
type ListOpts struct {
	UserID        string
	PlanID        id.PlanID
	Status        Status
	ExpiresBefore time.Time
	Limit         int
	Offset        int
}
