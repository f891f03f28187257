package trial

import (
	"context"
	"time"

	"github.com/xraph/cashier/id"
)

// Store persists trials. Create must reject a second trial for the same
// user with ErrTrialAlreadyUsed.
type Store interface {
	Create(ctx context.Context, t *Trial) error
	Get(ctx context.Context, trialID id.TrialID) (*Trial, error)
	GetByUser(ctx context.Context, userID string) (*Trial, error)
	List(ctx context.Context, opts ListOpts) ([]*Trial, error)
	Update(ctx context.Context, t *Trial) error
}

type ListOpts struct {
	Status        Status
	ExpiresBefore time.Time
	Limit         int
	Offset        int
}
