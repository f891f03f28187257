package plan

import (
	"context"

	"github.com/xraph/cashier/id"
)

type Store interface {
	Create(ctx context.Context, p *Plan) error
	Get(ctx context.Context, planID id.PlanID) (*Plan, error)
	GetBySlug(ctx context.Context, slug string) (*Plan, error)
	List(ctx context.Context, opts ListOpts) ([]*Plan, error)
	Update(ctx context.Context, p *Plan) error
	Delete(ctx context.Context, planID id.PlanID) error
	Archive(ctx context.Context, planID id.PlanID) error
}

// ListOpts filters plan listings. Results are ordered by tier.
type ListOpts struct {
	Status Status
	Limit  int
	Offset int
}
