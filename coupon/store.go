package coupon

import (
	"context"
	"time"

	"github.com/xraph/cashier/id"
)

type Store interface {
	Create(ctx context.Context, c *Coupon) error
	Get(ctx context.Context, code string) (*Coupon, error)
	GetByID(ctx context.Context, couponID id.CouponID) (*Coupon, error)
	List(ctx context.Context, opts ListOpts) ([]*Coupon, error)
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, couponID id.CouponID) error

	// Redeem atomically increments the use count while the coupon is still
	// active, inside its window and below MaxUses. It returns the updated
	// coupon, or ErrExhausted when the condition no longer holds.
	Redeem(ctx context.Context, couponID id.CouponID, now time.Time) (*Coupon, error)

	// Release gives back one redemption, never going below zero.
	Release(ctx context.Context, couponID id.CouponID) error
}

type ListOpts struct {
	Active bool
	Limit  int
	Offset int
}
