package cashier

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/types"
)

// ──────────────────────────────────────────────────
// Coupons
// ──────────────────────────────────────────────────

// CreateCoupon stores a new coupon. The code is stored upper-case and the
// use count always starts at zero.
func (c *Cashier) CreateCoupon(ctx context.Context, cp *coupon.Coupon) error {
	if cp.ID.IsNil() {
		cp.ID = id.NewCouponID()
	}
	if err := c.prepareCoupon(cp); err != nil {
		return err
	}
	cp.UsedCount = 0
	cp.Entity = types.NewEntityAt(c.Now())

	return c.store.CreateCoupon(ctx, cp)
}

// UpdateCoupon replaces a coupon's configuration. The use count is owned by
// redemptions and is left untouched.
func (c *Cashier) UpdateCoupon(ctx context.Context, cp *coupon.Coupon) error {
	old, err := c.store.GetCouponByID(ctx, cp.ID)
	if err != nil {
		return err
	}
	if err := c.prepareCoupon(cp); err != nil {
		return err
	}
	cp.UsedCount = old.UsedCount
	cp.CreatedAt = old.CreatedAt
	cp.TouchAt(c.Now())

	return c.store.UpdateCoupon(ctx, cp)
}

func (c *Cashier) prepareCoupon(cp *coupon.Coupon) error {
	cp.Code = coupon.NormalizeCode(cp.Code)
	if cp.Type == coupon.CouponTypeFixed && cp.Amount.Currency == "" {
		cp.Amount.Currency = c.currency
	}
	if err := cp.CheckConfig(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

// GetCoupon retrieves a coupon by code, case-insensitively.
func (c *Cashier) GetCoupon(ctx context.Context, code string) (*coupon.Coupon, error) {
	return c.store.GetCoupon(ctx, coupon.NormalizeCode(code))
}

// GetCouponByID retrieves a coupon by ID.
func (c *Cashier) GetCouponByID(ctx context.Context, couponID id.CouponID) (*coupon.Coupon, error) {
	return c.store.GetCouponByID(ctx, couponID)
}

// ListCoupons lists coupons newest first.
func (c *Cashier) ListCoupons(ctx context.Context, opts coupon.ListOpts) ([]*coupon.Coupon, error) {
	return c.store.ListCoupons(ctx, opts)
}

// DeleteCoupon removes a coupon.
func (c *Cashier) DeleteCoupon(ctx context.Context, couponID id.CouponID) error {
	return c.store.DeleteCoupon(ctx, couponID)
}

// ValidateCoupon checks that code can be redeemed by userID for planID
// right now, including any CouponValidator plugins. It does not redeem.
func (c *Cashier) ValidateCoupon(ctx context.Context, code, userID string, planID id.PlanID) (*coupon.Coupon, error) {
	p, err := c.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	return c.checkCoupon(ctx, code, userID, p, c.Now())
}

func (c *Cashier) checkCoupon(ctx context.Context, code, userID string, p *plan.Plan, now time.Time) (*coupon.Coupon, error) {
	cp, err := c.store.GetCoupon(ctx, coupon.NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	if err := cp.Validate(now, p.ID, p.Price.Currency); err != nil {
		return nil, err
	}
	if err := c.plugins.ValidateCoupon(ctx, cp, userID, p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCouponNotApplicable, err)
	}
	return cp, nil
}
