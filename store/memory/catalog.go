package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/xraph/cashier"
	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/paymethod"
	"github.com/xraph/cashier/plan"
)

// ──────────────────────────────────────────────────
// Plans
// ──────────────────────────────────────────────────

func clonePlan(p *plan.Plan) *plan.Plan {
	cp := *p
	cp.Features = cloneMap(p.Features)
	cp.Limits = cloneMap(p.Limits)
	cp.Metadata = cloneMap(p.Metadata)
	if p.Discount != nil {
		d := *p.Discount
		cp.Discount = &d
	}
	return &cp
}

func (s *Store) slugTaken(slug string, except id.PlanID) bool {
	for _, p := range s.plans {
		if p.Slug == slug && p.ID.String() != except.String() {
			return true
		}
	}
	return false
}

func (s *Store) CreatePlan(_ context.Context, p *plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.plans[p.ID.String()]; exists {
		return cashier.ErrAlreadyExists
	}
	if s.slugTaken(p.Slug, p.ID) {
		return cashier.ErrSlugTaken
	}
	s.plans[p.ID.String()] = clonePlan(p)
	return nil
}

func (s *Store) GetPlan(_ context.Context, planID id.PlanID) (*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.plans[planID.String()]; ok {
		return clonePlan(p), nil
	}
	return nil, cashier.ErrPlanNotFound
}

func (s *Store) GetPlanBySlug(_ context.Context, slug string) (*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.plans {
		if p.Slug == slug {
			return clonePlan(p), nil
		}
	}
	return nil, cashier.ErrPlanNotFound
}

func (s *Store) ListPlans(_ context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := sortedValues(s.plans, func(a, b *plan.Plan) int {
		if c := cmp.Compare(a.Tier, b.Tier); c != 0 {
			return c
		}
		return cmp.Compare(a.Slug, b.Slug)
	})

	result := make([]*plan.Plan, 0, len(all))
	for _, p := range all {
		if opts.Status == "" || p.Status == opts.Status {
			result = append(result, clonePlan(p))
		}
	}
	return page(result, opts.Limit, opts.Offset), nil
}

func (s *Store) UpdatePlan(_ context.Context, p *plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.plans[p.ID.String()]; !exists {
		return cashier.ErrPlanNotFound
	}
	if s.slugTaken(p.Slug, p.ID) {
		return cashier.ErrSlugTaken
	}
	s.plans[p.ID.String()] = clonePlan(p)
	return nil
}

func (s *Store) DeletePlan(_ context.Context, planID id.PlanID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.plans[planID.String()]; !exists {
		return cashier.ErrPlanNotFound
	}
	delete(s.plans, planID.String())
	return nil
}

func (s *Store) ArchivePlan(_ context.Context, planID id.PlanID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, exists := s.plans[planID.String()]; exists {
		p.Status = plan.StatusArchived
		p.Touch()
		return nil
	}
	return cashier.ErrPlanNotFound
}

// ──────────────────────────────────────────────────
// Coupons
// ──────────────────────────────────────────────────

func cloneCoupon(c *coupon.Coupon) *coupon.Coupon {
	cp := *c
	cp.PlanIDs = slices.Clone(c.PlanIDs)
	return &cp
}

func (s *Store) CreateCoupon(_ context.Context, c *coupon.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.coupons[c.ID.String()]; exists {
		return cashier.ErrAlreadyExists
	}
	for _, existing := range s.coupons {
		if existing.Code == c.Code {
			return cashier.ErrCouponCodeTaken
		}
	}
	s.coupons[c.ID.String()] = cloneCoupon(c)
	return nil
}

func (s *Store) GetCoupon(_ context.Context, code string) (*coupon.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	code = coupon.NormalizeCode(code)
	for _, c := range s.coupons {
		if c.Code == code {
			return cloneCoupon(c), nil
		}
	}
	return nil, cashier.ErrCouponNotFound
}

func (s *Store) GetCouponByID(_ context.Context, couponID id.CouponID) (*coupon.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.coupons[couponID.String()]; ok {
		return cloneCoupon(c), nil
	}
	return nil, cashier.ErrCouponNotFound
}

func (s *Store) ListCoupons(_ context.Context, opts coupon.ListOpts) ([]*coupon.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := sortedValues(s.coupons, func(a, b *coupon.Coupon) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Code, b.Code)
	})

	result := make([]*coupon.Coupon, 0, len(all))
	for _, c := range all {
		if opts.Active && !c.Active {
			continue
		}
		result = append(result, cloneCoupon(c))
	}
	return page(result, opts.Limit, opts.Offset), nil
}

func (s *Store) UpdateCoupon(_ context.Context, c *coupon.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.coupons[c.ID.String()]
	if !ok {
		return cashier.ErrCouponNotFound
	}
	for _, other := range s.coupons {
		if other.Code == c.Code && other.ID.String() != c.ID.String() {
			return cashier.ErrCouponCodeTaken
		}
	}
	updated := cloneCoupon(c)
	// Redemptions are owned by RedeemCoupon and ReleaseCoupon.
	updated.UsedCount = existing.UsedCount
	s.coupons[c.ID.String()] = updated
	return nil
}

func (s *Store) DeleteCoupon(_ context.Context, couponID id.CouponID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.coupons[couponID.String()]; !ok {
		return cashier.ErrCouponNotFound
	}
	delete(s.coupons, couponID.String())
	return nil
}

func (s *Store) RedeemCoupon(_ context.Context, couponID id.CouponID, now time.Time) (*coupon.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.coupons[couponID.String()]
	if !ok {
		return nil, cashier.ErrCouponNotFound
	}
	switch {
	case !c.Active:
		return nil, coupon.ErrInactive
	case c.ValidFrom != nil && now.Before(*c.ValidFrom):
		return nil, coupon.ErrNotStarted
	case c.ExpiresAt != nil && now.After(*c.ExpiresAt):
		return nil, coupon.ErrExpired
	case c.Exhausted():
		return nil, coupon.ErrExhausted
	}
	c.UsedCount++
	c.TouchAt(now)
	return cloneCoupon(c), nil
}

func (s *Store) ReleaseCoupon(_ context.Context, couponID id.CouponID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.coupons[couponID.String()]
	if !ok {
		return cashier.ErrCouponNotFound
	}
	if c.UsedCount > 0 {
		c.UsedCount--
		c.Touch()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Payment methods
// ──────────────────────────────────────────────────

func cloneMethod(c *paymethod.Config) *paymethod.Config {
	cp := *c
	cp.Countries = slices.Clone(c.Countries)
	return &cp
}

func (s *Store) UpsertPaymentMethod(_ context.Context, c *paymethod.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.methods[c.Code]; ok {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
	}
	s.methods[c.Code] = cloneMethod(c)
	return nil
}

func (s *Store) GetPaymentMethod(_ context.Context, code string) (*paymethod.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.methods[code]; ok {
		return cloneMethod(c), nil
	}
	return nil, cashier.ErrPaymentMethodNotFound
}

func (s *Store) ListPaymentMethods(_ context.Context, enabledOnly bool) ([]*paymethod.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := sortedValues(s.methods, func(a, b *paymethod.Config) int {
		if c := cmp.Compare(a.SortOrder, b.SortOrder); c != 0 {
			return c
		}
		return cmp.Compare(a.Code, b.Code)
	})

	result := make([]*paymethod.Config, 0, len(all))
	for _, c := range all {
		if enabledOnly && !c.Enabled {
			continue
		}
		result = append(result, cloneMethod(c))
	}
	return result, nil
}

func (s *Store) DeletePaymentMethod(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.methods[code]; !ok {
		return cashier.ErrPaymentMethodNotFound
	}
	delete(s.methods, code)
	return nil
}
