package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/cashier"
	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/paymethod"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/store/sqlmodel"
)

// ==================== Plan Store ====================

func (s *Store) CreatePlan(ctx context.Context, p *plan.Plan) error {
	_, err := s.sdb.NewInsert(sqlmodel.ToPlanModel(p)).Exec(ctx)
	if isUniqueViolation(err) {
		return cashier.ErrSlugTaken
	}
	return err
}

func (s *Store) GetPlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error) {
	m := new(sqlmodel.PlanModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", planID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, cashier.ErrPlanNotFound
		}
		return nil, err
	}
	return sqlmodel.FromPlanModel(m)
}

func (s *Store) GetPlanBySlug(ctx context.Context, slug string) (*plan.Plan, error) {
	m := new(sqlmodel.PlanModel)
	err := s.sdb.NewSelect(m).
		Where("slug = ?", slug).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, cashier.ErrPlanNotFound
		}
		return nil, err
	}
	return sqlmodel.FromPlanModel(m)
}

func (s *Store) ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	var models []sqlmodel.PlanModel
	q := s.sdb.NewSelect(&models)

	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("tier ASC, slug ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return sqlmodel.Convert(models, sqlmodel.FromPlanModel)
}

func (s *Store) UpdatePlan(ctx context.Context, p *plan.Plan) error {
	res, err := s.sdb.NewUpdate(sqlmodel.ToPlanModel(p)).WherePK().Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return cashier.ErrSlugTaken
		}
		return err
	}
	return affected(res, cashier.ErrPlanNotFound)
}

func (s *Store) DeletePlan(ctx context.Context, planID id.PlanID) error {
	res, err := s.sdb.NewDelete((*sqlmodel.PlanModel)(nil)).
		Where("id = ?", planID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return affected(res, cashier.ErrPlanNotFound)
}

func (s *Store) ArchivePlan(ctx context.Context, planID id.PlanID) error {
	res, err := s.sdb.NewUpdate((*sqlmodel.PlanModel)(nil)).
		Set("status = ?", string(plan.StatusArchived)).
		Set("updated_at = ?", now()).
		Where("id = ?", planID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return affected(res, cashier.ErrPlanNotFound)
}

// ==================== Coupon Store ====================

func (s *Store) CreateCoupon(ctx context.Context, c *coupon.Coupon) error {
	_, err := s.sdb.NewInsert(sqlmodel.ToCouponModel(c)).Exec(ctx)
	if isUniqueViolation(err) {
		return cashier.ErrCouponCodeTaken
	}
	return err
}

func (s *Store) GetCoupon(ctx context.Context, code string) (*coupon.Coupon, error) {
	m := new(sqlmodel.CouponModel)
	err := s.sdb.NewSelect(m).
		Where("code = ?", coupon.NormalizeCode(code)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, cashier.ErrCouponNotFound
		}
		return nil, err
	}
	return sqlmodel.FromCouponModel(m)
}

func (s *Store) GetCouponByID(ctx context.Context, couponID id.CouponID) (*coupon.Coupon, error) {
	m := new(sqlmodel.CouponModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", couponID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, cashier.ErrCouponNotFound
		}
		return nil, err
	}
	return sqlmodel.FromCouponModel(m)
}

func (s *Store) ListCoupons(ctx context.Context, opts coupon.ListOpts) ([]*coupon.Coupon, error) {
	var models []sqlmodel.CouponModel
	q := s.sdb.NewSelect(&models)

	if opts.Active {
		q = q.Where("active = ?", true)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC, code ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return sqlmodel.Convert(models, sqlmodel.FromCouponModel)
}

// UpdateCoupon writes every column except used_count, which only
// RedeemCoupon and ReleaseCoupon change.
func (s *Store) UpdateCoupon(ctx context.Context, c *coupon.Coupon) error {
	m := sqlmodel.ToCouponModel(c)
	res, err := s.sdb.NewUpdate((*sqlmodel.CouponModel)(nil)).
		Set("code = ?", m.Code).
		Set("description = ?", m.Description).
		Set("type = ?", m.Type).
		Set("percent = ?", m.Percent).
		Set("amount_value = ?", m.AmountValue).
		Set("amount_currency = ?", m.AmountCurrency).
		Set("max_uses = ?", m.MaxUses).
		Set("valid_from = ?", m.ValidFrom).
		Set("expires_at = ?", m.ExpiresAt).
		Set("active = ?", m.Active).
		Set("plan_ids = ?", m.PlanIDs).
		Set("updated_at = ?", m.UpdatedAt).
		Where("id = ?", m.ID).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return cashier.ErrCouponCodeTaken
		}
		return err
	}
	return affected(res, cashier.ErrCouponNotFound)
}

func (s *Store) DeleteCoupon(ctx context.Context, couponID id.CouponID) error {
	res, err := s.sdb.NewDelete((*sqlmodel.CouponModel)(nil)).
		Where("id = ?", couponID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return affected(res, cashier.ErrCouponNotFound)
}

// RedeemCoupon increments used_count with a single conditional UPDATE so
// concurrent checkouts cannot overshoot max_uses.
func (s *Store) RedeemCoupon(ctx context.Context, couponID id.CouponID, at time.Time) (*coupon.Coupon, error) {
	at = at.UTC()
	res, err := s.sdb.NewUpdate((*sqlmodel.CouponModel)(nil)).
		Set("used_count = used_count + 1").
		Set("updated_at = ?", at).
		Where("id = ?", couponID.String()).
		Where("active = TRUE").
		Where("(valid_from IS NULL OR valid_from <= ?)", at).
		Where("(expires_at IS NULL OR expires_at >= ?)", at).
		Where("(max_uses = 0 OR used_count < max_uses)").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("cashier/sqlite: redeem coupon: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	c, err := s.GetCouponByID(ctx, couponID)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, redeemFailure(c, at)
	}
	return c, nil
}

// redeemFailure explains why a conditional redeem matched no row.
func redeemFailure(c *coupon.Coupon, at time.Time) error {
	switch {
	case !c.Active:
		return coupon.ErrInactive
	case c.ValidFrom != nil && at.Before(*c.ValidFrom):
		return coupon.ErrNotStarted
	case c.ExpiresAt != nil && at.After(*c.ExpiresAt):
		return coupon.ErrExpired
	}
	return coupon.ErrExhausted
}

func (s *Store) ReleaseCoupon(ctx context.Context, couponID id.CouponID) error {
	_, err := s.sdb.NewUpdate((*sqlmodel.CouponModel)(nil)).
		Set("used_count = used_count - 1").
		Set("updated_at = ?", now()).
		Where("id = ?", couponID.String()).
		Where("used_count > 0").
		Exec(ctx)
	if err != nil {
		return err
	}
	// Zero rows is either a missing coupon or a count already at zero.
	_, err = s.GetCouponByID(ctx, couponID)
	return err
}

// ==================== Payment Method Store ====================

func (s *Store) UpsertPaymentMethod(ctx context.Context, c *paymethod.Config) error {
	existing, err := s.GetPaymentMethod(ctx, c.Code)
	switch {
	case err == nil:
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
	case !errors.Is(err, cashier.ErrPaymentMethodNotFound):
		return err
	}
	if c.ID.IsNil() {
		c.ID = id.NewPaymentMethodID()
	}

	_, err = s.sdb.NewInsert(sqlmodel.ToPaymentMethodModel(c)).
		OnConflict("(code) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("fee_percent = EXCLUDED.fee_percent").
		Set("fixed_fee = EXCLUDED.fixed_fee").
		Set("min_amount = EXCLUDED.min_amount").
		Set("max_amount = EXCLUDED.max_amount").
		Set("currency = EXCLUDED.currency").
		Set("countries = EXCLUDED.countries").
		Set("enabled = EXCLUDED.enabled").
		Set("sort_order = EXCLUDED.sort_order").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetPaymentMethod(ctx context.Context, code string) (*paymethod.Config, error) {
	m := new(sqlmodel.PaymentMethodModel)
	err := s.sdb.NewSelect(m).
		Where("code = ?", code).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, cashier.ErrPaymentMethodNotFound
		}
		return nil, err
	}
	return sqlmodel.FromPaymentMethodModel(m)
}

func (s *Store) ListPaymentMethods(ctx context.Context, enabledOnly bool) ([]*paymethod.Config, error) {
	var models []sqlmodel.PaymentMethodModel
	q := s.sdb.NewSelect(&models)
	if enabledOnly {
		q = q.Where("enabled = ?", true)
	}
	q = q.OrderExpr("sort_order ASC, code ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return sqlmodel.Convert(models, sqlmodel.FromPaymentMethodModel)
}

func (s *Store) DeletePaymentMethod(ctx context.Context, code string) error {
	res, err := s.sdb.NewDelete((*sqlmodel.PaymentMethodModel)(nil)).
		Where("code = ?", code).
		Exec(ctx)
	if err != nil {
		return err
	}
	return affected(res, cashier.ErrPaymentMethodNotFound)
}
