package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/cashier"
	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/paymethod"
	"github.com/xraph/cashier/plan"
)

// ==================== Plan Store ====================

func (s *Store) CreatePlan(ctx context.Context, p *plan.Plan) error {
	_, err := s.mdb.NewInsert(toPlanModel(p)).Exec(ctx)
	return wrap("create plan", err, cashier.ErrSlugTaken)
}

func (s *Store) GetPlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error) {
	return s.findPlan(ctx, bson.M{"_id": planID.String()})
}

func (s *Store) GetPlanBySlug(ctx context.Context, slug string) (*plan.Plan, error) {
	return s.findPlan(ctx, bson.M{"slug": slug})
}

func (s *Store) findPlan(ctx context.Context, filter bson.M) (*plan.Plan, error) {
	var m planModel
	err := s.mdb.NewFind(&m).Filter(filter).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, cashier.ErrPlanNotFound
		}
		return nil, wrap("get plan", err, nil)
	}
	return fromPlanModel(&m)
}

func (s *Store) ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	var models []planModel

	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "tier", Value: 1}, {Key: "slug", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, wrap("list plans", err, nil)
	}

	result := make([]*plan.Plan, len(models))
	for i := range models {
		p, err := fromPlanModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

func (s *Store) UpdatePlan(ctx context.Context, p *plan.Plan) error {
	m := toPlanModel(p)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return wrap("update plan", err, cashier.ErrSlugTaken)
	}
	if res.MatchedCount() == 0 {
		return cashier.ErrPlanNotFound
	}
	return nil
}

func (s *Store) DeletePlan(ctx context.Context, planID id.PlanID) error {
	res, err := s.mdb.NewDelete((*planModel)(nil)).
		Filter(bson.M{"_id": planID.String()}).
		Exec(ctx)
	if err != nil {
		return wrap("delete plan", err, nil)
	}
	if res.DeletedCount() == 0 {
		return cashier.ErrPlanNotFound
	}
	return nil
}

func (s *Store) ArchivePlan(ctx context.Context, planID id.PlanID) error {
	res, err := s.mdb.NewUpdate((*planModel)(nil)).
		Filter(bson.M{"_id": planID.String()}).
		Set("status", string(plan.StatusArchived)).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return wrap("archive plan", err, nil)
	}
	if res.MatchedCount() == 0 {
		return cashier.ErrPlanNotFound
	}
	return nil
}

// ==================== Coupon Store ====================

func (s *Store) CreateCoupon(ctx context.Context, c *coupon.Coupon) error {
	_, err := s.mdb.NewInsert(toCouponModel(c)).Exec(ctx)
	return wrap("create coupon", err, cashier.ErrCouponCodeTaken)
}

func (s *Store) GetCoupon(ctx context.Context, code string) (*coupon.Coupon, error) {
	return s.findCoupon(ctx, bson.M{"code": coupon.NormalizeCode(code)})
}

func (s *Store) GetCouponByID(ctx context.Context, couponID id.CouponID) (*coupon.Coupon, error) {
	return s.findCoupon(ctx, bson.M{"_id": couponID.String()})
}

func (s *Store) findCoupon(ctx context.Context, filter bson.M) (*coupon.Coupon, error) {
	var m couponModel
	err := s.mdb.NewFind(&m).Filter(filter).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, cashier.ErrCouponNotFound
		}
		return nil, wrap("get coupon", err, nil)
	}
	return fromCouponModel(&m)
}

func (s *Store) ListCoupons(ctx context.Context, opts coupon.ListOpts) ([]*coupon.Coupon, error) {
	var models []couponModel

	filter := bson.M{}
	if opts.Active {
		filter["active"] = true
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}, {Key: "code", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, wrap("list coupons", err, nil)
	}

	result := make([]*coupon.Coupon, len(models))
	for i := range models {
		c, err := fromCouponModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// UpdateCoupon leaves used_count alone; only redeem and release move it.
func (s *Store) UpdateCoupon(ctx context.Context, c *coupon.Coupon) error {
	m := toCouponModel(c)
	res, err := s.mdb.NewUpdate((*couponModel)(nil)).
		Filter(bson.M{"_id": m.ID}).
		Set("code", m.Code).
		Set("description", m.Description).
		Set("type", m.Type).
		Set("percent", m.Percent).
		Set("amount_value", m.AmountValue).
		Set("amount_currency", m.AmountCurrency).
		Set("max_uses", m.MaxUses).
		Set("valid_from", m.ValidFrom).
		Set("expires_at", m.ExpiresAt).
		Set("active", m.Active).
		Set("plan_ids", m.PlanIDs).
		Set("updated_at", m.UpdatedAt).
		Exec(ctx)
	if err != nil {
		return wrap("update coupon", err, cashier.ErrCouponCodeTaken)
	}
	if res.MatchedCount() == 0 {
		return cashier.ErrCouponNotFound
	}
	return nil
}

func (s *Store) DeleteCoupon(ctx context.Context, couponID id.CouponID) error {
	res, err := s.mdb.NewDelete((*couponModel)(nil)).
		Filter(bson.M{"_id": couponID.String()}).
		Exec(ctx)
	if err != nil {
		return wrap("delete coupon", err, nil)
	}
	if res.DeletedCount() == 0 {
		return cashier.ErrCouponNotFound
	}
	return nil
}

// RedeemCoupon increments used_count with FindOneAndUpdate guarded by the
// redeemability conditions.
func (s *Store) RedeemCoupon(ctx context.Context, couponID id.CouponID, at time.Time) (*coupon.Coupon, error) {
	at = at.UTC()
	filter := bson.M{
		"_id":    couponID.String(),
		"active": true,
		"$and": bson.A{
			bson.M{"$or": bson.A{bson.M{"valid_from": nil}, bson.M{"valid_from": bson.M{"$lte": at}}}},
			bson.M{"$or": bson.A{bson.M{"expires_at": nil}, bson.M{"expires_at": bson.M{"$gte": at}}}},
			bson.M{"$or": bson.A{
				bson.M{"max_uses": 0},
				bson.M{"$expr": bson.M{"$lt": bson.A{"$used_count", "$max_uses"}}},
			}},
		},
	}
	update := bson.M{
		"$inc": bson.M{"used_count": 1},
		"$set": bson.M{"updated_at": at},
	}

	var m couponModel
	err := s.mdb.Collection(colCoupons).
		FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).
		Decode(&m)
	if err == nil {
		return fromCouponModel(&m)
	}
	if !isNoDocuments(err) {
		return nil, wrap("redeem coupon", err, nil)
	}

	c, err := s.GetCouponByID(ctx, couponID)
	if err != nil {
		return nil, err
	}
	switch {
	case !c.Active:
		return nil, coupon.ErrInactive
	case c.ValidFrom != nil && at.Before(*c.ValidFrom):
		return nil, coupon.ErrNotStarted
	case c.ExpiresAt != nil && at.After(*c.ExpiresAt):
		return nil, coupon.ErrExpired
	}
	return nil, coupon.ErrExhausted
}

func (s *Store) ReleaseCoupon(ctx context.Context, couponID id.CouponID) error {
	res, err := s.mdb.Collection(colCoupons).UpdateOne(ctx,
		bson.M{"_id": couponID.String(), "used_count": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"used_count": -1}, "$set": bson.M{"updated_at": now()}},
	)
	if err != nil {
		return wrap("release coupon", err, nil)
	}
	if res.MatchedCount > 0 {
		return nil
	}
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

	m := toPaymentMethodModel(c)
	_, err = s.mdb.NewUpdate(m).
		Filter(bson.M{"code": m.Code}).
		SetUpdate(bson.M{
			"$set": bson.M{
				"name":        m.Name,
				"fee_percent": m.FeePercent,
				"fixed_fee":   m.FixedFee,
				"min_amount":  m.MinAmount,
				"max_amount":  m.MaxAmount,
				"currency":    m.Currency,
				"countries":   m.Countries,
				"enabled":     m.Enabled,
				"sort_order":  m.SortOrder,
				"updated_at":  m.UpdatedAt,
			},
			"$setOnInsert": bson.M{
				"_id":        m.ID,
				"created_at": m.CreatedAt,
			},
		}).
		Upsert().
		Exec(ctx)
	return wrap("upsert payment method", err, nil)
}

func (s *Store) GetPaymentMethod(ctx context.Context, code string) (*paymethod.Config, error) {
	var m paymentMethodModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"code": code}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, cashier.ErrPaymentMethodNotFound
		}
		return nil, wrap("get payment method", err, nil)
	}
	return fromPaymentMethodModel(&m)
}

func (s *Store) ListPaymentMethods(ctx context.Context, enabledOnly bool) ([]*paymethod.Config, error) {
	var models []paymentMethodModel

	filter := bson.M{}
	if enabledOnly {
		filter["enabled"] = true
	}

	err := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "sort_order", Value: 1}, {Key: "code", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, wrap("list payment methods", err, nil)
	}

	result := make([]*paymethod.Config, len(models))
	for i := range models {
		c, err := fromPaymentMethodModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

func (s *Store) DeletePaymentMethod(ctx context.Context, code string) error {
	res, err := s.mdb.NewDelete((*paymentMethodModel)(nil)).
		Filter(bson.M{"code": code}).
		Exec(ctx)
	if err != nil {
		return wrap("delete payment method", err, nil)
	}
	if res.DeletedCount() == 0 {
		return cashier.ErrPaymentMethodNotFound
	}
	return nil
}
