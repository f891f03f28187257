// Package pricing computes checkout totals from a plan, an optional coupon
// and an optional payment method.
//
// Stages run in a fixed order, each producing whole minor units:
//
//  1. the plan price
//  2. the plan discount, when active
//  3. the coupon, floored at zero
//  4. the payment-method fee on the discounted subtotal
package pricing

import (
	"errors"
	"time"

	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/paymethod"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/types"
)

// ErrNoPlan is returned when a quote is requested without a plan.
var ErrNoPlan = errors.New("pricing: plan is required")

type LineItemType string

const (
	LineItemPlan         LineItemType = "plan"
	LineItemPlanDiscount LineItemType = "plan_discount"
	LineItemCoupon       LineItemType = "coupon"
	LineItemFee          LineItemType = "fee"
)

type LineItem struct {
	Type        LineItemType `json:"type"`
	Description string       `json:"description"`
	Amount      types.Money  `json:"amount"`
}

type QuoteInput struct {
	Plan   *plan.Plan
	Coupon *coupon.Coupon
	Method *paymethod.Config
	Now    time.Time
}

type Quote struct {
	Base              types.Money `json:"base"`
	PlanDiscount      types.Money `json:"plan_discount"`
	AfterPlanDiscount types.Money `json:"after_plan_discount"`
	CouponDiscount    types.Money `json:"coupon_discount"`
	Subtotal          types.Money `json:"subtotal"`
	Fee               types.Money `json:"fee"`
	Total             types.Money `json:"total"`
	CouponCode        string      `json:"coupon_code,omitempty"`
	Method            string      `json:"method,omitempty"`
	LineItems         []LineItem  `json:"line_items"`
}

// Discount is everything taken off the base price.
func (q *Quote) Discount() types.Money {
	return q.PlanDiscount.Add(q.CouponDiscount)
}

// Compute prices a checkout. It does not validate the coupon; callers run
// coupon.Validate first.
func Compute(in QuoteInput) (Quote, error) {
	if in.Plan == nil {
		return Quote{}, ErrNoPlan
	}
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}

	p := in.Plan
	base := p.Price
	zero := types.Zero(base.Currency)
	q := Quote{
		Base:           base,
		PlanDiscount:   zero,
		CouponDiscount: zero,
		Fee:            zero,
		LineItems: []LineItem{
			{Type: LineItemPlan, Description: p.Name, Amount: base},
		},
	}

	q.AfterPlanDiscount = p.EffectivePrice(in.Now)
	if d := base.Subtract(q.AfterPlanDiscount); d.IsPositive() {
		q.PlanDiscount = d
		q.LineItems = append(q.LineItems, LineItem{
			Type:        LineItemPlanDiscount,
			Description: p.Discount.Percent.String() + " plan discount",
			Amount:      d.Negate(),
		})
	}

	q.Subtotal = q.AfterPlanDiscount
	if c := in.Coupon; c != nil {
		q.Subtotal, q.CouponDiscount = c.Apply(q.AfterPlanDiscount)
		q.CouponCode = c.Code
		if q.CouponDiscount.IsPositive() {
			q.LineItems = append(q.LineItems, LineItem{
				Type:        LineItemCoupon,
				Description: "Coupon " + c.Code,
				Amount:      q.CouponDiscount.Negate(),
			})
		}
	}

	if m := in.Method; m != nil {
		q.Method = m.Code
		if q.Subtotal.IsPositive() {
			q.Fee = m.Fee(q.Subtotal)
		}
		if q.Fee.IsPositive() {
			q.LineItems = append(q.LineItems, LineItem{
				Type:        LineItemFee,
				Description: m.Name + " fee (" + m.FeePercent.String() + ")",
				Amount:      q.Fee,
			})
		}
	}

	q.Total = q.Subtotal.Add(q.Fee).Floor()
	return q, nil
}
