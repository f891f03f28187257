package coupon

import (
	"errors"
	"strings"
	"time"

	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/types"
)

// Validation failures, checked in this order by Validate.
var (
	ErrInactive      = errors.New("cashier: coupon inactive")
	ErrNotStarted    = errors.New("cashier: coupon not yet valid")
	ErrExpired       = errors.New("cashier: coupon expired")
	ErrExhausted     = errors.New("cashier: coupon redemptions exhausted")
	ErrNotApplicable = errors.New("cashier: coupon not applicable to plan")
)

type Coupon struct {
	types.Entity
	ID          id.CouponID `json:"id"`
	Code        string      `json:"code"`
	Description string      `json:"description,omitempty"`
	Type        CouponType  `json:"type"`
	Percent     types.Rate  `json:"percent,omitempty"`
	Amount      types.Money `json:"amount,omitempty"`
	MaxUses     int         `json:"max_uses"`
	UsedCount   int         `json:"used_count"`
	ValidFrom   *time.Time  `json:"valid_from,omitempty"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
	Active      bool        `json:"active"`
	PlanIDs     []id.PlanID `json:"plan_ids,omitempty"`
}

type CouponType string

const (
	CouponTypePercentage CouponType = "percentage"
	CouponTypeFixed      CouponType = "fixed"
)

// NormalizeCode is the stored form of a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks whether the coupon can be redeemed at now for planID,
// priced in currency.
func (c *Coupon) Validate(now time.Time, planID id.PlanID, currency string) error {
	switch {
	case !c.Active:
		return ErrInactive
	case c.ValidFrom != nil && now.Before(*c.ValidFrom):
		return ErrNotStarted
	case c.ExpiresAt != nil && now.After(*c.ExpiresAt):
		return ErrExpired
	case c.Exhausted():
		return ErrExhausted
	case !c.AppliesTo(planID), !c.InCurrency(currency):
		return ErrNotApplicable
	}
	return nil
}

// InCurrency reports whether the discount can be taken off a price in
// currency. Only fixed amounts carry a currency; an empty one matches any.
func (c *Coupon) InCurrency(currency string) bool {
	if c.Type != CouponTypeFixed || c.Amount.Currency == "" {
		return true
	}
	return strings.EqualFold(c.Amount.Currency, currency)
}

// Exhausted reports whether every allowed redemption has been used.
func (c *Coupon) Exhausted() bool {
	return c.MaxUses > 0 && c.UsedCount >= c.MaxUses
}

// AppliesTo reports whether the coupon is restricted away from planID.
// An empty PlanIDs list applies to every plan.
func (c *Coupon) AppliesTo(planID id.PlanID) bool {
	if len(c.PlanIDs) == 0 {
		return true
	}
	for _, pid := range c.PlanIDs {
		if pid.String() == planID.String() {
			return true
		}
	}
	return false
}

// Apply returns the discounted total and the discount taken. Fixed
// discounts never drive the total below zero.
func (c *Coupon) Apply(total types.Money) (discounted, discount types.Money) {
	switch c.Type {
	case CouponTypePercentage:
		discount = c.Percent.Of(total)
	case CouponTypeFixed:
		discount = types.Money{Amount: c.Amount.Amount, Currency: total.Currency}
	default:
		discount = types.Zero(total.Currency)
	}
	if discount.GreaterThan(total) {
		discount = total.Floor()
	}
	return total.Subtract(discount), discount
}

func (c *Coupon) CheckConfig() error {
	var errs []error
	if NormalizeCode(c.Code) == "" {
		errs = append(errs, errors.New("coupon: code is required"))
	}
	switch c.Type {
	case CouponTypePercentage:
		if c.Percent <= 0 || !c.Percent.Valid() {
			errs = append(errs, errors.New("coupon: percent must be in (0, 100]"))
		}
	case CouponTypeFixed:
		if !c.Amount.IsPositive() {
			errs = append(errs, errors.New("coupon: amount must be positive"))
		}
	default:
		errs = append(errs, errors.New("coupon: unknown type"))
	}
	if c.MaxUses < 0 {
		errs = append(errs, errors.New("coupon: max uses must not be negative"))
	}
	if c.ValidFrom != nil && c.ExpiresAt != nil && c.ExpiresAt.Before(*c.ValidFrom) {
		errs = append(errs, errors.New("coupon: expires before it starts"))
	}
	return errors.Join(errs...)
}
