package payment

import (
	"time"

	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/pricing"
	"github.com/xraph/cashier/types"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// Payment records one checkout attempt. Amount is the charged total.
type Payment struct {
	types.Entity
	ID             id.PaymentID       `json:"id"`
	UserID         string             `json:"user_id"`
	PlanID         id.PlanID          `json:"plan_id"`
	SubscriptionID id.SubscriptionID  `json:"subscription_id"`
	Amount         types.Money        `json:"amount"`
	Subtotal       types.Money        `json:"subtotal"`
	Fee            types.Money        `json:"fee"`
	Discount       types.Money        `json:"discount"`
	Currency       string             `json:"currency"`
	Method         string             `json:"method"`
	Status         Status             `json:"status"`
	CouponID       id.CouponID        `json:"coupon_id"`
	CouponCode     string             `json:"coupon_code,omitempty"`
	GatewayRef     string             `json:"gateway_ref,omitempty"`
	FailureReason  string             `json:"failure_reason,omitempty"`
	LineItems      []pricing.LineItem `json:"line_items,omitempty"`
	PaidAt         *time.Time         `json:"paid_at,omitempty"`
	RefundedAt     *time.Time         `json:"refunded_at,omitempty"`
	Metadata       map[string]string  `json:"metadata,omitempty"`
}

func (p *Payment) IsPending() bool   { return p.Status == StatusPending }
func (p *Payment) IsCompleted() bool { return p.Status == StatusCompleted }
