// Package export writes billing records as CSV for finance and support.
// Money columns are in major units, timestamps in RFC 3339 UTC.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/notify"
	"github.com/xraph/cashier/payment"
	"github.com/xraph/cashier/subscription"
)

// ContentType is the media type for CSV responses.
const ContentType = "text/csv; charset=utf-8"

var (
	paymentHeader = []string{
		"id", "user_id", "plan_id", "subscription_id", "status", "method", "currency",
		"subtotal", "discount", "fee", "amount", "coupon_code", "gateway_ref",
		"failure_reason", "created_at", "paid_at", "refunded_at",
	}
	subscriptionHeader = []string{
		"id", "user_id", "plan_id", "status", "is_trial", "starts_at", "expires_at",
		"canceled_at", "payment_method", "payment_id", "created_at",
	}
	couponHeader = []string{
		"id", "code", "type", "percent", "amount", "currency", "max_uses", "used_count",
		"active", "valid_from", "expires_at", "created_at",
	}
	emailLogHeader = []string{
		"id", "user_id", "type", "to", "subject", "status", "provider_id", "error", "sent_at",
	}
)

// WritePayments writes one row per payment after a header row.
func WritePayments(w io.Writer, payments []*payment.Payment) error {
	return write(w, paymentHeader, len(payments), func(i int) []string {
		p := payments[i]
		return []string{
			p.ID.String(),
			p.UserID,
			p.PlanID.String(),
			p.SubscriptionID.String(),
			string(p.Status),
			p.Method,
			strings.ToUpper(p.Currency),
			p.Subtotal.FormatMajor(),
			p.Discount.FormatMajor(),
			p.Fee.FormatMajor(),
			p.Amount.FormatMajor(),
			p.CouponCode,
			p.GatewayRef,
			p.FailureReason,
			timestamp(p.CreatedAt),
			optionalTime(p.PaidAt),
			optionalTime(p.RefundedAt),
		}
	})
}

// WriteSubscriptions writes one row per subscription after a header row.
func WriteSubscriptions(w io.Writer, subs []*subscription.Subscription) error {
	return write(w, subscriptionHeader, len(subs), func(i int) []string {
		s := subs[i]
		return []string{
			s.ID.String(),
			s.UserID,
			s.PlanID.String(),
			string(s.Status),
			strconv.FormatBool(s.IsTrial),
			timestamp(s.StartsAt),
			timestamp(s.ExpiresAt),
			optionalTime(s.CanceledAt),
			s.PaymentMethod,
			s.PaymentID.String(),
			timestamp(s.CreatedAt),
		}
	})
}

// WriteCoupons writes one row per coupon after a header row.
func WriteCoupons(w io.Writer, coupons []*coupon.Coupon) error {
	return write(w, couponHeader, len(coupons), func(i int) []string {
		c := coupons[i]
		var percent, amount, currency string
		switch c.Type {
		case coupon.CouponTypePercentage:
			percent = c.Percent.String()
		case coupon.CouponTypeFixed:
			amount = c.Amount.FormatMajor()
			currency = strings.ToUpper(c.Amount.Currency)
		}
		return []string{
			c.ID.String(),
			c.Code,
			string(c.Type),
			percent,
			amount,
			currency,
			strconv.Itoa(c.MaxUses),
			strconv.Itoa(c.UsedCount),
			strconv.FormatBool(c.Active),
			optionalTime(c.ValidFrom),
			optionalTime(c.ExpiresAt),
			timestamp(c.CreatedAt),
		}
	})
}

// WriteEmailLogs writes one row per delivery attempt after a header row.
func WriteEmailLogs(w io.Writer, logs []*notify.EmailLog) error {
	return write(w, emailLogHeader, len(logs), func(i int) []string {
		l := logs[i]
		return []string{
			l.ID.String(),
			l.UserID,
			string(l.Type),
			l.To,
			l.Subject,
			string(l.Status),
			l.ProviderID,
			l.Error,
			timestamp(l.SentAt),
		}
	})
}

func write(w io.Writer, header []string, n int, row func(i int) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for i := range n {
		if err := cw.Write(row(i)); err != nil {
			return fmt.Errorf("export: write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}
	return nil
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func optionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return timestamp(*t)
}
