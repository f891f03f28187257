package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/cashier/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"PlanID", id.NewPlanID, "plan_"},
		{"SubscriptionID", id.NewSubscriptionID, "sub_"},
		{"TrialID", id.NewTrialID, "trial_"},
		{"CouponID", id.NewCouponID, "cpn_"},
		{"PaymentID", id.NewPaymentID, "pay_"},
		{"PaymentMethodID", id.NewPaymentMethodID, "pmc_"},
		{"TemplateID", id.NewTemplateID, "tpl_"},
		{"EmailLogID", id.NewEmailLogID, "elog_"},
		{"NotificationID", id.NewNotificationID, "ntf_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"PlanID", id.NewPlanID, id.ParsePlanID},
		{"SubscriptionID", id.NewSubscriptionID, id.ParseSubscriptionID},
		{"TrialID", id.NewTrialID, id.ParseTrialID},
		{"CouponID", id.NewCouponID, id.ParseCouponID},
		{"PaymentID", id.NewPaymentID, id.ParsePaymentID},
		{"PaymentMethodID", id.NewPaymentMethodID, id.ParsePaymentMethodID},
		{"TemplateID", id.NewTemplateID, id.ParseTemplateID},
		{"EmailLogID", id.NewEmailLogID, id.ParseEmailLogID},
		{"NotificationID", id.NewNotificationID, id.ParseNotificationID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParsePlanID rejects sub_", id.NewSubscriptionID().String(), id.ParsePlanID},
		{"ParseSubscriptionID rejects trial_", id.NewTrialID().String(), id.ParseSubscriptionID},
		{"ParseTrialID rejects cpn_", id.NewCouponID().String(), id.ParseTrialID},
		{"ParseCouponID rejects pay_", id.NewPaymentID().String(), id.ParseCouponID},
		{"ParsePaymentID rejects plan_", id.NewPlanID().String(), id.ParsePaymentID},
		{"ParseNotificationID rejects elog_", id.NewEmailLogID().String(), id.ParseNotificationID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.parseFn(tt.input); err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestParseOptional(t *testing.T) {
	got, err := id.ParseOptional("", id.PrefixCoupon)
	if err != nil {
		t.Fatalf("ParseOptional(\"\") failed: %v", err)
	}
	if !got.IsNil() {
		t.Error("expected Nil for empty input")
	}

	cpn := id.NewCouponID()
	got, err = id.ParseOptional(cpn.String(), id.PrefixCoupon)
	if err != nil {
		t.Fatalf("ParseOptional failed: %v", err)
	}
	if got.String() != cpn.String() {
		t.Errorf("mismatch: %q != %q", got.String(), cpn.String())
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	v, err := i.Value()
	if err != nil || v != nil {
		t.Errorf("expected NULL value, got %v (%v)", v, err)
	}
}

func TestScan(t *testing.T) {
	original := id.NewPaymentID()

	var fromString id.ID
	if err := fromString.Scan(original.String()); err != nil {
		t.Fatalf("Scan(string) failed: %v", err)
	}
	if fromString.String() != original.String() {
		t.Errorf("mismatch: %q != %q", fromString.String(), original.String())
	}

	var fromBytes id.ID
	if err := fromBytes.Scan([]byte(original.String())); err != nil {
		t.Fatalf("Scan([]byte) failed: %v", err)
	}

	var fromNil id.ID
	if err := fromNil.Scan(nil); err != nil || !fromNil.IsNil() {
		t.Errorf("Scan(nil) should yield Nil, err=%v", err)
	}

	var bad id.ID
	if err := bad.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}

func TestStrings(t *testing.T) {
	a, b := id.NewPlanID(), id.NewPlanID()
	got := id.Strings([]id.ID{a, id.Nil, b})
	if len(got) != 2 || got[0] != a.String() || got[1] != b.String() {
		t.Errorf("unexpected result: %v", got)
	}
}
