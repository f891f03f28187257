// Package id defines TypeID-based identity types for all Cashier entities.
//
// Every entity uses a single ID struct with a prefix that identifies the
// entity type. IDs are K-sortable (UUIDv7-based), globally unique, and
// URL-safe in the format "prefix_suffix".
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for all Cashier entity types.
const (
	PrefixPlan          Prefix = "plan"  // Subscription plan
	PrefixSubscription  Prefix = "sub"   // User subscription
	PrefixTrial         Prefix = "trial" // Trial period
	PrefixCoupon        Prefix = "cpn"   // Discount coupon
	PrefixPayment       Prefix = "pay"   // Payment record
	PrefixPaymentMethod Prefix = "pmc"   // Payment method configuration
	PrefixTemplate      Prefix = "tpl"   // Email template
	PrefixEmailLog      Prefix = "elog"  // Email delivery log
	PrefixNotification  Prefix = "ntf"   // In-app notification
)

// ID is the primary identifier type for all Cashier entities.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string (e.g., "plan_01h2xcejqtf2nbrexx3vqjhp41")
// into an ID.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses a TypeID string and validates that its prefix
// matches the expected value.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// ParseOptional is like ParseWithPrefix but maps the empty string to Nil.
// Used for nullable foreign keys.
func ParseOptional(s string, expected Prefix) (ID, error) {
	if s == "" {
		return Nil, nil
	}
	return ParseWithPrefix(s, expected)
}

// MustParse is like Parse but panics on error. Use for hardcoded ID values.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}

	return parsed
}

// ──────────────────────────────────────────────────
// Type aliases
// ──────────────────────────────────────────────────

// PlanID is a type-safe identifier for plans (prefix: "plan").
type PlanID = ID

// SubscriptionID is a type-safe identifier for subscriptions (prefix: "sub").
type SubscriptionID = ID

// TrialID is a type-safe identifier for trial periods (prefix: "trial").
type TrialID = ID

// CouponID is a type-safe identifier for coupons (prefix: "cpn").
type CouponID = ID

// PaymentID is a type-safe identifier for payments (prefix: "pay").
type PaymentID = ID

// PaymentMethodID is a type-safe identifier for payment method configs (prefix: "pmc").
type PaymentMethodID = ID

// TemplateID is a type-safe identifier for email templates (prefix: "tpl").
type TemplateID = ID

// EmailLogID is a type-safe identifier for email logs (prefix: "elog").
type EmailLogID = ID

// NotificationID is a type-safe identifier for notifications (prefix: "ntf").
type NotificationID = ID

// ──────────────────────────────────────────────────
// Convenience constructors
// ──────────────────────────────────────────────────

func NewPlanID() ID          { return New(PrefixPlan) }
func NewSubscriptionID() ID  { return New(PrefixSubscription) }
func NewTrialID() ID         { return New(PrefixTrial) }
func NewCouponID() ID        { return New(PrefixCoupon) }
func NewPaymentID() ID       { return New(PrefixPayment) }
func NewPaymentMethodID() ID { return New(PrefixPaymentMethod) }
func NewTemplateID() ID      { return New(PrefixTemplate) }
func NewEmailLogID() ID      { return New(PrefixEmailLog) }
func NewNotificationID() ID  { return New(PrefixNotification) }

// ──────────────────────────────────────────────────
// Convenience parsers
// ──────────────────────────────────────────────────

// ParsePlanID parses a string and validates the "plan" prefix.
func ParsePlanID(s string) (ID, error) { return ParseWithPrefix(s, PrefixPlan) }

// ParseSubscriptionID parses a string and validates the "sub" prefix.
func ParseSubscriptionID(s string) (ID, error) { return ParseWithPrefix(s, PrefixSubscription) }

// ParseTrialID parses a string and validates the "trial" prefix.
func ParseTrialID(s string) (ID, error) { return ParseWithPrefix(s, PrefixTrial) }

// ParseCouponID parses a string and validates the "cpn" prefix.
func ParseCouponID(s string) (ID, error) { return ParseWithPrefix(s, PrefixCoupon) }

// ParsePaymentID parses a string and validates the "pay" prefix.
func ParsePaymentID(s string) (ID, error) { return ParseWithPrefix(s, PrefixPayment) }

// ParsePaymentMethodID parses a string and validates the "pmc" prefix.
func ParsePaymentMethodID(s string) (ID, error) { return ParseWithPrefix(s, PrefixPaymentMethod) }

// ParseTemplateID parses a string and validates the "tpl" prefix.
func ParseTemplateID(s string) (ID, error) { return ParseWithPrefix(s, PrefixTemplate) }

// ParseEmailLogID parses a string and validates the "elog" prefix.
func ParseEmailLogID(s string) (ID, error) { return ParseWithPrefix(s, PrefixEmailLog) }

// ParseNotificationID parses a string and validates the "ntf" prefix.
func ParseNotificationID(s string) (ID, error) { return ParseWithPrefix(s, PrefixNotification) }

// ParseAny parses a string into an ID without type checking the prefix.
func ParseAny(s string) (ID, error) { return Parse(s) }

// ──────────────────────────────────────────────────
// ID methods
// ──────────────────────────────────────────────────

// String returns the full TypeID string representation (prefix_suffix).
// Returns an empty string for the Nil ID.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// Value implements driver.Valuer. The Nil ID is stored as NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return i.inner.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (i *ID) Scan(src any) error {
	if src == nil {
		*i = Nil

		return nil
	}

	switch v := src.(type) {
	case string:
		if v == "" {
			*i = Nil

			return nil
		}

		return i.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 0 {
			*i = Nil

			return nil
		}

		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}

// Strings converts a slice of IDs to their string forms, skipping Nil.
func Strings(ids []ID) []string {
	out := make([]string, 0, len(ids))
	for _, i := range ids {
		if !i.IsNil() {
			out = append(out, i.String())
		}
	}
	return out
}
