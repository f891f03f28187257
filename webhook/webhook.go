// Package webhook verifies and parses payment gateway callbacks.
//
// A callback is signed with HMAC-SHA256 over "<unix-ts>.<body>" using a
// shared secret. The hex signature travels in X-Cashier-Signature and the
// timestamp in X-Cashier-Timestamp.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/xraph/cashier/id"
)

const (
	HeaderSignature = "X-Cashier-Signature"
	HeaderTimestamp = "X-Cashier-Timestamp"

	// DefaultMaxAge is how old a signed callback may be.
	DefaultMaxAge = 5 * time.Minute

	// maxSkew tolerates gateway clocks running ahead.
	maxSkew = time.Minute
)

var (
	ErrSignature    = errors.New("cashier: webhook signature invalid")
	ErrExpired      = errors.New("cashier: webhook timestamp outside tolerance")
	ErrUnknownEvent = errors.New("cashier: unknown webhook event")
)

// EventType is a gateway callback kind.
type EventType string

const (
	PaymentSucceeded EventType = "payment.succeeded"
	PaymentFailed    EventType = "payment.failed"
	PaymentRefunded  EventType = "payment.refunded"
)

// Event is a parsed gateway callback. Either PaymentID or GatewayRef
// identifies the payment.
type Event struct {
	Type       EventType    `json:"type"`
	PaymentID  id.PaymentID `json:"payment_id"`
	GatewayRef string       `json:"gateway_ref,omitempty"`
	Reason     string       `json:"reason,omitempty"`
}

// Headers is a signature and its timestamp.
type Headers struct {
	Signature string
	Timestamp int64
}

// Set writes h onto an outgoing request's headers.
func (h Headers) Set(hdr http.Header) {
	hdr.Set(HeaderSignature, h.Signature)
	hdr.Set(HeaderTimestamp, strconv.FormatInt(h.Timestamp, 10))
}

// Sign signs body at time at.
func Sign(secret string, body []byte, at time.Time) Headers {
	ts := at.Unix()
	return Headers{Signature: signature(secret, ts, body), Timestamp: ts}
}

func signature(secret string, ts int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, body)
	return hex.EncodeToString(mac.Sum(nil))
}

// FromRequest reads the signature headers.
func FromRequest(hdr http.Header) (Headers, error) {
	sig := hdr.Get(HeaderSignature)
	raw := hdr.Get(HeaderTimestamp)
	if sig == "" || raw == "" {
		return Headers{}, fmt.Errorf("%w: missing signature headers", ErrSignature)
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Headers{}, fmt.Errorf("%w: bad timestamp %q", ErrSignature, raw)
	}
	return Headers{Signature: sig, Timestamp: ts}, nil
}

// Verifier checks callback signatures.
type Verifier struct {
	secret string
	maxAge time.Duration
	now    func() time.Time
}

// NewVerifier creates a Verifier. A zero maxAge uses DefaultMaxAge.
func NewVerifier(secret string, maxAge time.Duration) *Verifier {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Verifier{secret: secret, maxAge: maxAge, now: time.Now}
}

// WithClock overrides time.Now.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Verify checks h against body.
func (v *Verifier) Verify(body []byte, h Headers) error {
	if v.secret == "" {
		return fmt.Errorf("%w: no secret configured", ErrSignature)
	}

	age := v.now().Sub(time.Unix(h.Timestamp, 0))
	if age > v.maxAge || age < -maxSkew {
		return fmt.Errorf("%w: age %s", ErrExpired, age.Truncate(time.Second))
	}

	want := signature(v.secret, h.Timestamp, body)
	if !hmac.Equal([]byte(want), []byte(h.Signature)) {
		return ErrSignature
	}
	return nil
}

// Parse decodes an event body.
func Parse(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("webhook: decode event: %w", err)
	}
	switch ev.Type {
	case PaymentSucceeded, PaymentFailed, PaymentRefunded:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	if ev.PaymentID.IsNil() && ev.GatewayRef == "" {
		return nil, fmt.Errorf("webhook: event has neither payment_id nor gateway_ref")
	}
	return &ev, nil
}
