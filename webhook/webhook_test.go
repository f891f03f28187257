package webhook

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/cashier/id"
)

var body = []byte(`{"type":"payment.succeeded","gateway_ref":"gw_1"}`)

func TestSignVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_760_000_000, 0)
	h := Sign("whsec", body, now)
	assert.Len(t, h.Signature, 64)

	v := NewVerifier("whsec", 0).WithClock(func() time.Time { return now.Add(time.Minute) })
	require.NoError(t, v.Verify(body, h))
}

func TestVerifyRejects(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_760_000_000, 0)
	h := Sign("whsec", body, now)
	clock := func() time.Time { return now }

	tests := []struct {
		name string
		v    *Verifier
		body []byte
		h    Headers
		want error
	}{
		{"wrong secret", NewVerifier("other", 0).WithClock(clock), body, h, ErrSignature},
		{"tampered body", NewVerifier("whsec", 0).WithClock(clock), []byte(`{"type":"payment.refunded"}`), h, ErrSignature},
		{"too old", NewVerifier("whsec", 0).WithClock(func() time.Time { return now.Add(6 * time.Minute) }), body, h, ErrExpired},
		{"future", NewVerifier("whsec", 0).WithClock(func() time.Time { return now.Add(-2 * time.Minute) }), body, h, ErrExpired},
		{"no secret", NewVerifier("", 0).WithClock(clock), body, h, ErrSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, tt.v.Verify(tt.body, tt.h), tt.want)
		})
	}
}

func TestFromRequest(t *testing.T) {
	t.Parallel()

	hdr := http.Header{}
	_, err := FromRequest(hdr)
	assert.ErrorIs(t, err, ErrSignature)

	Sign("whsec", body, time.Unix(100, 0)).Set(hdr)
	h, err := FromRequest(hdr)
	require.NoError(t, err)
	assert.Equal(t, int64(100), h.Timestamp)

	hdr.Set(HeaderTimestamp, "yesterday")
	_, err = FromRequest(hdr)
	assert.ErrorIs(t, err, ErrSignature)
}

func TestParse(t *testing.T) {
	t.Parallel()

	pid := id.NewPaymentID()
	ev, err := Parse([]byte(`{"type":"payment.failed","payment_id":"` + pid.String() + `","reason":"declined"}`))
	require.NoError(t, err)
	assert.Equal(t, PaymentFailed, ev.Type)
	assert.Equal(t, pid.String(), ev.PaymentID.String())
	assert.Equal(t, "declined", ev.Reason)

	_, err = Parse([]byte(`{"type":"payment.disputed","gateway_ref":"gw"}`))
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = Parse([]byte(`{"type":"payment.succeeded"}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)
}
