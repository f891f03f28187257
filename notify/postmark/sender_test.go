package postmark

import (
	"context"
	"errors"
	"testing"

	"github.com/mrz1836/postmark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/cashier/notify"
)

type fakeClient struct {
	got  postmark.Email
	resp postmark.EmailResponse
	err  error
}

func (f *fakeClient) SendEmail(_ context.Context, e postmark.Email) (postmark.EmailResponse, error) {
	f.got = e
	return f.resp, f.err
}

func msg() notify.Message {
	return notify.Message{
		From:     "Billing <billing@example.com>",
		To:       "sara@example.com",
		ToName:   "Sara",
		Subject:  "Payment received",
		TextBody: "thanks",
		HTMLBody: "<p>thanks</p>",
		Tag:      "payment_succeeded",
	}
}

func TestNewRequiresServerToken(t *testing.T) {
	t.Parallel()

	s, err := New(Config{})
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	s, err = New(Config{ServerToken: "server", MessageStream: "outbound"})
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestSendMapsMessage(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{resp: postmark.EmailResponse{MessageID: "abc-123"}}
	s := &Sender{client: fc, stream: "outbound"}

	ref, err := s.Send(context.Background(), msg())
	require.NoError(t, err)
	assert.Equal(t, "abc-123", ref)
	assert.Equal(t, "Sara <sara@example.com>", fc.got.To)
	assert.Equal(t, "payment_succeeded", fc.got.Tag)
	assert.Equal(t, "thanks", fc.got.TextBody)
	assert.True(t, fc.got.TrackOpens)
	assert.Equal(t, "outbound", fc.got.MessageStream)
}

func TestSendErrors(t *testing.T) {
	t.Parallel()

	t.Run("transport error", func(t *testing.T) {
		t.Parallel()
		s := &Sender{client: &fakeClient{err: errors.New("dial tcp: timeout")}}
		_, err := s.Send(context.Background(), msg())
		assert.ErrorIs(t, err, ErrSend)
		assert.Contains(t, err.Error(), "dial tcp")
	})

	t.Run("api error code", func(t *testing.T) {
		t.Parallel()
		s := &Sender{client: &fakeClient{resp: postmark.EmailResponse{ErrorCode: 300, Message: "Invalid email request"}}}
		_, err := s.Send(context.Background(), msg())
		assert.ErrorIs(t, err, ErrSend)
		assert.Contains(t, err.Error(), "300 - Invalid email request")
	})

	t.Run("missing recipient", func(t *testing.T) {
		t.Parallel()
		fc := &fakeClient{}
		s := &Sender{client: fc}
		m := msg()
		m.To = ""
		_, err := s.Send(context.Background(), m)
		assert.ErrorIs(t, err, ErrSend)
		assert.Empty(t, fc.got.Subject)
	})
}
