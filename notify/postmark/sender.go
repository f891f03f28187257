// Package postmark sends notification emails through Postmark.
package postmark

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrz1836/postmark"

	"github.com/xraph/cashier/notify"
)

var (
	ErrInvalidConfig = errors.New("postmark: invalid config")
	ErrSend          = errors.New("postmark: send failed")
)

// Compile-time interface check.
var _ notify.Sender = (*Sender)(nil)

// client is the part of postmark.Client the sender uses.
type client interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// Config holds Postmark credentials.
type Config struct {
	ServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	// MessageStream defaults to "outbound".
	MessageStream string `env:"POSTMARK_MESSAGE_STREAM" envDefault:"outbound"`
}

// Sender implements notify.Sender.
type Sender struct {
	client client
	stream string
}

// New creates a Sender. The server token is required.
func New(cfg Config) (*Sender, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: server token is required", ErrInvalidConfig)
	}
	return &Sender{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		stream: cfg.MessageStream,
	}, nil
}

// Send delivers msg and returns Postmark's message id.
func (s *Sender) Send(ctx context.Context, msg notify.Message) (string, error) {
	if msg.To == "" || msg.From == "" {
		return "", fmt.Errorf("%w: from and to are required", ErrSend)
	}

	to := msg.To
	if msg.ToName != "" {
		to = fmt.Sprintf("%s <%s>", strings.ReplaceAll(msg.ToName, `"`, ""), msg.To)
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:          msg.From,
		ReplyTo:       msg.ReplyTo,
		To:            to,
		Subject:       msg.Subject,
		Tag:           msg.Tag,
		HTMLBody:      msg.HTMLBody,
		TextBody:      msg.TextBody,
		TrackOpens:    true,
		TrackLinks:    "HtmlOnly",
		MessageStream: s.stream,
	})
	if err != nil {
		return "", errors.Join(ErrSend, err)
	}
	if resp.ErrorCode > 0 {
		return "", errors.Join(ErrSend, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return resp.MessageID, nil
}
