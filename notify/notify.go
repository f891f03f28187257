// Package notify delivers billing notifications to users: an in-app
// notification for every event and, when enabled, a templated email.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/xraph/cashier/id"
)

var (
	ErrTemplateNotFound     = errors.New("cashier: email template not found")
	ErrNotificationNotFound = errors.New("cashier: notification not found")
	ErrNoRecipient          = errors.New("notify: no recipient for user")
)

// Type identifies a notification kind.
type Type string

const (
	TypeWelcome               Type = "welcome"
	TypeTrialStarted          Type = "trial_started"
	TypeTrialExpiring         Type = "trial_expiring"
	TypeTrialExpired          Type = "trial_expired"
	TypeSubscriptionActivated Type = "subscription_activated"
	TypeSubscriptionExpiring  Type = "subscription_expiring"
	TypeSubscriptionExpired   Type = "subscription_expired"
	TypeSubscriptionCanceled  Type = "subscription_canceled"
	TypePaymentSucceeded      Type = "payment_succeeded"
	TypePaymentFailed         Type = "payment_failed"
	TypePaymentRefunded       Type = "payment_refunded"
	TypeCouponRedeemed        Type = "coupon_redeemed"
	TypeLimitReached          Type = "limit_reached"
)

// Types lists every notification kind.
func Types() []Type {
	return []Type{
		TypeWelcome, TypeTrialStarted, TypeTrialExpiring, TypeTrialExpired,
		TypeSubscriptionActivated, TypeSubscriptionExpiring, TypeSubscriptionExpired,
		TypeSubscriptionCanceled, TypePaymentSucceeded, TypePaymentFailed,
		TypePaymentRefunded, TypeCouponRedeemed, TypeLimitReached,
	}
}

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	for _, k := range Types() {
		if k == t {
			return true
		}
	}
	return false
}

// Template is an editable email template for one notification type.
type Template struct {
	ID        id.TemplateID `json:"id"`
	Type      Type          `json:"type"`
	Subject   string        `json:"subject"`
	HTMLBody  string        `json:"html_body"`
	TextBody  string        `json:"text_body"`
	Enabled   bool          `json:"enabled"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type EmailStatus string

const (
	EmailSent    EmailStatus = "sent"
	EmailFailed  EmailStatus = "failed"
	EmailSkipped EmailStatus = "skipped"
)

// EmailLog records one delivery attempt.
type EmailLog struct {
	ID         id.EmailLogID `json:"id"`
	UserID     string        `json:"user_id"`
	Type       Type          `json:"type"`
	To         string        `json:"to"`
	Subject    string        `json:"subject"`
	Status     EmailStatus   `json:"status"`
	ProviderID string        `json:"provider_id,omitempty"`
	Error      string        `json:"error,omitempty"`
	SentAt     time.Time     `json:"sent_at"`
}

// Notification is an in-app message.
type Notification struct {
	ID        id.NotificationID `json:"id"`
	UserID    string            `json:"user_id"`
	Type      Type              `json:"type"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Read      bool              `json:"read"`
	ReadAt    *time.Time        `json:"read_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Message is an outbound email.
type Message struct {
	From     string
	ReplyTo  string
	To       string
	ToName   string
	Subject  string
	HTMLBody string
	TextBody string
	Tag      string
}

// Sender delivers email. It returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Recipient is where a user's email goes.
type Recipient struct {
	Email string
	Name  string
}

// Recipients resolves user ids to email addresses. The host application
// owns user profiles.
type Recipients interface {
	Lookup(ctx context.Context, userID string) (Recipient, error)
}

// RecipientsFunc adapts a function to Recipients.
type RecipientsFunc func(ctx context.Context, userID string) (Recipient, error)

func (f RecipientsFunc) Lookup(ctx context.Context, userID string) (Recipient, error) {
	return f(ctx, userID)
}

// StaticRecipients is a fixed user id to recipient map.
type StaticRecipients map[string]Recipient

func (s StaticRecipients) Lookup(_ context.Context, userID string) (Recipient, error) {
	r, ok := s[userID]
	if !ok {
		return Recipient{}, ErrNoRecipient
	}
	return r, nil
}

// LogSender writes emails to a logger instead of sending them.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) (string, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ref := "log-" + id.NewEmailLogID().String()
	logger.Info("email",
		"to", msg.To,
		"subject", msg.Subject,
		"tag", msg.Tag,
		"ref", ref,
	)
	return ref, nil
}

// EmailLogOpts filters email log listings.
type EmailLogOpts struct {
	UserID string
	Type   Type
	Status EmailStatus
	Limit  int
	Offset int
}

// NotificationOpts filters a user's notifications.
type NotificationOpts struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}

// Store persists templates, logs and notifications. Method names match
// store.Store so any backend satisfies it directly.
type Store interface {
	UpsertTemplate(ctx context.Context, t *Template) error
	GetTemplate(ctx context.Context, t Type) (*Template, error)
	ListTemplates(ctx context.Context) ([]*Template, error)
	DeleteTemplate(ctx context.Context, t Type) error

	CreateEmailLog(ctx context.Context, l *EmailLog) error
	ListEmailLogs(ctx context.Context, opts EmailLogOpts) ([]*EmailLog, error)

	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, userID string, opts NotificationOpts) ([]*Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID id.NotificationID, userID string, at time.Time) error
}
