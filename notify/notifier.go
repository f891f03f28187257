package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/payment"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/plugin"
	"github.com/xraph/cashier/settings"
	"github.com/xraph/cashier/subscription"
	"github.com/xraph/cashier/trial"
)

// Backend is what the Notifier needs from storage.
type Backend interface {
	Store
	settings.Store
	GetPlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error)
}

// Compile-time interface checks.
var (
	_ plugin.Plugin                  = (*Notifier)(nil)
	_ plugin.OnTrialStarted          = (*Notifier)(nil)
	_ plugin.OnTrialExpired          = (*Notifier)(nil)
	_ plugin.OnSubscriptionActivated = (*Notifier)(nil)
	_ plugin.OnSubscriptionExpiring  = (*Notifier)(nil)
	_ plugin.OnSubscriptionExpired   = (*Notifier)(nil)
	_ plugin.OnSubscriptionCanceled  = (*Notifier)(nil)
	_ plugin.OnPaymentCompleted      = (*Notifier)(nil)
	_ plugin.OnPaymentFailed         = (*Notifier)(nil)
	_ plugin.OnPaymentRefunded       = (*Notifier)(nil)
	_ plugin.OnCouponRedeemed        = (*Notifier)(nil)
	_ plugin.OnLimitExceeded         = (*Notifier)(nil)
)

// Notifier turns billing events into notifications.
type Notifier struct {
	backend    Backend
	sender     Sender
	recipients Recipients
	logger     *slog.Logger
	now        func() time.Time

	// limit_reached is sent at most once per user, key and day. Only the
	// current day's keys are kept.
	limitMu   sync.Mutex
	limitDay  string
	limitSeen map[string]struct{}
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(n *Notifier) { n.logger = l } }

// WithSender sets the email sender. Defaults to LogSender.
func WithSender(s Sender) Option { return func(n *Notifier) { n.sender = s } }

// WithRecipients sets the recipient resolver. Without one no email is sent.
func WithRecipients(r Recipients) Option { return func(n *Notifier) { n.recipients = r } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(n *Notifier) { n.now = now } }

// NewNotifier creates a Notifier plugin.
func NewNotifier(backend Backend, opts ...Option) *Notifier {
	n := &Notifier{
		backend: backend,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.sender == nil {
		n.sender = LogSender{Logger: n.logger}
	}
	return n
}

func (n *Notifier) Name() string { return "notifier" }

// ──────────────────────────────────────────────────
// Hooks
// ──────────────────────────────────────────────────

func (n *Notifier) OnTrialStarted(ctx context.Context, t *trial.Trial) error {
	return n.Deliver(ctx, t.UserID, TypeTrialStarted, n.trialData(ctx, t))
}

func (n *Notifier) OnTrialExpired(ctx context.Context, t *trial.Trial) error {
	return n.Deliver(ctx, t.UserID, TypeTrialExpired, n.trialData(ctx, t))
}

func (n *Notifier) OnSubscriptionActivated(ctx context.Context, sub *subscription.Subscription) error {
	return n.Deliver(ctx, sub.UserID, TypeSubscriptionActivated, n.subData(ctx, sub))
}

func (n *Notifier) OnSubscriptionExpiring(ctx context.Context, sub *subscription.Subscription, daysLeft int) error {
	data := n.subData(ctx, sub)
	data.DaysLeft = daysLeft
	typ := TypeSubscriptionExpiring
	if sub.IsTrial {
		typ = TypeTrialExpiring
	}
	return n.Deliver(ctx, sub.UserID, typ, data)
}

func (n *Notifier) OnSubscriptionExpired(ctx context.Context, sub *subscription.Subscription) error {
	return n.Deliver(ctx, sub.UserID, TypeSubscriptionExpired, n.subData(ctx, sub))
}

func (n *Notifier) OnSubscriptionCanceled(ctx context.Context, sub *subscription.Subscription) error {
	return n.Deliver(ctx, sub.UserID, TypeSubscriptionCanceled, n.subData(ctx, sub))
}

func (n *Notifier) OnPaymentCompleted(ctx context.Context, p *payment.Payment) error {
	return n.Deliver(ctx, p.UserID, TypePaymentSucceeded, n.paymentData(ctx, p, ""))
}

func (n *Notifier) OnPaymentFailed(ctx context.Context, p *payment.Payment, reason string) error {
	return n.Deliver(ctx, p.UserID, TypePaymentFailed, n.paymentData(ctx, p, reason))
}

func (n *Notifier) OnPaymentRefunded(ctx context.Context, p *payment.Payment) error {
	return n.Deliver(ctx, p.UserID, TypePaymentRefunded, n.paymentData(ctx, p, ""))
}

func (n *Notifier) OnCouponRedeemed(ctx context.Context, c *coupon.Coupon, userID string) error {
	return n.Deliver(ctx, userID, TypeCouponRedeemed, Data{UserID: userID, CouponCode: c.Code})
}

func (n *Notifier) OnLimitExceeded(ctx context.Context, userID, key string, _, _ int64) error {
	if !n.firstLimitToday(userID, key) {
		return nil
	}
	return n.Deliver(ctx, userID, TypeLimitReached, Data{UserID: userID, LimitKey: key})
}

// firstLimitToday records userID and key for today and reports whether
// they were new. A new day starts an empty set.
func (n *Notifier) firstLimitToday(userID, key string) bool {
	day := n.now().UTC().Format(time.DateOnly)

	n.limitMu.Lock()
	defer n.limitMu.Unlock()

	if day != n.limitDay {
		n.limitDay = day
		n.limitSeen = make(map[string]struct{})
	}
	k := userID + "|" + key
	if _, dup := n.limitSeen[k]; dup {
		return false
	}
	n.limitSeen[k] = struct{}{}
	return true
}

// ──────────────────────────────────────────────────
// Delivery
// ──────────────────────────────────────────────────

// Deliver writes the in-app notification for typ and, when email is
// enabled for it, sends the email and records the attempt.
func (n *Notifier) Deliver(ctx context.Context, userID string, typ Type, data Data) error {
	if !typ.Valid() {
		return fmt.Errorf("notify: unknown type %q", typ)
	}
	data.UserID = userID

	tpl, err := n.template(ctx, typ)
	if err != nil {
		return err
	}

	var rcpt Recipient
	if n.recipients != nil {
		if r, err := n.recipients.Lookup(ctx, userID); err == nil {
			rcpt = r
			data.Name = r.Name
		}
	}

	out, err := Render(tpl, data)
	if err != nil {
		return err
	}

	now := n.now().UTC()
	if err := n.backend.CreateNotification(ctx, &Notification{
		ID:        id.NewNotificationID(),
		UserID:    userID,
		Type:      typ,
		Title:     out.Subject,
		Body:      out.TextBody,
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("notify: create notification: %w", err)
	}

	cfg, err := settings.LoadEmail(ctx, n.backend)
	if err != nil {
		return fmt.Errorf("notify: load email settings: %w", err)
	}
	if !cfg.Enabled {
		return nil
	}

	entry := &EmailLog{
		ID:      id.NewEmailLogID(),
		UserID:  userID,
		Type:    typ,
		To:      rcpt.Email,
		Subject: out.Subject,
		SentAt:  now,
	}

	switch {
	case !tpl.Enabled:
		entry.Status = EmailSkipped
		entry.Error = "template disabled"
	case rcpt.Email == "":
		entry.Status = EmailSkipped
		entry.Error = ErrNoRecipient.Error()
	default:
		providerID, sendErr := n.sender.Send(ctx, Message{
			From:     cfg.From(),
			ReplyTo:  cfg.ReplyTo,
			To:       rcpt.Email,
			ToName:   rcpt.Name,
			Subject:  out.Subject,
			HTMLBody: out.HTMLBody,
			TextBody: out.TextBody,
			Tag:      string(typ),
		})
		if sendErr != nil {
			entry.Status = EmailFailed
			entry.Error = sendErr.Error()
			n.logger.Warn("email delivery failed",
				"user_id", userID,
				"type", typ,
				"error", sendErr,
			)
		} else {
			entry.Status = EmailSent
			entry.ProviderID = providerID
		}
	}

	if err := n.backend.CreateEmailLog(ctx, entry); err != nil {
		return fmt.Errorf("notify: create email log: %w", err)
	}
	return nil
}

func (n *Notifier) template(ctx context.Context, typ Type) (*Template, error) {
	tpl, err := n.backend.GetTemplate(ctx, typ)
	if err == nil {
		return tpl, nil
	}
	if !errors.Is(err, ErrTemplateNotFound) {
		return nil, fmt.Errorf("notify: load template: %w", err)
	}
	def, _ := DefaultTemplate(typ)
	return def, nil
}

func (n *Notifier) planName(ctx context.Context, planID id.PlanID) string {
	if planID.IsNil() {
		return ""
	}
	p, err := n.backend.GetPlan(ctx, planID)
	if err != nil {
		return ""
	}
	return p.Name
}

func (n *Notifier) subData(ctx context.Context, sub *subscription.Subscription) Data {
	return Data{
		UserID:    sub.UserID,
		PlanName:  n.planName(ctx, sub.PlanID),
		ExpiresAt: sub.ExpiresAt.UTC().Format(time.DateOnly),
		DaysLeft:  sub.DaysLeft(n.now()),
	}
}

func (n *Notifier) trialData(ctx context.Context, t *trial.Trial) Data {
	return Data{
		UserID:    t.UserID,
		PlanName:  n.planName(ctx, t.PlanID),
		ExpiresAt: t.ExpiresAt.UTC().Format(time.DateOnly),
	}
}

func (n *Notifier) paymentData(ctx context.Context, p *payment.Payment, reason string) Data {
	return Data{
		UserID:     p.UserID,
		PlanName:   n.planName(ctx, p.PlanID),
		Amount:     p.Amount.String(),
		CouponCode: p.CouponCode,
		Reason:     reason,
	}
}
