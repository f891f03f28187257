package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/payment"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/settings"
	"github.com/xraph/cashier/subscription"
	"github.com/xraph/cashier/types"
)

type fakeBackend struct {
	mu            sync.Mutex
	templates     map[Type]*Template
	logs          []*EmailLog
	notifications []*Notification
	settings      map[string]*settings.Setting
	plans         map[string]*plan.Plan
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		templates: map[Type]*Template{},
		settings:  map[string]*settings.Setting{},
		plans:     map[string]*plan.Plan{},
	}
}

func (f *fakeBackend) UpsertTemplate(_ context.Context, t *Template) error {
	f.templates[t.Type] = t
	return nil
}

func (f *fakeBackend) GetTemplate(_ context.Context, t Type) (*Template, error) {
	if tpl, ok := f.templates[t]; ok {
		return tpl, nil
	}
	return nil, ErrTemplateNotFound
}

func (f *fakeBackend) ListTemplates(context.Context) ([]*Template, error) { return nil, nil }
func (f *fakeBackend) DeleteTemplate(context.Context, Type) error        { return nil }

func (f *fakeBackend) CreateEmailLog(_ context.Context, l *EmailLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, l)
	return nil
}

func (f *fakeBackend) ListEmailLogs(context.Context, EmailLogOpts) ([]*EmailLog, error) {
	return f.logs, nil
}

func (f *fakeBackend) CreateNotification(_ context.Context, n *Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, n)
	return nil
}

func (f *fakeBackend) ListNotifications(context.Context, string, NotificationOpts) ([]*Notification, error) {
	return f.notifications, nil
}

func (f *fakeBackend) MarkNotificationRead(context.Context, id.NotificationID, string, time.Time) error {
	return nil
}

func (f *fakeBackend) GetSetting(_ context.Context, key string) (*settings.Setting, error) {
	if s, ok := f.settings[key]; ok {
		return s, nil
	}
	return nil, settings.ErrNotFound
}

func (f *fakeBackend) PutSetting(_ context.Context, s *settings.Setting) error {
	f.settings[s.Key] = s
	return nil
}

func (f *fakeBackend) ListSettings(context.Context) ([]*settings.Setting, error) { return nil, nil }

func (f *fakeBackend) GetPlan(_ context.Context, planID id.PlanID) (*plan.Plan, error) {
	if p, ok := f.plans[planID.String()]; ok {
		return p, nil
	}
	return nil, errors.New("not found")
}

type recordingSender struct {
	sent []Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg Message) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, msg)
	return "pm-123", nil
}

func enableEmail(t *testing.T, b *fakeBackend) {
	t.Helper()
	s, err := settings.Encode(settings.KeyEmail, settings.EmailSettings{
		Enabled: true, FromAddress: "billing@example.com", FromName: "Billing",
	})
	require.NoError(t, err)
	require.NoError(t, b.PutSetting(context.Background(), s))
}

func TestRenderDefaults(t *testing.T) {
	for _, typ := range Types() {
		tpl, ok := DefaultTemplate(typ)
		require.True(t, ok, "missing default for %s", typ)

		out, err := Render(tpl, Data{PlanName: "Premium", Amount: "SAR 82.32", DaysLeft: 3, CouponCode: "SAVE20", LimitKey: "daily_likes"})
		require.NoError(t, err, typ)
		assert.NotEmpty(t, out.Subject, typ)
		assert.NotEmpty(t, out.TextBody, typ)
		assert.Contains(t, out.HTMLBody, "<p>", typ)
	}
}

func TestRenderEscapesHTML(t *testing.T) {
	tpl := &Template{Type: TypeWelcome, Subject: "Hi {{.Name}}", HTMLBody: "<b>{{.Name}}</b>", TextBody: "Hi {{.Name}}"}
	out, err := Render(tpl, Data{Name: "<script>"})
	require.NoError(t, err)
	assert.Equal(t, "Hi <script>", out.Subject)
	assert.Equal(t, "<b>&lt;script&gt;</b>", out.HTMLBody)
}

func TestDeliverInAppOnlyWhenEmailDisabled(t *testing.T) {
	b := newFakeBackend()
	sender := &recordingSender{}
	n := NewNotifier(b, WithSender(sender), WithRecipients(StaticRecipients{"u1": {Email: "u1@example.com"}}))

	require.NoError(t, n.Deliver(context.Background(), "u1", TypeWelcome, Data{}))

	assert.Len(t, b.notifications, 1)
	assert.Empty(t, b.logs)
	assert.Empty(t, sender.sent)
}

func TestDeliverSendsEmail(t *testing.T) {
	b := newFakeBackend()
	enableEmail(t, b)
	premium := &plan.Plan{ID: id.NewPlanID(), Name: "Premium"}
	b.plans[premium.ID.String()] = premium

	sender := &recordingSender{}
	n := NewNotifier(b, WithSender(sender), WithRecipients(StaticRecipients{"u1": {Email: "u1@example.com", Name: "Sara"}}))

	p := &payment.Payment{UserID: "u1", PlanID: premium.ID, Amount: types.SAR(8232)}
	require.NoError(t, n.OnPaymentCompleted(context.Background(), p))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "u1@example.com", msg.To)
	assert.Equal(t, "Billing <billing@example.com>", msg.From)
	assert.Contains(t, msg.TextBody, "SAR 82.32")
	assert.Contains(t, msg.TextBody, "Premium")
	assert.Equal(t, string(TypePaymentSucceeded), msg.Tag)

	require.Len(t, b.logs, 1)
	assert.Equal(t, EmailSent, b.logs[0].Status)
	assert.Equal(t, "pm-123", b.logs[0].ProviderID)
	require.Len(t, b.notifications, 1)
	assert.Equal(t, TypePaymentSucceeded, b.notifications[0].Type)
}

func TestDeliverRecordsFailuresAndSkips(t *testing.T) {
	b := newFakeBackend()
	enableEmail(t, b)
	require.NoError(t, b.UpsertTemplate(context.Background(), &Template{
		Type: TypeTrialExpired, Subject: "bye", TextBody: "bye", Enabled: false,
	}))

	sender := &recordingSender{err: errors.New("smtp down")}
	n := NewNotifier(b, WithSender(sender), WithRecipients(StaticRecipients{"u1": {Email: "u1@example.com"}}))
	ctx := context.Background()

	require.NoError(t, n.Deliver(ctx, "u1", TypePaymentFailed, Data{}))
	require.NoError(t, n.Deliver(ctx, "u1", TypeTrialExpired, Data{}))
	require.NoError(t, n.Deliver(ctx, "nobody", TypeWelcome, Data{}))

	require.Len(t, b.logs, 3)
	assert.Equal(t, EmailFailed, b.logs[0].Status)
	assert.Equal(t, "smtp down", b.logs[0].Error)
	assert.Equal(t, EmailSkipped, b.logs[1].Status)
	assert.Equal(t, EmailSkipped, b.logs[2].Status)
	assert.Len(t, b.notifications, 3)
}

func TestExpiringPicksTrialTemplate(t *testing.T) {
	b := newFakeBackend()
	n := NewNotifier(b)
	sub := &subscription.Subscription{UserID: "u1", IsTrial: true, ExpiresAt: time.Now().Add(48 * time.Hour)}

	require.NoError(t, n.OnSubscriptionExpiring(context.Background(), sub, 2))
	require.Len(t, b.notifications, 1)
	assert.Equal(t, TypeTrialExpiring, b.notifications[0].Type)
	assert.Contains(t, b.notifications[0].Title, "2 day")
}

func TestLimitReachedOncePerDay(t *testing.T) {
	b := newFakeBackend()
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	n := NewNotifier(b, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, n.OnLimitExceeded(ctx, "u1", "daily_likes", 10, 10))
	require.NoError(t, n.OnLimitExceeded(ctx, "u1", "daily_likes", 10, 10))
	assert.Len(t, b.notifications, 1)

	require.NoError(t, n.OnLimitExceeded(ctx, "u2", "daily_likes", 10, 10))
	assert.Len(t, n.limitSeen, 2)

	now = now.Add(24 * time.Hour)
	require.NoError(t, n.OnLimitExceeded(ctx, "u1", "daily_likes", 10, 10))
	assert.Len(t, b.notifications, 3)
	assert.Len(t, n.limitSeen, 1, "earlier days are dropped")
}

func TestDeliverUnknownType(t *testing.T) {
	n := NewNotifier(newFakeBackend())
	assert.Error(t, n.Deliver(context.Background(), "u1", Type("nope"), Data{}))
}
