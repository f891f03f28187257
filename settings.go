package cashier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/notify"
	"github.com/xraph/cashier/settings"
)

// ──────────────────────────────────────────────────
// Settings
// ──────────────────────────────────────────────────

// GetSetting retrieves a raw setting.
func (c *Cashier) GetSetting(ctx context.Context, key string) (*settings.Setting, error) {
	return c.store.GetSetting(ctx, key)
}

// ListSettings lists every stored setting.
func (c *Cashier) ListSettings(ctx context.Context) ([]*settings.Setting, error) {
	return c.store.ListSettings(ctx)
}

// PutSetting stores a setting. Well-known keys must decode into their
// typed form.
func (c *Cashier) PutSetting(ctx context.Context, key string, value json.RawMessage) (*settings.Setting, error) {
	if key == "" {
		return nil, ValidationError{Field: "key", Message: "required"}
	}
	if !json.Valid(value) {
		return nil, ValidationError{Field: "value", Message: "must be valid JSON"}
	}

	s := &settings.Setting{Key: key, Value: value, UpdatedAt: c.Now()}
	var typed any
	switch key {
	case settings.KeyEmail:
		typed = &settings.EmailSettings{}
	case settings.KeyGeneral:
		typed = &settings.GeneralSettings{}
	}
	if typed != nil {
		if err := settings.Decode(s, typed); err != nil {
			return nil, ValidationError{Field: "value", Message: err.Error()}
		}
	}

	if err := c.store.PutSetting(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// EmailSettings returns the email settings or their defaults.
func (c *Cashier) EmailSettings(ctx context.Context) (settings.EmailSettings, error) {
	return settings.LoadEmail(ctx, c.store)
}

// ──────────────────────────────────────────────────
// Notifications
// ──────────────────────────────────────────────────

// ListNotifications lists a user's in-app notifications newest first.
func (c *Cashier) ListNotifications(ctx context.Context, userID string, opts notify.NotificationOpts) ([]*notify.Notification, error) {
	return c.store.ListNotifications(ctx, userID, opts)
}

// MarkNotificationRead marks one of the user's notifications read.
func (c *Cashier) MarkNotificationRead(ctx context.Context, userID string, notificationID id.NotificationID) error {
	return c.store.MarkNotificationRead(ctx, notificationID, userID, c.Now())
}

// ListEmailLogs lists delivery attempts newest first.
func (c *Cashier) ListEmailLogs(ctx context.Context, opts notify.EmailLogOpts) ([]*notify.EmailLog, error) {
	return c.store.ListEmailLogs(ctx, opts)
}

// UpsertTemplate stores the email template for its type after checking it
// renders.
func (c *Cashier) UpsertTemplate(ctx context.Context, t *notify.Template) error {
	if !t.Type.Valid() {
		return ValidationError{Field: "type", Message: fmt.Sprintf("unknown notification type %q", t.Type)}
	}
	if t.Subject == "" {
		return ValidationError{Field: "subject", Message: "required"}
	}
	if _, err := notify.Render(t, notify.Data{}); err != nil {
		return ValidationError{Field: "template", Message: err.Error()}
	}
	t.UpdatedAt = c.Now()
	return c.store.UpsertTemplate(ctx, t)
}

// GetTemplate returns the stored template for a type, or the built-in one.
func (c *Cashier) GetTemplate(ctx context.Context, typ notify.Type) (*notify.Template, error) {
	t, err := c.store.GetTemplate(ctx, typ)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrTemplateNotFound) {
		return nil, err
	}
	def, ok := notify.DefaultTemplate(typ)
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return def, nil
}

// ListTemplates returns one template per type, stored or built-in.
func (c *Cashier) ListTemplates(ctx context.Context) ([]*notify.Template, error) {
	stored, err := c.store.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	byType := make(map[notify.Type]*notify.Template, len(stored))
	for _, t := range stored {
		byType[t.Type] = t
	}

	out := make([]*notify.Template, 0, len(notify.Types()))
	for _, typ := range notify.Types() {
		if t, ok := byType[typ]; ok {
			out = append(out, t)
			continue
		}
		def, _ := notify.DefaultTemplate(typ)
		out = append(out, def)
	}
	return out, nil
}

// DeleteTemplate removes a stored template, restoring the built-in one.
func (c *Cashier) DeleteTemplate(ctx context.Context, typ notify.Type) error {
	return c.store.DeleteTemplate(ctx, typ)
}
