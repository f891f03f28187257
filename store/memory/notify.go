package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/notify"
	"github.com/xraph/cashier/settings"
)

// ──────────────────────────────────────────────────
// Templates
// ──────────────────────────────────────────────────

func (s *Store) UpsertTemplate(_ context.Context, t *notify.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.templates[t.Type]; ok {
		t.ID = existing.ID
	}
	if t.ID.IsNil() {
		t.ID = id.NewTemplateID()
	}
	cp := *t
	s.templates[t.Type] = &cp
	return nil
}

func (s *Store) GetTemplate(_ context.Context, t notify.Type) (*notify.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if tpl, ok := s.templates[t]; ok {
		cp := *tpl
		return &cp, nil
	}
	return nil, notify.ErrTemplateNotFound
}

func (s *Store) ListTemplates(_ context.Context) ([]*notify.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := sortedValues(s.templates, func(a, b *notify.Template) int {
		return strings.Compare(string(a.Type), string(b.Type))
	})
	result := make([]*notify.Template, 0, len(all))
	for _, tpl := range all {
		cp := *tpl
		result = append(result, &cp)
	}
	return result, nil
}

func (s *Store) DeleteTemplate(_ context.Context, t notify.Type) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[t]; !ok {
		return notify.ErrTemplateNotFound
	}
	delete(s.templates, t)
	return nil
}

// ──────────────────────────────────────────────────
// Email logs
// ──────────────────────────────────────────────────

func (s *Store) CreateEmailLog(_ context.Context, l *notify.EmailLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *l
	s.emailLogs = append(s.emailLogs, &cp)
	return nil
}

func (s *Store) ListEmailLogs(_ context.Context, opts notify.EmailLogOpts) ([]*notify.EmailLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*notify.EmailLog, 0)
	for _, l := range slices.Backward(s.emailLogs) {
		if opts.UserID != "" && l.UserID != opts.UserID {
			continue
		}
		if opts.Type != "" && l.Type != opts.Type {
			continue
		}
		if opts.Status != "" && l.Status != opts.Status {
			continue
		}
		cp := *l
		result = append(result, &cp)
	}
	return page(result, opts.Limit, opts.Offset), nil
}

// ──────────────────────────────────────────────────
// In-app notifications
// ──────────────────────────────────────────────────

func (s *Store) CreateNotification(_ context.Context, n *notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *n
	s.notifications[n.ID.String()] = &cp
	return nil
}

func (s *Store) ListNotifications(_ context.Context, userID string, opts notify.NotificationOpts) ([]*notify.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := sortedValues(s.notifications, func(a, b *notify.Notification) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareIDDesc(a.ID, b.ID)
	})

	result := make([]*notify.Notification, 0)
	for _, n := range all {
		if n.UserID != userID || (opts.UnreadOnly && n.Read) {
			continue
		}
		cp := *n
		result = append(result, &cp)
	}
	return page(result, opts.Limit, opts.Offset), nil
}

func (s *Store) MarkNotificationRead(_ context.Context, notificationID id.NotificationID, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[notificationID.String()]
	if !ok || n.UserID != userID {
		return notify.ErrNotificationNotFound
	}
	if !n.Read {
		readAt := at.UTC()
		n.Read = true
		n.ReadAt = &readAt
	}
	return nil
}

// ──────────────────────────────────────────────────
// Settings
// ──────────────────────────────────────────────────

func (s *Store) GetSetting(_ context.Context, key string) (*settings.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.settings[key]; ok {
		cp := *st
		cp.Value = slices.Clone(st.Value)
		return &cp, nil
	}
	return nil, settings.ErrNotFound
}

func (s *Store) PutSetting(_ context.Context, st *settings.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *st
	cp.Value = slices.Clone(st.Value)
	s.settings[st.Key] = &cp
	return nil
}

func (s *Store) ListSettings(_ context.Context) ([]*settings.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := sortedValues(s.settings, func(a, b *settings.Setting) int {
		return strings.Compare(a.Key, b.Key)
	})
	result := make([]*settings.Setting, 0, len(all))
	for _, st := range all {
		cp := *st
		result = append(result, &cp)
	}
	return result, nil
}
