package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/notify"
	"github.com/xraph/cashier/settings"
	"github.com/xraph/cashier/store/sqlmodel"
)

// ==================== Template Store ====================

func (s *Store) UpsertTemplate(ctx context.Context, t *notify.Template) error {
	existing, err := s.GetTemplate(ctx, t.Type)
	switch {
	case err == nil:
		t.ID = existing.ID
	case !errors.Is(err, notify.ErrTemplateNotFound):
		return err
	}
	if t.ID.IsNil() {
		t.ID = id.NewTemplateID()
	}

	_, err = s.sdb.NewInsert(sqlmodel.ToTemplateModel(t)).
		OnConflict("(type) DO UPDATE").
		Set("subject = EXCLUDED.subject").
		Set("html_body = EXCLUDED.html_body").
		Set("text_body = EXCLUDED.text_body").
		Set("enabled = EXCLUDED.enabled").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetTemplate(ctx context.Context, t notify.Type) (*notify.Template, error) {
	m := new(sqlmodel.TemplateModel)
	err := s.sdb.NewSelect(m).
		Where("type = ?", string(t)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, notify.ErrTemplateNotFound
		}
		return nil, err
	}
	return sqlmodel.FromTemplateModel(m)
}

func (s *Store) ListTemplates(ctx context.Context) ([]*notify.Template, error) {
	var models []sqlmodel.TemplateModel
	if err := s.sdb.NewSelect(&models).OrderExpr("type ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return sqlmodel.Convert(models, sqlmodel.FromTemplateModel)
}

func (s *Store) DeleteTemplate(ctx context.Context, t notify.Type) error {
	res, err := s.sdb.NewDelete((*sqlmodel.TemplateModel)(nil)).
		Where("type = ?", string(t)).
		Exec(ctx)
	if err != nil {
		return err
	}
	return affected(res, notify.ErrTemplateNotFound)
}

// ==================== Email Log Store ====================

func (s *Store) CreateEmailLog(ctx context.Context, l *notify.EmailLog) error {
	_, err := s.sdb.NewInsert(sqlmodel.ToEmailLogModel(l)).Exec(ctx)
	return err
}

func (s *Store) ListEmailLogs(ctx context.Context, opts notify.EmailLogOpts) ([]*notify.EmailLog, error) {
	var models []sqlmodel.EmailLogModel
	q := s.sdb.NewSelect(&models)

	if opts.UserID != "" {
		q = q.Where("user_id = ?", opts.UserID)
	}
	if opts.Type != "" {
		q = q.Where("type = ?", string(opts.Type))
	}
	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("sent_at DESC, id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return sqlmodel.Convert(models, sqlmodel.FromEmailLogModel)
}

// ==================== Notification Store ====================

func (s *Store) CreateNotification(ctx context.Context, n *notify.Notification) error {
	_, err := s.sdb.NewInsert(sqlmodel.ToNotificationModel(n)).Exec(ctx)
	return err
}

func (s *Store) ListNotifications(ctx context.Context, userID string, opts notify.NotificationOpts) ([]*notify.Notification, error) {
	var models []sqlmodel.NotificationModel
	q := s.sdb.NewSelect(&models).Where("user_id = ?", userID)

	if opts.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC, id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return sqlmodel.Convert(models, sqlmodel.FromNotificationModel)
}

func (s *Store) MarkNotificationRead(ctx context.Context, notificationID id.NotificationID, userID string, at time.Time) error {
	_, err := s.sdb.NewUpdate((*sqlmodel.NotificationModel)(nil)).
		Set("is_read = ?", true).
		Set("read_at = ?", at.UTC()).
		Where("id = ?", notificationID.String()).
		Where("user_id = ?", userID).
		Where("is_read = ?", false).
		Exec(ctx)
	if err != nil {
		return err
	}

	// Already-read rows match no update; confirm ownership separately.
	m := new(sqlmodel.NotificationModel)
	err = s.sdb.NewSelect(m).
		Where("id = ?", notificationID.String()).
		Where("user_id = ?", userID).
		Scan(ctx)
	if isNoRows(err) {
		return notify.ErrNotificationNotFound
	}
	return err
}

// ==================== Settings Store ====================

func (s *Store) GetSetting(ctx context.Context, key string) (*settings.Setting, error) {
	m := new(sqlmodel.SettingModel)
	err := s.sdb.NewSelect(m).
		Where("key = ?", key).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, settings.ErrNotFound
		}
		return nil, err
	}
	return sqlmodel.FromSettingModel(m), nil
}

func (s *Store) PutSetting(ctx context.Context, st *settings.Setting) error {
	_, err := s.sdb.NewInsert(sqlmodel.ToSettingModel(st)).
		OnConflict("(key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) ListSettings(ctx context.Context) ([]*settings.Setting, error) {
	var models []sqlmodel.SettingModel
	if err := s.sdb.NewSelect(&models).OrderExpr("key ASC").Scan(ctx); err != nil {
		return nil, err
	}
	result := make([]*settings.Setting, len(models))
	for i := range models {
		result[i] = sqlmodel.FromSettingModel(&models[i])
	}
	return result, nil
}
