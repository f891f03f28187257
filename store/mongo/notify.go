package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/notify"
	"github.com/xraph/cashier/settings"
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

	_, err = s.mdb.NewUpdate((*templateModel)(nil)).
		Filter(bson.M{"type": string(t.Type)}).
		SetUpdate(bson.M{
			"$set": bson.M{
				"subject":    t.Subject,
				"html_body":  t.HTMLBody,
				"text_body":  t.TextBody,
				"enabled":    t.Enabled,
				"updated_at": t.UpdatedAt,
			},
			"$setOnInsert": bson.M{"_id": t.ID.String()},
		}).
		Upsert().
		Exec(ctx)
	return wrap("upsert template", err, nil)
}

func (s *Store) GetTemplate(ctx context.Context, t notify.Type) (*notify.Template, error) {
	var m templateModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"type": string(t)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, notify.ErrTemplateNotFound
		}
		return nil, wrap("get template", err, nil)
	}
	return fromTemplateModel(&m)
}

func (s *Store) ListTemplates(ctx context.Context) ([]*notify.Template, error) {
	var models []templateModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "type", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, wrap("list templates", err, nil)
	}

	result := make([]*notify.Template, len(models))
	for i := range models {
		t, err := fromTemplateModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

func (s *Store) DeleteTemplate(ctx context.Context, t notify.Type) error {
	res, err := s.mdb.NewDelete((*templateModel)(nil)).
		Filter(bson.M{"type": string(t)}).
		Exec(ctx)
	if err != nil {
		return wrap("delete template", err, nil)
	}
	if res.DeletedCount() == 0 {
		return notify.ErrTemplateNotFound
	}
	return nil
}

// ==================== Email Log Store ====================

func (s *Store) CreateEmailLog(ctx context.Context, l *notify.EmailLog) error {
	_, err := s.mdb.NewInsert(toEmailLogModel(l)).Exec(ctx)
	return wrap("create email log", err, nil)
}

func (s *Store) ListEmailLogs(ctx context.Context, opts notify.EmailLogOpts) ([]*notify.EmailLog, error) {
	var models []emailLogModel

	filter := bson.M{}
	if opts.UserID != "" {
		filter["user_id"] = opts.UserID
	}
	if opts.Type != "" {
		filter["type"] = string(opts.Type)
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "sent_at", Value: -1}, {Key: "_id", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, wrap("list email logs", err, nil)
	}

	result := make([]*notify.EmailLog, len(models))
	for i := range models {
		l, err := fromEmailLogModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = l
	}
	return result, nil
}

// ==================== Notification Store ====================

func (s *Store) CreateNotification(ctx context.Context, n *notify.Notification) error {
	_, err := s.mdb.NewInsert(toNotificationModel(n)).Exec(ctx)
	return wrap("create notification", err, nil)
}

func (s *Store) ListNotifications(ctx context.Context, userID string, opts notify.NotificationOpts) ([]*notify.Notification, error) {
	var models []notificationModel

	filter := bson.M{"user_id": userID}
	if opts.UnreadOnly {
		filter["is_read"] = false
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(newestFirst)

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, wrap("list notifications", err, nil)
	}

	result := make([]*notify.Notification, len(models))
	for i := range models {
		n, err := fromNotificationModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = n
	}
	return result, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, notificationID id.NotificationID, userID string, at time.Time) error {
	res, err := s.mdb.NewUpdate((*notificationModel)(nil)).
		Filter(bson.M{"_id": notificationID.String(), "user_id": userID}).
		Set("is_read", true).
		Set("read_at", at.UTC()).
		Exec(ctx)
	if err != nil {
		return wrap("mark notification read", err, nil)
	}
	if res.MatchedCount() == 0 {
		return notify.ErrNotificationNotFound
	}
	return nil
}

// ==================== Settings Store ====================

func (s *Store) GetSetting(ctx context.Context, key string) (*settings.Setting, error) {
	var m settingModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": key}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, settings.ErrNotFound
		}
		return nil, wrap("get setting", err, nil)
	}
	return fromSettingModel(&m), nil
}

func (s *Store) PutSetting(ctx context.Context, st *settings.Setting) error {
	_, err := s.mdb.NewUpdate((*settingModel)(nil)).
		Filter(bson.M{"_id": st.Key}).
		SetUpdate(bson.M{"$set": bson.M{
			"value":      string(st.Value),
			"updated_at": st.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	return wrap("put setting", err, nil)
}

func (s *Store) ListSettings(ctx context.Context) ([]*settings.Setting, error) {
	var models []settingModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, wrap("list settings", err, nil)
	}

	result := make([]*settings.Setting, len(models))
	for i := range models {
		result[i] = fromSettingModel(&models[i])
	}
	return result, nil
}
