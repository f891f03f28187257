package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/cashier"
	"github.com/xraph/cashier/store/sqlmodel"
)

// ==================== Usage Store ====================

// IncrementUsage upserts the window counter. SQLite serialises writers, so
// the guarded upsert is atomic; no returned row means the quota was hit.
func (s *Store) IncrementUsage(ctx context.Context, userID, key string, window time.Time, delta, limit int64) (int64, error) {
	window = window.UTC()
	if limit >= 0 && delta > limit {
		current, err := s.GetUsage(ctx, userID, key, window)
		if err != nil {
			return 0, err
		}
		return current, cashier.ErrQuotaExceeded
	}

	var count int64
	err := s.sdb.NewRaw(`
		INSERT INTO cashier_usage (user_id, key, window_start, count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, key, window_start) DO UPDATE
		SET count = cashier_usage.count + excluded.count, updated_at = excluded.updated_at
		WHERE ? < 0 OR cashier_usage.count + excluded.count <= ?
		RETURNING count
	`, userID, key, window, delta, now(), limit, limit).Scan(ctx, &count)
	if err == nil {
		return count, nil
	}
	if !isNoRows(err) {
		return 0, fmt.Errorf("cashier/sqlite: increment usage: %w", err)
	}

	current, err := s.GetUsage(ctx, userID, key, window)
	if err != nil {
		return 0, err
	}
	return current, cashier.ErrQuotaExceeded
}

func (s *Store) GetUsage(ctx context.Context, userID, key string, window time.Time) (int64, error) {
	m := new(sqlmodel.UsageModel)
	err := s.sdb.NewSelect(m).
		Where("user_id = ?", userID).
		Where("key = ?", key).
		Where("window_start = ?", window.UTC()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, err
	}
	return m.Count, nil
}

// PurgeUsage drops closed windows older than before, keeping lifetime
// counters stored under the zero window.
func (s *Store) PurgeUsage(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.sdb.NewDelete((*sqlmodel.UsageModel)(nil)).
		Where("window_start < ?", before.UTC()).
		Where("window_start > ?", time.Time{}).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return rows, nil
}
