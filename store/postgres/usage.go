package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/cashier"
	"github.com/xraph/cashier/store/sqlmodel"
)

// ==================== Usage Store ====================

// IncrementUsage adds delta to the window counter in one statement. The
// conflict branch only fires while the new total stays within limit, so
// a RETURNING with no row means the quota was hit.
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
	err := s.pg.NewRaw(`
		INSERT INTO cashier_usage (user_id, key, window_start, count, updated_at)
		VALUES ($1, $2, $3, $4, $6)
		ON CONFLICT (user_id, key, window_start) DO UPDATE
		SET count = cashier_usage.count + EXCLUDED.count, updated_at = EXCLUDED.updated_at
		WHERE $5 < 0 OR cashier_usage.count + EXCLUDED.count <= $5
		RETURNING count
	`, userID, key, window, delta, limit, now()).Scan(ctx, &count)
	if err == nil {
		return count, nil
	}
	if !isNoRows(err) {
		return 0, fmt.Errorf("cashier/postgres: increment usage: %w", err)
	}

	current, err := s.GetUsage(ctx, userID, key, window)
	if err != nil {
		return 0, err
	}
	return current, cashier.ErrQuotaExceeded
}

func (s *Store) GetUsage(ctx context.Context, userID, key string, window time.Time) (int64, error) {
	m := new(sqlmodel.UsageModel)
	err := s.pg.NewSelect(m).
		Where("user_id = $1", userID).
		Where("key = $2", key).
		Where("window_start = $3", window.UTC()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, err
	}
	return m.Count, nil
}

// PurgeUsage drops closed windows older than before. Lifetime counters,
// kept under the zero window, are never purged.
func (s *Store) PurgeUsage(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.pg.NewDelete((*sqlmodel.UsageModel)(nil)).
		Where("window_start < $1", before.UTC()).
		Where("window_start > $2", time.Time{}).
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
