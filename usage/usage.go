// Package usage tracks per-user counters behind plan limits.
package usage

import (
	"context"
	"time"

	"github.com/xraph/cashier/plan"
)

// MaxIncrement bounds the delta of a single consume.
const MaxIncrement = 10_000

// Counter is one user's usage of a limit key within a window.
type Counter struct {
	UserID      string    `json:"user_id"`
	Key         string    `json:"key"`
	WindowStart time.Time `json:"window_start"`
	Count       int64     `json:"count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Window returns the start of the counting window containing t: midnight
// UTC for daily limits, the first of the month for monthly limits, and the
// zero time for limits that never reset.
func Window(period plan.Period, t time.Time) time.Time {
	t = t.UTC()
	switch period {
	case plan.PeriodDaily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case plan.PeriodMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Time{}
	}
}

// ResetsAt is when the window containing t ends. Zero for PeriodNone.
func ResetsAt(period plan.Period, t time.Time) time.Time {
	w := Window(period, t)
	switch period {
	case plan.PeriodDaily:
		return w.AddDate(0, 0, 1)
	case plan.PeriodMonthly:
		return w.AddDate(0, 1, 0)
	default:
		return time.Time{}
	}
}

// Store keeps usage counters.
type Store interface {
	// Increment adds delta to the counter when the result stays within
	// limit (limit < 0 means unlimited) and returns the new count. When the
	// limit would be exceeded nothing changes and ErrQuotaExceeded is
	// returned along with the current count.
	Increment(ctx context.Context, userID, key string, window time.Time, delta, limit int64) (int64, error)

	// Get returns the current count, zero when no counter exists.
	Get(ctx context.Context, userID, key string, window time.Time) (int64, error)

	// Purge deletes counters whose window started before the cutoff. The
	// never-resetting zero window is kept.
	Purge(ctx context.Context, before time.Time) (int64, error)
}
