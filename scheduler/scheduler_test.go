package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	mu          sync.Mutex
	now         time.Time
	calls       []string
	purgeBefore time.Time
	err         error
}

func (f *fakeEngine) Now() time.Time { return f.now }

func (f *fakeEngine) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeEngine) ExpireTrials(_ context.Context, _ time.Time) (int, error) {
	f.record("trials")
	return 2, f.err
}

func (f *fakeEngine) ExpireSubscriptions(_ context.Context, _ time.Time) (int, error) {
	f.record("subscriptions")
	return 1, f.err
}

func (f *fakeEngine) SendExpiryReminders(_ context.Context, _ time.Time) (int, error) {
	f.record("reminders")
	return 0, f.err
}

func (f *fakeEngine) PurgeUsage(_ context.Context, before time.Time) (int64, error) {
	f.record("purge")
	f.purgeBefore = before
	return 5, f.err
}

func (f *fakeEngine) SweepAccessCache() int {
	f.record("sweep")
	return 3
}

func TestJobsCallEngine(t *testing.T) {
	now := time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC)
	eng := &fakeEngine{now: now}
	jobs := NewJobs(eng, DefaultConfig(), slog.Default())

	jobs.ExpireTrials()
	jobs.ExpireSubscriptions()
	jobs.SendExpiryReminders()
	jobs.PurgeUsage()
	jobs.SweepAccessCache()

	assert.Equal(t, []string{"trials", "subscriptions", "reminders", "purge", "sweep"}, eng.calls)
	assert.Equal(t, now.AddDate(0, 0, -62), eng.purgeBefore)
}

func TestJobErrorsAreLoggedNotPanicked(t *testing.T) {
	eng := &fakeEngine{now: time.Now(), err: errors.New("store down")}
	jobs := NewJobs(eng, Config{}, slog.Default())

	assert.NotPanics(t, jobs.ExpireTrials)
	assert.NotPanics(t, jobs.PurgeUsage)
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExpiryReminders = "every morning"

	s := New(&fakeEngine{}, cfg, slog.Default())
	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expiry_reminders")
}

func TestStartRegistersEnabledJobs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PurgeUsage = ""

	s := New(&fakeEngine{now: time.Now()}, cfg, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Equal(t, 4, s.Len())
}
