package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Jobs wraps engine sweeps as cron funcs. Each run gets its own timeout
// and logs its outcome.
type Jobs struct {
	engine  Engine
	logger  *slog.Logger
	timeout time.Duration
	keep    time.Duration
}

// NewJobs creates the job set.
func NewJobs(engine Engine, cfg Config, logger *slog.Logger) *Jobs {
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().JobTimeout
	}
	keep := cfg.UsageRetention
	if keep <= 0 {
		keep = DefaultConfig().UsageRetention
	}
	return &Jobs{engine: engine, logger: logger, timeout: timeout, keep: keep}
}

func (j *Jobs) run(job string, fn func(ctx context.Context, now time.Time) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	n, err := fn(ctx, j.engine.Now())
	if err != nil {
		j.logger.Error("scheduler: job failed", "job", job, "error", err, "elapsed", time.Since(start))
		return
	}
	j.logger.Info("scheduler: job finished", "job", job, "affected", n, "elapsed", time.Since(start))
}

// ExpireTrials moves lapsed trials to expired.
func (j *Jobs) ExpireTrials() {
	j.run("expire_trials", func(ctx context.Context, now time.Time) (int64, error) {
		n, err := j.engine.ExpireTrials(ctx, now)
		return int64(n), err
	})
}

// ExpireSubscriptions moves lapsed subscriptions to expired.
func (j *Jobs) ExpireSubscriptions() {
	j.run("expire_subscriptions", func(ctx context.Context, now time.Time) (int64, error) {
		n, err := j.engine.ExpireSubscriptions(ctx, now)
		return int64(n), err
	})
}

// SendExpiryReminders notifies users whose subscription is about to lapse.
func (j *Jobs) SendExpiryReminders() {
	j.run("expiry_reminders", func(ctx context.Context, now time.Time) (int64, error) {
		n, err := j.engine.SendExpiryReminders(ctx, now)
		return int64(n), err
	})
}

// PurgeUsage drops usage windows older than the retention period.
func (j *Jobs) PurgeUsage() {
	j.run("purge_usage", func(ctx context.Context, now time.Time) (int64, error) {
		return j.engine.PurgeUsage(ctx, now.Add(-j.keep))
	})
}

// SweepAccessCache evicts expired access snapshots held in process.
func (j *Jobs) SweepAccessCache() {
	j.run("sweep_access_cache", func(context.Context, time.Time) (int64, error) {
		return int64(j.engine.SweepAccessCache()), nil
	})
}
