// Package scheduler runs Cashier's periodic maintenance on cron schedules:
// trial and subscription expiry, expiry reminders, usage purges and
// access cache sweeps.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Engine is the subset of *cashier.Cashier the jobs drive.
type Engine interface {
	Now() time.Time
	ExpireTrials(ctx context.Context, now time.Time) (int, error)
	ExpireSubscriptions(ctx context.Context, now time.Time) (int, error)
	SendExpiryReminders(ctx context.Context, now time.Time) (int, error)
	PurgeUsage(ctx context.Context, before time.Time) (int64, error)
	SweepAccessCache() int
}

// Config holds the cron expressions (standard five-field, UTC) and job limits.
// An empty expression disables the job.
type Config struct {
	ExpireTrials        string        `json:"expire_trials" yaml:"expire_trials" env:"EXPIRE_TRIALS" envDefault:"*/5 * * * *"`
	ExpireSubscriptions string        `json:"expire_subscriptions" yaml:"expire_subscriptions" env:"EXPIRE_SUBSCRIPTIONS" envDefault:"*/5 * * * *"`
	ExpiryReminders     string        `json:"expiry_reminders" yaml:"expiry_reminders" env:"EXPIRY_REMINDERS" envDefault:"0 9 * * *"`
	PurgeUsage          string        `json:"purge_usage" yaml:"purge_usage" env:"PURGE_USAGE" envDefault:"30 3 * * *"`
	SweepAccessCache    string        `json:"sweep_access_cache" yaml:"sweep_access_cache" env:"SWEEP_ACCESS_CACHE" envDefault:"*/10 * * * *"`
	UsageRetention      time.Duration `json:"usage_retention" yaml:"usage_retention" env:"USAGE_RETENTION" envDefault:"1488h"`
	JobTimeout          time.Duration `json:"job_timeout" yaml:"job_timeout" env:"JOB_TIMEOUT" envDefault:"2m"`
}

// DefaultConfig returns the stock schedules. Usage windows are kept for 62 days.
func DefaultConfig() Config {
	return Config{
		ExpireTrials:        "*/5 * * * *",
		ExpireSubscriptions: "*/5 * * * *",
		ExpiryReminders:     "0 9 * * *",
		PurgeUsage:          "30 3 * * *",
		SweepAccessCache:    "*/10 * * * *",
		UsageRetention:      62 * 24 * time.Hour,
		JobTimeout:          2 * time.Minute,
	}
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *slog.Logger
	config Config
}

// New creates a scheduler whose jobs run in UTC with panics recovered.
func New(engine Engine, cfg Config, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	return &Scheduler{
		cron:   c,
		jobs:   NewJobs(engine, cfg, logger),
		logger: logger,
		config: cfg,
	}
}

// Jobs returns the job set, for running a sweep on demand.
func (s *Scheduler) Jobs() *Jobs { return s.jobs }

// Start registers the jobs and starts the cron scheduler. Every invalid
// expression is reported and nothing is started.
func (s *Scheduler) Start() error {
	entries := []struct {
		name     string
		schedule string
		run      func()
	}{
		{"expire_trials", s.config.ExpireTrials, s.jobs.ExpireTrials},
		{"expire_subscriptions", s.config.ExpireSubscriptions, s.jobs.ExpireSubscriptions},
		{"expiry_reminders", s.config.ExpiryReminders, s.jobs.SendExpiryReminders},
		{"purge_usage", s.config.PurgeUsage, s.jobs.PurgeUsage},
		{"sweep_access_cache", s.config.SweepAccessCache, s.jobs.SweepAccessCache},
	}

	var errs []error
	for _, e := range entries {
		if e.schedule == "" {
			s.logger.Info("scheduler: job disabled", "job", e.name)
			continue
		}
		if _, err := s.cron.AddFunc(e.schedule, e.run); err != nil {
			errs = append(errs, fmt.Errorf("scheduler: %s: %w", e.name, err))
			continue
		}
		s.logger.Info("scheduler: job scheduled", "job", e.name, "schedule", e.schedule)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler. The returned context is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Len reports the number of registered jobs.
func (s *Scheduler) Len() int { return len(s.cron.Entries()) }
