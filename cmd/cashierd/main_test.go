package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/cashier/notify"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("SCHEDULER_EXPIRY_REMINDERS", "0 8 * * *")
	t.Setenv("POSTMARK_SERVER_TOKEN", "pm-token")

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "cashier.events", cfg.AMQPExchange)
	assert.Equal(t, "sar", cfg.Currency)
	assert.Equal(t, 5*time.Minute, cfg.AccessCacheTTL)
	assert.Equal(t, "0 8 * * *", cfg.Scheduler.ExpiryReminders)
	assert.Equal(t, "*/5 * * * *", cfg.Scheduler.ExpireTrials)
	assert.Equal(t, "pm-token", cfg.Postmark.ServerToken)
	assert.Equal(t, "outbound", cfg.Postmark.MessageStream)
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := loadConfig()
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestRedisRecipients(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	mr.HSet(profilePrefix+"u1", "email", "sara@example.com", "name", "Sara")
	r := redisRecipients{db: rdb}

	got, err := r.Lookup(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, notify.Recipient{Email: "sara@example.com", Name: "Sara"}, got)

	_, err = r.Lookup(context.Background(), "u2")
	require.ErrorIs(t, err, notify.ErrNoRecipient)
}
