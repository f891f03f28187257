package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/xraph/cashier"
	"github.com/xraph/cashier/eventbus"
	"github.com/xraph/cashier/notify/postmark"
	"github.com/xraph/cashier/scheduler"
)

// config is read from the environment, after an optional .env file.
type config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	AccessLog       bool          `env:"ACCESS_LOG" envDefault:"true"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:","`

	JWTSecret     string `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer     string `env:"JWT_ISSUER"`
	JWTAudience   string `env:"JWT_AUDIENCE"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`

	RedisURL     string `env:"REDIS_URL"`
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"cashier.events"`

	Currency       string        `env:"CURRENCY"`
	DefaultPlan    string        `env:"DEFAULT_PLAN" envDefault:"free"`
	AccessCacheTTL time.Duration `env:"ACCESS_CACHE_TTL" envDefault:"5m"`
	ReminderDays   int           `env:"REMINDER_DAYS" envDefault:"3"`
	SeedCatalog    bool          `env:"SEED_CATALOG" envDefault:"true"`
	CatalogFile    string        `env:"CATALOG_FILE"`

	// EmailFrom enables email on first start when no email settings
	// are stored yet.
	EmailFrom     string `env:"EMAIL_FROM"`
	EmailFromName string `env:"EMAIL_FROM_NAME"`

	Postmark  postmark.Config
	Scheduler scheduler.Config `envPrefix:"SCHEDULER_"`
}

func loadConfig() (config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.AMQPExchange == "" {
		cfg.AMQPExchange = eventbus.DefaultExchange
	}
	if cfg.Currency == "" {
		cfg.Currency = cashier.DefaultCurrency
	}
	return cfg, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
