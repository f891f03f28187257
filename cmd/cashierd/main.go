// Command cashierd serves the Cashier billing API.
//
// It wires the engine to an in-memory store, an optional Redis access
// cache, a RabbitMQ event publisher, Postmark email delivery and the cron
// maintenance jobs. Configuration comes from the environment; a .env file
// in the working directory is loaded first when present.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/xraph/cashier"
	"github.com/xraph/cashier/api"
	audit_hook "github.com/xraph/cashier/audit_hook"
	"github.com/xraph/cashier/entitlement/rediscache"
	"github.com/xraph/cashier/eventbus"
	"github.com/xraph/cashier/notify"
	"github.com/xraph/cashier/notify/postmark"
	"github.com/xraph/cashier/observability"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/scheduler"
	"github.com/xraph/cashier/settings"
	"github.com/xraph/cashier/store/memory"
	"github.com/xraph/cashier/webhook"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("cashierd: reading .env failed", "error", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("cashierd: invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("cashierd: exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config, logger *slog.Logger) error {
	st := memory.New()

	opts := []cashier.Option{
		cashier.WithLogger(logger),
		cashier.WithCurrency(cfg.Currency),
		cashier.WithDefaultPlanSlug(cfg.DefaultPlan),
		cashier.WithAccessCacheTTL(cfg.AccessCacheTTL),
		cashier.WithReminderDays(cfg.ReminderDays),
	}

	var rdb redis.UniversalClient
	if cfg.RedisURL != "" {
		client, err := rediscache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		rdb = client
		opts = append(opts, cashier.WithEntitlementCache(rediscache.New(rdb)))
		logger.Info("cashierd: redis access cache enabled")
	}

	notifier, err := newNotifier(st, cfg, rdb, logger)
	if err != nil {
		return err
	}
	publisher := eventbus.NewPublisher(
		eventbus.DialOrNoop(cfg.AMQPURL, cfg.AMQPExchange, logger),
		eventbus.WithLogger(logger),
	)
	metrics := observability.NewMetricsExtension(observability.NewOTelFactory(nil, func(name string, err error) {
		logger.Warn("cashierd: metric instrument unavailable", "metric", name, "error", err)
	}))
	audit := audit_hook.New(audit_hook.RecorderFunc(func(_ context.Context, ev *audit_hook.AuditEvent) error {
		logger.Info("audit",
			"action", ev.Action,
			"resource", ev.Resource,
			"resource_id", ev.ResourceID,
			"user_id", ev.UserID,
			"outcome", ev.Outcome,
			"severity", ev.Severity,
		)
		return nil
	}), audit_hook.WithLogger(logger))

	opts = append(opts,
		cashier.WithPlugin(notifier),
		cashier.WithPlugin(publisher),
		cashier.WithPlugin(metrics),
		cashier.WithPlugin(audit),
	)

	engine := cashier.New(st, opts...)
	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer func() {
		if err := engine.Stop(); err != nil {
			logger.Error("cashierd: engine stop failed", "error", err)
		}
	}()

	if cfg.SeedCatalog {
		if err := seed(ctx, engine, cfg.CatalogFile, logger); err != nil {
			return err
		}
	}

	if err := bootstrapEmail(ctx, engine, cfg, logger); err != nil {
		return err
	}

	sched := scheduler.New(engine, cfg.Scheduler, logger)
	if err := sched.Start(); err != nil {
		return err
	}
	defer func() { <-sched.Stop().Done() }()

	apiOpts := []api.Option{
		api.WithLogger(logger),
		api.WithNotifier(notifier),
		api.WithAccessLog(cfg.AccessLog),
		api.WithRequestTimeout(cfg.RequestTimeout),
	}
	if len(cfg.AllowedOrigins) > 0 {
		apiOpts = append(apiOpts, api.WithAllowedOrigins(cfg.AllowedOrigins...))
	}
	if cfg.WebhookSecret != "" {
		apiOpts = append(apiOpts, api.WithWebhookVerifier(webhook.NewVerifier(cfg.WebhookSecret, webhook.DefaultMaxAge)))
	} else {
		logger.Warn("cashierd: WEBHOOK_SECRET not set, payment webhooks are disabled")
	}

	auth := api.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.New(engine, auth, apiOpts...).Handler(),
		ReadHeaderTimeout: cfg.RequestTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("cashierd: listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("cashierd: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newNotifier(st *memory.Store, cfg config, rdb redis.UniversalClient, logger *slog.Logger) (*notify.Notifier, error) {
	opts := []notify.Option{notify.WithLogger(logger)}

	if cfg.Postmark.ServerToken != "" {
		sender, err := postmark.New(cfg.Postmark)
		if err != nil {
			return nil, err
		}
		opts = append(opts, notify.WithSender(sender))
		logger.Info("cashierd: postmark delivery enabled", "stream", cfg.Postmark.MessageStream)
	}
	if rdb != nil {
		opts = append(opts, notify.WithRecipients(redisRecipients{db: rdb}))
	}

	return notify.NewNotifier(st, opts...), nil
}

// bootstrapEmail stores email settings from EMAIL_FROM unless an admin
// already saved some.
func bootstrapEmail(ctx context.Context, engine *cashier.Cashier, cfg config, logger *slog.Logger) error {
	if cfg.EmailFrom == "" {
		return nil
	}
	_, err := engine.GetSetting(ctx, settings.KeyEmail)
	if err == nil {
		return nil
	}
	if !cashier.IsNotFound(err) {
		return fmt.Errorf("read email settings: %w", err)
	}

	s, err := settings.Encode(settings.KeyEmail, settings.EmailSettings{
		Enabled:      true,
		FromAddress:  cfg.EmailFrom,
		FromName:     cfg.EmailFromName,
		ReminderDays: cfg.ReminderDays,
	})
	if err != nil {
		return err
	}
	if _, err := engine.PutSetting(ctx, s.Key, s.Value); err != nil {
		return fmt.Errorf("store email settings: %w", err)
	}
	logger.Info("cashierd: email enabled", "from", cfg.EmailFrom)
	return nil
}

func seed(ctx context.Context, engine *cashier.Cashier, catalogFile string, logger *slog.Logger) error {
	catalog := plan.DefaultCatalog()
	if catalogFile != "" {
		f, err := os.Open(catalogFile)
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		defer f.Close()
		if catalog, err = plan.LoadCatalog(f); err != nil {
			return err
		}
	}

	plans, err := engine.SeedCatalog(ctx, catalog)
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	methods, err := engine.SeedPaymentMethods(ctx)
	if err != nil {
		return fmt.Errorf("seed payment methods: %w", err)
	}
	logger.Info("cashierd: catalog seeded", "plans", plans, "payment_methods", methods)
	return nil
}
