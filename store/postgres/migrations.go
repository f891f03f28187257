package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the cashier store.
var Migrations = migrate.NewGroup("cashier")

func table(name, version, up string) *migrate.Migration {
	return &migrate.Migration{
		Name:    "create_" + name,
		Version: version,
		Up: func(ctx context.Context, exec migrate.Executor) error {
			_, err := exec.Exec(ctx, up)
			return err
		},
		Down: func(ctx context.Context, exec migrate.Executor) error {
			_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS `+name)
			return err
		},
	}
}

func init() {
	Migrations.MustRegister(
		table("cashier_plans", "20260101000001", `
CREATE TABLE IF NOT EXISTS cashier_plans (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL DEFAULT '',
    slug           TEXT NOT NULL,
    description    TEXT NOT NULL DEFAULT '',
    price_amount   BIGINT NOT NULL DEFAULT 0,
    currency       TEXT NOT NULL DEFAULT 'SAR',
    billing_period TEXT NOT NULL DEFAULT 'monthly',
    duration_days  INT NOT NULL DEFAULT 0,
    tier           INT NOT NULL DEFAULT 0,
    status         TEXT NOT NULL DEFAULT 'active',
    trial_enabled  BOOLEAN NOT NULL DEFAULT FALSE,
    trial_days     INT NOT NULL DEFAULT 0,
    discount       JSONB,
    features       JSONB NOT NULL DEFAULT '{}',
    limits         JSONB NOT NULL DEFAULT '{}',
    metadata       JSONB,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_cashier_plans_slug ON cashier_plans (slug);
CREATE INDEX IF NOT EXISTS idx_cashier_plans_status ON cashier_plans (status, tier);
`),
		table("cashier_subscriptions", "20260101000002", `
CREATE TABLE IF NOT EXISTS cashier_subscriptions (
    id             TEXT PRIMARY KEY,
    user_id        TEXT NOT NULL,
    plan_id        TEXT NOT NULL,
    status         TEXT NOT NULL DEFAULT 'active',
    starts_at      TIMESTAMPTZ NOT NULL,
    expires_at     TIMESTAMPTZ NOT NULL,
    canceled_at    TIMESTAMPTZ,
    payment_method TEXT NOT NULL DEFAULT '',
    payment_ref    TEXT NOT NULL DEFAULT '',
    payment_id     TEXT NOT NULL DEFAULT '',
    is_trial       BOOLEAN NOT NULL DEFAULT FALSE,
    metadata       JSONB,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_cashier_subs_user ON cashier_subscriptions (user_id, status);
CREATE UNIQUE INDEX IF NOT EXISTS idx_cashier_subs_active_user ON cashier_subscriptions (user_id) WHERE status = 'active';
CREATE INDEX IF NOT EXISTS idx_cashier_subs_plan ON cashier_subscriptions (plan_id);
CREATE INDEX IF NOT EXISTS idx_cashier_subs_expiry ON cashier_subscriptions (status, expires_at);
`),
		table("cashier_trials", "20260101000003", `
CREATE TABLE IF NOT EXISTS cashier_trials (
    id                        TEXT PRIMARY KEY,
    user_id                   TEXT NOT NULL,
    plan_id                   TEXT NOT NULL,
    status                    TEXT NOT NULL DEFAULT 'active',
    starts_at                 TIMESTAMPTZ NOT NULL,
    expires_at                TIMESTAMPTZ NOT NULL,
    converted_subscription_id TEXT NOT NULL DEFAULT '',
    created_at                TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at                TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_cashier_trials_user ON cashier_trials (user_id);
CREATE INDEX IF NOT EXISTS idx_cashier_trials_expiry ON cashier_trials (status, expires_at);
`),
		table("cashier_coupons", "20260101000004", `
CREATE TABLE IF NOT EXISTS cashier_coupons (
    id              TEXT PRIMARY KEY,
    code            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    type            TEXT NOT NULL,
    percent         BIGINT NOT NULL DEFAULT 0,
    amount_value    BIGINT NOT NULL DEFAULT 0,
    amount_currency TEXT NOT NULL DEFAULT '',
    max_uses        INT NOT NULL DEFAULT 0,
    used_count      INT NOT NULL DEFAULT 0,
    valid_from      TIMESTAMPTZ,
    expires_at      TIMESTAMPTZ,
    active          BOOLEAN NOT NULL DEFAULT TRUE,
    plan_ids        JSONB NOT NULL DEFAULT '[]',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_cashier_coupons_code ON cashier_coupons (code);
`),
		table("cashier_payments", "20260101000005", `
CREATE TABLE IF NOT EXISTS cashier_payments (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    plan_id         TEXT NOT NULL,
    subscription_id TEXT NOT NULL DEFAULT '',
    amount          BIGINT NOT NULL DEFAULT 0,
    subtotal        BIGINT NOT NULL DEFAULT 0,
    fee             BIGINT NOT NULL DEFAULT 0,
    discount        BIGINT NOT NULL DEFAULT 0,
    currency        TEXT NOT NULL DEFAULT 'SAR',
    method          TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL DEFAULT 'pending',
    coupon_id       TEXT NOT NULL DEFAULT '',
    coupon_code     TEXT NOT NULL DEFAULT '',
    gateway_ref     TEXT NOT NULL DEFAULT '',
    failure_reason  TEXT NOT NULL DEFAULT '',
    line_items      JSONB,
    paid_at         TIMESTAMPTZ,
    refunded_at     TIMESTAMPTZ,
    metadata        JSONB,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_cashier_payments_user ON cashier_payments (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_cashier_payments_status ON cashier_payments (status, created_at DESC);
CREATE UNIQUE INDEX IF NOT EXISTS idx_cashier_payments_ref ON cashier_payments (gateway_ref) WHERE gateway_ref != '';
`),
		table("cashier_payment_methods", "20260101000006", `
CREATE TABLE IF NOT EXISTS cashier_payment_methods (
    id          TEXT PRIMARY KEY,
    code        TEXT NOT NULL,
    name        TEXT NOT NULL DEFAULT '',
    fee_percent BIGINT NOT NULL DEFAULT 0,
    fixed_fee   BIGINT NOT NULL DEFAULT 0,
    min_amount  BIGINT NOT NULL DEFAULT 0,
    max_amount  BIGINT NOT NULL DEFAULT 0,
    currency    TEXT NOT NULL DEFAULT '',
    countries   JSONB NOT NULL DEFAULT '[]',
    enabled     BOOLEAN NOT NULL DEFAULT TRUE,
    sort_order  INT NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_cashier_payment_methods_code ON cashier_payment_methods (code);
`),
		table("cashier_usage", "20260101000007", `
CREATE TABLE IF NOT EXISTS cashier_usage (
    user_id      TEXT NOT NULL,
    key          TEXT NOT NULL,
    window_start TIMESTAMPTZ NOT NULL,
    count        BIGINT NOT NULL DEFAULT 0,
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, key, window_start)
);

CREATE INDEX IF NOT EXISTS idx_cashier_usage_window ON cashier_usage (window_start);
`),
		table("cashier_email_templates", "20260101000008", `
CREATE TABLE IF NOT EXISTS cashier_email_templates (
    id         TEXT PRIMARY KEY,
    type       TEXT NOT NULL,
    subject    TEXT NOT NULL DEFAULT '',
    html_body  TEXT NOT NULL DEFAULT '',
    text_body  TEXT NOT NULL DEFAULT '',
    enabled    BOOLEAN NOT NULL DEFAULT TRUE,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_cashier_email_templates_type ON cashier_email_templates (type);
`),
		table("cashier_email_logs", "20260101000009", `
CREATE TABLE IF NOT EXISTS cashier_email_logs (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL DEFAULT '',
    type        TEXT NOT NULL,
    recipient   TEXT NOT NULL DEFAULT '',
    subject     TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL,
    provider_id TEXT NOT NULL DEFAULT '',
    error       TEXT NOT NULL DEFAULT '',
    sent_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_cashier_email_logs_user ON cashier_email_logs (user_id, sent_at DESC);
`),
		table("cashier_notifications", "20260101000010", `
CREATE TABLE IF NOT EXISTS cashier_notifications (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    type       TEXT NOT NULL,
    title      TEXT NOT NULL DEFAULT '',
    body       TEXT NOT NULL DEFAULT '',
    is_read    BOOLEAN NOT NULL DEFAULT FALSE,
    read_at    TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_cashier_notifications_user ON cashier_notifications (user_id, created_at DESC);
`),
		table("cashier_settings", "20260101000011", `
CREATE TABLE IF NOT EXISTS cashier_settings (
    key        TEXT PRIMARY KEY,
    value      JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`),
	)
}
