package sqlite

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
    price_amount   INTEGER NOT NULL DEFAULT 0,
    currency       TEXT NOT NULL DEFAULT 'SAR',
    billing_period TEXT NOT NULL DEFAULT 'monthly',
    duration_days  INTEGER NOT NULL DEFAULT 0,
    tier           INTEGER NOT NULL DEFAULT 0,
    status         TEXT NOT NULL DEFAULT 'active',
    trial_enabled  INTEGER NOT NULL DEFAULT 0,
    trial_days     INTEGER NOT NULL DEFAULT 0,
    discount       TEXT,
    features       TEXT NOT NULL DEFAULT '{}',
    limits         TEXT NOT NULL DEFAULT '{}',
    metadata       TEXT,
    created_at     TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at     TEXT NOT NULL DEFAULT (datetime('now'))
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
    starts_at      TEXT NOT NULL,
    expires_at     TEXT NOT NULL,
    canceled_at    TEXT,
    payment_method TEXT NOT NULL DEFAULT '',
    payment_ref    TEXT NOT NULL DEFAULT '',
    payment_id     TEXT NOT NULL DEFAULT '',
    is_trial       INTEGER NOT NULL DEFAULT 0,
    metadata       TEXT,
    created_at     TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at     TEXT NOT NULL DEFAULT (datetime('now'))
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
    starts_at                 TEXT NOT NULL,
    expires_at                TEXT NOT NULL,
    converted_subscription_id TEXT NOT NULL DEFAULT '',
    created_at                TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at                TEXT NOT NULL DEFAULT (datetime('now'))
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
    percent         INTEGER NOT NULL DEFAULT 0,
    amount_value    INTEGER NOT NULL DEFAULT 0,
    amount_currency TEXT NOT NULL DEFAULT '',
    max_uses        INTEGER NOT NULL DEFAULT 0,
    used_count      INTEGER NOT NULL DEFAULT 0,
    valid_from      TEXT,
    expires_at      TEXT,
    active          INTEGER NOT NULL DEFAULT 1,
    plan_ids        TEXT NOT NULL DEFAULT '[]',
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_cashier_coupons_code ON cashier_coupons (code);
`),
		table("cashier_payments", "20260101000005", `
CREATE TABLE IF NOT EXISTS cashier_payments (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    plan_id         TEXT NOT NULL,
    subscription_id TEXT NOT NULL DEFAULT '',
    amount          INTEGER NOT NULL DEFAULT 0,
    subtotal        INTEGER NOT NULL DEFAULT 0,
    fee             INTEGER NOT NULL DEFAULT 0,
    discount        INTEGER NOT NULL DEFAULT 0,
    currency        TEXT NOT NULL DEFAULT 'SAR',
    method          TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL DEFAULT 'pending',
    coupon_id       TEXT NOT NULL DEFAULT '',
    coupon_code     TEXT NOT NULL DEFAULT '',
    gateway_ref     TEXT NOT NULL DEFAULT '',
    failure_reason  TEXT NOT NULL DEFAULT '',
    line_items      TEXT,
    paid_at         TEXT,
    refunded_at     TEXT,
    metadata        TEXT,
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
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
    fee_percent INTEGER NOT NULL DEFAULT 0,
    fixed_fee   INTEGER NOT NULL DEFAULT 0,
    min_amount  INTEGER NOT NULL DEFAULT 0,
    max_amount  INTEGER NOT NULL DEFAULT 0,
    currency    TEXT NOT NULL DEFAULT '',
    countries   TEXT NOT NULL DEFAULT '[]',
    enabled     INTEGER NOT NULL DEFAULT 1,
    sort_order  INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_cashier_payment_methods_code ON cashier_payment_methods (code);
`),
		table("cashier_usage", "20260101000007", `
CREATE TABLE IF NOT EXISTS cashier_usage (
    user_id      TEXT NOT NULL,
    key          TEXT NOT NULL,
    window_start TEXT NOT NULL,
    count        INTEGER NOT NULL DEFAULT 0,
    updated_at   TEXT NOT NULL DEFAULT (datetime('now')),
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
    enabled    INTEGER NOT NULL DEFAULT 1,
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
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
    sent_at     TEXT NOT NULL DEFAULT (datetime('now'))
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
    is_read    INTEGER NOT NULL DEFAULT 0,
    read_at    TEXT,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_cashier_notifications_user ON cashier_notifications (user_id, created_at DESC);
`),
		table("cashier_settings", "20260101000011", `
CREATE TABLE IF NOT EXISTS cashier_settings (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`),
	)
}
