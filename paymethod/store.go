package paymethod

import "context"

// Store persists payment-method configs keyed by code.
type Store interface {
	Upsert(ctx context.Context, c *Config) error
	Get(ctx context.Context, code string) (*Config, error)
	List(ctx context.Context, enabledOnly bool) ([]*Config, error)
	Delete(ctx context.Context, code string) error
}
