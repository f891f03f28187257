package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/cashier"
	cashierstore "github.com/xraph/cashier/store"
)

// Collection name constants.
const (
	colPlans          = "cashier_plans"
	colSubscriptions  = "cashier_subscriptions"
	colTrials         = "cashier_trials"
	colCoupons        = "cashier_coupons"
	colPayments       = "cashier_payments"
	colPaymentMethods = "cashier_payment_methods"
	colUsage          = "cashier_usage"
	colTemplates      = "cashier_email_templates"
	colEmailLogs      = "cashier_email_logs"
	colNotifications  = "cashier_notifications"
	colSettings       = "cashier_settings"
)

// compile-time interface check
var _ cashierstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all cashier collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("cashier/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", cashier.ErrStoreNotReady, err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// newestFirst is the default listing order.
var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

// migrationIndexes returns the index definitions for all cashier collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colPlans: {
			{
				Keys:    bson.D{{Key: "slug", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "tier", Value: 1}}},
		},
		colSubscriptions: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}}},
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}},
				Options: activeSubIndexOptions(),
			},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}}},
			{Keys: bson.D{{Key: "plan_id", Value: 1}}},
		},
		colTrials: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}}},
		},
		colCoupons: {
			{
				Keys:    bson.D{{Key: "code", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		colPayments: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
			{
				Keys:    bson.D{{Key: "gateway_ref", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
		},
		colPaymentMethods: {
			{
				Keys:    bson.D{{Key: "code", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colUsage: {
			{Keys: bson.D{{Key: "window_start", Value: 1}}},
		},
		colTemplates: {
			{
				Keys:    bson.D{{Key: "type", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colEmailLogs: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "sent_at", Value: -1}}},
		},
		colNotifications: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}
}

func activeSubIndexOptions() *options.IndexOptionsBuilder {
	return options.Index().
		SetName(activeSubIndex).
		SetUnique(true).
		SetPartialFilterExpression(bson.M{"status": "active"})
}

// wrap maps duplicate-key failures to dup and prefixes everything else.
func wrap(op string, err error, dup error) error {
	if err == nil {
		return nil
	}
	if dup != nil && mongo.IsDuplicateKeyError(err) {
		return dup
	}
	return fmt.Errorf("cashier/mongo: %s: %w", op, err)
}
