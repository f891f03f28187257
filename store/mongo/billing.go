package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/cashier"
	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/payment"
	"github.com/xraph/cashier/subscription"
	"github.com/xraph/cashier/trial"
)

// ==================== Subscription Store ====================

// activeSubIndex is the partial unique index allowing one active
// subscription per user.
const activeSubIndex = "user_active_subscription"

// subscriptionConflict tells a second active row apart from a reused id.
func subscriptionConflict(op string, err error) error {
	if err != nil && mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), activeSubIndex) {
		return cashier.ErrSubscriptionActive
	}
	return wrap(op, err, cashier.ErrAlreadyExists)
}

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	_, err := s.mdb.NewInsert(toSubscriptionModel(sub)).Exec(ctx)
	return subscriptionConflict("create subscription", err)
}

const activateAttempts = 3

// ActivateSubscription expires the superseded rows with a pipeline update
// that pulls their expiry in, then inserts sub. The partial unique index
// rejects an insert racing another activation.
func (s *Store) ActivateSubscription(ctx context.Context, sub *subscription.Subscription, mode subscription.Supersede) error {
	at := sub.StartsAt.UTC()
	filter := bson.M{"user_id": sub.UserID, "status": string(subscription.StatusActive)}
	if mode == subscription.SupersedeLapsed {
		filter["expires_at"] = bson.M{"$lte": at}
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "status", Value: string(subscription.StatusExpired)},
			{Key: "expires_at", Value: bson.M{"$min": bson.A{"$expires_at", at}}},
			{Key: "updated_at", Value: at},
		}}},
	}

	for range activateAttempts {
		if _, err := s.mdb.Collection(colSubscriptions).UpdateMany(ctx, filter, update); err != nil {
			return wrap("supersede subscriptions", err, nil)
		}
		err := s.CreateSubscription(ctx, sub)
		if !errors.Is(err, cashier.ErrSubscriptionActive) || mode == subscription.SupersedeLapsed {
			return err
		}
	}
	return fmt.Errorf("%w: activate subscription for %s", cashier.ErrTransactionFailed, sub.UserID)
}

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	var m subscriptionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": subID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, cashier.ErrSubscriptionNotFound
		}
		return nil, wrap("get subscription", err, nil)
	}
	return fromSubscriptionModel(&m)
}

func (s *Store) GetActiveSubscription(ctx context.Context, userID string) (*subscription.Subscription, error) {
	var m subscriptionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"user_id": userID, "status": string(subscription.StatusActive)}).
		Sort(newestFirst).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, cashier.ErrNoActiveSubscription
		}
		return nil, wrap("get active subscription", err, nil)
	}
	return fromSubscriptionModel(&m)
}

func (s *Store) ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel

	filter := bson.M{}
	if opts.UserID != "" {
		filter["user_id"] = opts.UserID
	}
	if !opts.PlanID.IsNil() {
		filter["plan_id"] = opts.PlanID.String()
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	if !opts.ExpiresBefore.IsZero() {
		filter["expires_at"] = bson.M{"$lt": opts.ExpiresBefore.UTC()}
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(newestFirst)

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, wrap("list subscriptions", err, nil)
	}

	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return subscriptionConflict("update subscription", err)
	}
	if res.MatchedCount() == 0 {
		return cashier.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) CancelSubscription(ctx context.Context, subID id.SubscriptionID, canceledAt time.Time) error {
	at := canceledAt.UTC()
	res, err := s.mdb.NewUpdate((*subscriptionModel)(nil)).
		Filter(bson.M{
			"_id":    subID.String(),
			"status": bson.M{"$ne": string(subscription.StatusCanceled)},
		}).
		Set("status", string(subscription.StatusCanceled)).
		Set("canceled_at", at).
		Set("updated_at", at).
		Exec(ctx)
	if err != nil {
		return wrap("cancel subscription", err, nil)
	}
	if res.MatchedCount() > 0 {
		return nil
	}
	if _, err := s.GetSubscription(ctx, subID); err != nil {
		return err
	}
	return cashier.ErrSubscriptionCanceled
}

// ==================== Trial Store ====================

func (s *Store) CreateTrial(ctx context.Context, t *trial.Trial) error {
	_, err := s.mdb.NewInsert(toTrialModel(t)).Exec(ctx)
	return wrap("create trial", err, cashier.ErrTrialAlreadyUsed)
}

func (s *Store) GetTrial(ctx context.Context, trialID id.TrialID) (*trial.Trial, error) {
	return s.findTrial(ctx, bson.M{"_id": trialID.String()})
}

func (s *Store) GetTrialByUser(ctx context.Context, userID string) (*trial.Trial, error) {
	return s.findTrial(ctx, bson.M{"user_id": userID})
}

func (s *Store) findTrial(ctx context.Context, filter bson.M) (*trial.Trial, error) {
	var m trialModel
	err := s.mdb.NewFind(&m).Filter(filter).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, cashier.ErrTrialNotFound
		}
		return nil, wrap("get trial", err, nil)
	}
	return fromTrialModel(&m)
}

func (s *Store) ListTrials(ctx context.Context, opts trial.ListOpts) ([]*trial.Trial, error) {
	var models []trialModel

	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	if !opts.ExpiresBefore.IsZero() {
		filter["expires_at"] = bson.M{"$lt": opts.ExpiresBefore.UTC()}
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(newestFirst)

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, wrap("list trials", err, nil)
	}

	result := make([]*trial.Trial, len(models))
	for i := range models {
		t, err := fromTrialModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

func (s *Store) UpdateTrial(ctx context.Context, t *trial.Trial) error {
	m := toTrialModel(t)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return wrap("update trial", err, nil)
	}
	if res.MatchedCount() == 0 {
		return cashier.ErrTrialNotFound
	}
	return nil
}

// ==================== Payment Store ====================

func (s *Store) CreatePayment(ctx context.Context, p *payment.Payment) error {
	_, err := s.mdb.NewInsert(toPaymentModel(p)).Exec(ctx)
	return wrap("create payment", err, cashier.ErrAlreadyExists)
}

func (s *Store) GetPayment(ctx context.Context, paymentID id.PaymentID) (*payment.Payment, error) {
	return s.findPayment(ctx, bson.M{"_id": paymentID.String()})
}

func (s *Store) GetPaymentByReference(ctx context.Context, gatewayRef string) (*payment.Payment, error) {
	if gatewayRef == "" {
		return nil, cashier.ErrPaymentNotFound
	}
	return s.findPayment(ctx, bson.M{"gateway_ref": gatewayRef})
}

func (s *Store) findPayment(ctx context.Context, filter bson.M) (*payment.Payment, error) {
	var m paymentModel
	err := s.mdb.NewFind(&m).Filter(filter).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, cashier.ErrPaymentNotFound
		}
		return nil, wrap("get payment", err, nil)
	}
	return fromPaymentModel(&m)
}

func (s *Store) ListPayments(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	var models []paymentModel

	filter := bson.M{}
	if opts.UserID != "" {
		filter["user_id"] = opts.UserID
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	created := bson.M{}
	if !opts.From.IsZero() {
		created["$gte"] = opts.From.UTC()
	}
	if !opts.To.IsZero() {
		created["$lt"] = opts.To.UTC()
	}
	if len(created) > 0 {
		filter["created_at"] = created
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(newestFirst)

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, wrap("list payments", err, nil)
	}

	result := make([]*payment.Payment, len(models))
	for i := range models {
		p, err := fromPaymentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

// transition applies set to the payment only while it is in status from.
func (s *Store) transition(ctx context.Context, paymentID id.PaymentID, from payment.Status, notInState error, set bson.M) error {
	res, err := s.mdb.Collection(colPayments).UpdateOne(ctx,
		bson.M{"_id": paymentID.String(), "status": string(from)},
		bson.M{"$set": set},
	)
	if err != nil {
		return wrap("update payment", err, cashier.ErrAlreadyExists)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if _, err := s.GetPayment(ctx, paymentID); err != nil {
		return err
	}
	return notInState
}

func (s *Store) MarkPaymentCompleted(ctx context.Context, paymentID id.PaymentID, gatewayRef string, paidAt time.Time) error {
	at := paidAt.UTC()
	set := bson.M{
		"status":     string(payment.StatusCompleted),
		"paid_at":    at,
		"updated_at": at,
	}
	if gatewayRef != "" {
		set["gateway_ref"] = gatewayRef
	}
	return s.transition(ctx, paymentID, payment.StatusPending, cashier.ErrPaymentNotPending, set)
}

func (s *Store) MarkPaymentFailed(ctx context.Context, paymentID id.PaymentID, reason string, at time.Time) error {
	return s.transition(ctx, paymentID, payment.StatusPending, cashier.ErrPaymentNotPending, bson.M{
		"status":         string(payment.StatusFailed),
		"failure_reason": reason,
		"updated_at":     at.UTC(),
	})
}

func (s *Store) MarkPaymentRefunded(ctx context.Context, paymentID id.PaymentID, refundedAt time.Time) error {
	at := refundedAt.UTC()
	return s.transition(ctx, paymentID, payment.StatusCompleted, cashier.ErrPaymentNotCompleted, bson.M{
		"status":      string(payment.StatusRefunded),
		"refunded_at": at,
		"updated_at":  at,
	})
}

func (s *Store) SetPaymentSubscription(ctx context.Context, paymentID id.PaymentID, subID id.SubscriptionID) error {
	res, err := s.mdb.NewUpdate((*paymentModel)(nil)).
		Filter(bson.M{"_id": paymentID.String()}).
		Set("subscription_id", subID.String()).
		Exec(ctx)
	if err != nil {
		return wrap("set payment subscription", err, nil)
	}
	if res.MatchedCount() == 0 {
		return cashier.ErrPaymentNotFound
	}
	return nil
}
