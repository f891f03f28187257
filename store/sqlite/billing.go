package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/cashier"
	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/payment"
	"github.com/xraph/cashier/store/sqlmodel"
	"github.com/xraph/cashier/subscription"
	"github.com/xraph/cashier/trial"
)

// ==================== Subscription Store ====================

// subscriptionConflict maps unique violations on the subscriptions table.
// SQLite names the columns of the failed index, so the partial index on
// active rows shows up as user_id.
func subscriptionConflict(err error) error {
	if !isUniqueViolation(err) {
		return err
	}
	if strings.Contains(err.Error(), "cashier_subscriptions.user_id") {
		return cashier.ErrSubscriptionActive
	}
	return cashier.ErrAlreadyExists
}

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	_, err := s.sdb.NewInsert(sqlmodel.ToSubscriptionModel(sub)).Exec(ctx)
	return subscriptionConflict(err)
}

const activateAttempts = 3

// ActivateSubscription expires the rows sub supersedes, then inserts it,
// retrying under SupersedeAll when a concurrent activation slips in.
func (s *Store) ActivateSubscription(ctx context.Context, sub *subscription.Subscription, mode subscription.Supersede) error {
	at := sub.StartsAt.UTC()
	for range activateAttempts {
		q := s.sdb.NewUpdate((*sqlmodel.SubscriptionModel)(nil)).
			Set("status = ?", string(subscription.StatusExpired)).
			Set("expires_at = CASE WHEN expires_at > ? THEN ? ELSE expires_at END", at, at).
			Set("updated_at = ?", at).
			Where("user_id = ?", sub.UserID).
			Where("status = ?", string(subscription.StatusActive))
		if mode == subscription.SupersedeLapsed {
			q = q.Where("expires_at <= ?", at)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("cashier/sqlite: supersede subscriptions: %w", err)
		}

		err := s.CreateSubscription(ctx, sub)
		if !errors.Is(err, cashier.ErrSubscriptionActive) || mode == subscription.SupersedeLapsed {
			return err
		}
	}
	return fmt.Errorf("%w: activate subscription for %s", cashier.ErrTransactionFailed, sub.UserID)
}

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	m := new(sqlmodel.SubscriptionModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", subID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, cashier.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return sqlmodel.FromSubscriptionModel(m)
}

func (s *Store) GetActiveSubscription(ctx context.Context, userID string) (*subscription.Subscription, error) {
	m := new(sqlmodel.SubscriptionModel)
	err := s.sdb.NewSelect(m).
		Where("user_id = ?", userID).
		Where("status = ?", string(subscription.StatusActive)).
		OrderExpr("created_at DESC, id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, cashier.ErrNoActiveSubscription
		}
		return nil, err
	}
	return sqlmodel.FromSubscriptionModel(m)
}

func (s *Store) ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []sqlmodel.SubscriptionModel
	q := s.sdb.NewSelect(&models)

	if opts.UserID != "" {
		q = q.Where("user_id = ?", opts.UserID)
	}
	if !opts.PlanID.IsNil() {
		q = q.Where("plan_id = ?", opts.PlanID.String())
	}
	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if !opts.ExpiresBefore.IsZero() {
		q = q.Where("expires_at < ?", opts.ExpiresBefore.UTC())
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC, id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return sqlmodel.Convert(models, sqlmodel.FromSubscriptionModel)
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	res, err := s.sdb.NewUpdate(sqlmodel.ToSubscriptionModel(sub)).WherePK().Exec(ctx)
	if err != nil {
		return subscriptionConflict(err)
	}
	return affected(res, cashier.ErrSubscriptionNotFound)
}

func (s *Store) CancelSubscription(ctx context.Context, subID id.SubscriptionID, canceledAt time.Time) error {
	at := canceledAt.UTC()
	res, err := s.sdb.NewUpdate((*sqlmodel.SubscriptionModel)(nil)).
		Set("status = ?", string(subscription.StatusCanceled)).
		Set("canceled_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", subID.String()).
		Where("status != ?", string(subscription.StatusCanceled)).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}
	if _, err := s.GetSubscription(ctx, subID); err != nil {
		return err
	}
	return cashier.ErrSubscriptionCanceled
}

// ==================== Trial Store ====================

func (s *Store) CreateTrial(ctx context.Context, t *trial.Trial) error {
	_, err := s.sdb.NewInsert(sqlmodel.ToTrialModel(t)).Exec(ctx)
	if isUniqueViolation(err) {
		return cashier.ErrTrialAlreadyUsed
	}
	return err
}

func (s *Store) GetTrial(ctx context.Context, trialID id.TrialID) (*trial.Trial, error) {
	m := new(sqlmodel.TrialModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", trialID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, cashier.ErrTrialNotFound
		}
		return nil, err
	}
	return sqlmodel.FromTrialModel(m)
}

func (s *Store) GetTrialByUser(ctx context.Context, userID string) (*trial.Trial, error) {
	m := new(sqlmodel.TrialModel)
	err := s.sdb.NewSelect(m).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, cashier.ErrTrialNotFound
		}
		return nil, err
	}
	return sqlmodel.FromTrialModel(m)
}

func (s *Store) ListTrials(ctx context.Context, opts trial.ListOpts) ([]*trial.Trial, error) {
	var models []sqlmodel.TrialModel
	q := s.sdb.NewSelect(&models)

	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if !opts.ExpiresBefore.IsZero() {
		q = q.Where("expires_at < ?", opts.ExpiresBefore.UTC())
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC, id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return sqlmodel.Convert(models, sqlmodel.FromTrialModel)
}

func (s *Store) UpdateTrial(ctx context.Context, t *trial.Trial) error {
	res, err := s.sdb.NewUpdate(sqlmodel.ToTrialModel(t)).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	return affected(res, cashier.ErrTrialNotFound)
}

// ==================== Payment Store ====================

func (s *Store) CreatePayment(ctx context.Context, p *payment.Payment) error {
	_, err := s.sdb.NewInsert(sqlmodel.ToPaymentModel(p)).Exec(ctx)
	if isUniqueViolation(err) {
		return cashier.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetPayment(ctx context.Context, paymentID id.PaymentID) (*payment.Payment, error) {
	m := new(sqlmodel.PaymentModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", paymentID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, cashier.ErrPaymentNotFound
		}
		return nil, err
	}
	return sqlmodel.FromPaymentModel(m)
}

func (s *Store) GetPaymentByReference(ctx context.Context, gatewayRef string) (*payment.Payment, error) {
	if gatewayRef == "" {
		return nil, cashier.ErrPaymentNotFound
	}
	m := new(sqlmodel.PaymentModel)
	err := s.sdb.NewSelect(m).
		Where("gateway_ref = ?", gatewayRef).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, cashier.ErrPaymentNotFound
		}
		return nil, err
	}
	return sqlmodel.FromPaymentModel(m)
}

func (s *Store) ListPayments(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	var models []sqlmodel.PaymentModel
	q := s.sdb.NewSelect(&models)

	if opts.UserID != "" {
		q = q.Where("user_id = ?", opts.UserID)
	}
	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if !opts.From.IsZero() {
		q = q.Where("created_at >= ?", opts.From.UTC())
	}
	if !opts.To.IsZero() {
		q = q.Where("created_at < ?", opts.To.UTC())
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC, id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return sqlmodel.Convert(models, sqlmodel.FromPaymentModel)
}

// transitioned maps a conditional status UPDATE that touched no rows to
// not-found or notInState.
func (s *Store) transitioned(ctx context.Context, res interface{ RowsAffected() (int64, error) }, paymentID id.PaymentID, notInState error) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}
	if _, err := s.GetPayment(ctx, paymentID); err != nil {
		return err
	}
	return notInState
}

func (s *Store) MarkPaymentCompleted(ctx context.Context, paymentID id.PaymentID, gatewayRef string, paidAt time.Time) error {
	at := paidAt.UTC()
	res, err := s.sdb.NewUpdate((*sqlmodel.PaymentModel)(nil)).
		Set("status = ?", string(payment.StatusCompleted)).
		Set("gateway_ref = CASE WHEN ? = '' THEN gateway_ref ELSE ? END", gatewayRef, gatewayRef).
		Set("paid_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", paymentID.String()).
		Where("status = ?", string(payment.StatusPending)).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("cashier/sqlite: gateway ref %q already recorded: %w", gatewayRef, cashier.ErrAlreadyExists)
		}
		return err
	}
	return s.transitioned(ctx, res, paymentID, cashier.ErrPaymentNotPending)
}

func (s *Store) MarkPaymentFailed(ctx context.Context, paymentID id.PaymentID, reason string, at time.Time) error {
	res, err := s.sdb.NewUpdate((*sqlmodel.PaymentModel)(nil)).
		Set("status = ?", string(payment.StatusFailed)).
		Set("failure_reason = ?", reason).
		Set("updated_at = ?", at.UTC()).
		Where("id = ?", paymentID.String()).
		Where("status = ?", string(payment.StatusPending)).
		Exec(ctx)
	if err != nil {
		return err
	}
	return s.transitioned(ctx, res, paymentID, cashier.ErrPaymentNotPending)
}

func (s *Store) MarkPaymentRefunded(ctx context.Context, paymentID id.PaymentID, refundedAt time.Time) error {
	at := refundedAt.UTC()
	res, err := s.sdb.NewUpdate((*sqlmodel.PaymentModel)(nil)).
		Set("status = ?", string(payment.StatusRefunded)).
		Set("refunded_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", paymentID.String()).
		Where("status = ?", string(payment.StatusCompleted)).
		Exec(ctx)
	if err != nil {
		return err
	}
	return s.transitioned(ctx, res, paymentID, cashier.ErrPaymentNotCompleted)
}

func (s *Store) SetPaymentSubscription(ctx context.Context, paymentID id.PaymentID, subID id.SubscriptionID) error {
	res, err := s.sdb.NewUpdate((*sqlmodel.PaymentModel)(nil)).
		Set("subscription_id = ?", subID.String()).
		Where("id = ?", paymentID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return affected(res, cashier.ErrPaymentNotFound)
}
