package postgres

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

// activeSubIndex enforces one active subscription per user.
const activeSubIndex = "idx_cashier_subs_active_user"

// subscriptionConflict maps unique violations on the subscriptions table.
func subscriptionConflict(err error) error {
	if !isUniqueViolation(err) {
		return err
	}
	if strings.Contains(err.Error(), activeSubIndex) {
		return cashier.ErrSubscriptionActive
	}
	return cashier.ErrAlreadyExists
}

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	_, err := s.pg.NewInsert(sqlmodel.ToSubscriptionModel(sub)).Exec(ctx)
	return subscriptionConflict(err)
}

// activateAttempts bounds retries when a concurrent activation for the
// same user commits between the supersede and the insert.
const activateAttempts = 3

// ActivateSubscription expires the rows sub supersedes, then inserts it.
// The partial unique index on active rows rejects an insert that races
// another activation; SupersedeAll retries so the later one supersedes it.
func (s *Store) ActivateSubscription(ctx context.Context, sub *subscription.Subscription, mode subscription.Supersede) error {
	at := sub.StartsAt.UTC()
	for range activateAttempts {
		q := s.pg.NewUpdate((*sqlmodel.SubscriptionModel)(nil)).
			Set("status = $1", string(subscription.StatusExpired)).
			Set("expires_at = LEAST(expires_at, $2)", at).
			Set("updated_at = $3", at).
			Where("user_id = $4", sub.UserID).
			Where("status = $5", string(subscription.StatusActive))
		if mode == subscription.SupersedeLapsed {
			q = q.Where("expires_at <= $6", at)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("cashier/postgres: supersede subscriptions: %w", err)
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
	err := s.pg.NewSelect(m).
		Where("id = $1", subID.String()).
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
	err := s.pg.NewSelect(m).
		Where("user_id = $1", userID).
		Where("status = $2", string(subscription.StatusActive)).
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
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.UserID != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("user_id = $%d", argIdx), opts.UserID)
	}
	if !opts.PlanID.IsNil() {
		argIdx++
		q = q.Where(fmt.Sprintf("plan_id = $%d", argIdx), opts.PlanID.String())
	}
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if !opts.ExpiresBefore.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("expires_at < $%d", argIdx), opts.ExpiresBefore.UTC())
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
	res, err := s.pg.NewUpdate(sqlmodel.ToSubscriptionModel(sub)).WherePK().Exec(ctx)
	if err != nil {
		return subscriptionConflict(err)
	}
	return affected(res, cashier.ErrSubscriptionNotFound)
}

func (s *Store) CancelSubscription(ctx context.Context, subID id.SubscriptionID, canceledAt time.Time) error {
	at := canceledAt.UTC()
	res, err := s.pg.NewUpdate((*sqlmodel.SubscriptionModel)(nil)).
		Set("status = $1", string(subscription.StatusCanceled)).
		Set("canceled_at = $2", at).
		Set("updated_at = $3", at).
		Where("id = $4", subID.String()).
		Where("status != $5", string(subscription.StatusCanceled)).
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
	_, err := s.pg.NewInsert(sqlmodel.ToTrialModel(t)).Exec(ctx)
	if isUniqueViolation(err) {
		return cashier.ErrTrialAlreadyUsed
	}
	return err
}

func (s *Store) GetTrial(ctx context.Context, trialID id.TrialID) (*trial.Trial, error) {
	m := new(sqlmodel.TrialModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", trialID.String()).
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
	err := s.pg.NewSelect(m).
		Where("user_id = $1", userID).
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
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if !opts.ExpiresBefore.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("expires_at < $%d", argIdx), opts.ExpiresBefore.UTC())
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
	res, err := s.pg.NewUpdate(sqlmodel.ToTrialModel(t)).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	return affected(res, cashier.ErrTrialNotFound)
}

// ==================== Payment Store ====================

func (s *Store) CreatePayment(ctx context.Context, p *payment.Payment) error {
	_, err := s.pg.NewInsert(sqlmodel.ToPaymentModel(p)).Exec(ctx)
	if isUniqueViolation(err) {
		return cashier.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetPayment(ctx context.Context, paymentID id.PaymentID) (*payment.Payment, error) {
	m := new(sqlmodel.PaymentModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", paymentID.String()).
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
	err := s.pg.NewSelect(m).
		Where("gateway_ref = $1", gatewayRef).
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
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.UserID != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("user_id = $%d", argIdx), opts.UserID)
	}
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if !opts.From.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("created_at >= $%d", argIdx), opts.From.UTC())
	}
	if !opts.To.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("created_at < $%d", argIdx), opts.To.UTC())
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
	res, err := s.pg.NewUpdate((*sqlmodel.PaymentModel)(nil)).
		Set("status = $1", string(payment.StatusCompleted)).
		Set("gateway_ref = CASE WHEN $2 = '' THEN gateway_ref ELSE $2 END", gatewayRef).
		Set("paid_at = $3", at).
		Set("updated_at = $4", at).
		Where("id = $5", paymentID.String()).
		Where("status = $6", string(payment.StatusPending)).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("cashier/postgres: gateway ref %q already recorded: %w", gatewayRef, cashier.ErrAlreadyExists)
		}
		return err
	}
	return s.transitioned(ctx, res, paymentID, cashier.ErrPaymentNotPending)
}

func (s *Store) MarkPaymentFailed(ctx context.Context, paymentID id.PaymentID, reason string, at time.Time) error {
	res, err := s.pg.NewUpdate((*sqlmodel.PaymentModel)(nil)).
		Set("status = $1", string(payment.StatusFailed)).
		Set("failure_reason = $2", reason).
		Set("updated_at = $3", at.UTC()).
		Where("id = $4", paymentID.String()).
		Where("status = $5", string(payment.StatusPending)).
		Exec(ctx)
	if err != nil {
		return err
	}
	return s.transitioned(ctx, res, paymentID, cashier.ErrPaymentNotPending)
}

func (s *Store) MarkPaymentRefunded(ctx context.Context, paymentID id.PaymentID, refundedAt time.Time) error {
	at := refundedAt.UTC()
	res, err := s.pg.NewUpdate((*sqlmodel.PaymentModel)(nil)).
		Set("status = $1", string(payment.StatusRefunded)).
		Set("refunded_at = $2", at).
		Set("updated_at = $3", at).
		Where("id = $4", paymentID.String()).
		Where("status = $5", string(payment.StatusCompleted)).
		Exec(ctx)
	if err != nil {
		return err
	}
	return s.transitioned(ctx, res, paymentID, cashier.ErrPaymentNotCompleted)
}

func (s *Store) SetPaymentSubscription(ctx context.Context, paymentID id.PaymentID, subID id.SubscriptionID) error {
	res, err := s.pg.NewUpdate((*sqlmodel.PaymentModel)(nil)).
		Set("subscription_id = $1", subID.String()).
		Where("id = $2", paymentID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return affected(res, cashier.ErrPaymentNotFound)
}
