package memory

import (
	"context"
	"time"

	"github.com/xraph/cashier"
	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/payment"
	"github.com/xraph/cashier/subscription"
	"github.com/xraph/cashier/trial"
)

// ──────────────────────────────────────────────────
// Subscriptions
// ──────────────────────────────────────────────────

func cloneSubscription(sub *subscription.Subscription) *subscription.Subscription {
	cp := *sub
	cp.Metadata = cloneMap(sub.Metadata)
	if sub.CanceledAt != nil {
		t := *sub.CanceledAt
		cp.CanceledAt = &t
	}
	return &cp
}

// newestSubFirst orders by CreatedAt descending, then id descending.
func newestSubFirst(a, b *subscription.Subscription) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return compareIDDesc(a.ID, b.ID)
}

func compareIDDesc(a, b id.ID) int {
	as, bs := a.String(), b.String()
	switch {
	case as > bs:
		return -1
	case as < bs:
		return 1
	}
	return 0
}

func (s *Store) CreateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[sub.ID.String()]; exists {
		return cashier.ErrAlreadyExists
	}
	if s.activeConflict(sub) {
		return cashier.ErrSubscriptionActive
	}
	s.subscriptions[sub.ID.String()] = cloneSubscription(sub)
	return nil
}

// activeConflict reports whether storing sub would give its user a second
// active subscription. Callers hold s.mu.
func (s *Store) activeConflict(sub *subscription.Subscription) bool {
	if sub.Status != subscription.StatusActive {
		return false
	}
	for key, cur := range s.subscriptions {
		if key != sub.ID.String() && cur.UserID == sub.UserID && cur.Status == subscription.StatusActive {
			return true
		}
	}
	return false
}

// ActivateSubscription supersedes the user's active rows and inserts sub
// under one lock.
func (s *Store) ActivateSubscription(_ context.Context, sub *subscription.Subscription, mode subscription.Supersede) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[sub.ID.String()]; exists {
		return cashier.ErrAlreadyExists
	}

	at := sub.StartsAt.UTC()
	var ended []*subscription.Subscription
	for _, cur := range s.subscriptions {
		if cur.UserID != sub.UserID || cur.Status != subscription.StatusActive {
			continue
		}
		if mode == subscription.SupersedeLapsed && cur.ExpiresAt.After(at) {
			return cashier.ErrSubscriptionActive
		}
		ended = append(ended, cur)
	}
	for _, cur := range ended {
		cur.Status = subscription.StatusExpired
		if cur.ExpiresAt.After(at) {
			cur.ExpiresAt = at
		}
		cur.TouchAt(at)
	}
	s.subscriptions[sub.ID.String()] = cloneSubscription(sub)
	return nil
}

func (s *Store) GetSubscription(_ context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sub, ok := s.subscriptions[subID.String()]; ok {
		return cloneSubscription(sub), nil
	}
	return nil, cashier.ErrSubscriptionNotFound
}

// GetActiveSubscription returns the user's newest subscription in the
// active state. Callers decide whether it has lapsed.
func (s *Store) GetActiveSubscription(_ context.Context, userID string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *subscription.Subscription
	for _, sub := range s.subscriptions {
		if sub.UserID != userID || sub.Status != subscription.StatusActive {
			continue
		}
		if found == nil || newestSubFirst(sub, found) < 0 {
			found = sub
		}
	}
	if found == nil {
		return nil, cashier.ErrNoActiveSubscription
	}
	return cloneSubscription(found), nil
}

func (s *Store) ListSubscriptions(_ context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*subscription.Subscription, 0)
	for _, sub := range sortedValues(s.subscriptions, newestSubFirst) {
		if opts.UserID != "" && sub.UserID != opts.UserID {
			continue
		}
		if !opts.PlanID.IsNil() && sub.PlanID.String() != opts.PlanID.String() {
			continue
		}
		if opts.Status != "" && sub.Status != opts.Status {
			continue
		}
		if !opts.ExpiresBefore.IsZero() && !sub.ExpiresAt.Before(opts.ExpiresBefore) {
			continue
		}
		result = append(result, cloneSubscription(sub))
	}
	return page(result, opts.Limit, opts.Offset), nil
}

func (s *Store) UpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[sub.ID.String()]; !exists {
		return cashier.ErrSubscriptionNotFound
	}
	if s.activeConflict(sub) {
		return cashier.ErrSubscriptionActive
	}
	s.subscriptions[sub.ID.String()] = cloneSubscription(sub)
	return nil
}

func (s *Store) CancelSubscription(_ context.Context, subID id.SubscriptionID, canceledAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, exists := s.subscriptions[subID.String()]
	if !exists {
		return cashier.ErrSubscriptionNotFound
	}
	if sub.Status == subscription.StatusCanceled {
		return cashier.ErrSubscriptionCanceled
	}
	at := canceledAt.UTC()
	sub.Status = subscription.StatusCanceled
	sub.CanceledAt = &at
	sub.TouchAt(at)
	return nil
}

// ──────────────────────────────────────────────────
// Trials
// ──────────────────────────────────────────────────

func cloneTrial(t *trial.Trial) *trial.Trial {
	cp := *t
	return &cp
}

func (s *Store) CreateTrial(_ context.Context, t *trial.Trial) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.trials[t.ID.String()]; exists {
		return cashier.ErrAlreadyExists
	}
	for _, existing := range s.trials {
		if existing.UserID == t.UserID {
			return cashier.ErrTrialAlreadyUsed
		}
	}
	s.trials[t.ID.String()] = cloneTrial(t)
	return nil
}

func (s *Store) GetTrial(_ context.Context, trialID id.TrialID) (*trial.Trial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.trials[trialID.String()]; ok {
		return cloneTrial(t), nil
	}
	return nil, cashier.ErrTrialNotFound
}

func (s *Store) GetTrialByUser(_ context.Context, userID string) (*trial.Trial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.trials {
		if t.UserID == userID {
			return cloneTrial(t), nil
		}
	}
	return nil, cashier.ErrTrialNotFound
}

func (s *Store) ListTrials(_ context.Context, opts trial.ListOpts) ([]*trial.Trial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := sortedValues(s.trials, func(a, b *trial.Trial) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareIDDesc(a.ID, b.ID)
	})

	result := make([]*trial.Trial, 0, len(all))
	for _, t := range all {
		if opts.Status != "" && t.Status != opts.Status {
			continue
		}
		if !opts.ExpiresBefore.IsZero() && !t.ExpiresAt.Before(opts.ExpiresBefore) {
			continue
		}
		result = append(result, cloneTrial(t))
	}
	return page(result, opts.Limit, opts.Offset), nil
}

func (s *Store) UpdateTrial(_ context.Context, t *trial.Trial) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.trials[t.ID.String()]; !exists {
		return cashier.ErrTrialNotFound
	}
	s.trials[t.ID.String()] = cloneTrial(t)
	return nil
}

// ──────────────────────────────────────────────────
// Payments
// ──────────────────────────────────────────────────

func clonePayment(p *payment.Payment) *payment.Payment {
	cp := *p
	cp.Metadata = cloneMap(p.Metadata)
	if p.LineItems != nil {
		cp.LineItems = append(cp.LineItems[:0:0], p.LineItems...)
	}
	if p.PaidAt != nil {
		t := *p.PaidAt
		cp.PaidAt = &t
	}
	if p.RefundedAt != nil {
		t := *p.RefundedAt
		cp.RefundedAt = &t
	}
	return &cp
}

func (s *Store) CreatePayment(_ context.Context, p *payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payments[p.ID.String()]; exists {
		return cashier.ErrAlreadyExists
	}
	s.payments[p.ID.String()] = clonePayment(p)
	return nil
}

func (s *Store) GetPayment(_ context.Context, paymentID id.PaymentID) (*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.payments[paymentID.String()]; ok {
		return clonePayment(p), nil
	}
	return nil, cashier.ErrPaymentNotFound
}

func (s *Store) GetPaymentByReference(_ context.Context, gatewayRef string) (*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if gatewayRef == "" {
		return nil, cashier.ErrPaymentNotFound
	}
	for _, p := range s.payments {
		if p.GatewayRef == gatewayRef {
			return clonePayment(p), nil
		}
	}
	return nil, cashier.ErrPaymentNotFound
}

func (s *Store) ListPayments(_ context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := sortedValues(s.payments, func(a, b *payment.Payment) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareIDDesc(a.ID, b.ID)
	})

	result := make([]*payment.Payment, 0, len(all))
	for _, p := range all {
		if opts.UserID != "" && p.UserID != opts.UserID {
			continue
		}
		if opts.Status != "" && p.Status != opts.Status {
			continue
		}
		if !opts.From.IsZero() && p.CreatedAt.Before(opts.From) {
			continue
		}
		if !opts.To.IsZero() && !p.CreatedAt.Before(opts.To) {
			continue
		}
		result = append(result, clonePayment(p))
	}
	return page(result, opts.Limit, opts.Offset), nil
}

// transition applies fn when the payment is in status from.
func (s *Store) transition(paymentID id.PaymentID, from payment.Status, notInState error, fn func(p *payment.Payment)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[paymentID.String()]
	if !ok {
		return cashier.ErrPaymentNotFound
	}
	if p.Status != from {
		return notInState
	}
	fn(p)
	return nil
}

func (s *Store) MarkPaymentCompleted(_ context.Context, paymentID id.PaymentID, gatewayRef string, paidAt time.Time) error {
	return s.transition(paymentID, payment.StatusPending, cashier.ErrPaymentNotPending, func(p *payment.Payment) {
		at := paidAt.UTC()
		p.Status = payment.StatusCompleted
		if gatewayRef != "" {
			p.GatewayRef = gatewayRef
		}
		p.PaidAt = &at
		p.TouchAt(at)
	})
}

func (s *Store) MarkPaymentFailed(_ context.Context, paymentID id.PaymentID, reason string, at time.Time) error {
	return s.transition(paymentID, payment.StatusPending, cashier.ErrPaymentNotPending, func(p *payment.Payment) {
		p.Status = payment.StatusFailed
		p.FailureReason = reason
		p.TouchAt(at)
	})
}

func (s *Store) MarkPaymentRefunded(_ context.Context, paymentID id.PaymentID, refundedAt time.Time) error {
	return s.transition(paymentID, payment.StatusCompleted, cashier.ErrPaymentNotCompleted, func(p *payment.Payment) {
		at := refundedAt.UTC()
		p.Status = payment.StatusRefunded
		p.RefundedAt = &at
		p.TouchAt(at)
	})
}

func (s *Store) SetPaymentSubscription(_ context.Context, paymentID id.PaymentID, subID id.SubscriptionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[paymentID.String()]
	if !ok {
		return cashier.ErrPaymentNotFound
	}
	p.SubscriptionID = subID
	return nil
}
