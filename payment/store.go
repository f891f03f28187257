package payment

import (
	"context"
	"time"

	"github.com/xraph/cashier/id"
)

type Store interface {
	Create(ctx context.Context, p *Payment) error
	Get(ctx context.Context, paymentID id.PaymentID) (*Payment, error)
	GetByReference(ctx context.Context, gatewayRef string) (*Payment, error)
	List(ctx context.Context, opts ListOpts) ([]*Payment, error)

	// State transitions are conditional on the current status. MarkCompleted
	// and MarkFailed require pending, MarkRefunded requires completed.
	MarkCompleted(ctx context.Context, paymentID id.PaymentID, gatewayRef string, paidAt time.Time) error
	MarkFailed(ctx context.Context, paymentID id.PaymentID, reason string, at time.Time) error
	MarkRefunded(ctx context.Context, paymentID id.PaymentID, refundedAt time.Time) error

	// SetSubscription links a completed payment to the subscription it bought.
	SetSubscription(ctx context.Context, paymentID id.PaymentID, subID id.SubscriptionID) error
}

// ListOpts filters payment listings. From and To bound CreatedAt.
// Results are ordered newest first.
type ListOpts struct {
	UserID string
	Status Status
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}
