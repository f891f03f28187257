// Package memory is an in-process store. It is the reference implementation
// of store.Store semantics and backs tests and single-node deployments.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/xraph/cashier"
	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/notify"
	"github.com/xraph/cashier/payment"
	"github.com/xraph/cashier/paymethod"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/settings"
	"github.com/xraph/cashier/store"
	"github.com/xraph/cashier/subscription"
	"github.com/xraph/cashier/trial"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

type usageKey struct {
	userID string
	key    string
	window int64
}

// Store keeps every entity in maps guarded by a single RWMutex. Values are
// copied on the way in and out so callers never share state with the store.
type Store struct {
	mu sync.RWMutex

	plans         map[string]*plan.Plan
	subscriptions map[string]*subscription.Subscription
	trials        map[string]*trial.Trial
	coupons       map[string]*coupon.Coupon
	payments      map[string]*payment.Payment
	methods       map[string]*paymethod.Config
	usage         map[usageKey]int64

	templates     map[notify.Type]*notify.Template
	emailLogs     []*notify.EmailLog
	notifications map[string]*notify.Notification
	settings      map[string]*settings.Setting

	closed bool
}

func New() *Store {
	return &Store{
		plans:         make(map[string]*plan.Plan),
		subscriptions: make(map[string]*subscription.Subscription),
		trials:        make(map[string]*trial.Trial),
		coupons:       make(map[string]*coupon.Coupon),
		payments:      make(map[string]*payment.Payment),
		methods:       make(map[string]*paymethod.Config),
		usage:         make(map[usageKey]int64),
		templates:     make(map[notify.Type]*notify.Template),
		notifications: make(map[string]*notify.Notification),
		settings:      make(map[string]*settings.Setting),
	}
}

func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return cashier.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// page applies offset and limit. A zero limit returns everything after offset.
func page[T any](items []T, limit, offset int) []T {
	if offset > len(items) {
		offset = len(items)
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func sortedValues[K comparable, V any](m map[K]V, less func(a, b V) int) []V {
	out := slices.Collect(maps.Values(m))
	slices.SortFunc(out, less)
	return out
}

func cloneMap[M ~map[K]V, K comparable, V any](m M) M {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}
