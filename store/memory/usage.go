package memory

import (
	"context"
	"math"
	"time"

	"github.com/xraph/cashier"
)

func (s *Store) IncrementUsage(_ context.Context, userID, key string, window time.Time, delta, limit int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := usageKey{userID: userID, key: key, window: window.UTC().Unix()}
	current := s.usage[k]
	if limit >= 0 && (delta > limit || current > limit-delta) {
		return current, cashier.ErrQuotaExceeded
	}
	if current > math.MaxInt64-delta {
		return current, cashier.ErrQuotaExceeded
	}
	s.usage[k] = current + delta
	return current + delta, nil
}

func (s *Store) GetUsage(_ context.Context, userID, key string, window time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.usage[usageKey{userID: userID, key: key, window: window.UTC().Unix()}], nil
}

func (s *Store) PurgeUsage(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	zero := time.Time{}.Unix()
	cutoff := before.UTC().Unix()

	var purged int64
	for k := range s.usage {
		if k.window != zero && k.window < cutoff {
			delete(s.usage, k)
			purged++
		}
	}
	return purged, nil
}
