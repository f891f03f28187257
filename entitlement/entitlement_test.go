package entitlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/cashier/plan"
)

func TestLimitResult(t *testing.T) {
	tests := []struct {
		name          string
		limit         plan.Limit
		used          int64
		wantAllowed   bool
		wantRemaining int64
	}{
		{"under", plan.Limit{Max: 10}, 3, true, 7},
		{"at limit", plan.Limit{Max: 10}, 10, false, 0},
		{"zero limit", plan.Limit{Max: 0}, 0, false, 0},
		{"unlimited", plan.Limit{Max: plan.Unlimited}, 1_000_000, true, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := LimitResult("daily_likes", tt.limit, tt.used)
			if r.Allowed != tt.wantAllowed {
				t.Errorf("Allowed: got %v, want %v", r.Allowed, tt.wantAllowed)
			}
			if r.Remaining != tt.wantRemaining {
				t.Errorf("Remaining: got %d, want %d", r.Remaining, tt.wantRemaining)
			}
			if !r.Allowed && r.Reason != ReasonQuotaExceeded {
				t.Errorf("Reason: got %q", r.Reason)
			}
		})
	}
}

func TestSnapshotFeature(t *testing.T) {
	s := &Snapshot{Features: map[string]bool{"send_messages": true}}
	if r := s.Feature("send_messages"); !r.Allowed {
		t.Error("expected allowed")
	}
	if r := s.Feature("incognito_mode"); r.Allowed || r.Reason != ReasonNotInPlan {
		t.Errorf("unexpected result %+v", r)
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	if _, err := c.Get(ctx, "u1"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}

	_ = c.Set(ctx, &Snapshot{UserID: "u1", PlanSlug: "free"}, 5*time.Minute)
	got, err := c.Get(ctx, "u1")
	if err != nil || got.PlanSlug != "free" {
		t.Fatalf("expected hit, got %v %v", got, err)
	}

	// Refresh overwrites.
	_ = c.Set(ctx, &Snapshot{UserID: "u1", PlanSlug: "vip"}, 5*time.Minute)
	if got, _ := c.Get(ctx, "u1"); got.PlanSlug != "vip" {
		t.Errorf("expected overwrite, got %s", got.PlanSlug)
	}

	now = now.Add(5 * time.Minute)
	if _, err := c.Get(ctx, "u1"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected expiry, got %v", err)
	}
	if n := c.Sweep(); n != 1 {
		t.Errorf("Sweep: got %d", n)
	}

	_ = c.Set(ctx, &Snapshot{UserID: "u2"}, time.Minute)
	_ = c.Invalidate(ctx, "u2")
	if _, err := c.Get(ctx, "u2"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected miss after invalidate, got %v", err)
	}
}
