package subscription

import (
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		facts Facts
		want  UserStatus
	}{
		{"nothing", Facts{}, UserNew},
		{"used trial only", Facts{TrialUsed: true}, UserTrialExpired},
		{"lapsed subscription", Facts{HadSubscription: true}, UserSubscriptionExpired},
		{"lapsed subscription and trial", Facts{HadSubscription: true, TrialUsed: true}, UserSubscriptionExpired},
		{"active trial", Facts{HasActiveTrial: true, TrialUsed: true}, UserActive},
		{"active subscription", Facts{HasActiveSubscription: true, HadSubscription: true}, UserActive},
		{"everything", Facts{true, true, true, true}, UserActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.facts); got != tt.want {
				t.Errorf("Classify(%+v) = %q, want %q", tt.facts, got, tt.want)
			}
		})
	}
}

func TestClassifyTotal(t *testing.T) {
	valid := map[UserStatus]bool{
		UserNew: true, UserTrialExpired: true, UserSubscriptionExpired: true, UserActive: true,
	}
	for i := 0; i < 16; i++ {
		f := Facts{
			HasActiveSubscription: i&8 != 0,
			HasActiveTrial:        i&4 != 0,
			HadSubscription:       i&2 != 0,
			TrialUsed:             i&1 != 0,
		}
		got := Classify(f)
		if !valid[got] {
			t.Errorf("Classify(%+v) returned unknown status %q", f, got)
		}
		if (f.HasActiveSubscription || f.HasActiveTrial) && got != UserActive {
			t.Errorf("Classify(%+v) = %q, active must take precedence", f, got)
		}
	}
}

func TestActiveAt(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	sub := &Subscription{Status: StatusActive, ExpiresAt: now.Add(49 * time.Hour)}

	if !sub.ActiveAt(now) {
		t.Error("expected active")
	}
	if got := sub.DaysLeft(now); got != 2 {
		t.Errorf("DaysLeft: got %d, want 2", got)
	}
	if sub.ActiveAt(sub.ExpiresAt) {
		t.Error("expected inactive at expiry")
	}
	if got := sub.DaysLeft(sub.ExpiresAt.Add(time.Hour)); got != 0 {
		t.Errorf("DaysLeft after expiry: got %d", got)
	}

	sub.Status = StatusCanceled
	if sub.ActiveAt(now) {
		t.Error("canceled subscription should not be active")
	}
}
