package usage

import (
	"testing"
	"time"

	"github.com/xraph/cashier/plan"
)

func TestWindow(t *testing.T) {
	riyadh := time.FixedZone("AST", 3*60*60)
	at := time.Date(2026, 2, 1, 1, 30, 0, 0, riyadh) // 2026-01-31 22:30 UTC

	tests := []struct {
		period    plan.Period
		wantStart time.Time
		wantReset time.Time
	}{
		{plan.PeriodDaily, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{plan.PeriodMonthly, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{plan.PeriodNone, time.Time{}, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			if got := Window(tt.period, at); !got.Equal(tt.wantStart) {
				t.Errorf("Window: got %v, want %v", got, tt.wantStart)
			}
			if got := ResetsAt(tt.period, at); !got.Equal(tt.wantReset) {
				t.Errorf("ResetsAt: got %v, want %v", got, tt.wantReset)
			}
		})
	}
}
