package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xraph/cashier"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"store not ready", fmt.Errorf("%w: dial tcp", cashier.ErrStoreNotReady), http.StatusServiceUnavailable, "unavailable"},
		{"transaction failed", cashier.ErrTransactionFailed, http.StatusServiceUnavailable, "unavailable"},
		{"second active subscription", cashier.ErrSubscriptionActive, http.StatusConflict, "conflict"},
		{"quota", cashier.ErrQuotaExceeded, http.StatusTooManyRequests, "quota_exceeded"},
		{"forbidden", cashier.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"no notifier", errNoNotifier, http.StatusServiceUnavailable, "unavailable"},
		{"unclassified", fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := statusFor(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}
