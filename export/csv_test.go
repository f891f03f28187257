package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/notify"
	"github.com/xraph/cashier/payment"
	"github.com/xraph/cashier/subscription"
	"github.com/xraph/cashier/types"
)

func readAll(t *testing.T, b *bytes.Buffer) [][]string {
	t.Helper()
	rows, err := csv.NewReader(b).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWritePayments(t *testing.T) {
	paid := time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC)
	p := &payment.Payment{
		Entity:     types.NewEntityAt(paid.Add(-time.Minute)),
		ID:         id.NewPaymentID(),
		UserID:     "u1",
		PlanID:     id.NewPlanID(),
		Subtotal:   types.SAR(10000),
		Discount:   types.SAR(2000),
		Fee:        types.SAR(232),
		Amount:     types.SAR(8232),
		Currency:   "sar",
		Method:     "mada",
		Status:     payment.StatusCompleted,
		CouponCode: "SAVE20",
		GatewayRef: "gw_1, \"quoted\"",
		PaidAt:     &paid,
	}

	var buf bytes.Buffer
	require.NoError(t, WritePayments(&buf, []*payment.Payment{p}))

	rows := readAll(t, &buf)
	require.Len(t, rows, 2)
	assert.Equal(t, paymentHeader, rows[0])

	row := rows[1]
	assert.Equal(t, p.ID.String(), row[0])
	assert.Equal(t, "", row[3])
	assert.Equal(t, "SAR", row[6])
	assert.Equal(t, "100.00", row[7])
	assert.Equal(t, "20.00", row[8])
	assert.Equal(t, "2.32", row[9])
	assert.Equal(t, "82.32", row[10])
	assert.Equal(t, "gw_1, \"quoted\"", row[12])
	assert.Equal(t, "2026-04-02T10:30:00Z", row[15])
	assert.Equal(t, "", row[16])
}

func TestWriteSubscriptionsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSubscriptions(&buf, nil))

	rows := readAll(t, &buf)
	require.Len(t, rows, 1)
	assert.Equal(t, subscriptionHeader, rows[0])
}

func TestWriteSubscriptions(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &subscription.Subscription{
		ID:        id.NewSubscriptionID(),
		UserID:    "u2",
		PlanID:    id.NewPlanID(),
		Status:    subscription.StatusActive,
		IsTrial:   true,
		StartsAt:  start,
		ExpiresAt: start.AddDate(0, 0, 7),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSubscriptions(&buf, []*subscription.Subscription{s}))

	rows := readAll(t, &buf)
	require.Len(t, rows, 2)
	assert.Equal(t, "true", rows[1][4])
	assert.Equal(t, "2026-01-08T00:00:00Z", rows[1][6])
}

func TestWriteCoupons(t *testing.T) {
	coupons := []*coupon.Coupon{
		{ID: id.NewCouponID(), Code: "SAVE20", Type: coupon.CouponTypePercentage, Percent: types.Percent(20), MaxUses: 100, UsedCount: 3, Active: true},
		{ID: id.NewCouponID(), Code: "TENOFF", Type: coupon.CouponTypeFixed, Amount: types.SAR(1000)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCoupons(&buf, coupons))

	rows := readAll(t, &buf)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"20.00%", "", ""}, rows[1][3:6])
	assert.Equal(t, []string{"", "10.00", "SAR"}, rows[2][3:6])
	assert.Equal(t, "3", rows[1][7])
}

func TestWriteEmailLogs(t *testing.T) {
	logs := []*notify.EmailLog{{
		ID:     id.NewEmailLogID(),
		UserID: "u3",
		Type:   notify.TypeWelcome,
		To:     "u3@example.com",
		Status: notify.EmailFailed,
		Error:  "inactive recipient",
		SentAt: time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteEmailLogs(&buf, logs))

	rows := readAll(t, &buf)
	require.Len(t, rows, 2)
	assert.Equal(t, "failed", rows[1][5])
	assert.Equal(t, "2026-02-03T04:05:06Z", rows[1][8])
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteReportsWriterError(t *testing.T) {
	err := WriteCoupons(failingWriter{}, nil)
	assert.Error(t, err)
}
