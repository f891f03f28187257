package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/cashier/entitlement"
	"github.com/xraph/cashier/payment"
	"github.com/xraph/cashier/types"
)

type fakeMetric struct {
	total    float64
	observed []float64
}

func (m *fakeMetric) Inc()              { m.total++ }
func (m *fakeMetric) Add(v float64)     { m.total += v }
func (m *fakeMetric) Observe(v float64) { m.observed = append(m.observed, v) }

type factory map[string]*fakeMetric

func (f factory) get(name string) *fakeMetric {
	if m, ok := f[name]; ok {
		return m
	}
	m := &fakeMetric{}
	f[name] = m
	return m
}

func (f factory) Counter(name string) Counter     { return f.get(name) }
func (f factory) Histogram(name string) Histogram { return f.get(name) }

func TestMetricsExtension(t *testing.T) {
	f := factory{}
	m := NewMetricsExtension(f)
	ctx := context.Background()

	require.NoError(t, m.OnPaymentCompleted(ctx, &payment.Payment{Amount: types.SAR(8232)}))
	require.NoError(t, m.OnEntitlementChecked(ctx, "u1", &entitlement.Result{Allowed: true}))
	require.NoError(t, m.OnEntitlementChecked(ctx, "u1", &entitlement.Result{Allowed: false}))

	assert.Equal(t, float64(1), f["cashier.payment.completed"].total)
	assert.Equal(t, []float64{8232}, f["cashier.payment.amount_minor"].observed)
	assert.Equal(t, float64(2), f["cashier.entitlement.checks"].total)
	assert.Equal(t, float64(1), f["cashier.entitlement.denied"].total)
}
