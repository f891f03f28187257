package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// InstrumentationName identifies Cashier's meter.
const InstrumentationName = "github.com/xraph/cashier"

// OTelFactory creates instruments on an OpenTelemetry meter.
type OTelFactory struct {
	meter metric.Meter
	onErr func(name string, err error)
}

// NewOTelFactory wraps meter. A nil meter uses the global provider, which
// stays a no-op until the application registers one.
func NewOTelFactory(meter metric.Meter, onErr func(name string, err error)) *OTelFactory {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}
	if onErr == nil {
		onErr = func(string, error) {}
	}
	return &OTelFactory{meter: meter, onErr: onErr}
}

// Counter implements MetricFactory.
func (f *OTelFactory) Counter(name string) Counter {
	c, err := f.meter.Float64Counter(name)
	if err != nil {
		f.onErr(name, err)
	}
	return otelCounter{c: c}
}

// Histogram implements MetricFactory.
func (f *OTelFactory) Histogram(name string) Histogram {
	h, err := f.meter.Float64Histogram(name)
	if err != nil {
		f.onErr(name, err)
	}
	return otelHistogram{h: h}
}

type otelCounter struct{ c metric.Float64Counter }

func (o otelCounter) Inc() { o.Add(1) }

func (o otelCounter) Add(v float64) {
	if o.c != nil {
		o.c.Add(context.Background(), v)
	}
}

type otelHistogram struct{ h metric.Float64Histogram }

func (o otelHistogram) Observe(v float64) {
	if o.h != nil {
		o.h.Record(context.Background(), v)
	}
}
