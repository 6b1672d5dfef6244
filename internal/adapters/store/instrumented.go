package store

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jsamuelsen/inspira/internal/domain"
	"github.com/jsamuelsen/inspira/internal/ports"
)

// Metrics are the Prometheus collectors recorded around store calls.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics registers the store collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "inspira",
				Subsystem: "store",
				Name:      "operations_total",
				Help:      "Quote store calls by driver, operation and outcome.",
			},
			[]string{"driver", "op", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "inspira",
				Subsystem: "store",
				Name:      "operation_duration_seconds",
				Help:      "Latency of quote store calls.",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"driver", "op"},
		),
	}
}

// Instrumented wraps a Handle and records every call.
type Instrumented struct {
	Handle
	metrics *Metrics
}

// Instrument wraps h with metrics. A nil metrics returns h unchanged.
func Instrument(h Handle, metrics *Metrics) Handle {
	if metrics == nil {
		return h
	}

	return &Instrumented{Handle: h, metrics: metrics}
}

var _ ports.QuoteStore = (*Instrumented)(nil)

func (s *Instrumented) observe(op string, start time.Time, err error) {
	driver := s.Name()

	s.metrics.duration.WithLabelValues(driver, op).Observe(time.Since(start).Seconds())
	s.metrics.operations.WithLabelValues(driver, op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case domain.IsNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}

// ListAll implements ports.QuoteStore.
func (s *Instrumented) ListAll(ctx context.Context) (quotes []domain.Quote, err error) {
	defer func(start time.Time) { s.observe("list", start, err) }(time.Now())

	return s.Handle.ListAll(ctx)
}

// Create implements ports.QuoteStore.
func (s *Instrumented) Create(ctx context.Context) (q domain.Quote, err error) {
	defer func(start time.Time) { s.observe("create", start, err) }(time.Now())

	return s.Handle.Create(ctx)
}

// Get implements ports.QuoteStore.
func (s *Instrumented) Get(ctx context.Context, id string) (q domain.Quote, err error) {
	defer func(start time.Time) { s.observe("get", start, err) }(time.Now())

	return s.Handle.Get(ctx, id)
}

// Update implements ports.QuoteStore.
func (s *Instrumented) Update(ctx context.Context, id string, update domain.QuoteUpdate) (q domain.Quote, err error) {
	defer func(start time.Time) { s.observe("update", start, err) }(time.Now())

	return s.Handle.Update(ctx, id, update)
}

// Delete implements ports.QuoteStore.
func (s *Instrumented) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { s.observe("delete", start, err) }(time.Now())

	return s.Handle.Delete(ctx, id)
}
