package app

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/jsamuelsen/inspira/app"

// tracer starts spans for session operations.
// It resolves through the global provider, which is a noop until telemetry is enabled.
func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// sessionMetrics counts what the session does to the store.
// A nil *sessionMetrics records nothing.
type sessionMetrics struct {
	draftsReconciled metric.Int64Counter
	recordsDeleted   metric.Int64Counter
	recordsCreated   metric.Int64Counter
	storageErrors    metric.Int64Counter
}

// newSessionMetrics creates the session instruments.
// Instrument errors are reported to otel and leave the metrics disabled.
func newSessionMetrics() *sessionMetrics {
	meter := otel.Meter(instrumentationName)

	draftsReconciled, err := meter.Int64Counter(
		"inspira.session.drafts_reconciled",
		metric.WithDescription("Stray empty drafts removed to keep at most one"),
	)
	if err != nil {
		otel.Handle(err)
		return nil
	}

	recordsDeleted, err := meter.Int64Counter(
		"inspira.session.records_deleted",
		metric.WithDescription("Quotes deleted by the user"),
	)
	if err != nil {
		otel.Handle(err)
		return nil
	}

	recordsCreated, err := meter.Int64Counter(
		"inspira.session.records_created",
		metric.WithDescription("New draft quotes created"),
	)
	if err != nil {
		otel.Handle(err)
		return nil
	}

	storageErrors, err := meter.Int64Counter(
		"inspira.session.storage_errors",
		metric.WithDescription("Store failures absorbed by the session"),
	)
	if err != nil {
		otel.Handle(err)
		return nil
	}

	return &sessionMetrics{
		draftsReconciled: draftsReconciled,
		recordsDeleted:   recordsDeleted,
		recordsCreated:   recordsCreated,
		storageErrors:    storageErrors,
	}
}

func (m *sessionMetrics) draftReconciled(ctx context.Context) {
	if m != nil {
		m.draftsReconciled.Add(ctx, 1)
	}
}

func (m *sessionMetrics) recordDeleted(ctx context.Context) {
	if m != nil {
		m.recordsDeleted.Add(ctx, 1)
	}
}

func (m *sessionMetrics) recordCreated(ctx context.Context) {
	if m != nil {
		m.recordsCreated.Add(ctx, 1)
	}
}

func (m *sessionMetrics) storageError(ctx context.Context, op string) {
	if m != nil {
		m.storageErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	}
}
