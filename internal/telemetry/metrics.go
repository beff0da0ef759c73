package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the ingestion pipeline instruments. The global meter provider
// is a no-op until the exporter is configured, so recording is always safe.
type Metrics struct {
	unitsIngested       metric.Int64Counter
	unitsSkipped        metric.Int64Counter
	generationFallbacks metric.Int64Counter
	ingestDuration      metric.Float64Histogram
}

func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("campus-notes-platform")

	unitsIngested, err := meter.Int64Counter("ingest.units_ingested",
		metric.WithDescription("Units successfully ingested into a track record"))
	if err != nil {
		return nil, err
	}

	unitsSkipped, err := meter.Int64Counter("ingest.units_skipped",
		metric.WithDescription("Units skipped during batch ingestion"))
	if err != nil {
		return nil, err
	}

	generationFallbacks, err := meter.Int64Counter("ingest.generation_fallbacks",
		metric.WithDescription("Generation tasks that substituted their fallback artifact"))
	if err != nil {
		return nil, err
	}

	ingestDuration, err := meter.Float64Histogram("ingest.unit_duration_seconds",
		metric.WithDescription("Wall time to process one unit end to end"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		unitsIngested:       unitsIngested,
		unitsSkipped:        unitsSkipped,
		generationFallbacks: generationFallbacks,
		ingestDuration:      ingestDuration,
	}, nil
}

func (m *Metrics) RecordUnitIngested(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.unitsIngested.Add(ctx, 1, metric.WithAttributes(attribute.String("track.kind", kind)))
}

func (m *Metrics) RecordUnitSkipped(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.unitsSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("skip.reason", reason)))
}

func (m *Metrics) RecordGenerationFallback(ctx context.Context, task string) {
	if m == nil {
		return
	}
	m.generationFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("generation.task", task)))
}

func (m *Metrics) RecordUnitDuration(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	m.ingestDuration.Record(ctx, seconds)
}
