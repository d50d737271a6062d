package monitoring

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/compozy/tdlimport/engine/infra/monitoring/metrics"
	"github.com/compozy/tdlimport/pkg/logger"
)

// Outcome labels an ingestion run.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeDryRun      Outcome = "dry_run"
	OutcomeUsageError  Outcome = "usage_error"
	OutcomeDecodeError Outcome = "decode_error"
	OutcomeStoreFault  Outcome = "store_fault"
	OutcomeCanceled    Outcome = "canceled"
)

// IngestMetrics records ingestion runs. A nil *IngestMetrics records nothing.
type IngestMetrics struct {
	runs     metric.Int64Counter
	inserted metric.Int64Counter
	skipped  metric.Int64Counter
	duration metric.Float64Histogram
}

// NewIngestMetrics creates the ingestion instruments on meter. Instruments
// that fail to register are logged and left out.
func NewIngestMetrics(ctx context.Context, meter metric.Meter) *IngestMetrics {
	log := logger.FromContext(ctx)
	m := &IngestMetrics{}
	var err error
	m.runs, err = meter.Int64Counter(
		metrics.MetricName("ingest_runs"),
		metric.WithDescription("Ingestion runs by outcome"),
	)
	if err != nil {
		log.Error("Failed to create ingest runs counter", "error", err)
	}
	m.inserted, err = meter.Int64Counter(
		metrics.MetricName("ingest_tasks_inserted"),
		metric.WithDescription("Task rows committed by ingestion runs"),
	)
	if err != nil {
		log.Error("Failed to create tasks inserted counter", "error", err)
	}
	m.skipped, err = meter.Int64Counter(
		metrics.MetricName("ingest_tasks_skipped"),
		metric.WithDescription("Task nodes skipped for a missing title"),
	)
	if err != nil {
		log.Error("Failed to create tasks skipped counter", "error", err)
	}
	m.duration, err = meter.Float64Histogram(
		metrics.MetricName("ingest_duration_seconds"),
		metric.WithDescription("Ingestion run latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.IngestDurationBuckets...),
	)
	if err != nil {
		log.Error("Failed to create ingest duration histogram", "error", err)
	}
	return m
}

// RecordRun records one finished run.
func (m *IngestMetrics) RecordRun(ctx context.Context, outcome Outcome, inserted, skipped int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", string(outcome)))
	if m.runs != nil {
		m.runs.Add(ctx, 1, attrs)
	}
	if m.inserted != nil && inserted > 0 {
		m.inserted.Add(ctx, int64(inserted))
	}
	if m.skipped != nil && skipped > 0 {
		m.skipped.Add(ctx, int64(skipped))
	}
	if m.duration != nil {
		m.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
}
