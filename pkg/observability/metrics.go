package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRecordsRead    = "topicstats.records.read"
	metricRecordsSkipped = "topicstats.records.skipped"
	metricMetadataDocs   = "topicstats.metadata.documents"
	metricReportUsers    = "topicstats.report.users"
	metricReportTopics   = "topicstats.report.topics"
	metricRunDuration    = "topicstats.run.duration"

	attrReason  = "reason"
	attrOutcome = "outcome"
)

// Skip reasons recorded on topicstats.records.skipped.
const (
	ReasonActor     = "actor"
	ReasonTimestamp = "timestamp"
	ReasonRow       = "row"
)

// durationBucketBoundaries covers 10ms to 10 minutes.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// AggregationMetrics holds the OTel instruments of an aggregation run.
type AggregationMetrics struct {
	recordsRead    metric.Int64Counter
	recordsSkipped metric.Int64Counter
	metadataDocs   metric.Int64Counter
	reportUsers    metric.Int64Gauge
	reportTopics   metric.Int64Gauge
	runDuration    metric.Float64Histogram
}

// RunStats is the outcome of one aggregation run.
type RunStats struct {
	RecordsRead      int
	SkippedActor     int
	SkippedTimestamp int
	MalformedRows    int
	MetadataLoaded   int
	MetadataFailed   int
	Users            int
	Topics           int
	Duration         time.Duration
}

// NewAggregationMetrics creates the aggregation instruments from mt.
func NewAggregationMetrics(mt metric.Meter) (*AggregationMetrics, error) {
	read, err := mt.Int64Counter(metricRecordsRead,
		metric.WithDescription("Event log rows read"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRecordsRead, err)
	}

	skipped, err := mt.Int64Counter(metricRecordsSkipped,
		metric.WithDescription("Event log rows skipped by reason"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRecordsSkipped, err)
	}

	docs, err := mt.Int64Counter(metricMetadataDocs,
		metric.WithDescription("Topic metadata documents by outcome"),
		metric.WithUnit("{document}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricMetadataDocs, err)
	}

	users, err := mt.Int64Gauge(metricReportUsers,
		metric.WithDescription("Users in the last report"),
		metric.WithUnit("{user}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricReportUsers, err)
	}

	topics, err := mt.Int64Gauge(metricReportTopics,
		metric.WithDescription("Topics in the last report"),
		metric.WithUnit("{topic}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricReportTopics, err)
	}

	duration, err := mt.Float64Histogram(metricRunDuration,
		metric.WithDescription("Aggregation run duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunDuration, err)
	}

	return &AggregationMetrics{
		recordsRead:    read,
		recordsSkipped: skipped,
		metadataDocs:   docs,
		reportUsers:    users,
		reportTopics:   topics,
		runDuration:    duration,
	}, nil
}

// RecordRun records the statistics of a completed run.
// Safe to call on a nil receiver (no-op).
func (am *AggregationMetrics) RecordRun(ctx context.Context, st RunStats) {
	if am == nil {
		return
	}

	am.recordsRead.Add(ctx, int64(st.RecordsRead))

	skips := []struct {
		reason string
		count  int
	}{
		{ReasonActor, st.SkippedActor},
		{ReasonTimestamp, st.SkippedTimestamp},
		{ReasonRow, st.MalformedRows},
	}

	for _, skip := range skips {
		am.recordsSkipped.Add(ctx, int64(skip.count), metric.WithAttributes(attribute.String(attrReason, skip.reason)))
	}

	am.metadataDocs.Add(ctx, int64(st.MetadataLoaded), metric.WithAttributes(attribute.String(attrOutcome, "loaded")))
	am.metadataDocs.Add(ctx, int64(st.MetadataFailed), metric.WithAttributes(attribute.String(attrOutcome, "failed")))

	am.reportUsers.Record(ctx, int64(st.Users))
	am.reportTopics.Record(ctx, int64(st.Topics))
	am.runDuration.Record(ctx, st.Duration.Seconds())
}
