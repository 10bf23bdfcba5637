// Package dashboard runs one aggregation: it streams the event log, scans
// the topic metadata and finalizes the report, each phase under its own span.
package dashboard

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/topicstats/pkg/eventlog"
	"github.com/Sumatoshi-tech/topicstats/pkg/metadata"
	"github.com/Sumatoshi-tech/topicstats/pkg/observability"
	"github.com/Sumatoshi-tech/topicstats/pkg/report"
	"github.com/Sumatoshi-tech/topicstats/pkg/stats"
)

// Span names of the build phases.
const (
	SpanBuild    = "topicstats.build"
	SpanIngest   = "topicstats.ingest"
	SpanMetadata = "topicstats.metadata"
	SpanFinalize = "topicstats.finalize"
)

// Inputs locates the sources of one build.
type Inputs struct {
	// Events is the event log path.
	Events string
	// MetadataDir is the directory of topic metadata documents.
	MetadataDir string
	// Metadata overrides the file system MetadataDir is read from.
	Metadata fs.FS
	// MetadataSuffix selects the metadata documents by file name.
	MetadataSuffix string
	// ReadBuffer is the event log read buffer size in bytes.
	ReadBuffer int
	// Policy holds the status thresholds and ranking size.
	Policy stats.Policy
}

// Summary describes a completed build.
type Summary struct {
	Ingest   stats.IngestStats
	Metadata metadata.ScanStats
	Users    int
	Topics   int
	Duration time.Duration
}

// RunStats converts the summary to the metric snapshot of the run.
func (s Summary) RunStats() observability.RunStats {
	return observability.RunStats{
		RecordsRead:      s.Ingest.Rows,
		SkippedActor:     s.Ingest.SkippedActor,
		SkippedTimestamp: s.Ingest.SkippedTimestamp,
		MalformedRows:    s.Ingest.MalformedRows,
		MetadataLoaded:   s.Metadata.Loaded,
		MetadataFailed:   s.Metadata.Failed,
		Users:            s.Users,
		Topics:           s.Topics,
		Duration:         s.Duration,
	}
}

// Builder runs builds. The zero value is not usable; use NewBuilder.
type Builder struct {
	tracer trace.Tracer
	logger *slog.Logger
	now    func() time.Time
}

// NewBuilder creates a builder that reports through tracer and logger.
func NewBuilder(tracer trace.Tracer, logger *slog.Logger) *Builder {
	return &Builder{tracer: tracer, logger: logger, now: time.Now}
}

// Build aggregates in into a report. Missing inputs and an event log without
// a single valid event are fatal.
func (b *Builder) Build(ctx context.Context, in Inputs) (*report.Report, Summary, error) {
	start := b.now()

	ctx, span := b.tracer.Start(ctx, SpanBuild)
	defer span.End()

	var summary Summary

	agg := stats.NewAggregator()

	ingest, err := b.ingest(ctx, agg, in)
	summary.Ingest = ingest

	if err != nil {
		return nil, summary, fail(span, err)
	}

	index, scan, err := b.scanMetadata(ctx, in)
	summary.Metadata = scan

	if err != nil {
		return nil, summary, fail(span, err)
	}

	_, finalizeSpan := b.tracer.Start(ctx, SpanFinalize)

	rep, err := agg.Finalize(index, in.Policy)
	if err != nil {
		finalizeSpan.End()

		return nil, summary, fail(span, err)
	}

	summary.Users = len(rep.Users)
	summary.Topics = len(rep.Topics)
	summary.Duration = b.now().Sub(start)

	finalizeSpan.SetAttributes(
		attribute.Int("topicstats.users", summary.Users),
		attribute.Int("topicstats.topics", summary.Topics),
	)
	finalizeSpan.End()

	b.logger.InfoContext(ctx, "aggregation complete",
		"rows", ingest.Rows,
		"accepted", ingest.Accepted,
		"skipped", ingest.Skipped(),
		"metadata_loaded", scan.Loaded,
		"metadata_failed", scan.Failed,
		"users", summary.Users,
		"topics", summary.Topics,
		"duration", summary.Duration,
	)

	return rep, summary, nil
}

func (b *Builder) ingest(ctx context.Context, agg *stats.Aggregator, in Inputs) (stats.IngestStats, error) {
	ctx, span := b.tracer.Start(ctx, SpanIngest, trace.WithAttributes(attribute.String("topicstats.events", in.Events)))
	defer span.End()

	f, err := os.Open(in.Events)
	if err != nil {
		return stats.IngestStats{}, fail(span, fmt.Errorf("open event log: %w", err))
	}
	defer f.Close()

	reader, err := eventlog.NewReader(f, eventlog.WithBufferSize(in.ReadBuffer))
	if err != nil {
		return stats.IngestStats{}, fail(span, fmt.Errorf("read event log %s: %w", in.Events, err))
	}

	st, err := agg.Consume(ctx, reader, b.logger)
	if err != nil {
		return st, fail(span, fmt.Errorf("read event log %s: %w", in.Events, err))
	}

	span.SetAttributes(
		attribute.Int("topicstats.rows", st.Rows),
		attribute.Int("topicstats.accepted", st.Accepted),
		attribute.Int("topicstats.skipped", st.Skipped()),
	)

	return st, nil
}

func (b *Builder) scanMetadata(ctx context.Context, in Inputs) (metadata.Index, metadata.ScanStats, error) {
	ctx, span := b.tracer.Start(ctx, SpanMetadata, trace.WithAttributes(attribute.String("topicstats.metadata_dir", in.MetadataDir)))
	defer span.End()

	fsys := in.Metadata
	if fsys == nil {
		fsys = os.DirFS(in.MetadataDir)
	}

	index, st, err := metadata.Scan(ctx, fsys, in.MetadataSuffix, b.logger)
	if err != nil {
		return nil, st, fail(span, fmt.Errorf("scan %s: %w", in.MetadataDir, err))
	}

	span.SetAttributes(
		attribute.Int("topicstats.metadata.loaded", st.Loaded),
		attribute.Int("topicstats.metadata.failed", st.Failed),
	)

	return index, st, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	return err
}
