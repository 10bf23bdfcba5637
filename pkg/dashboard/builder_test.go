package dashboard_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/topicstats/pkg/dashboard"
	"github.com/Sumatoshi-tech/topicstats/pkg/report"
	"github.com/Sumatoshi-tech/topicstats/pkg/stats"
)

const testEvents = "mail,name,topic,text,timestamp\n" +
	"a@x.com,Alice,T1,hi there,2024-01-01 10:00:00\n" +
	"a@x.com,Alice,T1,hi,2024-01-02 10:00:00\n" +
	"b@x.com,Bob,T2,one two three four,2024-01-02 11:00:00\n" +
	"(unknown),,T2,lost,2024-01-02 11:00:00\n" +
	"b@x.com,Bob,T2,late,yesterday\n"

func writeEvents(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fulltext-data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func testMetadata() fstest.MapFS {
	return fstest.MapFS{
		"topic_T1.json":     {Data: []byte(`{"title":"Planning","url":"https://example.org/t1"}`)},
		"topic_T9.json":     {Data: []byte(`{"title":"Unused"}`)},
		"broken_T2.json":    {Data: []byte(`{"title":`)},
		"notes_T1.markdown": {Data: []byte(`# ignored`)},
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func inputs(events string) dashboard.Inputs {
	return dashboard.Inputs{
		Events:         events,
		MetadataDir:    "json",
		Metadata:       testMetadata(),
		MetadataSuffix: ".json",
		Policy:         stats.DefaultPolicy(),
	}
}

func TestBuild_ProducesReport(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	builder := dashboard.NewBuilder(tp.Tracer("test"), discard())

	rep, summary, err := builder.Build(context.Background(), inputs(writeEvents(t, testEvents)))
	require.NoError(t, err)

	require.Len(t, rep.Users, 2)
	assert.Equal(t, "b@x.com", rep.Users[0].ID)
	assert.Equal(t, 4, rep.Users[0].Tokens)
	assert.Equal(t, "a@x.com", rep.Users[1].ID)
	assert.Equal(t, 3, rep.Users[1].Tokens)

	require.Len(t, rep.Topics, 2)
	assert.Equal(t, "T2", rep.Topics[0].Title)
	assert.Equal(t, "Planning", rep.Topics[1].Title)
	assert.Equal(t, "https://example.org/t1", rep.Topics[1].URL)
	assert.Empty(t, report.Check(rep))

	assert.Equal(t, 5, summary.Ingest.Rows)
	assert.Equal(t, 3, summary.Ingest.Accepted)
	assert.Equal(t, 1, summary.Ingest.SkippedActor)
	assert.Equal(t, 1, summary.Ingest.SkippedTimestamp)
	assert.Equal(t, 2, summary.Metadata.Loaded)
	assert.Equal(t, 1, summary.Metadata.Failed)
	assert.Equal(t, 2, summary.Users)
	assert.Equal(t, 2, summary.Topics)

	names := make([]string, 0, len(recorder.Ended()))
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}

	assert.ElementsMatch(t, []string{
		dashboard.SpanIngest, dashboard.SpanMetadata, dashboard.SpanFinalize, dashboard.SpanBuild,
	}, names)

	run := summary.RunStats()
	assert.Equal(t, 5, run.RecordsRead)
	assert.Equal(t, 1, run.MetadataFailed)
}

func TestBuild_MissingEventLog(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	missing := filepath.Join(t.TempDir(), "absent.csv")

	_, _, err := dashboard.NewBuilder(tp.Tracer("test"), discard()).Build(context.Background(), inputs(missing))
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "absent.csv")

	var build sdktrace.ReadOnlySpan
	for _, span := range recorder.Ended() {
		if span.Name() == dashboard.SpanBuild {
			build = span
		}
	}

	require.NotNil(t, build)
	assert.Equal(t, codes.Error, build.Status().Code)
}

func TestBuild_MissingMetadataDir(t *testing.T) {
	t.Parallel()

	in := inputs(writeEvents(t, testEvents))
	in.Metadata = nil
	in.MetadataDir = filepath.Join(t.TempDir(), "json")

	_, _, err := dashboard.NewBuilder(nooptrace.NewTracerProvider().Tracer("test"), discard()).
		Build(context.Background(), in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), in.MetadataDir)
}

func TestBuild_NoValidEvents(t *testing.T) {
	t.Parallel()

	events := writeEvents(t, "mail,name,topic,text,timestamp\n,,T1,x,2024-01-01 10:00:00\n")

	_, summary, err := dashboard.NewBuilder(nooptrace.NewTracerProvider().Tracer("test"), discard()).
		Build(context.Background(), inputs(events))
	require.ErrorIs(t, err, stats.ErrNoEvents)
	assert.Equal(t, 1, summary.Ingest.SkippedActor)
}

func TestBuild_Idempotent(t *testing.T) {
	t.Parallel()

	builder := dashboard.NewBuilder(nooptrace.NewTracerProvider().Tracer("test"), discard())
	in := inputs(writeEvents(t, testEvents))

	first, _, err := builder.Build(context.Background(), in)
	require.NoError(t, err)

	second, _, err := builder.Build(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
