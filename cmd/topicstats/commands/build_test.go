package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/topicstats/pkg/dashboard"
	"github.com/Sumatoshi-tech/topicstats/pkg/observability"
	"github.com/Sumatoshi-tech/topicstats/pkg/report"
	"github.com/Sumatoshi-tech/topicstats/pkg/stats"
)

const (
	testRunID  = "00000000-0000-4000-8000-000000000001"
	testEvents = "mail,name,topic,text,timestamp\n" +
		"a@x.com,Alice,T1,hi there,2024-01-01 10:00:00\n" +
		"a@x.com,Alice,T1,hi,2024-01-02 10:00:00\n"
)

type fixture struct {
	dir      string
	config   string
	events   string
	metadata string
}

func newFixture(t *testing.T, events string) fixture {
	t.Helper()

	dir := t.TempDir()
	fx := fixture{
		dir:      dir,
		config:   filepath.Join(dir, ".topicstats.yaml"),
		events:   filepath.Join(dir, "fulltext-data.csv"),
		metadata: filepath.Join(dir, "json"),
	}

	require.NoError(t, os.WriteFile(fx.config, nil, 0o600))
	require.NoError(t, os.WriteFile(fx.events, []byte(events), 0o600))
	require.NoError(t, os.Mkdir(fx.metadata, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(fx.metadata, "topic_T1.json"),
		[]byte(`{"title":"Planning","url":"https://example.org/t1"}`), 0o600))

	return fx
}

func (fx fixture) args(extra ...string) []string {
	return append([]string{"--config", fx.config, "--events", fx.events, "--metadata", fx.metadata}, extra...)
}

func fixedRunID() string { return testRunID }

func executeBuild(t *testing.T, initObs observabilityInit, args []string) (string, string, error) {
	t.Helper()

	cmd := newBuildCommandWithDeps(initObs, fixedRunID)

	var stdout, stderr bytes.Buffer

	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}

func TestBuildCommand_WritesScript(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, testEvents)
	output := filepath.Join(fx.dir, "dashboard_data.js")

	_, stderr, err := executeBuild(t, observability.Init, fx.args("-o", output))
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(data), "const dashboardData = {"))
	assert.True(t, strings.HasSuffix(string(data), "};"))

	rep, err := report.Decode(data)
	require.NoError(t, err)
	require.Len(t, rep.Users, 1)
	assert.Equal(t, 3, rep.Users[0].Tokens)
	assert.Equal(t, "Planning", rep.Topics[0].Title)

	assert.Contains(t, stderr, "building dashboard data from "+fx.events)
	assert.Contains(t, stderr, "complete: 1 users, 1 topics written to "+output)
	assert.Contains(t, stderr, "run_id="+testRunID)
}

func TestBuildCommand_StdoutJSON(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, testEvents)

	stdout, _, err := executeBuild(t, observability.Init, fx.args("--format", "JSON", "-o", "-", "--silent"))
	require.NoError(t, err)

	var rep report.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep))
	assert.Equal(t, report.StatusActive, rep.Users[0].Status)
	assert.Len(t, rep.GlobalDaily, 2)
}

func TestBuildCommand_Silent(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, testEvents)

	_, stderr, err := executeBuild(t, observability.Init,
		fx.args("-o", filepath.Join(fx.dir, "out.js"), "--silent"))
	require.NoError(t, err)

	assert.NotContains(t, stderr, "building dashboard data")
	assert.NotContains(t, stderr, "complete:")
}

func TestBuildCommand_CompressedOutputValidates(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, testEvents)
	output := filepath.Join(fx.dir, "report.json.lz4")

	_, _, err := executeBuild(t, observability.Init, fx.args("--format", "json", "-o", output))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runValidate(&out, output, true))
	assert.Contains(t, out.String(), "report is valid")
	assert.Contains(t, out.String(), "1 users, 1 topics, 2 messages, 3 tokens")
}

func TestBuildCommand_ConfigFile(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, testEvents)
	output := filepath.Join(fx.dir, "report.yaml")

	content := "output:\n  format: yaml\n  path: " + output + "\n"
	require.NoError(t, os.WriteFile(fx.config, []byte(content), 0o600))

	_, _, err := executeBuild(t, observability.Init, fx.args())
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "users_count: 1")
}

func TestBuildCommand_NoValidEvents(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, "mail,name,topic,text,timestamp\n(unknown),,T1,x,2024-01-01 10:00:00\n")
	output := filepath.Join(fx.dir, "out.js")

	_, _, err := executeBuild(t, observability.Init, fx.args("-o", output))
	require.ErrorIs(t, err, stats.ErrNoEvents)

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestBuildCommand_InvalidConstName(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, testEvents)

	_, _, err := executeBuild(t, observability.Init,
		fx.args("-o", filepath.Join(fx.dir, "out.js"), "--const-name", "not valid"))
	require.ErrorIs(t, err, report.ErrInvalidConstName)
}

func TestBuildCommand_InvalidFormatFlag(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, testEvents)

	_, _, err := executeBuild(t, observability.Init, fx.args("--format", "html"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestBuildCommand_WritesMetricsFile(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, testEvents)
	metrics := filepath.Join(fx.dir, "topicstats.prom")

	_, _, err := executeBuild(t, observability.Init,
		fx.args("-o", filepath.Join(fx.dir, "out.js"), "--metrics-file", metrics, "--silent"))
	require.NoError(t, err)

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), "records")
}

func TestBuildCommand_RecordsSpans(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	var gotCfg observability.Config

	initObs := func(cfg observability.Config) (observability.Providers, error) {
		gotCfg = cfg

		return observability.Providers{
			Tracer:   tp.Tracer("test"),
			Meter:    noopmetric.NewMeterProvider().Meter("test"),
			Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
			Shutdown: tp.Shutdown,
		}, nil
	}

	fx := newFixture(t, testEvents)

	_, _, err := executeBuild(t, initObs, fx.args("-o", filepath.Join(fx.dir, "out.js")))
	require.NoError(t, err)

	names := map[string]bool{}
	for _, span := range recorder.Ended() {
		names[span.Name()] = true
	}

	for _, want := range []string{dashboard.SpanBuild, dashboard.SpanIngest, dashboard.SpanMetadata, dashboard.SpanFinalize, spanEmit} {
		assert.True(t, names[want], want)
	}

	assert.Equal(t, testRunID, gotCfg.RunID)
	assert.Equal(t, slog.LevelInfo, gotCfg.LogLevel)
}

func TestBuildCommand_Idempotent(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, testEvents)
	first := filepath.Join(fx.dir, "first.js")
	second := filepath.Join(fx.dir, "second.js")

	_, _, err := executeBuild(t, observability.Init, fx.args("-o", first, "--silent"))
	require.NoError(t, err)

	_, _, err = executeBuild(t, observability.Init, fx.args("-o", second, "--silent"))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runDiff(&out, first, second, true))
	assert.Contains(t, out.String(), "reports are identical")
}

func TestFlagSet(t *testing.T) {
	t.Parallel()

	cmd := newBuildCommandWithDeps(observability.Init, fixedRunID)
	assert.False(t, flagSet(cmd, FlagVerbose))

	require.NoError(t, cmd.Flags().Set("silent", "true"))
	assert.True(t, flagSet(cmd, "silent"))
}

func TestContextOrBackground(t *testing.T) {
	t.Parallel()

	//nolint:staticcheck // nil context is the case under test.
	assert.NotNil(t, contextOrBackground(nil))

	ctx := context.WithValue(context.Background(), fixture{}, 1)
	assert.Equal(t, ctx, contextOrBackground(ctx))
}
