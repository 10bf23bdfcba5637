package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/topicstats/pkg/observability"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	byName := map[string]metricdata.Metrics{}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			byName[m.Name] = m
		}
	}

	return byName
}

func sumByAttr(t *testing.T, m metricdata.Metrics, key string) map[string]int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, m.Name)

	out := map[string]int64{}

	for _, dp := range sum.DataPoints {
		value, _ := dp.Attributes.Value(attribute.Key(key))
		out[value.AsString()] = dp.Value
	}

	return out
}

func TestAggregationMetrics_RecordRun(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := observability.NewAggregationMetrics(mp.Meter("test"))
	require.NoError(t, err)

	metrics.RecordRun(context.Background(), observability.RunStats{
		RecordsRead:      100,
		SkippedActor:     3,
		SkippedTimestamp: 2,
		MalformedRows:    1,
		MetadataLoaded:   7,
		MetadataFailed:   1,
		Users:            12,
		Topics:           5,
		Duration:         2 * time.Second,
	})

	got := collect(t, reader)

	read, ok := got["topicstats.records.read"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, read.DataPoints, 1)
	assert.Equal(t, int64(100), read.DataPoints[0].Value)

	assert.Equal(t, map[string]int64{
		observability.ReasonActor:     3,
		observability.ReasonTimestamp: 2,
		observability.ReasonRow:       1,
	}, sumByAttr(t, got["topicstats.records.skipped"], "reason"))

	assert.Equal(t, map[string]int64{"loaded": 7, "failed": 1},
		sumByAttr(t, got["topicstats.metadata.documents"], "outcome"))

	users, ok := got["topicstats.report.users"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Equal(t, int64(12), users.DataPoints[0].Value)

	duration, ok := got["topicstats.run.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Equal(t, uint64(1), duration.DataPoints[0].Count)
	assert.InDelta(t, 2.0, duration.DataPoints[0].Sum, 1e-9)
}

func TestAggregationMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var metrics *observability.AggregationMetrics

	assert.NotPanics(t, func() {
		metrics.RecordRun(context.Background(), observability.RunStats{RecordsRead: 1})
	})
}
