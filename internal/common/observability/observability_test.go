package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// ==========================
// Metrics Tests
// ==========================

func collect(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestObservability_RecordsJobs(t *testing.T) {
	reader := metric.NewManualReader()
	obs, err := newWithProvider(metric.NewMeterProvider(metric.WithReader(reader)), "test")
	require.NoError(t, err)

	ctx := context.Background()
	obs.RecordJobProcessed(ctx, "rank-feed", "completed")
	obs.RecordJobProcessed(ctx, "rank-feed", "completed")
	obs.RecordJobDuration(ctx, "rank-feed", 120*time.Millisecond, "completed")
	obs.RecordItemsRanked(ctx, "rank-feed", 20)
	obs.RecordItemsRanked(ctx, "rank-feed", 0)

	metrics := collect(t, reader)

	processed, ok := metrics["jobs.processed"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, processed.DataPoints, 1)
	assert.Equal(t, int64(2), processed.DataPoints[0].Value)
	status, _ := processed.DataPoints[0].Attributes.Value("status")
	assert.Equal(t, "completed", status.AsString())

	duration, ok := metrics["jobs.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Equal(t, uint64(1), duration.DataPoints[0].Count)

	ranked, ok := metrics["feed.items.ranked"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(20), ranked.DataPoints[0].Value)

	assert.NoError(t, obs.Shutdown(ctx))
}

func TestObservability_NilSafe(t *testing.T) {
	var obs *Observability
	ctx := context.Background()

	obs.RecordJobProcessed(ctx, "rank-feed", "failed")
	obs.RecordJobDuration(ctx, "rank-feed", time.Second, "failed")
	assert.NoError(t, obs.Shutdown(ctx))

	(&Observability{}).RecordItemsRanked(ctx, "rank-feed", 3)
}

// ==========================
// Tracing Tests
// ==========================

func TestStartSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp, err := NewTracerProvider(TracingOptions{ServiceName: "test", SamplingRate: 1},
		sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)
	defer tp.Shutdown(context.Background())

	ctx, end := StartSpan(context.Background(), "rank-feed.score", attribute.Int("candidates", 12))
	SetAttributes(ctx, attribute.Int("rejected", 1))
	end(nil)

	_, endFailed := StartSpan(context.Background(), "rank-feed.load")
	endFailed(errors.New("postgres down"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "rank-feed.score", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Len(t, spans[0].Attributes(), 2)

	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "postgres down", spans[1].Status().Description)
	require.Len(t, spans[1].Events(), 1)
	assert.Equal(t, "exception", spans[1].Events()[0].Name)
}

func TestNewTracerProvider_Sampling(t *testing.T) {
	_, err := NewTracerProvider(TracingOptions{ServiceName: "test", SamplingRate: 1.5})
	assert.Error(t, err)

	recorder := tracetest.NewSpanRecorder()
	tp, err := NewTracerProvider(TracingOptions{ServiceName: "test", SamplingRate: 0},
		sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)
	defer tp.Shutdown(context.Background())

	_, end := StartSpan(context.Background(), "dropped")
	end(nil)
	assert.Empty(t, recorder.Ended())
}
