package telemetry

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsObserve(t *testing.T) {
	m := NewMetrics()

	m.ObservePhase(entity.PhaseNormalize, 10, 7)
	m.ObservePhase(entity.PhaseNormalize, 5, 5)
	m.ObserveProbe(&entity.ProbeResult{Reachable: true, LatencyMs: 42})
	m.ObserveProbe(&entity.ProbeResult{Reachable: false})
	m.ObserveProbe(&entity.ProbeResult{Reachable: false})

	require.Equal(t, 15.0, testutil.ToFloat64(m.phaseEntered.WithLabelValues("normalize")))
	require.Equal(t, 12.0, testutil.ToFloat64(m.phaseSurvived.WithLabelValues("normalize")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.probes.WithLabelValues("reachable")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.probes.WithLabelValues("unreachable")))

	m.ObserveReport(&entity.RunReport{
		FinishedAt: time.Unix(1700000000, 0),
		PerProto:   map[string]int{"vless": 3},
		Files:      4,
	})
	require.Equal(t, 3.0, testutil.ToFloat64(m.perProtocol.WithLabelValues("vless")))
	require.Equal(t, 4.0, testutil.ToFloat64(m.filesWritten))
	require.Equal(t, 1700000000.0, testutil.ToFloat64(m.lastRun))
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObservePhase(entity.PhaseSort, 1, 1)
	m.ObserveProbe(&entity.ProbeResult{})
	m.ObserveReport(&entity.RunReport{})
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.ObservePhase(entity.PhaseEmit, 2, 2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `config_collector_phase_entered_total{phase="emit"} 2`)
}

func TestSetupTracingNone(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), TracingConfig{Exporter: "none"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetupTracingErrors(t *testing.T) {
	_, err := SetupTracing(context.Background(), TracingConfig{Exporter: "otlp"})
	require.Error(t, err)

	_, err = SetupTracing(context.Background(), TracingConfig{Exporter: "zipkin"})
	require.Error(t, err)
}

func TestSetupTracingStdout(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := SetupTracing(context.Background(), TracingConfig{Exporter: "stdout", Writer: &buf})
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "pipeline.test")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	require.True(t, strings.Contains(buf.String(), "pipeline.test"))
}
