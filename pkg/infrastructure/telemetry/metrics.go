package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus collectors of the pipeline
type Metrics struct {
	registry *prometheus.Registry

	phaseEntered  *prometheus.CounterVec
	phaseSurvived *prometheus.CounterVec
	probes        *prometheus.CounterVec
	probeLatency  prometheus.Histogram
	perProtocol   *prometheus.GaugeVec
	filesWritten  prometheus.Counter
	lastRun       prometheus.Gauge
}

// NewMetrics creates the collectors on a private registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		phaseEntered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "config_collector_phase_entered_total",
			Help: "Items entering a pipeline phase.",
		}, []string{"phase"}),
		phaseSurvived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "config_collector_phase_survived_total",
			Help: "Items surviving a pipeline phase.",
		}, []string{"phase"}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "config_collector_probes_total",
			Help: "TCP probes by outcome.",
		}, []string{"outcome"}),
		probeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "config_collector_probe_latency_ms",
			Help:    "Handshake latency of reachable endpoints.",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1200, 1600, 2000},
		}),
		perProtocol: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "config_collector_survivors",
			Help: "Descriptors published in the last run by protocol.",
		}, []string{"protocol"}),
		filesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "config_collector_files_written_total",
			Help: "Output files written.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "config_collector_last_run_timestamp",
			Help: "Unix timestamp of the last finished run.",
		}),
	}

	registry.MustRegister(
		m.phaseEntered,
		m.phaseSurvived,
		m.probes,
		m.probeLatency,
		m.perProtocol,
		m.filesWritten,
		m.lastRun,
	)
	return m
}

// ObservePhase records the counts of one phase
func (m *Metrics) ObservePhase(phase entity.Phase, entered, survived int) {
	if m == nil {
		return
	}
	m.phaseEntered.WithLabelValues(string(phase)).Add(float64(entered))
	m.phaseSurvived.WithLabelValues(string(phase)).Add(float64(survived))
}

// ObserveProbe records one probe outcome
func (m *Metrics) ObserveProbe(result *entity.ProbeResult) {
	if m == nil || result == nil {
		return
	}
	if result.Reachable {
		m.probes.WithLabelValues("reachable").Inc()
		m.probeLatency.Observe(result.LatencyMs)
		return
	}
	m.probes.WithLabelValues("unreachable").Inc()
}

// ObserveReport records the final counts of a run
func (m *Metrics) ObserveReport(report *entity.RunReport) {
	if m == nil || report == nil {
		return
	}
	m.perProtocol.Reset()
	for protocol, count := range report.PerProto {
		m.perProtocol.WithLabelValues(protocol).Set(float64(count))
	}
	m.filesWritten.Add(float64(report.Files))
	m.lastRun.Set(float64(report.FinishedAt.Unix()))
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics_listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
