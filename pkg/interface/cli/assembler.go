package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/WangYihang/Config-Collector/pkg/application"
	"github.com/WangYihang/Config-Collector/pkg/domain/repository"
	"github.com/WangYihang/Config-Collector/pkg/domain/service"
	"github.com/WangYihang/Config-Collector/pkg/infrastructure/dns"
	"github.com/WangYihang/Config-Collector/pkg/infrastructure/domainservice"
	"github.com/WangYihang/Config-Collector/pkg/infrastructure/extract"
	"github.com/WangYihang/Config-Collector/pkg/infrastructure/geoip"
	"github.com/WangYihang/Config-Collector/pkg/infrastructure/http"
	"github.com/WangYihang/Config-Collector/pkg/infrastructure/probe"
	"github.com/WangYihang/Config-Collector/pkg/infrastructure/storage"
	"github.com/WangYihang/Config-Collector/pkg/infrastructure/telemetry"
	"github.com/WangYihang/Config-Collector/pkg/infrastructure/uri"
)

// Assembler assembles all components for the application
type Assembler struct {
	config  *Config
	metrics *telemetry.Metrics
	closers []func(context.Context) error
}

// NewAssembler creates a new assembler
func NewAssembler(config *Config) *Assembler {
	return &Assembler{config: config, metrics: telemetry.NewMetrics()}
}

// Metrics returns the Prometheus collectors fed by the use case
func (a *Assembler) Metrics() *telemetry.Metrics {
	return a.metrics
}

// AssembleUseCase assembles the pipeline use case with all dependencies
func (a *Assembler) AssembleUseCase(ctx context.Context) (*application.PipelineUseCase, error) {
	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TracingConfig{
		ServiceName: "config-collector",
		Exporter:    a.config.TraceExporter,
		Endpoint:    a.config.TraceEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	a.closers = append(a.closers, shutdownTracing)

	logWriter, err := storage.NewLogWriter(a.config.ProbeLogFile, a.config.DNSLogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create log writer: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return logWriter.Close() })

	// Create infrastructure services
	resolver := dns.NewResolver(dns.Config{
		Servers: a.config.DNSServers,
		Timeout: a.config.DNSTimeoutDuration,
		Logs:    logWriter,
	})

	prober := probe.NewProber(probe.Config{
		Timeout: a.config.ProbeTimeoutDuration,
		Ceiling: a.config.LatencyCeilingDuration,
		Rate:    a.config.ProbeRate,
		Logs:    logWriter,
	})

	locator, err := geoip.Open(a.config.GeoIPPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return locator.Close() })

	banner := ""
	if a.config.Banner {
		banner, err = domainservice.Banner(domainservice.BannerTitle(time.Now()), domainservice.DefaultBannerPort)
		if err != nil {
			return nil, fmt.Errorf("failed to render banner: %w", err)
		}
	}

	policy := service.EndpointPolicy(service.FirstAddress)
	if a.config.AllAddresses {
		policy = service.AllAddresses
	}

	// Create repositories
	filter := storage.NewBloomFilter(storage.Config{
		Size:              a.config.RealBloomFilterSize,
		FalsePositiveRate: a.config.BloomFilterFP,
	})

	// Load existing bloom filter if exists
	if a.config.BloomFilterFile != "" {
		if err := filter.Load(a.config.BloomFilterFile); err != nil {
			slog.Warn("bloom_filter_load_failed", "file", a.config.BloomFilterFile, "error", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return filter.Save(a.config.BloomFilterFile) })
	}

	var reportWriter repository.ReportWriter
	if a.config.ReportFile != "" {
		reportWriter, err = storage.NewReportWriter(a.config.ReportFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create report writer: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return reportWriter.Close() })
	}

	// Create use case
	useCase := application.NewPipelineUseCase(
		application.Config{
			NumWorkers:     a.config.NumWorkers,
			EndpointPolicy: policy,
			NewProbeQueue:  storage.NewProbeQueue,
			NewResultQueue: storage.NewProbeResultQueue,
			Tracer:         telemetry.Tracer(),
		},
		extract.NewCandidateExtractor(),
		uri.NewNormalizer(),
		uri.NewRenderer(),
		resolver,
		prober,
		locator,
		domainservice.NewLabeler(),
		domainservice.NewDeduplicator(domainservice.FirstSeenWins),
		domainservice.NewSorter(a.config.SortBound),
		domainservice.NewPartitioner(banner),
		filter,
		storage.NewChunkWriter(a.config.OutputDir, a.config.ChunkSize),
		reportWriter,
	)
	useCase.RegisterPhaseObserver(a.metrics)

	if a.config.MetricsAddr != "" {
		go func() {
			if err := a.metrics.Serve(ctx, a.config.MetricsAddr); err != nil {
				slog.Error("metrics_server_failed", "addr", a.config.MetricsAddr, "error", err)
			}
		}()
	}

	return useCase, nil
}

// LoadTexts gathers the raw texts of every configured input.
// A failing source is logged and skipped, only unreadable input files are errors.
func (a *Assembler) LoadTexts(ctx context.Context) ([]string, error) {
	var texts []string

	for _, name := range a.config.InputFiles {
		text, err := readInput(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read input %s: %w", name, err)
		}
		texts = append(texts, text)
	}

	if len(a.config.Sources) == 0 && len(a.config.Channels) == 0 {
		return texts, nil
	}

	fetcher := http.NewFetcher(http.Config{
		Timeout:         a.config.HTTPTimeoutDuration,
		MaxResponseSize: a.config.MaxResponseSize,
		UserAgent:       a.config.UserAgent,
	})

	for _, source := range a.config.Sources {
		text, err := fetcher.FetchText(ctx, source)
		if err != nil {
			slog.Warn("source_fetch_failed", "url", source, "error", err)
			continue
		}
		slog.Info("source_fetched", "url", source, "bytes", len(text))
		texts = append(texts, text)
	}

	since := time.Now().Add(-time.Duration(a.config.SinceHours) * time.Hour)
	for _, channel := range a.config.Channels {
		messages, err := fetcher.FetchChannel(ctx, channel, since)
		if err != nil {
			slog.Warn("channel_fetch_failed", "channel", channel, "error", err)
			continue
		}
		slog.Info("channel_fetched", "channel", channel, "messages", len(messages))
		for _, message := range messages {
			texts = append(texts, message.Text)
		}
	}

	return texts, nil
}

// Close releases every resource opened by AssembleUseCase in reverse order
func (a *Assembler) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// readInput reads a whole input file, - is stdin
func readInput(name string) (string, error) {
	var reader io.Reader
	if name == "-" {
		reader = os.Stdin
	} else {
		file, err := os.Open(name)
		if err != nil {
			return "", err
		}
		defer file.Close()
		reader = file
	}

	var b strings.Builder
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		b.WriteString(scanner.Text())
		b.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return b.String(), nil
}
