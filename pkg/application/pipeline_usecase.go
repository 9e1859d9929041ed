package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
	"github.com/WangYihang/Config-Collector/pkg/domain/repository"
	"github.com/WangYihang/Config-Collector/pkg/domain/service"
	mapset "github.com/deckarep/golang-set/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CountryIndexFile is the country table written next to the country buckets
const CountryIndexFile = "countries/README.md"

// PipelineUseCase drives one collection run from raw text to emitted buckets
type PipelineUseCase struct {
	config Config

	// Services
	extractor    service.CandidateExtractor
	normalizer   service.Normalizer
	renderer     service.Renderer
	resolver     service.DNSResolver
	prober       service.Prober
	locator      service.GeoLocator
	labeler      service.Labeler
	deduplicator service.Deduplicator
	sorter       service.Sorter
	partitioner  service.Partitioner

	// Repositories
	filter       repository.CandidateFilter
	bucketWriter repository.BucketWriter
	reportWriter repository.ReportWriter

	// State
	metrics          *entity.Metrics
	metricsLock      sync.RWMutex
	workers          []*Worker
	wg               sync.WaitGroup
	metricsObservers []MetricsObserver
	phaseObservers   []PhaseObserver
	tracer           trace.Tracer
}

// Config holds the use case configuration
type Config struct {
	NumWorkers int
	// EndpointPolicy picks the resolved addresses probed per descriptor
	EndpointPolicy service.EndpointPolicy
	// NewProbeQueue and NewResultQueue build the pre-filter queues for one run
	NewProbeQueue  func(size int) repository.ProbeQueue
	NewResultQueue func(size int) repository.ProbeResultQueue
	Tracer         trace.Tracer
}

// MetricsObserver observes metrics changes
type MetricsObserver interface {
	OnMetricsUpdate(metrics *entity.Metrics)
	AddSurvivor(label string) // Notify when a descriptor survives enrichment
}

// PhaseObserver receives per-phase counts and probe outcomes
type PhaseObserver interface {
	ObservePhase(phase entity.Phase, entered, survived int)
	ObserveProbe(result *entity.ProbeResult)
	ObserveReport(report *entity.RunReport)
}

// NewPipelineUseCase creates a new pipeline use case
func NewPipelineUseCase(
	config Config,
	extractor service.CandidateExtractor,
	normalizer service.Normalizer,
	renderer service.Renderer,
	resolver service.DNSResolver,
	prober service.Prober,
	locator service.GeoLocator,
	labeler service.Labeler,
	deduplicator service.Deduplicator,
	sorter service.Sorter,
	partitioner service.Partitioner,
	filter repository.CandidateFilter,
	bucketWriter repository.BucketWriter,
	reportWriter repository.ReportWriter,
) *PipelineUseCase {
	if config.NumWorkers <= 0 {
		config.NumWorkers = 1
	}
	if config.EndpointPolicy == nil {
		config.EndpointPolicy = service.FirstAddress
	}
	tracer := config.Tracer
	if tracer == nil {
		tracer = otel.Tracer("config-collector/pipeline")
	}
	return &PipelineUseCase{
		config:           config,
		extractor:        extractor,
		normalizer:       normalizer,
		renderer:         renderer,
		resolver:         resolver,
		prober:           prober,
		locator:          locator,
		labeler:          labeler,
		deduplicator:     deduplicator,
		sorter:           sorter,
		partitioner:      partitioner,
		filter:           filter,
		bucketWriter:     bucketWriter,
		reportWriter:     reportWriter,
		metrics:          &entity.Metrics{TotalWorkers: config.NumWorkers},
		metricsObservers: make([]MetricsObserver, 0),
		tracer:           tracer,
	}
}

// RegisterMetricsObserver registers a metrics observer
func (uc *PipelineUseCase) RegisterMetricsObserver(observer MetricsObserver) {
	uc.metricsObservers = append(uc.metricsObservers, observer)
}

// RegisterPhaseObserver registers a phase observer
func (uc *PipelineUseCase) RegisterPhaseObserver(observer PhaseObserver) {
	uc.phaseObservers = append(uc.phaseObservers, observer)
}

// notifyMetricsObservers notifies all registered observers
func (uc *PipelineUseCase) notifyMetricsObservers() {
	metrics := uc.GetMetrics()
	for _, observer := range uc.metricsObservers {
		observer.OnMetricsUpdate(metrics)
	}
}

// Execute runs every phase over the given texts.
// Per-item failures drop the item. Only output I/O errors and ctx cancellation are returned.
func (uc *PipelineUseCase) Execute(ctx context.Context, texts []string) (*entity.RunReport, error) {
	report := &entity.RunReport{
		StartedAt: time.Now(),
		PerProto:  make(map[string]int),
	}

	uc.updateMetrics(func(m *entity.Metrics) {
		m.StartTime = report.StartedAt
	})

	tickCtx, stopTicker := context.WithCancel(ctx)
	defer stopTicker()
	go uc.updateMetricsPeriodically(tickCtx)

	ctx, span := uc.tracer.Start(ctx, "pipeline")
	defer span.End()

	candidates := uc.extract(ctx, report, texts)
	descriptors := uc.normalize(ctx, report, candidates)
	if err := ctx.Err(); err != nil {
		return uc.finish(report, err)
	}

	endpoints := uc.resolve(ctx, report, descriptors)
	if err := ctx.Err(); err != nil {
		return uc.finish(report, err)
	}

	endpoints = uc.prefilter(ctx, report, endpoints)
	if err := ctx.Err(); err != nil {
		return uc.finish(report, err)
	}

	enriched := uc.enrich(ctx, report, endpoints)
	if err := ctx.Err(); err != nil {
		return uc.finish(report, err)
	}

	survivors := uc.order(ctx, report, enriched)
	if err := uc.emit(ctx, report, survivors); err != nil {
		return uc.finish(report, err)
	}
	return uc.finish(report, nil)
}

// extract collects distinct candidates in order of appearance
func (uc *PipelineUseCase) extract(ctx context.Context, report *entity.RunReport, texts []string) []string {
	_, span := uc.startPhase(ctx, entity.PhaseExtract)

	found := 0
	var candidates []string
	for _, text := range texts {
		for _, candidate := range uc.extractor.ExtractFromText(text) {
			found++
			if uc.filter.TestAndAdd(candidate) {
				continue
			}
			candidates = append(candidates, candidate)
		}
	}

	uc.updateMetrics(func(m *entity.Metrics) {
		m.Candidates = int64(len(candidates))
	})
	uc.endPhase(span, report, entity.PhaseExtract, found, len(candidates))
	return candidates
}

// normalize parses the candidates protocol by protocol
func (uc *PipelineUseCase) normalize(ctx context.Context, report *entity.RunReport, candidates []string) []*entity.Descriptor {
	_, span := uc.startPhase(ctx, entity.PhaseNormalize)

	routed := make(map[entity.Protocol][]string)
	for _, candidate := range candidates {
		protocol, ok := uc.normalizer.Classify(candidate)
		if !ok {
			slog.Debug("candidate_unclassified", "candidate", candidate)
			continue
		}
		routed[protocol] = append(routed[protocol], candidate)
	}

	var descriptors []*entity.Descriptor
	for _, protocol := range entity.Protocols {
		accepted := 0
		for _, candidate := range routed[protocol] {
			d, err := uc.normalizer.Normalize(candidate, protocol)
			if err != nil {
				slog.Debug("candidate_rejected", "protocol", protocol.String(), "error", err)
				continue
			}
			descriptors = append(descriptors, d)
			accepted++
		}
		if len(routed[protocol]) > 0 {
			slog.Info("protocol_normalized", "protocol", protocol.String(), "candidates", len(routed[protocol]), "accepted", accepted)
		}
	}

	uc.updateMetrics(func(m *entity.Metrics) {
		m.Normalized = int64(len(descriptors))
	})
	uc.endPhase(span, report, entity.PhaseNormalize, len(candidates), len(descriptors))
	return descriptors
}

// target is the address a resolved endpoint is probed on
func target(e entity.ResolvedEndpoint) entity.HostPort {
	return entity.HostPort{Host: e.IP.Unmap().String(), Port: e.Descriptor.Port}
}

// resolve looks every distinct host up once and applies the endpoint policy
func (uc *PipelineUseCase) resolve(ctx context.Context, report *entity.RunReport, descriptors []*entity.Descriptor) []entity.ResolvedEndpoint {
	ctx, span := uc.startPhase(ctx, entity.PhaseResolve)

	cache := make(map[string][]netip.Addr)
	var endpoints []entity.ResolvedEndpoint
	resolved := 0
	for _, d := range descriptors {
		if ctx.Err() != nil {
			break
		}
		addrs, ok := cache[d.Host]
		if !ok {
			addrs = uc.resolver.Resolve(ctx, d.Host)
			cache[d.Host] = addrs
		}
		if len(addrs) == 0 {
			slog.Debug("host_unresolved", "host", d.Host)
			continue
		}
		resolved++
		for _, ip := range uc.config.EndpointPolicy(addrs) {
			endpoints = append(endpoints, entity.ResolvedEndpoint{Descriptor: d, IP: ip})
		}
	}

	uc.updateMetrics(func(m *entity.Metrics) {
		m.Resolved = int64(resolved)
	})
	span.SetAttributes(attribute.Int("hosts", len(cache)), attribute.Int("endpoints", len(endpoints)))
	uc.endPhase(span, report, entity.PhaseResolve, len(descriptors), resolved)
	return endpoints
}

// prefilter probes every distinct (ip, port) once on the worker pool and drops unreachable endpoints
func (uc *PipelineUseCase) prefilter(ctx context.Context, report *entity.RunReport, endpoints []entity.ResolvedEndpoint) []entity.ResolvedEndpoint {
	ctx, span := uc.startPhase(ctx, entity.PhasePrefilter)

	seen := mapset.NewThreadUnsafeSet[entity.HostPort]()
	var targets []entity.HostPort
	for _, e := range endpoints {
		if t := target(e); seen.Add(t) {
			targets = append(targets, t)
		}
	}

	reachable := uc.probeAll(ctx, targets)

	kept := make([]entity.ResolvedEndpoint, 0, len(endpoints))
	for _, e := range endpoints {
		if reachable.Contains(target(e)) {
			kept = append(kept, e)
		}
	}

	span.SetAttributes(attribute.Int("targets", len(targets)), attribute.Int("reachable", reachable.Cardinality()))
	uc.endPhase(span, report, entity.PhasePrefilter, len(endpoints), len(kept))
	return kept
}

// probeAll fans the targets out to the workers and collects the reachable ones
func (uc *PipelineUseCase) probeAll(ctx context.Context, targets []entity.HostPort) mapset.Set[entity.HostPort] {
	probeQueue := uc.config.NewProbeQueue(len(targets))
	resultQueue := uc.config.NewResultQueue(len(targets))

	uc.updateMetrics(func(m *entity.Metrics) {
		m.ProbeTotal = int64(len(targets))
	})

	for _, target := range targets {
		if !probeQueue.Enqueue(target) {
			slog.Warn("probe_enqueue_failed", "target", target.String())
		}
	}
	probeQueue.Close()

	uc.startWorkers(ctx, probeQueue, resultQueue, min(uc.config.NumWorkers, max(len(targets), 1)))
	done := uc.waitForCompletion(resultQueue)

	reachable := mapset.NewThreadUnsafeSet[entity.HostPort]()
	for {
		result, ok := resultQueue.Receive()
		if !ok {
			break
		}
		uc.observeProbe(result)
		if result.Reachable {
			reachable.Add(result.Target)
		}
	}
	<-done
	return reachable
}

// enrich measures, geolocates, labels and renders each surviving endpoint sequentially
func (uc *PipelineUseCase) enrich(ctx context.Context, report *entity.RunReport, endpoints []entity.ResolvedEndpoint) []*entity.EnrichedDescriptor {
	probeCtx, span := uc.startPhase(ctx, entity.PhaseProbe)
	type measured struct {
		entity.ResolvedEndpoint
		latencyMs float64
	}
	var alive []measured
	for _, e := range endpoints {
		if probeCtx.Err() != nil {
			break
		}
		result := uc.prober.Probe(probeCtx, target(e))
		uc.observeProbe(result)
		if !result.Reachable {
			continue
		}
		alive = append(alive, measured{ResolvedEndpoint: e, latencyMs: result.LatencyMs})
	}
	uc.endPhase(span, report, entity.PhaseProbe, len(endpoints), len(alive))

	_, span = uc.startPhase(ctx, entity.PhaseEnrich)
	enriched := make([]*entity.EnrichedDescriptor, 0, len(alive))
	for _, m := range alive {
		country := uc.locator.Country(m.IP)
		label := uc.labeler.Label(m.Descriptor, m.IP, country, m.latencyMs)
		rendered, err := uc.renderer.Render(m.Descriptor, m.IP, label)
		if err != nil {
			slog.Debug("render_failed", "host", m.Descriptor.Host, "error", err)
			uc.incrementErrorCount()
			continue
		}
		enriched = append(enriched, &entity.EnrichedDescriptor{
			Descriptor:  m.Descriptor,
			ResolvedIP:  m.IP,
			CountryCode: country,
			LatencyMs:   m.latencyMs,
			Label:       label,
			Rendered:    rendered,
		})
		for _, observer := range uc.metricsObservers {
			observer.AddSurvivor(label)
		}
	}
	uc.updateMetrics(func(m *entity.Metrics) {
		m.Enriched = int64(len(enriched))
	})
	uc.endPhase(span, report, entity.PhaseEnrich, len(alive), len(enriched))
	return enriched
}

// order deduplicates by endpoint then sorts for publication
func (uc *PipelineUseCase) order(ctx context.Context, report *entity.RunReport, enriched []*entity.EnrichedDescriptor) []*entity.EnrichedDescriptor {
	_, span := uc.startPhase(ctx, entity.PhaseDedup)
	unique := uc.deduplicator.Deduplicate(enriched)
	uc.endPhase(span, report, entity.PhaseDedup, len(enriched), len(unique))

	_, span = uc.startPhase(ctx, entity.PhaseSort)
	sorted := uc.sorter.Sort(unique)
	for _, item := range sorted {
		report.PerProto[item.Descriptor.Protocol().String()]++
	}
	uc.updateMetrics(func(m *entity.Metrics) {
		m.Survivors = int64(len(sorted))
	})
	uc.endPhase(span, report, entity.PhaseSort, len(unique), len(sorted))
	return sorted
}

// emit partitions the ordered set and writes every bucket plus the country index
func (uc *PipelineUseCase) emit(ctx context.Context, report *entity.RunReport, survivors []*entity.EnrichedDescriptor) error {
	_, span := uc.startPhase(ctx, entity.PhaseEmit)

	buckets := uc.partitioner.Partition(survivors)
	report.Buckets = len(buckets)

	for _, bucket := range buckets {
		n, err := uc.bucketWriter.WriteBucket(bucket)
		report.Files += n
		uc.updateMetrics(func(m *entity.Metrics) {
			m.FilesWritten += int64(n)
		})
		if err != nil {
			span.RecordError(err)
			span.End()
			return fmt.Errorf("failed to write bucket %s: %w", bucket.Name, err)
		}
	}

	if err := uc.bucketWriter.WriteFile(CountryIndexFile, uc.partitioner.Index(buckets)); err != nil {
		span.RecordError(err)
		span.End()
		return fmt.Errorf("failed to write country index: %w", err)
	}

	uc.endPhase(span, report, entity.PhaseEmit, len(buckets), report.Files)
	return nil
}

// finish stamps the report and hands it to the observers and the report writer
func (uc *PipelineUseCase) finish(report *entity.RunReport, runErr error) (*entity.RunReport, error) {
	report.FinishedAt = time.Now()

	for _, observer := range uc.phaseObservers {
		observer.ObserveReport(report)
	}

	if uc.reportWriter != nil {
		if err := uc.reportWriter.Write(report); err != nil {
			slog.Error("report_write_failed", "error", err)
		} else if err := uc.reportWriter.Flush(); err != nil {
			slog.Error("report_flush_failed", "error", err)
		}
	}

	uc.notifyMetricsObservers()

	slog.Info("run_finished",
		"survivors", report.Survivors(),
		"buckets", report.Buckets,
		"files", report.Files,
		"duration", report.FinishedAt.Sub(report.StartedAt).String(),
	)
	return report, runErr
}

func (uc *PipelineUseCase) startPhase(ctx context.Context, phase entity.Phase) (context.Context, trace.Span) {
	uc.updateMetrics(func(m *entity.Metrics) {
		m.Phase = phase
	})
	uc.notifyMetricsObservers()
	return uc.tracer.Start(ctx, string(phase))
}

func (uc *PipelineUseCase) endPhase(span trace.Span, report *entity.RunReport, phase entity.Phase, entered, survived int) {
	report.Record(phase, entered, survived)
	span.SetAttributes(attribute.Int("entered", entered), attribute.Int("survived", survived))
	span.End()

	for _, observer := range uc.phaseObservers {
		observer.ObservePhase(phase, entered, survived)
	}
	slog.Info("phase_finished", "phase", string(phase), "entered", entered, "survived", survived)
}

func (uc *PipelineUseCase) observeProbe(result *entity.ProbeResult) {
	for _, observer := range uc.phaseObservers {
		observer.ObserveProbe(result)
	}
}

// updateMetricsPeriodically periodically updates and notifies observers
func (uc *PipelineUseCase) updateMetricsPeriodically(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			uc.metricsLock.Lock()
			uc.metrics.LastUpdateTime = time.Now()

			// Count active workers and collect their current targets
			activeWorkers := 0
			var activeTargets []string
			for _, worker := range uc.workers {
				if worker != nil && worker.IsActive() {
					activeWorkers++
					if target := worker.GetCurrentTarget(); target != "" {
						activeTargets = append(activeTargets, target)
					}
				}
			}
			uc.metrics.ActiveWorkers = activeWorkers
			uc.metrics.ActiveTargets = activeTargets
			uc.metricsLock.Unlock()

			uc.notifyMetricsObservers()
		}
	}
}

// startWorkers starts the probe worker goroutines
func (uc *PipelineUseCase) startWorkers(ctx context.Context, probeQueue repository.ProbeQueue, resultQueue repository.ProbeResultQueue, n int) {
	workers := make([]*Worker, n)
	for i := 0; i < n; i++ {
		workers[i] = &Worker{
			id:          i,
			useCase:     uc,
			probeQueue:  probeQueue,
			resultQueue: resultQueue,
			prober:      uc.prober,
		}
	}

	uc.metricsLock.Lock()
	uc.workers = workers
	uc.metrics.TotalWorkers = n
	uc.metricsLock.Unlock()

	for _, worker := range workers {
		uc.wg.Add(1)
		go worker.Run(ctx, &uc.wg)
	}
}

// waitForCompletion closes the result queue once every worker returned
func (uc *PipelineUseCase) waitForCompletion(resultQueue repository.ProbeResultQueue) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		uc.wg.Wait()
		resultQueue.Close()
		close(done)
	}()
	return done
}

// GetMetrics returns the current metrics
func (uc *PipelineUseCase) GetMetrics() *entity.Metrics {
	uc.metricsLock.RLock()
	defer uc.metricsLock.RUnlock()

	metrics := *uc.metrics
	metrics.ActiveTargets = append([]string(nil), uc.metrics.ActiveTargets...)
	return &metrics
}

func (uc *PipelineUseCase) updateMetrics(update func(m *entity.Metrics)) {
	uc.metricsLock.Lock()
	update(uc.metrics)
	uc.metricsLock.Unlock()
}

// incrementProbesDone increments the pre-filter probe counters
func (uc *PipelineUseCase) incrementProbesDone(reachable bool) {
	uc.updateMetrics(func(m *entity.Metrics) {
		m.ProbesDone++
		if reachable {
			m.ProbesAlive++
		}
	})
}

// incrementErrorCount increments the error counter
func (uc *PipelineUseCase) incrementErrorCount() {
	uc.updateMetrics(func(m *entity.Metrics) {
		m.ErrorCount++
	})
}
