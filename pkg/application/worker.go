package application

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
	"github.com/WangYihang/Config-Collector/pkg/domain/repository"
	"github.com/WangYihang/Config-Collector/pkg/domain/service"
)

// Worker probes pre-filter targets
type Worker struct {
	id          int
	useCase     *PipelineUseCase
	probeQueue  repository.ProbeQueue
	resultQueue repository.ProbeResultQueue
	prober      service.Prober

	currentTarget atomic.Value // stores string
	isActive      atomic.Bool
}

// Run starts the worker processing loop, it returns once the queue is drained or ctx is done
func (w *Worker) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		target, ok := w.probeQueue.Dequeue()
		if !ok {
			return
		}

		w.processTarget(ctx, target)
	}
}

// IsActive returns whether the worker is currently probing
func (w *Worker) IsActive() bool {
	return w.isActive.Load()
}

// GetCurrentTarget returns the target currently being probed
func (w *Worker) GetCurrentTarget() string {
	if v := w.currentTarget.Load(); v != nil {
		return v.(string)
	}
	return ""
}

// processTarget probes a single target
func (w *Worker) processTarget(ctx context.Context, target entity.HostPort) {
	w.isActive.Store(true)
	w.currentTarget.Store(target.String())
	defer func() {
		w.isActive.Store(false)
		w.currentTarget.Store("")
	}()

	result := w.prober.Probe(ctx, target)
	result.Target = target
	w.useCase.incrementProbesDone(result.Reachable)
	if !result.Reachable {
		w.useCase.incrementErrorCount()
	}
	w.resultQueue.Send(result)
}
