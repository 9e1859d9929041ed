package storage

import (
	"sync"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
	"github.com/WangYihang/Config-Collector/pkg/domain/repository"
)

// ProbeQueue implements repository.ProbeQueue
type ProbeQueue struct {
	ch     chan entity.HostPort
	closed bool
	mu     sync.RWMutex
}

// NewProbeQueue creates a new probe queue
func NewProbeQueue(size int) repository.ProbeQueue {
	return &ProbeQueue{
		ch: make(chan entity.HostPort, size),
	}
}

// Enqueue adds a target to the queue, false when full or closed
func (q *ProbeQueue) Enqueue(target entity.HostPort) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	select {
	case q.ch <- target:
		return true
	default:
		return false
	}
}

// Dequeue removes and returns a target from the queue
func (q *ProbeQueue) Dequeue() (entity.HostPort, bool) {
	target, ok := <-q.ch
	return target, ok
}

// Len returns the current queue length
func (q *ProbeQueue) Len() int {
	return len(q.ch)
}

// Close closes the queue
func (q *ProbeQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// ProbeResultQueue implements repository.ProbeResultQueue
type ProbeResultQueue struct {
	ch     chan *entity.ProbeResult
	closed bool
	mu     sync.RWMutex
}

// NewProbeResultQueue creates a new result queue
func NewProbeResultQueue(size int) repository.ProbeResultQueue {
	return &ProbeResultQueue{
		ch: make(chan *entity.ProbeResult, size),
	}
}

// Send sends a result to the queue
func (q *ProbeResultQueue) Send(result *entity.ProbeResult) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if !q.closed {
		q.ch <- result
	}
}

// Receive receives a result from the queue
func (q *ProbeResultQueue) Receive() (*entity.ProbeResult, bool) {
	result, ok := <-q.ch
	return result, ok
}

// Close closes the queue
func (q *ProbeResultQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
