package repository

import "github.com/WangYihang/Config-Collector/pkg/domain/entity"

// CandidateFilter provides deduplication of raw candidate strings
type CandidateFilter interface {
	// Contains checks if a candidate has been seen before
	Contains(candidate string) bool
	// Add adds a candidate to the filter
	Add(candidate string)
	// TestAndAdd reports whether the candidate was already present and adds it
	TestAndAdd(candidate string) bool
	// Save persists the filter state
	Save(filename string) error
	// Load restores the filter state
	Load(filename string) error
}

// BucketWriter emits buckets as chunked, encoded files
type BucketWriter interface {
	// WriteBucket writes every chunk of the bucket and returns the number of files written
	WriteBucket(bucket entity.Bucket) (int, error)
	// WriteFile writes a plain file below the output root
	WriteFile(name string, data []byte) error
}

// ReportWriter writes run reports
type ReportWriter interface {
	// Write writes a single report
	Write(report *entity.RunReport) error
	// Flush ensures all buffered data is written
	Flush() error
	// Close closes the writer
	Close() error
}

// LogWriter writes structured logs
type LogWriter interface {
	// WriteProbeLog writes a TCP probe outcome
	WriteProbeLog(data any) error
	// WriteDNSLog writes a DNS query/response log
	WriteDNSLog(data any) error
	// Close closes all log writers
	Close() error
}

// ProbeQueue manages pre-filter probe targets
type ProbeQueue interface {
	// Enqueue adds a target to the queue
	Enqueue(target entity.HostPort) bool
	// Dequeue removes and returns a target from the queue
	Dequeue() (entity.HostPort, bool)
	// Len returns the current queue length
	Len() int
	// Close closes the queue
	Close()
}

// ProbeResultQueue manages probe outcomes
type ProbeResultQueue interface {
	// Send sends a result to the queue
	Send(result *entity.ProbeResult)
	// Receive receives a result from the queue
	Receive() (*entity.ProbeResult, bool)
	// Close closes the queue
	Close()
}
