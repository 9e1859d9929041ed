package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
	"github.com/WangYihang/Config-Collector/pkg/domain/repository"
)

// ReportWriter implements repository.ReportWriter, one JSON line per run
type ReportWriter struct {
	file    *os.File
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewReportWriter opens filename for appending
func NewReportWriter(filename string) (repository.ReportWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	return &ReportWriter{
		file:    file,
		encoder: json.NewEncoder(file),
	}, nil
}

// Write writes a single report
func (w *ReportWriter) Write(report *entity.RunReport) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.encoder.Encode(report)
}

// Flush ensures all buffered data is written
func (w *ReportWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.file.Sync()
}

// Close closes the writer
func (w *ReportWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.file.Close()
}

// LogWriter implements repository.LogWriter.
// An empty filename disables that log.
type LogWriter struct {
	probeFile *os.File
	dnsFile   *os.File
	probeEnc  *json.Encoder
	dnsEnc    *json.Encoder
	mu        sync.Mutex
}

// NewLogWriter creates a new log writer
func NewLogWriter(probeLogFile, dnsLogFile string) (repository.LogWriter, error) {
	w := &LogWriter{}

	if probeLogFile != "" {
		file, err := createFile(probeLogFile)
		if err != nil {
			return nil, err
		}
		w.probeFile, w.probeEnc = file, json.NewEncoder(file)
	}

	if dnsLogFile != "" {
		file, err := createFile(dnsLogFile)
		if err != nil {
			w.Close()
			return nil, err
		}
		w.dnsFile, w.dnsEnc = file, json.NewEncoder(file)
	}

	return w, nil
}

// WriteProbeLog writes a TCP probe outcome
func (w *LogWriter) WriteProbeLog(data any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.probeEnc == nil {
		return nil
	}
	return w.probeEnc.Encode(data)
}

// WriteDNSLog writes a DNS query/response log
func (w *LogWriter) WriteDNSLog(data any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.dnsEnc == nil {
		return nil
	}
	return w.dnsEnc.Encode(data)
}

// Close closes all log writers
func (w *LogWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var err1, err2 error
	if w.probeFile != nil {
		err1 = w.probeFile.Close()
	}
	if w.dnsFile != nil {
		err2 = w.dnsFile.Close()
	}

	if err1 != nil {
		return err1
	}
	return err2
}

func createFile(filename string) (*os.File, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	return os.Create(filename)
}

func ensureDir(filename string) error {
	return os.MkdirAll(filepath.Dir(filename), 0o755)
}
