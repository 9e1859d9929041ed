package probe

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
)

func listen(t *testing.T) (entity.HostPort, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return entity.HostPort{Host: host, Port: port}, func() { ln.Close() }
}

func closedPort(t *testing.T) entity.HostPort {
	t.Helper()
	target, stop := listen(t)
	stop()
	return target
}

func TestProbeReachable(t *testing.T) {
	target, stop := listen(t)
	defer stop()

	p := NewProber(Config{Timeout: time.Second})
	result := p.Probe(context.Background(), target)

	if !result.Reachable {
		t.Fatalf("Expected %s to be reachable: %s", target, result.Error)
	}
	if result.LatencyMs < 0 {
		t.Errorf("Latency should not be negative, got %f", result.LatencyMs)
	}
	if result.Address != target.String() {
		t.Errorf("Address = %q, want %q", result.Address, target.String())
	}
}

func TestProbeRefused(t *testing.T) {
	target := closedPort(t)

	p := NewProber(Config{Timeout: time.Second})
	result := p.Probe(context.Background(), target)

	if result.Reachable {
		t.Errorf("Expected %s to be unreachable", target)
	}
	if result.Error == "" {
		t.Error("Expected an error message for refused connection")
	}
}

func TestProbeCeiling(t *testing.T) {
	target, stop := listen(t)
	defer stop()

	// any real handshake takes longer than a nanosecond
	p := NewProber(Config{Timeout: time.Second, Ceiling: time.Nanosecond})
	result := p.Probe(context.Background(), target)

	if result.Reachable {
		t.Error("Latency above the ceiling must count as unreachable")
	}
}

func TestProbeCancelledContext(t *testing.T) {
	target, stop := listen(t)
	defer stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProber(Config{Timeout: time.Second, Rate: 1})
	if result := p.Probe(ctx, target); result.Reachable {
		t.Error("Cancelled probe should not be reachable")
	}
}

type countingLogs struct{ probes int }

func (c *countingLogs) WriteProbeLog(data any) error { c.probes++; return nil }
func (c *countingLogs) WriteDNSLog(data any) error   { return nil }
func (c *countingLogs) Close() error                 { return nil }

func TestProbeLogs(t *testing.T) {
	target, stop := listen(t)
	defer stop()

	logs := &countingLogs{}
	p := NewProber(Config{Timeout: time.Second, Logs: logs})
	p.Probe(context.Background(), target)
	p.Probe(context.Background(), closedPort(t))

	if logs.probes != 2 {
		t.Errorf("Expected 2 probe log entries, got %d", logs.probes)
	}
}
