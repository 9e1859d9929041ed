package probe

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
	"github.com/WangYihang/Config-Collector/pkg/domain/repository"
	"golang.org/x/time/rate"
)

// Config holds prober configuration
type Config struct {
	// Timeout bounds a single handshake
	Timeout time.Duration
	// Ceiling is the slowest latency still counted as reachable, 0 disables it
	Ceiling time.Duration
	// Rate limits dials per second globally, 0 means unlimited
	Rate float64
	// Logs receives one record per probe when set
	Logs repository.LogWriter
}

// Prober implements service.Prober with a plain TCP handshake
type Prober struct {
	dialer  *net.Dialer
	timeout time.Duration
	ceiling time.Duration
	limiter *rate.Limiter
	logs    repository.LogWriter
}

// NewProber creates a new TCP prober
func NewProber(config Config) *Prober {
	if config.Timeout <= 0 {
		config.Timeout = 1500 * time.Millisecond
	}

	p := &Prober{
		dialer:  &net.Dialer{Timeout: config.Timeout},
		timeout: config.Timeout,
		ceiling: config.Ceiling,
		logs:    config.Logs,
	}
	if config.Rate > 0 {
		burst := int(config.Rate)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(config.Rate), burst)
	}
	return p
}

// Probe implements service.Prober.
// The connection is closed as soon as the handshake completes, nothing is written.
func (p *Prober) Probe(ctx context.Context, target entity.HostPort) *entity.ProbeResult {
	result := &entity.ProbeResult{
		Target:  target,
		Address: target.String(),
	}
	defer p.log(result)

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			result.Error = err.Error()
			return result
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	conn, err := p.dialer.DialContext(ctx, "tcp", result.Address)
	elapsed := time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	conn.Close()

	result.LatencyMs = float64(elapsed.Microseconds()) / 1000
	if p.ceiling > 0 && elapsed > p.ceiling {
		result.Error = "latency above ceiling"
		return result
	}
	result.Reachable = true
	return result
}

func (p *Prober) log(result *entity.ProbeResult) {
	slog.Debug("tcp_probe", "target", result.Address, "reachable", result.Reachable, "latency_ms", result.LatencyMs)
	if p.logs == nil {
		return
	}
	if err := p.logs.WriteProbeLog(result); err != nil {
		slog.Warn("probe_log_write_failed", "target", result.Address, "error", err)
	}
}
