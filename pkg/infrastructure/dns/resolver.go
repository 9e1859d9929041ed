package dns

import (
	"context"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/WangYihang/Config-Collector/pkg/domain/repository"
	"github.com/miekg/dns"
	"golang.org/x/net/publicsuffix"
)

// DefaultServers are queried in order when none are configured
var DefaultServers = []string{"8.8.8.8:53", "1.1.1.1:53"}

// Resolver implements service.DNSResolver
type Resolver struct {
	servers []string
	timeout time.Duration
	client  *dns.Client
	logs    repository.LogWriter
}

// Config holds DNS resolver configuration
type Config struct {
	Servers []string
	Timeout time.Duration
	// Logs receives one record per query when set
	Logs repository.LogWriter
}

// Record is a single answer record
type Record struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	TTL   uint32 `json:"ttl"`
}

// Resolution is the logged outcome of one query
type Resolution struct {
	Host       string   `json:"host"`
	QType      string   `json:"qtype"`
	Server     string   `json:"server,omitempty"`
	Rcode      string   `json:"rcode,omitempty"`
	Records    []Record `json:"records,omitempty"`
	Error      string   `json:"error,omitempty"`
	RTTMs      int64    `json:"rtt_ms"`
	RequestAt  int64    `json:"request_at"`
	ResponseAt int64    `json:"response_at"`
}

// NewResolver creates a new DNS resolver
func NewResolver(config Config) *Resolver {
	if len(config.Servers) == 0 {
		config.Servers = DefaultServers
	}
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Second
	}

	return &Resolver{
		servers: config.Servers,
		timeout: config.Timeout,
		client: &dns.Client{
			Timeout: config.Timeout,
		},
		logs: config.Logs,
	}
}

// Resolve implements service.DNSResolver.
// Literal addresses return themselves, everything else is an A then AAAA lookup.
// Timeouts, NXDOMAIN and empty answers all yield an empty set.
func (r *Resolver) Resolve(ctx context.Context, host string) []netip.Addr {
	host = strings.TrimSuffix(strings.Trim(strings.TrimSpace(host), "[]"), ".")
	if host == "" {
		return nil
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return []netip.Addr{addr.Unmap()}
	}
	if !Registrable(host) {
		slog.Debug("dns_unregistrable_host", "host", host)
		return nil
	}

	var addrs []netip.Addr
	seen := make(map[netip.Addr]struct{})
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		for _, addr := range r.query(ctx, host, qtype) {
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
			addrs = append(addrs, addr)
		}
	}
	return addrs
}

// query tries each server in order until one answers
func (r *Resolver) query(ctx context.Context, host string, qtype uint16) []netip.Addr {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), qtype)
	msg.RecursionDesired = true

	resolution := Resolution{
		Host:      host,
		QType:     dns.TypeToString[qtype],
		RequestAt: time.Now().UnixMilli(),
	}
	defer r.log(&resolution)

	var response *dns.Msg
	for _, server := range r.servers {
		if ctx.Err() != nil {
			resolution.Error = ctx.Err().Error()
			return nil
		}
		queryCtx, cancel := context.WithTimeout(ctx, r.timeout)
		resp, rtt, err := r.client.ExchangeContext(queryCtx, msg, server)
		cancel()

		if err == nil && resp != nil {
			response = resp
			resolution.Server = server
			resolution.RTTMs = rtt.Milliseconds()
			break
		}
		if err != nil {
			resolution.Error = err.Error()
		}
	}
	resolution.ResponseAt = time.Now().UnixMilli()

	if response == nil {
		return nil
	}
	resolution.Error = ""
	resolution.Rcode = dns.RcodeToString[response.Rcode]
	if response.Rcode != dns.RcodeSuccess {
		return nil
	}

	var addrs []netip.Addr
	for _, answer := range response.Answer {
		switch rr := answer.(type) {
		case *dns.A:
			if addr, ok := netip.AddrFromSlice(rr.A.To4()); ok {
				addrs = append(addrs, addr)
				resolution.Records = append(resolution.Records, Record{Type: "A", Value: addr.String(), TTL: rr.Hdr.Ttl})
			}
		case *dns.AAAA:
			if addr, ok := netip.AddrFromSlice(rr.AAAA.To16()); ok {
				addr = addr.Unmap()
				addrs = append(addrs, addr)
				resolution.Records = append(resolution.Records, Record{Type: "AAAA", Value: addr.String(), TTL: rr.Hdr.Ttl})
			}
		}
	}
	return addrs
}

func (r *Resolver) log(resolution *Resolution) {
	if r.logs == nil {
		return
	}
	if resolution.ResponseAt == 0 {
		resolution.ResponseAt = time.Now().UnixMilli()
	}
	if err := r.logs.WriteDNSLog(resolution); err != nil {
		slog.Warn("dns_log_write_failed", "host", resolution.Host, "error", err)
	}
}

// Registrable reports whether host sits below a listed public suffix
func Registrable(host string) bool {
	host = strings.ToLower(host)
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil || etld1 == "" {
		return false
	}
	suffix, icann := publicsuffix.PublicSuffix(host)
	// unlisted TLDs fall through to the implicit "*" rule
	if !icann && !strings.Contains(suffix, ".") {
		return false
	}
	return true
}
