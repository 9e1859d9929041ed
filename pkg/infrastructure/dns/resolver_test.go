package dns

import (
	"context"
	"net"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/miekg/dns"
)

type memoryLogs struct {
	mu      sync.Mutex
	entries []any
}

func (m *memoryLogs) WriteProbeLog(data any) error { return nil }

func (m *memoryLogs) WriteDNSLog(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, data)
	return nil
}

func (m *memoryLogs) Close() error { return nil }

// startServer runs a local DNS server answering from the given zone
func startServer(t *testing.T, zone map[string][]dns.RR) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		q := req.Question[0]
		records, ok := zone[q.Name]
		if !ok {
			m.Rcode = dns.RcodeNameError
		}
		for _, rr := range records {
			if rr.Header().Rrtype == q.Qtype {
				m.Answer = append(m.Answer, rr)
			}
		}
		_ = w.WriteMsg(m)
	})

	started := make(chan struct{})
	server := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() {
		_ = server.ActivateAndServe()
	}()
	<-started
	t.Cleanup(func() { _ = server.Shutdown() })

	return pc.LocalAddr().String()
}

func mustRR(t *testing.T, s string) dns.RR {
	t.Helper()
	rr, err := dns.NewRR(s)
	if err != nil {
		t.Fatalf("Invalid RR %q: %v", s, err)
	}
	return rr
}

func TestResolveLiteral(t *testing.T) {
	r := NewResolver(Config{Servers: []string{"127.0.0.1:1"}, Timeout: 100 * time.Millisecond})

	tests := []struct {
		host     string
		expected string
	}{
		{"1.2.3.4", "1.2.3.4"},
		{"2001:db8::1", "2001:db8::1"},
		{"[2001:db8::1]", "2001:db8::1"},
		{"::ffff:1.2.3.4", "1.2.3.4"},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			addrs := r.Resolve(context.Background(), tt.host)
			if len(addrs) != 1 || addrs[0] != netip.MustParseAddr(tt.expected) {
				t.Errorf("Resolve(%q) = %v, want [%s]", tt.host, addrs, tt.expected)
			}
		})
	}
}

func TestResolveHostname(t *testing.T) {
	server := startServer(t, map[string][]dns.RR{
		"proxy.example.com.": {
			mustRR(t, "proxy.example.com. 60 IN A 192.0.2.10"),
			mustRR(t, "proxy.example.com. 60 IN A 192.0.2.11"),
			mustRR(t, "proxy.example.com. 60 IN AAAA 2001:db8::10"),
		},
	})

	logs := &memoryLogs{}
	r := NewResolver(Config{Servers: []string{server}, Timeout: time.Second, Logs: logs})

	addrs := r.Resolve(context.Background(), "proxy.example.com")
	expected := []netip.Addr{
		netip.MustParseAddr("192.0.2.10"),
		netip.MustParseAddr("192.0.2.11"),
		netip.MustParseAddr("2001:db8::10"),
	}
	if len(addrs) != len(expected) {
		t.Fatalf("Resolve = %v, want %v", addrs, expected)
	}
	for i := range expected {
		if addrs[i] != expected[i] {
			t.Errorf("Resolve[%d] = %s, want %s", i, addrs[i], expected[i])
		}
	}

	if len(logs.entries) != 2 {
		t.Errorf("Expected one log entry per query type, got %d", len(logs.entries))
	}
}

func TestResolveFailuresAreEmpty(t *testing.T) {
	server := startServer(t, map[string][]dns.RR{})
	r := NewResolver(Config{Servers: []string{server}, Timeout: time.Second})

	if addrs := r.Resolve(context.Background(), "missing.example.com"); len(addrs) != 0 {
		t.Errorf("NXDOMAIN should resolve to nothing, got %v", addrs)
	}
	if addrs := r.Resolve(context.Background(), "host.invalidtld"); len(addrs) != 0 {
		t.Errorf("Unregistrable host should resolve to nothing, got %v", addrs)
	}
	if addrs := r.Resolve(context.Background(), ""); len(addrs) != 0 {
		t.Errorf("Empty host should resolve to nothing, got %v", addrs)
	}
}

func TestResolveUnreachableServer(t *testing.T) {
	r := NewResolver(Config{Servers: []string{"127.0.0.1:1"}, Timeout: 200 * time.Millisecond})

	if addrs := r.Resolve(context.Background(), "proxy.example.com"); len(addrs) != 0 {
		t.Errorf("Expected empty set on timeout, got %v", addrs)
	}
}

func TestRegistrable(t *testing.T) {
	tests := []struct {
		host     string
		expected bool
	}{
		{"example.com", true},
		{"a.b.example.co.uk", true},
		{"com", false},
		{"localhost", false},
		{"host.invalidtld", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			if result := Registrable(tt.host); result != tt.expected {
				t.Errorf("Registrable(%q) = %v, want %v", tt.host, result, tt.expected)
			}
		})
	}
}
