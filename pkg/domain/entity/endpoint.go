package entity

import (
	"net/netip"
	"strconv"
)

// ResolvedEndpoint is one concrete address of a descriptor
type ResolvedEndpoint struct {
	Descriptor *Descriptor
	IP         netip.Addr
}

// Version returns 4 or 6
func (e ResolvedEndpoint) Version() int {
	if e.IP.Is4() || e.IP.Is4In6() {
		return 4
	}
	return 6
}

// Address returns the dialable host:port form
func (e ResolvedEndpoint) Address() string {
	return netip.AddrPortFrom(e.IP.Unmap(), uint16(e.Descriptor.Port)).String()
}

// HostPort is a probe target, Host is an address literal once the pipeline resolved it
type HostPort struct {
	Host string
	Port int
}

// String returns the dialable form
func (hp HostPort) String() string {
	if addr, err := netip.ParseAddr(hp.Host); err == nil && addr.Is6() && !addr.Is4In6() {
		return "[" + hp.Host + "]:" + strconv.Itoa(hp.Port)
	}
	return hp.Host + ":" + strconv.Itoa(hp.Port)
}

// ProbeResult is the outcome of one TCP handshake
type ProbeResult struct {
	Target    HostPort `json:"-"`
	Address   string   `json:"address"`
	Reachable bool     `json:"reachable"`
	LatencyMs float64  `json:"latency_ms"`
	Error     string   `json:"error,omitempty"`
}

// EnrichedDescriptor is a surviving descriptor with its final label baked in
type EnrichedDescriptor struct {
	Descriptor  *Descriptor
	ResolvedIP  netip.Addr
	CountryCode string
	LatencyMs   float64
	Label       string
	Rendered    string
}

// Port returns the descriptor port
func (e *EnrichedDescriptor) Port() int {
	return e.Descriptor.Port
}

// Bucket is a named output partition, Name is a slash separated relative path
type Bucket struct {
	Name    string
	Entries []string
}
