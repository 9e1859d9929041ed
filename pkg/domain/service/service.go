package service

import (
	"context"
	"net/netip"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
)

// CandidateExtractor extracts candidate URIs from free text
type CandidateExtractor interface {
	// ExtractFromText returns every candidate URI found in the text
	ExtractFromText(text string) []string
}

// Normalizer parses candidates into descriptors
type Normalizer interface {
	// Classify returns the protocol a candidate is routed to
	Classify(candidate string) (entity.Protocol, bool)
	// Normalize parses one candidate expected to be of the given protocol
	Normalize(candidate string, expected entity.Protocol) (*entity.Descriptor, error)
}

// Renderer serializes descriptors back to their native wire form
type Renderer interface {
	// Render writes the descriptor with host replaced by ip and the label attached
	Render(d *entity.Descriptor, ip netip.Addr, label string) (string, error)
}

// DNSResolver resolves hosts to addresses
type DNSResolver interface {
	// Resolve returns the deduplicated address set of host, empty when unresolvable
	Resolve(ctx context.Context, host string) []netip.Addr
}

// Prober measures TCP reachability
type Prober interface {
	// Probe performs one bounded TCP handshake
	Probe(ctx context.Context, target entity.HostPort) *entity.ProbeResult
}

// GeoLocator maps addresses to countries
type GeoLocator interface {
	// Country returns the ISO alpha-2 code or "XX"
	Country(ip netip.Addr) string
	// Close releases the database
	Close() error
}

// Labeler builds display labels
type Labeler interface {
	// Label renders the canonical label of an enriched endpoint
	Label(d *entity.Descriptor, ip netip.Addr, country string, latencyMs float64) string
}

// EndpointPolicy picks which resolved addresses of a descriptor get probed, in order
type EndpointPolicy func(addrs []netip.Addr) []netip.Addr

// DuplicatePolicy decides whether a candidate replaces the kept representative of a key
type DuplicatePolicy func(kept, candidate *entity.EnrichedDescriptor) bool

// Deduplicator collapses descriptors sharing a network endpoint
type Deduplicator interface {
	// Deduplicate returns one representative per (ip, port)
	Deduplicate(items []*entity.EnrichedDescriptor) []*entity.EnrichedDescriptor
}

// Sorter orders descriptors for publication
type Sorter interface {
	// Sort returns the ordered survivors, dropping unparsable labels
	Sort(items []*entity.EnrichedDescriptor) []*entity.EnrichedDescriptor
}

// Partitioner buckets descriptors by classification dimension
type Partitioner interface {
	// Partition returns every bucket for the ordered set
	Partition(items []*entity.EnrichedDescriptor) []entity.Bucket
	// Index renders the country index of the partitioned buckets
	Index(buckets []entity.Bucket) []byte
}

// SourceFetcher fetches raw text from subscription sources
type SourceFetcher interface {
	// FetchText returns the textual content of the source
	FetchText(ctx context.Context, url string) (string, error)
}
