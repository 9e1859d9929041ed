package domainservice

import (
	"path"
	"sort"
	"strings"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
	mapset "github.com/deckarep/golang-set/v2"
)

const (
	// MixedBucket aggregates every survivor
	MixedBucket = "splitted/mixed"
	// CountriesDir holds one directory per country code
	CountriesDir = "countries"
	// SubscribeDir holds the protocol scoped subsets
	SubscribeDir = "subscribe"
)

// Partitioner implements service.Partitioner
type Partitioner struct {
	// Banner is prepended to the mixed bucket when set
	Banner string
}

// NewPartitioner creates a new partitioner
func NewPartitioner(banner string) *Partitioner {
	return &Partitioner{Banner: banner}
}

// Partition buckets the ordered set by every dimension.
// Protocol, security, network and layer buckets are always emitted, possibly empty.
func (p *Partitioner) Partition(items []*entity.EnrichedDescriptor) []entity.Bucket {
	set := newBucketSet()

	mixed := set.get(MixedBucket)
	if p.Banner != "" {
		mixed.Entries = append(mixed.Entries, p.Banner)
	}
	for _, protocol := range entity.Protocols {
		set.get(path.Join("protocols", protocol.String()))
	}
	dimensions(set, "")

	byProtocol := make(map[entity.Protocol][]*entity.EnrichedDescriptor)
	for _, item := range items {
		protocol := item.Descriptor.Protocol()
		byProtocol[protocol] = append(byProtocol[protocol], item)

		mixed.Entries = append(mixed.Entries, item.Rendered)
		set.add(path.Join("protocols", protocol.String()), item.Rendered)
		classify(set, "", item)
		if country, ok := ParseCountry(item.Label); ok {
			set.add(path.Join(CountriesDir, strings.ToLower(country), "mixed"), item.Rendered)
		}
	}

	for _, protocol := range entity.Protocols {
		prefix := path.Join(SubscribeDir, protocol.String())
		set.get(path.Join(prefix, "mixed"))
		dimensions(set, prefix)
		for _, item := range byProtocol[protocol] {
			set.add(path.Join(prefix, "mixed"), item.Rendered)
			classify(set, prefix, item)
		}
	}

	return set.buckets()
}

// Index renders the country table of the buckets
func (p *Partitioner) Index(buckets []entity.Bucket) []byte {
	return []byte(CountryTable(Countries(buckets)))
}

// Countries returns the sorted country codes present in the buckets
func Countries(buckets []entity.Bucket) []string {
	codes := mapset.NewThreadUnsafeSet[string]()
	for _, b := range buckets {
		rest, ok := strings.CutPrefix(b.Name, CountriesDir+"/")
		if !ok {
			continue
		}
		if code, _, found := strings.Cut(rest, "/"); found {
			codes.Add(code)
		}
	}
	sorted := codes.ToSlice()
	sort.Strings(sorted)
	return sorted
}

// dimensions registers the stable security, network and layer buckets below prefix
func dimensions(set *bucketSet, prefix string) {
	set.get(path.Join(prefix, "security", "tls"))
	set.get(path.Join(prefix, "security", "non-tls"))
	for _, transport := range entity.Transports {
		set.get(path.Join(prefix, "networks", transport.String()))
	}
	set.get(path.Join(prefix, "layers", "ipv4"))
	set.get(path.Join(prefix, "layers", "ipv6"))
}

func classify(set *bucketSet, prefix string, item *entity.EnrichedDescriptor) {
	d := item.Descriptor

	security := "non-tls"
	if d.Security.Secure() {
		security = "tls"
	}
	set.add(path.Join(prefix, "security", security), item.Rendered)
	set.add(path.Join(prefix, "networks", d.Transport.String()), item.Rendered)

	layer := "ipv4"
	if IsIPv6Label(item.Label) {
		layer = "ipv6"
	}
	set.add(path.Join(prefix, "layers", layer), item.Rendered)
}

// bucketSet keeps buckets in registration order
type bucketSet struct {
	order []string
	index map[string]*entity.Bucket
}

func newBucketSet() *bucketSet {
	return &bucketSet{index: make(map[string]*entity.Bucket)}
}

func (s *bucketSet) get(name string) *entity.Bucket {
	if b, ok := s.index[name]; ok {
		return b
	}
	b := &entity.Bucket{Name: name}
	s.index[name] = b
	s.order = append(s.order, name)
	return b
}

func (s *bucketSet) add(name, entry string) {
	b := s.get(name)
	b.Entries = append(b.Entries, entry)
}

func (s *bucketSet) buckets() []entity.Bucket {
	out := make([]entity.Bucket, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, *s.index[name])
	}
	return out
}
