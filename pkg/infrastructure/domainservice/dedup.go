package domainservice

import (
	"net/netip"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
	"github.com/WangYihang/Config-Collector/pkg/domain/service"
	mapset "github.com/deckarep/golang-set/v2"
)

// FirstSeenWins keeps the earliest descriptor of every endpoint
func FirstSeenWins(kept, candidate *entity.EnrichedDescriptor) bool {
	return false
}

// LowestLatencyWins replaces the kept descriptor with a faster one
func LowestLatencyWins(kept, candidate *entity.EnrichedDescriptor) bool {
	return candidate.LatencyMs < kept.LatencyMs
}

type endpointKey struct {
	ip   netip.Addr
	port int
}

// Deduplicator implements service.Deduplicator keyed on (ip, port)
type Deduplicator struct {
	policy service.DuplicatePolicy
}

// NewDeduplicator creates a deduplicator, a nil policy means first seen wins
func NewDeduplicator(policy service.DuplicatePolicy) *Deduplicator {
	if policy == nil {
		policy = FirstSeenWins
	}
	return &Deduplicator{policy: policy}
}

// Deduplicate returns one representative per endpoint, in first-seen order
func (d *Deduplicator) Deduplicate(items []*entity.EnrichedDescriptor) []*entity.EnrichedDescriptor {
	seen := mapset.NewThreadUnsafeSet[endpointKey]()
	index := make(map[endpointKey]int)
	kept := make([]*entity.EnrichedDescriptor, 0, len(items))

	for _, item := range items {
		if item == nil || item.Descriptor == nil {
			continue
		}
		key := endpointKey{ip: item.ResolvedIP.Unmap(), port: item.Port()}
		if seen.Add(key) {
			index[key] = len(kept)
			kept = append(kept, item)
			continue
		}
		if i := index[key]; d.policy(kept[i], item) {
			kept[i] = item
		}
	}
	return kept
}
