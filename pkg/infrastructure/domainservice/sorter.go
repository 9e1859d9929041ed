package domainservice

import (
	"log/slog"
	"slices"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
)

// DefaultSortBound is the latency split point in milliseconds
const DefaultSortBound = 50.0

// Sorter implements service.Sorter.
// Entries at or above the bound come first ascending, the rest follow descending.
type Sorter struct {
	bound float64
}

// NewSorter creates a sorter splitting at bound milliseconds.
// A zero bound sorts everything ascending, a negative one falls back to DefaultSortBound.
func NewSorter(bound float64) *Sorter {
	if bound < 0 {
		bound = DefaultSortBound
	}
	return &Sorter{bound: bound}
}

type ranked struct {
	latency float64
	item    *entity.EnrichedDescriptor
}

// Sort orders the items and drops those without a parsable latency
func (s *Sorter) Sort(items []*entity.EnrichedDescriptor) []*entity.EnrichedDescriptor {
	var slow, fast []ranked
	for _, item := range items {
		latency, ok := ParseLatency(item.Label)
		if !ok {
			slog.Debug("sort_unparsable_label", "label", item.Label)
			continue
		}
		if latency >= s.bound {
			slow = append(slow, ranked{latency, item})
		} else {
			fast = append(fast, ranked{latency, item})
		}
	}

	slices.SortStableFunc(slow, func(a, b ranked) int { return compare(a.latency, b.latency) })
	slices.SortStableFunc(fast, func(a, b ranked) int { return compare(b.latency, a.latency) })

	sorted := make([]*entity.EnrichedDescriptor, 0, len(slow)+len(fast))
	for _, r := range slow {
		sorted = append(sorted, r.item)
	}
	for _, r := range fast {
		sorted = append(sorted, r.item)
	}
	return sorted
}

func compare(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
