package domainservice

import (
	"net/netip"
	"testing"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
)

func enriched(protocol entity.Protocol, ip string, port int, latency float64, rendered string) *entity.EnrichedDescriptor {
	d := descriptor(protocol, entity.TransportTCP, entity.SecurityNone, port)
	addr := netip.MustParseAddr(ip)
	return &entity.EnrichedDescriptor{
		Descriptor:  d,
		ResolvedIP:  addr,
		CountryCode: "DE",
		LatencyMs:   latency,
		Label:       NewLabeler().Label(d, addr, "DE", latency),
		Rendered:    rendered,
	}
}

func TestDeduplicator_FirstSeenWins(t *testing.T) {
	items := []*entity.EnrichedDescriptor{
		enriched(entity.ProtocolVLess, "1.1.1.1", 443, 80, "a"),
		enriched(entity.ProtocolTrojan, "1.1.1.1", 443, 20, "b"),
		enriched(entity.ProtocolVLess, "1.1.1.1", 8443, 30, "c"),
		enriched(entity.ProtocolVLess, "2.2.2.2", 443, 40, "d"),
		enriched(entity.ProtocolShadowsocks, "2.2.2.2", 443, 10, "e"),
	}

	result := NewDeduplicator(nil).Deduplicate(items)

	expected := []string{"a", "c", "d"}
	if len(result) != len(expected) {
		t.Fatalf("Deduplicate() kept %d, want %d", len(result), len(expected))
	}
	for i, r := range result {
		if r.Rendered != expected[i] {
			t.Errorf("result[%d] = %q, want %q", i, r.Rendered, expected[i])
		}
	}
}

func TestDeduplicator_Idempotent(t *testing.T) {
	items := []*entity.EnrichedDescriptor{
		enriched(entity.ProtocolVLess, "1.1.1.1", 443, 80, "a"),
		enriched(entity.ProtocolVLess, "1.1.1.1", 443, 80, "b"),
		enriched(entity.ProtocolVLess, "2001:db8::1", 443, 80, "c"),
	}

	d := NewDeduplicator(nil)
	once := d.Deduplicate(items)
	twice := d.Deduplicate(once)

	if len(once) != len(twice) {
		t.Fatalf("Second pass changed size: %d -> %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("Second pass changed item %d", i)
		}
	}
}

func TestDeduplicator_LowestLatencyWins(t *testing.T) {
	items := []*entity.EnrichedDescriptor{
		enriched(entity.ProtocolVLess, "1.1.1.1", 443, 80, "slow"),
		enriched(entity.ProtocolVLess, "9.9.9.9", 443, 80, "other"),
		enriched(entity.ProtocolVLess, "1.1.1.1", 443, 20, "fast"),
	}

	result := NewDeduplicator(LowestLatencyWins).Deduplicate(items)

	if len(result) != 2 {
		t.Fatalf("Deduplicate() kept %d, want 2", len(result))
	}
	if result[0].Rendered != "fast" {
		t.Errorf("Expected faster duplicate to take the first slot, got %q", result[0].Rendered)
	}
}

func TestDeduplicator_MappedIPv4(t *testing.T) {
	items := []*entity.EnrichedDescriptor{
		enriched(entity.ProtocolVLess, "1.1.1.1", 443, 80, "a"),
		enriched(entity.ProtocolVLess, "::ffff:1.1.1.1", 443, 80, "b"),
	}

	if result := NewDeduplicator(nil).Deduplicate(items); len(result) != 1 {
		t.Errorf("IPv4-mapped address should collapse with its IPv4 form, kept %d", len(result))
	}
}
