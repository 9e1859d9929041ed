package domainservice

import (
	"net/netip"
	"strings"
	"testing"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
	"github.com/stretchr/testify/require"
)

func labelled(protocol entity.Protocol, transport entity.Transport, security entity.Security, ip, country, rendered string) *entity.EnrichedDescriptor {
	d := descriptor(protocol, transport, security, 443)
	addr := netip.MustParseAddr(ip)
	return &entity.EnrichedDescriptor{
		Descriptor:  d,
		ResolvedIP:  addr,
		CountryCode: country,
		LatencyMs:   60,
		Label:       NewLabeler().Label(d, addr, country, 60),
		Rendered:    rendered,
	}
}

func bucketMap(buckets []entity.Bucket) map[string][]string {
	m := make(map[string][]string, len(buckets))
	for _, b := range buckets {
		m[b.Name] = b.Entries
	}
	return m
}

func TestPartitioner_Partition(t *testing.T) {
	items := []*entity.EnrichedDescriptor{
		labelled(entity.ProtocolVLess, entity.TransportWS, entity.SecurityTLS, "1.1.1.1", "DE", "vl"),
		labelled(entity.ProtocolReality, entity.TransportGRPC, entity.SecurityReality, "2001:db8::1", "US", "rl"),
		labelled(entity.ProtocolShadowsocks, entity.TransportTCP, entity.SecurityNone, "2.2.2.2", "DE", "ss"),
	}

	buckets := bucketMap(NewPartitioner("").Partition(items))

	require.Equal(t, []string{"vl", "rl", "ss"}, buckets[MixedBucket])
	require.Equal(t, []string{"vl"}, buckets["protocols/vless"])
	require.Equal(t, []string{"rl"}, buckets["protocols/reality"])
	require.Equal(t, []string{"ss"}, buckets["protocols/shadowsocks"])
	require.Empty(t, buckets["protocols/trojan"])

	require.Equal(t, []string{"vl", "rl"}, buckets["security/tls"])
	require.Equal(t, []string{"ss"}, buckets["security/non-tls"])

	require.Equal(t, []string{"ss"}, buckets["networks/tcp"])
	require.Equal(t, []string{"vl"}, buckets["networks/ws"])
	require.Equal(t, []string{"rl"}, buckets["networks/grpc"])
	require.Empty(t, buckets["networks/http"])

	require.Equal(t, []string{"vl", "ss"}, buckets["layers/ipv4"])
	require.Equal(t, []string{"rl"}, buckets["layers/ipv6"])

	require.Equal(t, []string{"vl", "ss"}, buckets["countries/de/mixed"])
	require.Equal(t, []string{"rl"}, buckets["countries/us/mixed"])

	require.Equal(t, []string{"rl"}, buckets["subscribe/reality/mixed"])
	require.Equal(t, []string{"rl"}, buckets["subscribe/reality/layers/ipv6"])
	require.Equal(t, []string{"ss"}, buckets["subscribe/shadowsocks/security/non-tls"])
}

func TestPartitioner_StableEmptyBuckets(t *testing.T) {
	buckets := bucketMap(NewPartitioner("").Partition(nil))

	stable := []string{
		MixedBucket,
		"security/tls", "security/non-tls",
		"networks/tcp", "networks/ws", "networks/grpc", "networks/http",
		"layers/ipv4", "layers/ipv6",
		"subscribe/vmess/mixed", "subscribe/juicity/networks/grpc",
	}
	for _, protocol := range entity.Protocols {
		stable = append(stable, "protocols/"+protocol.String())
	}

	for _, name := range stable {
		entries, ok := buckets[name]
		require.True(t, ok, "bucket %s missing", name)
		require.Empty(t, entries, "bucket %s should be empty", name)
	}
	for name := range buckets {
		require.False(t, strings.HasPrefix(name, CountriesDir+"/"), "unexpected country bucket %s", name)
	}
}

func TestPartitioner_NonExclusive(t *testing.T) {
	item := labelled(entity.ProtocolTrojan, entity.TransportHTTP, entity.SecurityTLS, "3.3.3.3", "FR", "tr")
	buckets := NewPartitioner("").Partition([]*entity.EnrichedDescriptor{item})

	count := 0
	for _, b := range buckets {
		if strings.HasPrefix(b.Name, SubscribeDir+"/") {
			continue
		}
		for _, e := range b.Entries {
			if e == "tr" {
				count++
			}
		}
	}
	// mixed, protocol, security, network, layer, country
	require.Equal(t, 6, count)
}

func TestPartitioner_Banner(t *testing.T) {
	item := labelled(entity.ProtocolVLess, entity.TransportTCP, entity.SecurityNone, "1.1.1.1", "DE", "vl")
	buckets := bucketMap(NewPartitioner("banner").Partition([]*entity.EnrichedDescriptor{item}))

	require.Equal(t, []string{"banner", "vl"}, buckets[MixedBucket])
	require.Equal(t, []string{"vl"}, buckets["protocols/vless"])
}

func TestCountries(t *testing.T) {
	buckets := []entity.Bucket{
		{Name: "countries/us/mixed"},
		{Name: "countries/de/mixed"},
		{Name: "protocols/vless"},
		{Name: "countries/README.md"},
	}
	require.Equal(t, []string{"de", "us"}, Countries(buckets))
}
