package domainservice

import (
	"fmt"
	"net/netip"
	"regexp"
	"strconv"
	"strings"

	"github.com/WangYihang/Config-Collector/pkg/domain/entity"
	"github.com/WangYihang/Config-Collector/pkg/infrastructure/geoip"
)

const (
	lockGlyph   = "\U0001F512"
	signalGlyph = "\U0001F4E1"
)

var (
	latencyRegex = regexp.MustCompile(`PING-(\d+(?:\.\d+)?)-MS`)
	// the code must be followed by the address so protocol codes never match
	countryRegex = regexp.MustCompile(`([A-Z]{2})-(?:\d|\[)`)
)

// Labeler implements service.Labeler
type Labeler struct{}

// NewLabeler creates a new labeler
func NewLabeler() *Labeler {
	return &Labeler{}
}

// Label renders the canonical single-line label
func (l *Labeler) Label(d *entity.Descriptor, ip netip.Addr, country string, latencyMs float64) string {
	if country == "" {
		country = geoip.Unknown
	}
	ip = ip.Unmap()
	host := ip.String()
	if ip.Is6() {
		host = "[" + host + "]"
	}

	return fmt.Sprintf("%s %s-%s-%s %s%s-%s:%d %s PING-%06.2f-MS",
		lockGlyph,
		d.Protocol().Code(), d.Transport.Code(), d.Security.Code(),
		geoip.Flag(country), country, host, d.Port,
		signalGlyph, latencyMs,
	)
}

// ParseLatency extracts the PING value of a label
func ParseLatency(label string) (float64, bool) {
	match := latencyRegex.FindStringSubmatch(label)
	if match == nil {
		return 0, false
	}
	latency, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return latency, true
}

// ParseCountry extracts the country code of a label
func ParseCountry(label string) (string, bool) {
	match := countryRegex.FindStringSubmatch(label)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// IsIPv6Label reports whether the label carries a bracketed address
func IsIPv6Label(label string) bool {
	return strings.Contains(label, "]:")
}
