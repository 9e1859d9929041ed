package geoip

import (
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/netip"
	"os"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// Unknown is the country code used when no location is available
const Unknown = "XX"

// DefaultPath is the bundled country database location
const DefaultPath = "./geoip-lite/geoip-lite-country.mmdb"

// Locator implements service.GeoLocator over a MaxMind country database
type Locator struct {
	reader *geoip2.Reader
}

// Open opens the country database at path.
// A missing file yields a locator that answers Unknown for every address.
func Open(path string) (*Locator, error) {
	if path == "" {
		return &Locator{}, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		slog.Warn("geoip_database_missing", "path", path)
		return &Locator{}, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &Locator{reader: reader}, nil
}

// Country returns the upper-case ISO alpha-2 code of ip, or Unknown
func (l *Locator) Country(ip netip.Addr) string {
	if l == nil || l.reader == nil || !ip.IsValid() {
		return Unknown
	}
	record, err := l.reader.Country(net.IP(ip.Unmap().AsSlice()))
	if err != nil || record == nil {
		return Unknown
	}
	code := strings.ToUpper(record.Country.IsoCode)
	if len(code) != 2 {
		return Unknown
	}
	return code
}

// Close releases the database
func (l *Locator) Close() error {
	if l == nil || l.reader == nil {
		return nil
	}
	return l.reader.Close()
}
