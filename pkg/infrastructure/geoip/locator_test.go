package geoip

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenMissingDatabase(t *testing.T) {
	locator, err := Open(filepath.Join(t.TempDir(), "missing.mmdb"))
	if err != nil {
		t.Fatalf("Missing database should not fail: %v", err)
	}
	defer locator.Close()

	if code := locator.Country(netip.MustParseAddr("8.8.8.8")); code != Unknown {
		t.Errorf("Country = %q, want %q", code, Unknown)
	}
}

func TestOpenCorruptDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.mmdb")
	if err := os.WriteFile(path, []byte("not a database"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if _, err := Open(path); err == nil {
		t.Error("Expected error for corrupt database")
	}
}

func TestNilLocator(t *testing.T) {
	var locator *Locator
	if code := locator.Country(netip.MustParseAddr("1.1.1.1")); code != Unknown {
		t.Errorf("Country = %q, want %q", code, Unknown)
	}
	if err := locator.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
}

func TestFlag(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"DE", "🇩🇪"},
		{"us", "🇺🇸"},
		{"XX", PirateFlag},
		{"NA", "🇳🇦"},
		{"", PirateFlag},
		{"D1", PirateFlag},
		{"USA", PirateFlag},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if result := Flag(tt.code); result != tt.expected {
				t.Errorf("Flag(%q) = %q, want %q", tt.code, result, tt.expected)
			}
		})
	}
}
