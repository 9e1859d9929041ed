package geoip

import "strings"

// PirateFlag is shown for the unknown country and malformed codes
const PirateFlag = "\U0001F3F4\u200D\u2620\uFE0F"

// regionalIndicatorOffset maps 'A' onto U+1F1E6
const regionalIndicatorOffset = 127397

// Flag returns the emoji flag of a two letter country code
func Flag(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 || code == Unknown {
		return PirateFlag
	}
	var b strings.Builder
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return PirateFlag
		}
		b.WriteRune(c + regionalIndicatorOffset)
	}
	return b.String()
}
