package domainservice

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// CountryName returns the English name of a two letter code
func CountryName(code string) string {
	region, err := language.ParseRegion(strings.ToUpper(code))
	if err != nil || !region.IsCountry() || region.IsPrivateUse() {
		return "Unknown"
	}
	if name := display.English.Regions().Name(region); name != "" {
		return name
	}
	return "Unknown"
}

// CountryTable renders a Markdown index of the per-country subscriptions.
// Links are relative to the countries directory.
func CountryTable(codes []string) string {
	type row struct {
		code string
		name string
	}
	rows := make([]row, 0, len(codes))
	for _, code := range codes {
		rows = append(rows, row{code: strings.ToUpper(code), name: CountryName(code)})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].name != rows[j].name {
			return rows[i].name < rows[j].name
		}
		return rows[i].code < rows[j].code
	})

	var b strings.Builder
	b.WriteString("| Code | Country | Subscription |\n")
	b.WriteString("|:----:|:--------|:------------:|\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %s | [Subscription Link](%s/mixed) |\n", r.code, r.name, strings.ToLower(r.code))
	}
	return b.String()
}
