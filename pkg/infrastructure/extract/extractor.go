package extract

import (
	"encoding/base64"
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Ellipsis marks previews truncated by the source, such candidates are unusable
const Ellipsis = "…"

var base64Body = regexp.MustCompile(`^[A-Za-z0-9+/=\s]+$`)

// CandidateExtractor finds proxy URIs in free text
type CandidateExtractor struct {
	uriRegex *regexp.Regexp
}

// NewCandidateExtractor creates extractor
func NewCandidateExtractor() *CandidateExtractor {
	return &CandidateExtractor{
		uriRegex: regexp.MustCompile("(?i)(?:vmess|vless|trojan|ss|tuic|hysteria2|hysteria|hy2|juicity)://[^\\s<>#\"'`]+"),
	}
}

// ExtractFromText returns every candidate in order of appearance, fragments removed.
// Whole-body base64 subscriptions are decoded first.
func (e *CandidateExtractor) ExtractFromText(text string) []string {
	text = html.UnescapeString(DecodeSubscription(text))

	var result []string
	for _, loc := range e.uriRegex.FindAllStringIndex(text, -1) {
		if loc[0] > 0 {
			prev, _ := utf8.DecodeLastRuneInString(text[:loc[0]])
			if prev == '-' || prev == '_' || unicode.IsLetter(prev) || unicode.IsDigit(prev) {
				continue
			}
		}
		match := text[loc[0]:loc[1]]
		if strings.Contains(match, Ellipsis) {
			continue
		}
		result = append(result, match)
	}
	return result
}

// DecodeSubscription decodes a whole-body base64 subscription, other content is returned as is
func DecodeSubscription(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" || !base64Body.MatchString(trimmed) {
		return content
	}
	compact := strings.Join(strings.Fields(trimmed), "")
	if len(compact)%4 != 0 {
		return content
	}
	decoded, err := base64.StdEncoding.DecodeString(compact)
	if err != nil || !utf8.Valid(decoded) {
		return content
	}
	return string(decoded)
}
