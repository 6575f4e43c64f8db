package text

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

const (
	// MaxLength is the default rune cap applied by Sanitize.
	MaxLength = 500

	// Placeholder replaces text that is empty after sanitization.
	Placeholder = "N/A"
)

// strictPolicy removes every HTML element, keeping only text content.
var strictPolicy = bluemonday.StrictPolicy()

// Sanitize prepares untrusted feed text for delivery, capped at MaxLength runes.
func Sanitize(s string) string {
	return SanitizeN(s, MaxLength)
}

// SanitizeN decodes HTML entities, removes control characters and the markup-significant
// characters '<', '>' and '&', trims surrounding whitespace and caps the result at max
// runes. An empty result becomes Placeholder.
//
// Newlines and tabs are kept; every other control character is dropped.
func SanitizeN(s string, max int) string {
	if out := clean(s, max); out != "" {
		return out
	}
	return Placeholder
}

func clean(s string, max int) string {
	s = html.UnescapeString(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '&':
			return -1
		case '\n', '\t':
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return Truncate(strings.TrimSpace(s), max, "")
}

// StripHTML removes all tags from s, leaving text content with entities escaped.
func StripHTML(s string) string {
	return strictPolicy.Sanitize(s)
}

// Summary turns an HTML entry description into plain delivery text of at most max runes.
// An empty description stays empty rather than becoming Placeholder.
func Summary(s string, max int) string {
	return clean(StripHTML(s), max)
}
