// Package text provides the text handling applied to feed entries before they are
// delivered: entity decoding, removal of markup and control characters, and
// rune-aware truncation.
package text

// CountRunes counts the number of Unicode characters (runes) in text.
// Multi-byte characters such as CJK text and emoji count as one each.
func CountRunes(text string) int {
	return len([]rune(text))
}

// Truncate shortens text to at most max runes. When text is cut, suffix is appended
// and counted toward max. A max smaller than the suffix yields a plain cut.
//
// Examples:
//
//	Truncate("hello world", 8, "...")  // "hello..."
//	Truncate("日本語のテキスト", 4, "")   // "日本語の"
//	Truncate("short", 10, "...")       // "short"
func Truncate(text string, max int, suffix string) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	suffixLen := CountRunes(suffix)
	if suffixLen >= max {
		return string(runes[:max])
	}
	return string(runes[:max-suffixLen]) + suffix
}
