package stringutils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CleanValue prepares text for storage as a memory value: invalid UTF-8,
// NUL and other control characters are dropped, runs of whitespace collapse
// to a single space and the result is trimmed.
func CleanValue(s string) string {
	if utf8.ValidString(s) && !hasControlChars(s) && !hasWhitespaceRun(s) {
		return strings.TrimSpace(s)
	}

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range strings.ToValidUTF8(s, "") {
		switch {
		case unicode.IsSpace(r):
			space = true
		case isControl(r) || !unicode.IsPrint(r):
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isControl(r rune) bool {
	return r < 32 || r == 127 || (r >= 128 && r <= 159)
}

// hasControlChars reports control characters other than a plain space.
func hasControlChars(s string) bool {
	for _, r := range s {
		if isControl(r) {
			return true
		}
	}
	return false
}

func hasWhitespaceRun(s string) bool {
	return strings.Contains(s, "  ")
}
