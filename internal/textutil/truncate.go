package textutil

import "unicode/utf8"

// TruncateUTF8 returns a prefix of s no longer than max bytes that ends
// on a rune boundary. It never splits a multi-byte sequence.
func TruncateUTF8(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}

	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
