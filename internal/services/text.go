package services

import (
	"strings"
	"unicode/utf8"
)

// NoExtractableTextMessage replaces feedback when a document yields only whitespace.
const NoExtractableTextMessage = "document appears to contain no extractable text"

// TruncateChars returns the first n characters (runes, not bytes) of text.
func TruncateChars(text string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= n {
		return text
	}

	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}

// Preview shortens text for console output, marking the cut with "...".
func Preview(text string, n int) string {
	short := TruncateChars(text, n)
	if len(short) < len(text) {
		return short + "..."
	}
	return short
}

// IsBlank reports whether text has no visible characters.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
