// Package util provides shared utility functions used across the codebase.
package util

import (
	"strings"
	"unicode"
)

// TruncateString truncates a string to maxLen runes, adding "..." if truncated.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// SanitizeName normalizes a team or agent name into the safe filesystem
// identifier alphabet [a-z0-9-_]. Uppercase letters are lowered, runs of
// other characters collapse to a single hyphen, and leading/trailing
// hyphens are trimmed. Returns "" if nothing survives.
func SanitizeName(s string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLower(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
			lastHyphen = false
		case r == '-':
			if !lastHyphen {
				b.WriteRune('-')
				lastHyphen = true
			}
		default:
			if !lastHyphen {
				b.WriteRune('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// Slug converts free text into a short identifier suitable for filenames:
// lowercased, non-alphanumerics collapsed to hyphens, capped at maxLen runes.
func Slug(s string, maxLen int) string {
	out := SanitizeName(s)
	runes := []rune(out)
	if len(runes) > maxLen {
		out = strings.TrimRight(string(runes[:maxLen]), "-")
	}
	return out
}
