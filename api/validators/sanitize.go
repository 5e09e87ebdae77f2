package validators

import "strings"

// SanitizeString trims surrounding whitespace and caps free-text input such
// as comment bodies and return notes. The cut is rune-aware so a multi-byte
// character is never split.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 {
		return trimmed
	}
	runes := []rune(trimmed)
	if len(runes) <= maxLen {
		return trimmed
	}
	return strings.TrimSpace(string(runes[:maxLen]))
}
