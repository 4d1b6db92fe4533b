package textutil

import (
	"strings"
)

const maxSegmentLength = 50

// SanitizeSegment produces a filesystem-safe path segment from a free-form
// title. Invalid characters and spaces become underscores; overly long
// segments are truncated.
func SanitizeSegment(value string) string {
	var b strings.Builder
	prevUnderscore := false
	for _, r := range strings.TrimSpace(value) {
		switch {
		case r == '<' || r == '>' || r == ':' || r == '"' || r == '/' || r == '\\' || r == '|' || r == '?' || r == '*':
			if !prevUnderscore {
				b.WriteByte('_')
				prevUnderscore = true
			}
		case r == ' ' || r == '\t':
			if !prevUnderscore {
				b.WriteByte('_')
				prevUnderscore = true
			}
		case r < 0x20:
			// Drop control characters outright.
		default:
			b.WriteRune(r)
			prevUnderscore = false
		}
	}
	sanitized := strings.Trim(b.String(), "_")
	if sanitized == "" {
		return "untitled"
	}
	runes := []rune(sanitized)
	if len(runes) > maxSegmentLength {
		sanitized = string(runes[:maxSegmentLength])
		sanitized = strings.TrimRight(sanitized, "_")
	}
	return sanitized
}
