package safety

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	DefaultMaxMessageLength = 2000
	FilteredMarker          = "[FILTERED]"
)

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+previous\s+instructions`),
	regexp.MustCompile(`(?i)system\s*:`),
	regexp.MustCompile(`(?i)assistant\s*:`),
	regexp.MustCompile(`(?i)<\s*system\s*>`),
	regexp.MustCompile(`(?i)override\s+rules`),
	regexp.MustCompile(`(?i)forget\s+everything`),
	regexp.MustCompile(`(?i)new\s+instructions`),
}

// Sanitize bounds a raw user message to maxLen runes, neutralizes prompt
// injection markers, collapses whitespace and drops control characters.
// An empty result means the message carried nothing usable.
func Sanitize(message string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxMessageLength
	}
	if r := []rune(message); len(r) > maxLen {
		message = string(r[:maxLen])
	}

	for _, p := range injectionPatterns {
		message = p.ReplaceAllString(message, FilteredMarker)
	}

	message = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, message)

	return strings.Join(strings.Fields(message), " ")
}
