package interpret

import (
	"regexp"
	"strings"
)

var suggestedSpecialtyTag = regexp.MustCompile(`(?i)\s*\[SUGGESTED_SPECIALTY:\s*([^\]]*)\]\s*$`)

// SplitSuggestedSpecialty strips a trailing "[SUGGESTED_SPECIALTY: name]"
// tag, and the whitespace before it, from a chat reply. The tag only counts
// when it ends the text; an occurrence mid-text is left alone. The name is
// returned as written, without vocabulary checks. Without a tag the text is
// returned unchanged.
func SplitSuggestedSpecialty(text string) (clean, specialty string, ok bool) {
	m := suggestedSpecialtyTag.FindStringSubmatchIndex(text)
	if m == nil {
		return text, "", false
	}
	clean = text[:m[0]]
	specialty = strings.TrimSpace(text[m[2]:m[3]])
	if specialty == "" {
		return clean, "", false
	}
	return clean, specialty, true
}
