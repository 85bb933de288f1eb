package addon

import (
	"regexp"
	"strings"
)

var cleanPattern = regexp.MustCompile(`\[.*\]|\d+\.\d+`)

// CleanText removes "[13.0]", "[IMP]" style tags and bare versions from text.
func CleanText(text string) string {
	return strings.TrimSpace(cleanPattern.ReplaceAllString(text, ""))
}

// NormalizeMessage folds a commit message for tolerant comparison: line
// breaks and double spaces collapse to single spaces before tags and versions
// are stripped.
func NormalizeMessage(message string) string {
	folded := strings.ReplaceAll(message, "\n", " ")
	folded = strings.ReplaceAll(folded, "  ", " ")

	return CleanText(folded)
}

// MentionsAddon reports whether name appears in text as a whole addon name,
// so that "a_b" does not match "a_b_c".
func MentionsAddon(name, text string) bool {
	pattern := `(^|\W)` + regexp.QuoteMeta(name) + `($|\W)`

	return regexp.MustCompile(pattern).MatchString(text)
}
