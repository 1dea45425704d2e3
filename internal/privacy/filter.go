// Package privacy removes author-marked passages before text is stored.
package privacy

import (
	"regexp"
	"strings"
)

// privateBlock matches <private>...</private> (non-greedy, spans lines).
var privateBlock = regexp.MustCompile(`(?s)<private>.*?</private>`)

// Redact drops every <private> block from text and trims the result. Text
// that was entirely private comes back empty.
func Redact(text string) string {
	if !strings.Contains(text, "<private>") {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(privateBlock.ReplaceAllString(text, ""))
}
