package memory

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
)

const (
	maxContextChars  = 1200
	minTailChars     = 100
	insufficientText = "I don't have enough information to answer that question."
)

// Confidence derives an answer confidence from ranked results: the top score,
// boosted by 10% (capped at 1) when at least two results exist and the mean of
// the top three exceeds 0.4.
func Confidence(results []models.RetrievalResult) float64 {
	if len(results) == 0 {
		return 0
	}
	top := results[0].Score
	if len(results) < 2 {
		return top
	}
	n := min(3, len(results))
	var sum float64
	for _, r := range results[:n] {
		sum += r.Score
	}
	if sum/float64(n) > 0.4 {
		return math.Min(1, top*1.1)
	}
	return top
}

// BuildContext joins result texts in rank order, up to maxContextChars. A
// passage that does not fit is included as a truncated tail only when more
// than minTailChars of room remain.
func BuildContext(results []models.RetrievalResult) string {
	var parts []string
	used := 0
	for _, r := range results {
		if r.Record == nil {
			continue
		}
		text := strings.TrimSpace(r.Record.Text())
		if text == "" {
			continue
		}
		n := utf8.RuneCountInString(text)
		if used+n <= maxContextChars {
			parts = append(parts, text)
			used += n
			continue
		}
		if remaining := maxContextChars - used; remaining > minTailChars {
			parts = append(parts, string([]rune(text)[:remaining]))
		}
		break
	}
	return strings.Join(parts, "\n\n")
}

// makeSummary shortens text to 150 characters plus an ellipsis.
func makeSummary(text string) string {
	const limit = 150
	r := []rune(text)
	if len(r) <= limit {
		return text
	}
	return string(r[:limit]) + "..."
}
