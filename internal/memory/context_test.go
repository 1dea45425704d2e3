package memory

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
)

func scored(scores ...float64) []models.RetrievalResult {
	out := make([]models.RetrievalResult, len(scores))
	for i, s := range scores {
		out[i] = models.RetrievalResult{Score: s}
	}
	return out
}

func withText(texts ...string) []models.RetrievalResult {
	out := make([]models.RetrievalResult, len(texts))
	for i, t := range texts {
		out[i] = models.RetrievalResult{Record: &models.Record{ContentSummary: t}}
	}
	return out
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name    string
		results []models.RetrievalResult
		want    float64
	}{
		{"no results", nil, 0},
		{"single result is not boosted", scored(0.9), 0.9},
		{"strong set is boosted", scored(0.5, 0.4), 0.55},
		{"weak set is not boosted", scored(0.3, 0.2), 0.3},
		{"boost caps at one", scored(0.95, 0.9, 0.9), 1},
		{"only top three count", scored(0.5, 0.4, 0.2, 0.99), 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Confidence(tt.results), 1e-9)
		})
	}
}

func TestBuildContextJoinsInRankOrder(t *testing.T) {
	got := BuildContext(withText("first passage", "  second passage  ", ""))
	assert.Equal(t, "first passage\n\nsecond passage", got)
}

func TestBuildContextSkipsMissingRecords(t *testing.T) {
	results := append(withText("kept"), models.RetrievalResult{Score: 1})
	assert.Equal(t, "kept", BuildContext(results))
}

func TestBuildContextTruncatesTail(t *testing.T) {
	long := strings.Repeat("a", 1000)
	tail := strings.Repeat("b", 300)
	got := BuildContext(withText(long, tail, "never reached"))

	parts := strings.Split(got, "\n\n")
	assert.Len(t, parts, 2)
	assert.Equal(t, long, parts[0])
	assert.Equal(t, strings.Repeat("b", 200), parts[1])
}

func TestBuildContextDropsShortTail(t *testing.T) {
	long := strings.Repeat("a", 1150)
	got := BuildContext(withText(long, strings.Repeat("b", 200)))
	assert.Equal(t, long, got)
}

func TestBuildContextCountsRunes(t *testing.T) {
	first := strings.Repeat("é", 1000)
	got := BuildContext(withText(first, strings.Repeat("ü", 300)))
	assert.Equal(t, 1000+2+200, utf8.RuneCountInString(got))
}

func TestMakeSummary(t *testing.T) {
	assert.Equal(t, "short text", makeSummary("short text"))

	long := strings.Repeat("x", 151)
	assert.Equal(t, strings.Repeat("x", 150)+"...", makeSummary(long))

	exact := strings.Repeat("ö", 150)
	assert.Equal(t, exact, makeSummary(exact))
}
