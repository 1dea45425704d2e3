package summarizer

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Extractive builds summaries from the highest-scoring sentences of the input.
// It never invents text and needs no model.
type Extractive struct{}

func NewExtractive() Extractive { return Extractive{} }

type scoredSentence struct {
	pos   int
	text  string
	score float64
}

func (Extractive) Summarize(_ context.Context, text string, minLen, maxLen int) (string, error) {
	return Summarize(text, minLen, maxLen), nil
}

// Summarize scores each sentence by the mean corpus frequency of its tokens,
// takes the best ones until minLen characters are covered, restores their
// original order and trims to maxLen.
func Summarize(text string, minLen, maxLen int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}

	sents := splitSentences(text)
	if len(sents) == 0 {
		return truncateRunes(text, maxLen)
	}

	all := tokens(text)
	if len(all) == 0 {
		return truncateRunes(sents[0], maxLen)
	}
	freq := make(map[string]int, len(all))
	for _, t := range all {
		freq[t]++
	}

	scored := make([]scoredSentence, len(sents))
	for i, s := range sents {
		toks := tokens(s)
		var score float64
		if len(toks) > 0 {
			sum := 0
			for _, t := range toks {
				sum += freq[t]
			}
			score = float64(sum) / float64(len(toks))
		}
		scored[i] = scoredSentence{pos: i, text: s, score: score}
	}
	ranked := make([]scoredSentence, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].score > ranked[b].score })

	var selected []scoredSentence
	total := 0
	for _, s := range ranked {
		if total >= minLen {
			break
		}
		selected = append(selected, s)
		total += utf8.RuneCountInString(s.text)
	}

	if len(selected) == 0 {
		return truncateRunes(ranked[0].text, maxLen)
	}

	sort.SliceStable(selected, func(a, b int) bool { return selected[a].pos < selected[b].pos })
	summary := join(selected)

	if utf8.RuneCountInString(summary) > maxLen {
		if len(selected) > 1 {
			summary = join(selected[:len(selected)-1])
		}
		return truncateRunes(summary, maxLen)
	}

	if utf8.RuneCountInString(summary) < minLen {
		chosen := make(map[int]bool, len(selected))
		for _, s := range selected {
			chosen[s.pos] = true
		}
		for _, s := range scored {
			if utf8.RuneCountInString(summary) >= minLen {
				break
			}
			if chosen[s.pos] {
				continue
			}
			summary = strings.TrimSpace(summary + " " + s.text)
			if utf8.RuneCountInString(summary) >= maxLen {
				break
			}
		}
		summary = truncateRunes(summary, maxLen)
	}
	return summary
}

// splitSentences splits after '.', '?' or '!' when followed by whitespace.
func splitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !strings.ContainsRune(".?!", runes[i]) {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = j
		i = j - 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func tokens(s string) []string {
	return wordRe.FindAllString(strings.ToLower(s), -1)
}

func join(sents []scoredSentence) string {
	parts := make([]string, len(sents))
	for i, s := range sents {
		parts[i] = s.text
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
