// Package summarizer condenses record text during consolidation.
package summarizer

import (
	"context"
	"log/slog"
	"strings"
)

// Summarizer shortens text to roughly [minLen, maxLen] characters. It is best
// effort: callers treat an error or empty output as "keep the original".
type Summarizer interface {
	Summarize(ctx context.Context, text string, minLen, maxLen int) (string, error)
}

// Fallback tries primary and falls back to secondary on error or empty output.
type Fallback struct {
	primary   Summarizer
	secondary Summarizer
	logger    *slog.Logger
}

func WithFallback(primary, secondary Summarizer, logger *slog.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

func (f *Fallback) Summarize(ctx context.Context, text string, minLen, maxLen int) (string, error) {
	out, err := f.primary.Summarize(ctx, text, minLen, maxLen)
	if err == nil && strings.TrimSpace(out) != "" {
		return out, nil
	}
	if err != nil {
		f.logger.Warn("summarizer failed, using fallback", "error", err)
	}
	return f.secondary.Summarize(ctx, text, minLen, maxLen)
}

// truncateRunes cuts s to at most n runes and trims trailing space.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return strings.TrimRight(string(r), " \t\n\r")
}
