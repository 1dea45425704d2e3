package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Retrying retries a Provider with exponential backoff. Blank-text errors are
// returned immediately.
type Retrying struct {
	next     Provider
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

// WithRetry wraps next so each Embed makes up to attempts calls, sleeping
// backoff, 2×backoff, ... between them.
func WithRetry(next Provider, attempts int, backoff time.Duration, logger *slog.Logger) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrying{next: next, attempts: attempts, backoff: backoff, logger: logger}
}

func (r *Retrying) Model() string { return r.next.Model() }

func (r *Retrying) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	delay := r.backoff
	for attempt := 1; attempt <= r.attempts; attempt++ {
		vec, err := r.next.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		if errors.Is(err, ErrEmptyText) {
			return nil, err
		}
		lastErr = err
		r.logger.Warn("embedding attempt failed", "attempt", attempt, "of", r.attempts, "error", err)

		if attempt == r.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, fmt.Errorf("embedding failed after %d attempts: %w", r.attempts, lastErr)
}
