package embedding

import (
	"context"
	"errors"
)

// ErrEmptyText is returned when asked to embed blank text.
var ErrEmptyText = errors.New("cannot embed empty text")

// Provider produces a fixed-dimension embedding for a piece of text.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}
