// Package testutil holds deterministic collaborators for package tests.
package testutil

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
)

var ErrFake = errors.New("fake collaborator failure")

// HashEmbedder embeds text as a bag of lowercase tokens hashed into Dim
// buckets. Texts sharing words get similar vectors.
type HashEmbedder struct {
	Dim int

	mu    sync.Mutex
	calls int
}

func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty text")
	}
	dim := e.Dim
	if dim == 0 {
		dim = 64
	}
	v := make([]float32, dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		v[h.Sum32()%uint32(dim)]++
	}
	return v, nil
}

func (e *HashEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// StaticEmbedder returns fixed vectors per text and Fallback otherwise.
type StaticEmbedder struct {
	Vectors  map[string][]float32
	Fallback []float32
}

func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := e.Vectors[text]; ok {
		return v, nil
	}
	if e.Fallback == nil {
		return nil, ErrFake
	}
	return e.Fallback, nil
}

// FlakyEmbedder fails the first Failures calls, then delegates to Next.
type FlakyEmbedder struct {
	Failures int
	Next     interface {
		Embed(ctx context.Context, text string) ([]float32, error)
	}

	mu    sync.Mutex
	calls int
}

func (e *FlakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	n := e.calls
	e.mu.Unlock()
	if n <= e.Failures {
		return nil, ErrFake
	}
	return e.Next.Embed(ctx, text)
}

func (e *FlakyEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Summarizer returns Output, or Err when set. Calls records every input.
type Summarizer struct {
	Output string
	Err    error

	mu    sync.Mutex
	Calls []string
}

func (s *Summarizer) Summarize(_ context.Context, text string, _, _ int) (string, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, text)
	s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	return s.Output, nil
}

func (e *HashEmbedder) Model() string { return "hash" }

func (e *StaticEmbedder) Model() string { return "static" }

func (e *FlakyEmbedder) Model() string { return "flaky" }
