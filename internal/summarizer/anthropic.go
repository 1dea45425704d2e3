package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicSummarizer condenses text with a hosted Claude model.
type AnthropicSummarizer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicSummarizer builds a summarizer. baseURL may be empty.
func NewAnthropicSummarizer(apiKey, model, baseURL string) *AnthropicSummarizer {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicSummarizer{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: 256,
	}
}

func (s *AnthropicSummarizer) Summarize(ctx context.Context, text string, minLen, maxLen int) (string, error) {
	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: s.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(fmt.Sprintf(summaryPrompt, minLen, maxLen, text))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic summarize: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("empty response from anthropic")
	}
	return truncateRunes(out, maxLen), nil
}
