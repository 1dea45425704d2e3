package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaSummarizer condenses text with a local model via /api/generate.
type OllamaSummarizer struct {
	ollamaURL string
	model     string
	client    *http.Client
}

func NewOllamaSummarizer(ollamaURL, model string) *OllamaSummarizer {
	return &OllamaSummarizer{
		ollamaURL: ollamaURL,
		model:     model,
		client: &http.Client{
			Timeout: 120 * time.Second, // LLM generation can be slow
		},
	}
}

const summaryPrompt = `Condense the following memory into a single plain-text passage between %d and %d characters.
Keep names, places and events. Do not add anything that is not in the text. Reply with the summary only.

Memory:
%s`

// ollamaRequest is the request body for Ollama /api/generate.
type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// ollamaResponse is the response body from Ollama /api/generate.
type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (s *OllamaSummarizer) Summarize(ctx context.Context, text string, minLen, maxLen int) (string, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:  s.model,
		Prompt: fmt.Sprintf(summaryPrompt, minLen, maxLen, text),
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(s.ollamaURL, "/") + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama returned %d: %s", resp.StatusCode, string(respBody))
	}

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}

	out := strings.TrimSpace(ollamaResp.Response)
	if out == "" {
		return "", fmt.Errorf("empty response from ollama")
	}
	return truncateRunes(out, maxLen), nil
}
