package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newsroom/internal/config"
	"newsroom/internal/domain"
	"newsroom/internal/ports"
)

// ChatGenerator implements ports.TextGenerator backed by OpenAI-compatible
// chat-completion APIs. Each call is at-most-once; retry belongs to the
// orchestrator via re-selection on a later run.
type ChatGenerator struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.TextGenerator = (*ChatGenerator)(nil)

// NewChatGenerator builds a client from configuration.
func NewChatGenerator(cfg config.GenerationConfig) *ChatGenerator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChatGenerator{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// Generate assembles the prompt and returns the draft article text.
func (c *ChatGenerator) Generate(ctx context.Context, req ports.GenerationRequest) (ports.GeneratedContent, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return ports.GeneratedContent{}, fmt.Errorf("%w: generation client misconfigured", domain.ErrUpstreamFailure)
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt)},
			{"role": "user", "content": buildUserPrompt(req)},
		},
	})
	if err != nil {
		return ports.GeneratedContent{}, fmt.Errorf("marshal generation payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return ports.GeneratedContent{}, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ports.GeneratedContent{}, fmt.Errorf("%w: call generator: %v", domain.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return ports.GeneratedContent{}, fmt.Errorf("%w: generator %s: %s",
			domain.ErrUpstreamFailure, resp.Status, strings.TrimSpace(string(payload)))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return ports.GeneratedContent{}, fmt.Errorf("%w: decode completion: %v", domain.ErrUpstreamFailure, err)
	}
	if len(completion.Choices) == 0 {
		return ports.GeneratedContent{}, fmt.Errorf("%w: completion has no choices", domain.ErrUpstreamFailure)
	}

	title, text := splitDraft(completion.Choices[0].Message.Content, req.SourceTitle)
	return ports.GeneratedContent{Title: title, Body: text}, nil
}

func buildUserPrompt(req ports.GenerationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a short news article for the %s neighborhood", orAny(req.Region))
	if req.Category != "" {
		fmt.Fprintf(&b, " in the %s category", req.Category)
	}
	b.WriteString(".\nStart with a headline on the first line.\n\n")
	fmt.Fprintf(&b, "Source headline: %s\n\nSource material:\n%s\n", req.SourceTitle, req.SourceBody)
	return b.String()
}

// splitDraft treats the first non-empty line as the headline and the rest as body.
func splitDraft(content, fallbackTitle string) (string, string) {
	lines := strings.Split(strings.TrimSpace(content), "\n")

	title := ""
	bodyStart := 0
	for i, line := range lines {
		line = strings.TrimSpace(strings.Trim(line, "#* "))
		if line != "" {
			title = line
			bodyStart = i + 1
			break
		}
	}

	body := strings.TrimSpace(strings.Join(lines[bodyStart:], "\n"))
	if title == "" {
		title = fallbackTitle
	}
	if body == "" {
		body = strings.TrimSpace(content)
	}
	return title, body
}

func orAny(region string) string {
	if strings.TrimSpace(region) == "" {
		return "local"
	}
	return region
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You write concise neighborhood news articles from source material."
	}
	return prompt
}
