package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsroom/internal/config"
	"newsroom/internal/domain"
	"newsroom/internal/ports"
)

func newTestGenerator(endpoint string) *ChatGenerator {
	return NewChatGenerator(config.GenerationConfig{
		Endpoint: endpoint,
		Model:    "test-model",
		APIKey:   "test-key",
		Timeout:  5 * time.Second,
	})
}

func TestChatGeneratorSplitsHeadlineFromBody(t *testing.T) {
	t.Parallel()

	var captured struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{
					"content": "# Garden Opens Downtown\n\nThe community garden opened on Saturday. Residents planted the first beds.",
				}},
			},
		})
	}))
	defer srv.Close()

	content, err := newTestGenerator(srv.URL).Generate(context.Background(), ports.GenerationRequest{
		SourceTitle: "Garden opening announced",
		SourceBody:  "The city announced a new garden.",
		Region:      "downtown",
		Category:    "local",
	})
	require.NoError(t, err)

	assert.Equal(t, "Garden Opens Downtown", content.Title)
	assert.Equal(t, "The community garden opened on Saturday. Residents planted the first beds.", content.Body)

	assert.Equal(t, "test-model", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[1].Content, "downtown")
	assert.Contains(t, captured.Messages[1].Content, "Garden opening announced")
}

func TestChatGeneratorUpstreamFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestGenerator(srv.URL).Generate(context.Background(), ports.GenerationRequest{SourceTitle: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
}

func TestChatGeneratorEmptyChoices(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := newTestGenerator(srv.URL).Generate(context.Background(), ports.GenerationRequest{SourceTitle: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
}

func TestChatGeneratorRejectsMissingCredentials(t *testing.T) {
	t.Parallel()

	gen := NewChatGenerator(config.GenerationConfig{Endpoint: "https://example.org", Model: "m"})
	_, err := gen.Generate(context.Background(), ports.GenerationRequest{SourceTitle: "x"})
	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
}
