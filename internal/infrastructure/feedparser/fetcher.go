package feedparser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"newsroom/internal/feed"
	"newsroom/internal/ports"
)

const maxFeedBytes = 8 << 20

// HTTPFetcher retrieves a source's feed document and parses it through the
// registered format strategies.
type HTTPFetcher struct {
	client   *http.Client
	registry *feed.Registry
}

var _ ports.FeedFetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher wires an HTTP client with the given per-request timeout.
func NewHTTPFetcher(client *http.Client, registry *feed.Registry, timeout time.Duration) *HTTPFetcher {
	if client == nil {
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPFetcher{client: client, registry: registry}
}

// Fetch downloads and parses one source. Feed documents are untrusted; the
// body read is capped and parse failures surface as source-level errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, src feed.Source) ([]feed.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "NewsroomPipeline/1.0")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	doc, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}

	parser, err := f.registry.Resolve(doc)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", src.ID, err)
	}

	entries, err := parser.Parse(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("parse %s feed: %w", parser.Name(), err)
	}

	return entries, nil
}
