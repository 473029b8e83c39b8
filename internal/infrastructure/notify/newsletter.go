package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"newsroom/internal/ports"
)

// NewsletterClient hands the day's published digest to the external
// newsletter collaborator over a webhook.
type NewsletterClient struct {
	webhookURL string
	client     *http.Client
}

var _ ports.NewsletterNotifier = (*NewsletterClient)(nil)

// NewNewsletterClient registers the webhook endpoint.
func NewNewsletterClient(webhookURL string) *NewsletterClient {
	return &NewsletterClient{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// SendDigest posts the JSON digest payload.
func (n *NewsletterClient) SendDigest(ctx context.Context, payload []byte) error {
	if n.webhookURL == "" {
		return fmt.Errorf("newsletter notifier misconfigured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("newsletter webhook error: %s", resp.Status)
	}

	return nil
}
