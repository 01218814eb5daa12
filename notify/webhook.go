package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"

	ihttp "github.com/randalmurphal/interviewroom/http"
)

// =============================================================================
// WebhookNotifier
// =============================================================================

// Webhook request headers. The delivery id is unique per POST so receivers
// can drop duplicates.
const (
	HeaderEvent    = "X-Interviewroom-Event"
	HeaderDelivery = "X-Interviewroom-Delivery"
)

// WebhookNotifier posts events as JSON to an HTTP endpoint.
type WebhookNotifier struct {
	URL     string
	Headers map[string]string
	Client  *http.Client
}

// webhookPayload is the event plus the name of the sending client.
type webhookPayload struct {
	Source string `json:"source"`
	Event
}

// NewWebhookNotifier creates a webhook notifier. headers are added to every
// request, e.g. an Authorization header for the receiver.
func NewWebhookNotifier(url string, headers map[string]string) *WebhookNotifier {
	return &WebhookNotifier{
		URL:     url,
		Headers: headers,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify implements Notifier. A non-2xx answer is returned as an
// *http.APIError with Service "webhook".
func (n *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	body, err := json.Marshal(webhookPayload{Source: "interviewroom", Event: event})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "interviewroom-webhook")
	req.Header.Set(HeaderEvent, string(event.Type))
	if id, err := nanoid.New(); err == nil {
		req.Header.Set(HeaderDelivery, id)
	}
	for k, v := range n.Headers {
		req.Header.Set(k, v)
	}

	resp, err := n.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return &ihttp.APIError{
			Service:    "webhook",
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(snippet)),
			Endpoint:   req.URL.Path,
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
