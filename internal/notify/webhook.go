package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Webhook posts JSON payloads to the social service. Fire-and-forget:
// callers log a returned DeliveryError and never propagate it.
type Webhook struct {
	BaseURL string
	Client  *http.Client
}

func NewWebhook(baseURL string) *Webhook {
	return &Webhook{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Post sends payload as JSON to BaseURL+path. An empty BaseURL means the
// social service is not configured and the call is a no-op.
func (w *Webhook) Post(ctx context.Context, path string, payload any) error {
	if w.BaseURL == "" {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return &DeliveryError{Collaborator: "webhook", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Collaborator: "webhook", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return &DeliveryError{Collaborator: "webhook", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &DeliveryError{Collaborator: "webhook", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return nil
}
