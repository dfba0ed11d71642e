package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/georgepapagapitos/plexify/internal/repository"
)

// WebhookSender posts sync lifecycle events to the webhook URL stored in
// settings. The URL is re-read per send so runtime changes apply without a
// restart. Delivery is best effort: a failed post is logged and dropped.
type WebhookSender struct {
	client   *http.Client
	settings *repository.SettingsRepository
}

func NewWebhookSender(settings *repository.SettingsRepository) *WebhookSender {
	return &WebhookSender{
		client:   &http.Client{Timeout: 10 * time.Second},
		settings: settings,
	}
}

// Send posts one event. A missing webhook URL disables delivery silently.
func (w *WebhookSender) Send(ctx context.Context, event string, payload interface{}) {
	url, err := w.settings.Get(repository.SettingWebhookURL)
	if err != nil {
		log.Printf("Webhook: read settings: %v", err)
		return
	}
	if url == "" {
		return
	}

	body := map[string]interface{}{
		"event":     event,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"payload":   payload,
	}
	if err := w.postJSON(ctx, url, body); err != nil {
		log.Printf("Webhook: send %s: %v", event, err)
	}
}

func (w *WebhookSender) postJSON(ctx context.Context, url string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
