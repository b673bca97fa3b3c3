package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type SlackConfig struct {
	WebhookURL string
	Channel    string
}

// SlackProvider posts messages through an incoming-webhook URL.
type SlackProvider struct {
	cfg    SlackConfig
	client *http.Client
}

func NewSlack(cfg SlackConfig) *SlackProvider {
	return &SlackProvider{
		cfg: cfg,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (p *SlackProvider) PostMessage(ctx context.Context, channel string, message string) error {
	if channel == "" {
		channel = p.cfg.Channel
	}

	payload, err := json.Marshal(map[string]string{
		"channel": channel,
		"text":    message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack webhook returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
