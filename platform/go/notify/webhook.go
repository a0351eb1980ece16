package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrNoEndpoint is returned when no webhook URL is configured for a topic.
var ErrNoEndpoint = errors.New("no webhook configured for topic")

// StatusError reports a non-2xx webhook response.
type StatusError struct {
	Topic Topic
	Code  int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook for %s responded %d", e.Topic, e.Code)
}

// Retryable reports whether repeating the request may succeed.
func (e *StatusError) Retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusRequestTimeout || e.Code == http.StatusTooManyRequests
}

// WebhookConfig configures a WebhookClient.
type WebhookConfig struct {
	URLs    map[Topic]string
	Timeout time.Duration
	// HTTPClient overrides the client used for requests; its Timeout is replaced by Timeout when set.
	HTTPClient *http.Client
}

// WebhookClient POSTs message payloads as JSON to per-topic URLs.
type WebhookClient struct {
	urls    map[Topic]string
	timeout time.Duration
	client  *http.Client
}

// NewWebhookClient builds a WebhookClient. Topics without a URL fail with ErrNoEndpoint.
func NewWebhookClient(cfg WebhookConfig) *WebhookClient {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	urls := make(map[Topic]string, len(cfg.URLs))
	for topic, url := range cfg.URLs {
		if url != "" {
			urls[topic] = url
		}
	}

	return &WebhookClient{urls: urls, timeout: timeout, client: client}
}

// Send implements Sender. Any 2xx response counts as delivered.
func (c *WebhookClient) Send(ctx context.Context, msg Message) error {
	url, ok := c.urls[msg.Topic]
	if !ok {
		return backoff.Permanent(fmt.Errorf("%w: %s", ErrNoEndpoint, msg.Topic))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(msg.Payload))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Notification-Id", msg.ID.String())
	if msg.RequestID != "" {
		req.Header.Set("X-Request-Id", msg.RequestID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s webhook: %w", msg.Topic, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Topic: msg.Topic, Code: resp.StatusCode}
		if !statusErr.Retryable() {
			return backoff.Permanent(statusErr)
		}
		return statusErr
	}
	return nil
}
