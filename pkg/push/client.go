package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Payload is the JSON body delivered to a browser push endpoint.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// Endpoint carries one registered push target with its key material.
type Endpoint struct {
	URL    string
	P256DH string
	Auth   string
}

// Client delivers push payloads over HTTP. Delivery is at-most-once and
// best-effort; callers log and swallow errors.
type Client struct {
	httpClient *http.Client
}

// NewClient constructs a push client with the given request timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// Send posts the payload to the endpoint. A non-2xx response is an error.
func (c *Client) Send(ctx context.Context, ep Endpoint, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("TTL", "86400")
	if ep.P256DH != "" {
		req.Header.Set("Crypto-Key", "p256ecdsa="+ep.P256DH)
	}
	if ep.Auth != "" {
		req.Header.Set("Authorization", "key="+ep.Auth)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push endpoint returned %d", resp.StatusCode)
	}
	return nil
}
