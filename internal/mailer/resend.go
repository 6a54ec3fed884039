// Package mailer delivers notification emails through the Resend HTTP API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the production Resend send endpoint.
const DefaultBaseURL = "https://api.resend.com/emails"

const defaultTimeout = 10 * time.Second

// Message is a plain-text email ready for dispatch.
type Message struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	Text    string
}

// APIError is a non-2xx response from the Resend API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mailer: resend returned status %d: %s", e.StatusCode, e.Body)
}

// Client sends email through Resend. A zero API key leaves the client
// unconfigured; Send then fails and Configured reports false, so the caller
// can surface a configuration error instead of attempting delivery.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option tweaks client construction.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithBaseURL points the client at a different send endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if strings.TrimSpace(baseURL) != "" {
			c.baseURL = baseURL
		}
	}
}

// NewClient builds a Resend client.
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    DefaultBaseURL,
		apiKey:     strings.TrimSpace(apiKey),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	ReplyTo string   `json:"reply_to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send posts the message and returns the provider message ID. The ID may be
// empty when the provider accepts the message but omits one.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("mailer: api key not configured")
	}

	body, err := json.Marshal(sendRequest{
		From:    msg.From,
		To:      []string{msg.To},
		ReplyTo: msg.ReplyTo,
		Subject: msg.Subject,
		Text:    msg.Text,
	})
	if err != nil {
		return "", fmt.Errorf("mailer: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("mailer: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("mailer: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var payload sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		// Delivery succeeded; an unreadable body only loses the ID.
		return "", nil
	}
	return payload.ID, nil
}
