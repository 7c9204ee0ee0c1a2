package ebay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://api.ebay.com"

	maxRetries   = 3
	retryBackoff = 500 * time.Millisecond
	maxBackoff   = 4 * time.Second
)

// Client is the REST client for eBay's Sell and Taxonomy APIs. Server-side
// failures are retried with capped exponential backoff; client errors are
// surfaced immediately with eBay's message verbatim.
type Client struct {
	httpClient *http.Client
	tokens     *TokenManager
	baseURL    string
	log        zerolog.Logger
}

// NewClient creates an eBay API client.
func NewClient(tokens *TokenManager, log zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
		baseURL:    defaultBaseURL,
		log:        log,
	}
}

// NewClientWithBaseURL is used by tests to point at a stub server.
func NewClientWithBaseURL(tokens *TokenManager, baseURL string, log zerolog.Logger) *Client {
	c := NewClient(tokens, log)
	c.baseURL = baseURL
	return c
}

// APIError is a non-2xx response from eBay. Status distinguishes retryable
// 5xx from terminal 4xx; Body carries eBay's own message for the caller.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("eBay API error: %d - %s", e.Status, e.Body)
}

// Request performs an authenticated call with the user token.
func (c *Client) Request(ctx context.Context, method, endpoint string, body interface{}) (json.RawMessage, error) {
	return c.do(ctx, TokenUser, method, endpoint, body)
}

// AppRequest performs an authenticated call with the application token
// (Taxonomy API).
func (c *Client) AppRequest(ctx context.Context, method, endpoint string, body interface{}) (json.RawMessage, error) {
	return c.do(ctx, TokenApp, method, endpoint, body)
}

func (c *Client) do(ctx context.Context, kind TokenKind, method, endpoint string, body interface{}) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBackoff << (attempt - 1)
			if delay > maxBackoff {
				delay = maxBackoff
			}
			c.log.Warn().Err(lastErr).Int("attempt", attempt).Str("endpoint", endpoint).
				Msg("retrying eBay request")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := c.doOnce(ctx, kind, method, endpoint, payload)
		if err == nil {
			return result, nil
		}
		lastErr = err

		// Only server-side and transport failures are worth retrying; 4xx
		// is terminal.
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return nil, err
		}
	}
	return nil, fmt.Errorf("eBay request failed after %d retries: %w", maxRetries, lastErr)
}

func (c *Client) doOnce(ctx context.Context, kind TokenKind, method, endpoint string, payload []byte) (json.RawMessage, error) {
	token, err := c.tokens.GetValidToken(ctx, kind)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Language", "en-US")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusNoContent {
		return json.RawMessage(`{"success":true}`), nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if len(body) == 0 {
		return json.RawMessage(`{}`), nil
	}
	return json.RawMessage(body), nil
}
