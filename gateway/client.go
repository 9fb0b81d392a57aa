package gateway

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

	"github.com/evopanel/evopanel/logger"
)

// DefaultTimeout bounds every gateway call; there is no retry, no
// circuit breaker, one best-effort attempt per call.
const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx response from the gateway, carrying the
// server-provided message when one was present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway API error (HTTP %d): %s", e.Status, e.Message)
}

// ErrDecode wraps responses whose body was not valid JSON.
var ErrDecode = errors.New("failed to decode gateway response")

// Client is the only integration point with the external messaging
// gateway. All instance lifecycle and messaging configuration flows
// through it.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

// NewClient fails fast when either the base URL or the API key is
// missing; the gateway is a hard dependency.
func NewClient(baseURL, apiKey string, log *logger.Logger) (*Client, error) {
	if baseURL == "" || apiKey == "" {
		return nil, errors.New("gateway: base URL and API key are required")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     log,
	}, nil
}

func (c *Client) Get(ctx context.Context, endpoint string) (map[string]interface{}, error) {
	return c.request(ctx, http.MethodGet, endpoint, nil)
}

func (c *Client) Post(ctx context.Context, endpoint string, payload interface{}) (map[string]interface{}, error) {
	return c.request(ctx, http.MethodPost, endpoint, payload)
}

func (c *Client) Put(ctx context.Context, endpoint string, payload interface{}) (map[string]interface{}, error) {
	return c.request(ctx, http.MethodPut, endpoint, payload)
}

func (c *Client) Delete(ctx context.Context, endpoint string) (map[string]interface{}, error) {
	return c.request(ctx, http.MethodDelete, endpoint, nil)
}

func (c *Client) buildURL(endpoint string) string {
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

func (c *Client) request(ctx context.Context, method, endpoint string, payload interface{}) (map[string]interface{}, error) {
	url := c.buildURL(endpoint)
	start := time.Now()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("gateway: encode payload: %w", err)
		}
		c.log.Debug("gateway request payload for %s: %s", url, raw)
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("gateway %s %s failed: %v", method, url, err)
		return nil, fmt.Errorf("gateway: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	c.log.Info("gateway %s %s - status %d - %s", method, url, resp.StatusCode, elapsed.Round(time.Millisecond))
	if err != nil {
		return nil, fmt.Errorf("gateway: read response: %w", err)
	}

	var decoded map[string]interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			snippet := raw
			if len(snippet) > 1000 {
				snippet = snippet[:1000]
			}
			c.log.Error("gateway: invalid JSON from %s: %s", url, snippet)
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: "unknown gateway error"}
		if msg := extractMessage(decoded); msg != "" {
			apiErr.Message = msg
		}
		c.log.Error("gateway %s %s: %s", method, url, apiErr.Message)
		return decoded, apiErr
	}

	return decoded, nil
}

// extractMessage digs the server's message field out of the response;
// the gateway reports it either as a string or as a list of strings.
func extractMessage(body map[string]interface{}) string {
	switch msg := body["message"].(type) {
	case string:
		return msg
	case []interface{}:
		parts := make([]string, 0, len(msg))
		for _, m := range msg {
			if s, ok := m.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}
