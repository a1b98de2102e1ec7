package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/debug"
)

// Client performs HTTP requests against an OpenAI-style backend. It is
// shared by the Chat Completions and Responses adapters, which differ only
// in the endpoints they call and the bodies they send.
type Client struct {
	httpClient   *http.Client
	streamClient *http.Client
	baseURL      string
	apiKey       string
}

// NewClient creates a Client. baseURL excludes the "/v1" path prefix.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/v1")

	if timeout == 0 {
		timeout = 120 * time.Second
	}

	transport := http.DefaultTransport
	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		// Streams can legitimately outlive any fixed timeout; the request
		// context bounds them instead.
		streamClient: &http.Client{Transport: transport},
		baseURL:      baseURL,
		apiKey:       apiKey,
	}
}

// BaseURL returns the normalized backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// PostJSON sends body to path and decodes a successful JSON response into out.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	httpResp, err := c.do(ctx, c.httpClient, http.MethodPost, path, body, false)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return api.NewServerError(fmt.Sprintf("failed to parse backend response: %s", err.Error()))
	}
	return nil
}

// GetJSON fetches path and decodes a successful JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	httpResp, err := c.do(ctx, c.httpClient, http.MethodGet, path, nil, false)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return api.NewServerError(fmt.Sprintf("failed to parse backend response: %s", err.Error()))
	}
	return nil
}

// PostStream sends body to path and returns the response for streaming.
// The caller owns the response body.
func (c *Client) PostStream(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.do(ctx, c.streamClient, http.MethodPost, path, body, true)
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body any, sse bool) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
		}
		debug.Trace("providers", "backend request", "method", method, "path", path, "body", debug.Truncate(string(data), 2000))
		reader = bytes.NewReader(data)
	}

	url := c.baseURL + path
	var httpReq *http.Request
	var err error
	if reader != nil {
		httpReq, err = http.NewRequestWithContext(ctx, method, url, reader)
	} else {
		httpReq, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}

	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if sse {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	debug.Log("providers", "backend request", "method", method, "url", url, "stream", sse)

	start := time.Now()
	httpResp, err := hc.Do(httpReq)
	if err != nil {
		return nil, MapNetworkError(err)
	}
	debug.Log("providers", "backend response", "status", httpResp.StatusCode, "duration", time.Since(start))

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		return nil, MapHTTPError(httpResp)
	}
	return httpResp, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	c.streamClient.CloseIdleConnections()
	return nil
}
