// Package roomclient is a Go client for the watchparty HTTP API, including
// the cooperative long-poll loop used when streaming is unavailable.
package roomclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/goccy/go-json"
)

const authTokenHeader = "X-Auth-Token"

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Err        string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("watchparty: %d %s: %s", e.StatusCode, e.Err, e.Message)
	}
	return fmt.Sprintf("watchparty: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

var ErrNotJoined = errors.New("watchparty: join the room first")

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken resumes an existing participant instead of joining.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token is the participant id, empty before Join.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Execute sends params as JSON and decodes the response into res when res is
// non-nil. It returns the status code of successful responses.
func (c *Client) Execute(ctx context.Context, method, path string, params, res any) (int, error) {
	var body io.Reader
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, err
	}
	if params != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set(authTokenHeader, token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return resp.StatusCode, apiErr
	}

	if res != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(res); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) Get(ctx context.Context, path string, res any) error {
	_, err := c.Execute(ctx, http.MethodGet, path, nil, res)
	return err
}

func (c *Client) Post(ctx context.Context, path string, params, res any) error {
	_, err := c.Execute(ctx, http.MethodPost, path, params, res)
	return err
}

func (c *Client) Put(ctx context.Context, path string, params, res any) error {
	_, err := c.Execute(ctx, http.MethodPut, path, params, res)
	return err
}

func (c *Client) Delete(ctx context.Context, path string, res any) error {
	_, err := c.Execute(ctx, http.MethodDelete, path, nil, res)
	return err
}
