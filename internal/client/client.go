// Package client is a thin JSON client for the archive REST API. The storage
// gateway and the autosave store issue all their network calls through it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/newsroom-authoring-api/internal/models"
	"github.com/rs/zerolog"
)

// HeaderIfMatch carries the concurrency token for conditional updates.
const HeaderIfMatch = "If-Match"

// HeaderSession identifies the editing session issuing the request. The
// server uses it to attribute locks and to skip echoing patches back to
// their author.
const HeaderSession = "X-Session-Id"

// Client issues JSON requests against the archive API.
type Client struct {
	baseURL   string
	sessionID string
	http      *http.Client
	log       zerolog.Logger
}

// New creates a client bound to one editing session.
func New(baseURL, sessionID string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		sessionID: sessionID,
		http:      &http.Client{Timeout: 30 * time.Second},
		log:       log.With().Str("component", "api-client").Logger(),
	}
}

// SessionID returns the editing-session id this client authenticates as.
func (c *Client) SessionID() string {
	return c.sessionID
}

// BaseURL returns the API root the client is bound to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get fetches path and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, nil, out)
}

// Post sends payload to path and decodes the response into out. out may be nil.
func (c *Client) Post(ctx context.Context, path string, payload, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, nil, payload, out)
}

// Put sends payload to path.
func (c *Client) Put(ctx context.Context, path string, payload interface{}) error {
	return c.do(ctx, http.MethodPut, path, nil, payload, nil)
}

// Patch sends a conditional partial update guarded by etag.
func (c *Client) Patch(ctx context.Context, path, etag string, payload, out interface{}) error {
	headers := map[string]string{HeaderIfMatch: etag}
	return c.do(ctx, http.MethodPatch, path, headers, payload, out)
}

// Delete removes the resource at path. A missing resource is not an error.
func (c *Client) Delete(ctx context.Context, path string) error {
	err := c.do(ctx, http.MethodDelete, path, nil, nil, nil)
	if err == models.ErrNotFound {
		return nil
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSession, c.sessionID)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.errorFromResponse(method, path, resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response from %s %s: %w", method, path, err)
		}
	}
	return nil
}

func (c *Client) errorFromResponse(method, path string, resp *http.Response) error {
	buf, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Msg("Request failed")

	switch resp.StatusCode {
	case http.StatusNotFound:
		return models.ErrNotFound
	case http.StatusPreconditionFailed:
		return models.ErrSaveConflict
	case http.StatusConflict:
		return models.ErrLockConflict
	}
	return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, string(buf))
}
