// Package api is the REST client for the storefront backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/shopverse/internal/repository"
)

// maxBody caps how much of a response body is read.
const maxBody = 4 << 20

var (
	_ repository.Bearer        = (*Client)(nil)
	_ repository.AuthRemote    = (*Client)(nil)
	_ repository.ProfileRemote = (*Client)(nil)
	_ repository.CartRemote    = (*Client)(nil)
	_ repository.CatalogRemote = (*Client)(nil)
)

// Client talks JSON over HTTP to the backend. The bearer token is process-wide:
// once armed it is attached to every request until cleared.
type Client struct {
	base *url.URL
	http *http.Client
	log  *zap.Logger

	mu    sync.RWMutex
	token string
}

// New constructs a client for baseURL (e.g. http://localhost:5000/api).
func New(baseURL string, timeout time.Duration, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api base url: unsupported scheme %q", u.Scheme)
	}
	return &Client{
		base: u,
		http: &http.Client{
			Timeout:   timeout,
			Transport: newTransport(http.DefaultTransport, log),
		},
		log: log,
	}, nil
}

// SetBearer arms the credential for all future requests.
func (c *Client) SetBearer(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// ClearBearer disarms the credential.
func (c *Client) ClearBearer() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// CloseIdle drops pooled connections.
func (c *Client) CloseIdle() { c.http.CloseIdleConnections() }

// Bearer returns the armed token, if any.
func (c *Client) Bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawPath = ""
	if strings.Contains(path, "%") {
		u.RawPath = strings.TrimRight(c.base.EscapedPath(), "/") + path
	}
	return u.String()
}

// do sends in as JSON (when non-nil) and decodes the response into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// IsTransport reports whether err happened before any HTTP status was received.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *Error
	return !errors.As(err, &apiErr)
}
