// Package sos is a client for the remote accounting API: client directory
// listing, collection submission and receipt number lookup.
package sos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrUnauthorized is returned when no credential is configured or the
	// remote API refuses it.
	ErrUnauthorized = errors.New("sos: unauthorized")
	// ErrTokenExpired is returned when the credential's exp claim has passed.
	ErrTokenExpired = errors.New("sos: token expired")
)

// StatusError is a non-2xx response from the remote API.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Unwrap maps authorization statuses onto ErrUnauthorized.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}

// Options configures a Client.
type Options struct {
	BaseURL       string
	Token         string
	ListTimeout   time.Duration // directory listing and numbering lookup
	SubmitTimeout time.Duration // collection submission
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// Client talks to the remote accounting API. Every call is synchronous and
// is never retried.
type Client struct {
	baseURL       string
	token         string
	listTimeout   time.Duration
	submitTimeout time.Duration
	http          *http.Client
	logger        *slog.Logger
	now           func() time.Time
}

// New creates a Client.
func New(opts Options) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		token:         opts.Token,
		listTimeout:   opts.ListTimeout,
		submitTimeout: opts.SubmitTimeout,
		http:          opts.HTTPClient,
		logger:        opts.Logger,
		now:           time.Now,
	}
	if c.listTimeout <= 0 {
		c.listTimeout = 30 * time.Second
	}
	if c.submitTimeout <= 0 {
		c.submitTimeout = 60 * time.Second
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Token returns the credential the client authenticates with.
func (c *Client) Token() string {
	return c.token
}

// do sends one request with a bearer token and decodes a JSON response into
// out. Numbers decode as json.Number when out is a map or interface.
func (c *Client) do(ctx context.Context, method, url string, timeout time.Duration, body, out any) error {
	if err := CheckToken(c.token, c.now()); err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("sos request", "method", method, "url", url, "status", resp.StatusCode, "elapsed", c.now().Sub(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &StatusError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(detail)),
		}
	}

	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, url, err)
	}
	return nil
}
