package download

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

var (
	ErrTooLarge = errors.New("response body exceeds download limit")
	ErrEmpty    = errors.New("empty response body")
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.Code, e.URL)
}

// ProgressFunc is called as bytes arrive; expected is -1 when the server didn't say.
type ProgressFunc func(downloaded int64, expected int64)

// Client wraps an http.Client with the behaviour every provider needs: a browser User-Agent, per-request timeouts,
// a ceiling on how much is read into memory, and optional progress reporting.
type Client struct {
	http      *http.Client
	userAgent string
	maxBytes  int64
	timeout   time.Duration
	progress  ProgressFunc
}

func NewClient() *Client {
	return &Client{
		http:      &http.Client{},
		userAgent: DefaultUserAgent,
		maxBytes:  200 << 20,
		timeout:   20 * time.Second,
	}
}

func (c *Client) clone() *Client {
	cc := *c
	return &cc
}

func (c *Client) WithHTTPClient(h *http.Client) *Client {
	cc := c.clone()
	cc.http = h
	return cc
}

func (c *Client) WithUserAgent(ua string) *Client {
	cc := c.clone()
	cc.userAgent = ua
	return cc
}

// WithMaxBytes sets the largest body Bytes will read; zero or negative disables the limit.
func (c *Client) WithMaxBytes(n int64) *Client {
	cc := c.clone()
	cc.maxBytes = n
	return cc
}

// WithTimeout sets the timeout applied to each request on top of the caller's context.
func (c *Client) WithTimeout(d time.Duration) *Client {
	cc := c.clone()
	cc.timeout = d
	return cc
}

func (c *Client) WithProgress(f ProgressFunc) *Client {
	cc := c.clone()
	cc.progress = f
	return cc
}

func (c *Client) HTTPClient() *http.Client {
	return c.http
}

func (c *Client) MaxBytes() int64 {
	return c.maxBytes
}

// Do sends req with the client's User-Agent (unless one is set) and fails on non-2xx status. The caller must close
// the body of the returned response.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, URL: req.URL.String()}
	}
	return resp, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

// GetJSON makes a GET request with the query parameters and decodes the JSON response into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, query url.Values, v any) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	if len(query) > 0 {
		rawURL = rawURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON response: %w", err)
	}
	return nil
}

// PostForm submits a URL-encoded form and returns the response body as text.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := c.read(ctx, resp.Body, resp.ContentLength)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Bytes downloads the whole body of a GET request, failing with ErrTooLarge past the client's limit.
func (c *Client) Bytes(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if c.maxBytes > 0 && resp.ContentLength > c.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}
	data, err := c.read(ctx, resp.Body, resp.ContentLength)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	return data, nil
}

// AllBytes downloads each URL in turn, as for Bytes.
func (c *Client) AllBytes(ctx context.Context, urls []string) ([][]byte, error) {
	result := make([][]byte, 0, len(urls))
	for i, u := range urls {
		data, err := c.Bytes(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		result = append(result, data)
	}
	return result, nil
}

// ReadAll reads a stream obtained elsewhere (e.g. from a provider SDK) under the same limit and progress reporting
// as Bytes.
func (c *Client) ReadAll(ctx context.Context, r io.Reader, expected int64) ([]byte, error) {
	return c.read(ctx, r, expected)
}

func (c *Client) read(ctx context.Context, r io.Reader, expected int64) ([]byte, error) {
	r = &readerContext{ctx: ctx, r: r}
	if c.maxBytes > 0 {
		r = io.LimitReader(r, c.maxBytes+1)
	}
	p := &progress{expected: expected, callback: c.progress}
	p.report()
	data, err := io.ReadAll(io.TeeReader(r, p))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if c.maxBytes > 0 && int64(len(data)) > c.maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// FinalURL follows redirects from a HEAD request and returns the URL that was finally reached, whatever status
// that URL answered with. Only transport errors are failures.
func (c *Client) FinalURL(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	resp.Body.Close()
	return resp.Request.URL.String(), nil
}
