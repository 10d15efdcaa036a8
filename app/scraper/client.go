package scraper

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// RequestError is a transient network-level failure: transport error,
// timeout or a non-2xx response. The scheduler treats it as retryable.
type RequestError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("request to %s failed: HTTP %d", e.URL, e.StatusCode)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// baseHeaders is sent with every page request, mimicking a regular browser.
// Accept-Encoding is left to the transport, which negotiates gzip and
// decompresses the body on its own.
var baseHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
}

// Client fetches listing pages. The underlying http.Client is created
// lazily on first use and shared for the process lifetime.
type Client struct {
	once       sync.Once
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) client() *http.Client {
	c.once.Do(func() {
		c.httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	})
	return c.httpClient
}

// Fetch issues one GET for the given URL. The User-Agent is picked uniformly
// at random from the pool; an empty pool sends no User-Agent header. Non-2xx
// responses and transport failures yield a *RequestError. Retrying is the
// caller's responsibility.
func (c *Client) Fetch(ctx context.Context, url string, userAgents []string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range baseHeaders {
		req.Header.Set(key, value)
	}
	if len(userAgents) > 0 {
		req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	} else {
		// Empty string suppresses the net/http default agent entirely.
		req.Header.Set("User-Agent", "")
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return nil, &RequestError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{URL: url, Err: err}
	}

	return data, nil
}
