// Package apiclient is the HTTP client the migration worker uses to push
// documents into the storage engine. Transient failures are retried with
// backoff; each call is bounded by a five-minute timeout.
package apiclient

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// callTimeout bounds one HTTP call including the body transfer.
const callTimeout = 5 * time.Minute

// Client talks to the storage engine API.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
}

// New creates a client for the given base URL (e.g. "http://localhost:8080").
func New(baseURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 10 * time.Second
	rc.HTTPClient.Timeout = callTimeout
	rc.Logger = nil

	return &Client{
		baseURL:    baseURL,
		httpClient: rc,
	}
}

// WithHTTPClient swaps the underlying client, mainly for tests that need
// shorter timeouts.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.HTTPClient = hc
	rc.Logger = nil
	return &Client{baseURL: c.baseURL, httpClient: rc}
}
