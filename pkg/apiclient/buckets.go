package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// EnsureBucketExists checks for the bucket and creates it when missing.
// Returns true when the bucket exists afterwards.
func (c *Client) EnsureBucketExists(ctx context.Context, name string) (bool, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/buckets/"+name, nil, "")
	if err != nil {
		return false, fmt.Errorf("get bucket %q: %w", name, err)
	}
	drain(resp)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		// Fall through to create.
	default:
		return false, fmt.Errorf("get bucket %q: unexpected status %d", name, resp.StatusCode)
	}

	body := fmt.Sprintf(`{"name":%q}`, name)
	resp, err = c.doRequest(ctx, http.MethodPost, "/api/buckets", strings.NewReader(body), "application/json")
	if err != nil {
		return false, fmt.Errorf("create bucket %q: %w", name, err)
	}
	drain(resp)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return true, nil
	}
	// A concurrent worker may have created it in between.
	if resp.StatusCode == http.StatusConflict {
		return true, nil
	}
	return false, fmt.Errorf("create bucket %q: unexpected status %d", name, resp.StatusCode)
}

// drain discards and closes a response body so the connection is reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
