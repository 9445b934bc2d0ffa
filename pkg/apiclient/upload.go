package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-retryablehttp"
)

// maxErrorBody caps how much of an error response is kept as a message.
const maxErrorBody = 2000

// UploadResult is the outcome of one upload attempt.
type UploadResult struct {
	Success             bool
	AlreadyExists       bool
	DocID               string
	SHA256              string
	DetectedContentType string
	ErrorMessage        string
}

// uploadResponse is the subset of the engine's object response the
// migrator records.
type uploadResponse struct {
	DocID               string `json:"docId"`
	SHA256              string `json:"sha256"`
	DetectedContentType string `json:"detectedContentType"`
}

// doRequest builds and executes one request against the engine.
func (c *Client) doRequest(ctx context.Context, method, path string, body io.ReadSeeker, contentType string) (*http.Response, error) {
	var raw any
	if body != nil {
		raw = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, raw)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.httpClient.Do(req)
}

// Upload PUTs the document bytes to the engine. A 409 means another run
// already stored this filename; the record counts as migrated.
func (c *Client) Upload(ctx context.Context, bucket, filename string, data []byte, claimedContentType string, year int) (*UploadResult, error) {
	path := fmt.Sprintf("/api/buckets/%s/objects/%s?year=%d", bucket, url.PathEscape(filename), year)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, data)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if claimedContentType != "" {
		req.Header.Set("X-Claimed-Content-Type", claimedContentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload %s/%s: %w", bucket, filename, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var parsed uploadResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return nil, fmt.Errorf("decode upload response: %w", err)
		}
		return &UploadResult{
			Success:             true,
			DocID:               parsed.DocID,
			SHA256:              parsed.SHA256,
			DetectedContentType: parsed.DetectedContentType,
		}, nil

	case resp.StatusCode == http.StatusConflict:
		_, _ = io.Copy(io.Discard, resp.Body)
		return &UploadResult{Success: true, AlreadyExists: true}, nil

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &UploadResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)),
		}, nil
	}
}
