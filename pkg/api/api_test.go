package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dochive/dochive/pkg/blobfs"
	"github.com/dochive/dochive/pkg/catalog"
	"github.com/dochive/dochive/pkg/engine"
	"github.com/dochive/dochive/pkg/metrics"
	"github.com/dochive/dochive/pkg/mime"
)

var pdfBytes = []byte("%PDF-1.4\nsample body\n%%EOF\n")

type envelope struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

func newTestServer(t *testing.T, mutate func(*engine.Config)) *httptest.Server {
	t.Helper()

	store, err := catalog.New(&catalog.Config{
		Type:   catalog.DatabaseTypeSQLite,
		SQLite: catalog.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := engine.Config{RootPath: t.TempDir()}
	if mutate != nil {
		mutate(&cfg)
	}

	m := metrics.New()
	e, err := engine.New(cfg, store, blobfs.New(), mime.NewIdentifier(), m)
	require.NoError(t, err)

	ts := httptest.NewServer(NewRouter(e, m))
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createBucket(t *testing.T, ts *httptest.Server, name string) {
	t.Helper()
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/buckets", map[string]string{"name": name})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func putObject(t *testing.T, ts *httptest.Server, bucket, key string, body []byte, claimed string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut,
		fmt.Sprintf("%s/api/buckets/%s/objects/%s", ts.URL, bucket, key),
		bytes.NewReader(body))
	require.NoError(t, err)
	if claimed != "" {
		req.Header.Set("X-Claimed-Content-Type", claimed)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestHappyPathUpload(t *testing.T) {
	ts := newTestServer(t, nil)
	createBucket(t, ts, "invoices")

	resp := putObject(t, ts, "invoices", "report.pdf", pdfBytes, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	info := decode[engine.ObjectInfo](t, resp)
	assert.Equal(t, "application/pdf", info.DetectedContentType)
	assert.Equal(t, "pdf", info.DetectedExtension)
	assert.False(t, info.IsMismatch)
	assert.Equal(t, int64(len(pdfBytes)), info.SizeBytes)
	assert.Len(t, info.DocID, 41)

	// Round trip by docId.
	get, err := http.Get(ts.URL + info.DownloadURL)
	require.NoError(t, err)
	defer get.Body.Close()
	require.Equal(t, http.StatusOK, get.StatusCode)

	data, err := io.ReadAll(get.Body)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, data)
	assert.Equal(t, "application/pdf", get.Header.Get("Content-Type"))
	assert.Equal(t, fmt.Sprintf(`"%s"`, info.SHA256), get.Header.Get("ETag"))
}

func TestDangerousMismatch(t *testing.T) {
	ts := newTestServer(t, func(c *engine.Config) {
		c.InlineContentTypes = []string{"application/pdf"}
	})
	createBucket(t, ts, "invoices")

	mz := append([]byte{0x4d, 0x5a, 0x90, 0x00}, make([]byte, 32)...)
	resp := putObject(t, ts, "invoices", "x.pdf", mz, "application/pdf")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	info := decode[engine.ObjectInfo](t, resp)
	assert.Equal(t, "application/x-msdownload", info.DetectedContentType)
	assert.True(t, info.IsMismatch)
	assert.True(t, info.IsDangerousMismatch)

	get, err := http.Get(ts.URL + info.DownloadURL)
	require.NoError(t, err)
	defer get.Body.Close()
	assert.True(t, strings.HasPrefix(get.Header.Get("Content-Disposition"), "attachment"),
		"dangerous mismatch must not render inline")
}

func TestDuplicateUpload(t *testing.T) {
	ts := newTestServer(t, nil)
	createBucket(t, ts, "docs")

	resp := putObject(t, ts, "docs", "dup.txt", []byte("one"), "")
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = putObject(t, ts, "docs", "dup.txt", []byte("two"), "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	env := decode[envelope](t, resp)
	assert.Equal(t, "ObjectAlreadyExists", env.Error.Code)
	assert.NotEmpty(t, env.Error.RequestID)
}

func TestBucketValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, name := range []string{"Invalid-Bucket", "192.168.1.1", "bucket-s3alias"} {
		t.Run(name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, ts.URL+"/api/buckets", map[string]string{"name": name})
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			env := decode[envelope](t, resp)
			assert.Equal(t, "InvalidBucketName", env.Error.Code)
		})
	}
}

func TestBucketLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	// Ensure is idempotent and returns 200 both times.
	for i := 0; i < 2; i++ {
		resp := doJSON(t, http.MethodPut, ts.URL+"/api/buckets/docs", nil)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	// Duplicate explicit create conflicts.
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/buckets", map[string]string{"name": "docs"})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Get reports counts.
	resp = putObject(t, ts, "docs", "a.txt", []byte("hello"), "")
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	get := doJSON(t, http.MethodGet, ts.URL+"/api/buckets/docs", nil)
	info := decode[engine.BucketInfo](t, get)
	assert.Equal(t, int64(1), info.ObjectCount)
	assert.Equal(t, int64(5), info.TotalSizeBytes)

	// Non-empty delete conflicts; empty delete is 204.
	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/buckets/docs", nil)
	env := decode[envelope](t, resp)
	assert.Equal(t, "BucketNotEmpty", env.Error.Code)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/buckets/docs/objects/by-name/a.txt", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/buckets/docs", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/buckets/docs", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestObjectByNameAndEncodedKeys(t *testing.T) {
	ts := newTestServer(t, nil)
	createBucket(t, ts, "docs")

	// Key uploaded with an encoded slash is stored decoded.
	resp := putObject(t, ts, "docs", "reports%2F2017%2Fjan.txt", []byte("january"), "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	info := decode[engine.ObjectInfo](t, resp)
	assert.Equal(t, "reports/2017/jan.txt", info.Filename)

	get, err := http.Get(ts.URL + "/api/buckets/docs/objects/by-name/reports/2017/jan.txt")
	require.NoError(t, err)
	defer get.Body.Close()
	require.Equal(t, http.StatusOK, get.StatusCode)
	data, _ := io.ReadAll(get.Body)
	assert.Equal(t, "january", string(data))

	// HEAD carries the same headers without a body.
	req, _ := http.NewRequest(http.MethodHead, ts.URL+"/api/buckets/docs/objects/by-name/reports/2017/jan.txt", nil)
	head, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer head.Body.Close()
	require.Equal(t, http.StatusOK, head.StatusCode)
	assert.Equal(t, "7", head.Header.Get("Content-Length"))
}

func TestInvalidFilename(t *testing.T) {
	ts := newTestServer(t, nil)
	createBucket(t, ts, "docs")

	resp := putObject(t, ts, "docs", "bad%20name.txt", []byte("x"), "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	env := decode[envelope](t, resp)
	assert.Equal(t, "InvalidFilename", env.Error.Code)
}

func TestListObjects(t *testing.T) {
	ts := newTestServer(t, nil)
	createBucket(t, ts, "docs")

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		resp := putObject(t, ts, "docs", name, []byte("x"), "")
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	type listResponse struct {
		Objects  []engine.ObjectInfo `json:"objects"`
		Page     int                 `json:"page"`
		PageSize int                 `json:"pageSize"`
		Total    int64               `json:"total"`
	}

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/buckets/docs/objects?page=1&pageSize=2", nil)
	list := decode[listResponse](t, resp)
	assert.Equal(t, int64(3), list.Total)
	assert.Len(t, list.Objects, 2)

	// Oversized pageSize clamps to 1000 and still succeeds.
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/buckets/docs/objects?pageSize=99999", nil)
	list = decode[listResponse](t, resp)
	assert.Equal(t, 1000, list.PageSize)
	assert.Len(t, list.Objects, 3)

	// Prefix filter.
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/buckets/docs/objects?prefix=b", nil)
	list = decode[listResponse](t, resp)
	assert.Equal(t, int64(1), list.Total)
}

func TestMultipartUpload(t *testing.T) {
	ts := newTestServer(t, nil)
	createBucket(t, ts, "docs")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("comment", "ignored non-file part"))
	part, err := w.CreateFormFile("file", "upload.pdf")
	require.NoError(t, err)
	_, err = part.Write(pdfBytes)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/buckets/docs/objects/form", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	info := decode[engine.ObjectInfo](t, resp)
	assert.Equal(t, "upload.pdf", info.Filename)
	assert.Equal(t, "application/pdf", info.DetectedContentType)
}

func TestMultipartWithoutFilePart(t *testing.T) {
	ts := newTestServer(t, nil)
	createBucket(t, ts, "docs")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("comment", "no file here"))
	require.NoError(t, w.Close())

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/buckets/docs/objects/form", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	env := decode[envelope](t, resp)
	assert.Equal(t, "InvalidContentType", env.Error.Code)
}

func TestCrossBucketAccess(t *testing.T) {
	ts := newTestServer(t, nil)
	createBucket(t, ts, "docs")

	resp := putObject(t, ts, "docs", "a.txt", []byte("hello"), "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	info := decode[engine.ObjectInfo](t, resp)

	get, err := http.Get(ts.URL + "/api/objects/" + info.DocID)
	require.NoError(t, err)
	defer get.Body.Close()
	require.Equal(t, http.StatusOK, get.StatusCode)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/objects/"+info.DocID, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	get2, err := http.Get(ts.URL + "/api/objects/" + info.DocID)
	require.NoError(t, err)
	defer get2.Body.Close()
	assert.Equal(t, http.StatusNotFound, get2.StatusCode)
}

func TestFileTooLarge(t *testing.T) {
	ts := newTestServer(t, func(c *engine.Config) {
		c.MaxUploadBytes = 8
	})
	createBucket(t, ts, "docs")

	resp := putObject(t, ts, "docs", "big.bin", bytes.Repeat([]byte("a"), 64), "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	env := decode[envelope](t, resp)
	assert.Equal(t, "FileTooLarge", env.Error.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "dochive_http_requests_total")
}
