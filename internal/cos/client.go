// Package cos uploads image blobs to the content-delivery bucket over its
// multipart upload API. The wire format is fixed by the remote store: a
// single-field multipart POST authorized by a signed credential header.
package cos

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Uploader pushes a named byte blob to the object store. Implementations
// must return an *UploadError when the store rejects the request.
type Uploader interface {
	Upload(ctx context.Context, auth, key string, r io.Reader) error
}

// UploadError reports a non-success status returned by the object store.
type UploadError struct {
	Key        string
	StatusCode int
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("cos: upload %q rejected with status %d", e.Key, e.StatusCode)
}

// Client talks to a COS-style bucket endpoint.
type Client struct {
	host   string // endpoint base, trailing slash included
	bucket string
	creds  Credentials
	ttl    time.Duration
	http   *http.Client
}

// NewClient builds a Client for the given endpoint and credentials.
// timeout bounds each upload call end to end; a hung store call fails the
// request instead of hanging it indefinitely.
func NewClient(host, bucket string, creds Credentials, ttl, timeout time.Duration) *Client {
	return &Client{
		host:   strings.TrimRight(host, "/") + "/",
		bucket: bucket,
		creds:  creds,
		ttl:    ttl,
		http:   &http.Client{Timeout: timeout},
	}
}

// Sign produces one authorization credential covering a whole ingestion
// request; the three variant uploads share it.
func (c *Client) Sign() string {
	return c.creds.Sign(time.Now(), c.ttl)
}

// Upload POSTs the blob to <host><bucket>/image/<key> as a multipart body
// with the payload under field "filecontent". It waits for the remote
// acknowledgment; a non-2xx status is surfaced as an *UploadError carrying
// the store's status code. No retries.
func (c *Client) Upload(ctx context.Context, auth, key string, r io.Reader) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("op", "upload"); err != nil {
		return fmt.Errorf("cos: write field: %w", err)
	}
	if err := mw.WriteField("insertOnly", "0"); err != nil {
		return fmt.Errorf("cos: write field: %w", err)
	}
	fw, err := mw.CreateFormFile("filecontent", key)
	if err != nil {
		return fmt.Errorf("cos: create file field: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return fmt.Errorf("cos: read payload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("cos: finalize body: %w", err)
	}

	url := c.host + c.bucket + "/image/" + key
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return fmt.Errorf("cos: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Content-Length", strconv.Itoa(body.Len()))
	req.Header.Set("Authorization", auth)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cos: upload %q: %w", key, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UploadError{Key: key, StatusCode: resp.StatusCode}
	}
	return nil
}
