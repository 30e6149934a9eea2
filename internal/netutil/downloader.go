// Package netutil holds small HTTP helpers shared outside the sync
// pipeline proper — currently just the direct downloader backing the
// HTTP facade's GitHub passthrough route.
package netutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Downloader fetches a remote resource and returns its body alongside the
// upstream status code and content type, so a passthrough handler can
// mirror them without re-deriving anything.
type Downloader interface {
	Download(ctx context.Context, url string) (body []byte, status int, contentType string, err error)
}

// DirectDownloader downloads via a plain http.Client, no proxy.
type DirectDownloader struct {
	Client  *http.Client
	Timeout time.Duration
}

// NewDirectDownloader creates a downloader bounded by timeout.
func NewDirectDownloader(timeout time.Duration) *DirectDownloader {
	return &DirectDownloader{Timeout: timeout}
}

// Download fetches url and returns its body, status, and content type.
func (d *DirectDownloader) Download(ctx context.Context, url string) ([]byte, int, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, "", fmt.Errorf("downloader: %w", err)
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, "", fmt.Errorf("downloader: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, "", fmt.Errorf("downloader: %w", err)
	}
	return body, resp.StatusCode, resp.Header.Get("Content-Type"), nil
}
