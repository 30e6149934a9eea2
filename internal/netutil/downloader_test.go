package netutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDirectDownloaderSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	d := NewDirectDownloader(5 * time.Second)
	body, status, contentType, err := d.Download(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if contentType != "text/plain" {
		t.Errorf("content-type = %q, want text/plain", contentType)
	}
	if string(body) != "hello" {
		t.Errorf("body = %q, want hello", body)
	}
}

func TestDirectDownloaderPassesThroughUpstreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := NewDirectDownloader(5 * time.Second)
	_, status, _, err := d.Download(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
}

func TestDirectDownloaderRespectsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDirectDownloader(5 * time.Millisecond)
	if _, _, _, err := d.Download(context.Background(), srv.URL); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestDirectDownloaderInvalidURL(t *testing.T) {
	d := NewDirectDownloader(time.Second)
	if _, _, _, err := d.Download(context.Background(), "://not-a-url"); err == nil {
		t.Fatal("expected error for malformed URL")
	}
}
