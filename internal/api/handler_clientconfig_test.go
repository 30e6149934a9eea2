package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestHandleClientConfigServesExistingFileWithContentType(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mihomo.yaml"), []byte("proxies: []"), 0o644); err != nil {
		t.Fatal(err)
	}

	h := HandleClientConfig(dir, "mihomo.yaml")
	req := httptest.NewRequest(http.MethodGet, "/mihomo", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/x-yaml; charset=utf-8" {
		t.Errorf("content-type = %q", got)
	}
	if rec.Body.String() != "proxies: []" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestHandleClientConfigMissingFileReturns404(t *testing.T) {
	dir := t.TempDir()
	h := HandleClientConfig(dir, "v2ray.json")
	req := httptest.NewRequest(http.MethodGet, "/v2ray", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
