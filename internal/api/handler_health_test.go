package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/subagg/resin/internal/orchestrator"
)

func TestHandleHealthUpWhenOutputDirExistsAndSyncFresh(t *testing.T) {
	outputDir := t.TempDir()
	dataDir := t.TempDir()
	status := &orchestrator.SyncStatus{LastRunAt: time.Now()}
	if err := status.Save(filepath.Join(dataDir, "sync_status.json")); err != nil {
		t.Fatal(err)
	}

	h := HandleHealth(outputDir, dataDir, time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Status != CheckUp {
		t.Errorf("status = %v, want up", resp.Status)
	}
}

func TestHandleHealthDownWhenOutputDirMissing(t *testing.T) {
	dataDir := t.TempDir()
	status := &orchestrator.SyncStatus{LastRunAt: time.Now()}
	if err := status.Save(filepath.Join(dataDir, "sync_status.json")); err != nil {
		t.Fatal(err)
	}

	h := HandleHealth(filepath.Join(dataDir, "does-not-exist"), dataDir, time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestHandleHealthDownWhenSyncStale(t *testing.T) {
	outputDir := t.TempDir()
	dataDir := t.TempDir()
	status := &orchestrator.SyncStatus{LastRunAt: time.Now().Add(-2 * time.Hour)}
	if err := status.Save(filepath.Join(dataDir, "sync_status.json")); err != nil {
		t.Fatal(err)
	}

	h := HandleHealth(outputDir, dataDir, time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 for a stale sync", rec.Code)
	}
}

func TestHandleHealthDownWhenNeverSynced(t *testing.T) {
	outputDir := t.TempDir()
	dataDir := t.TempDir()

	h := HandleHealth(outputDir, dataDir, time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 when no sync has ever run", rec.Code)
	}
}
