package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Durations breaks a run's wall-clock cost down by pipeline stage.
type Durations struct {
	FetchMs int64 `json:"fetch_ms"`
	ProbeMs int64 `json:"probe_ms"`
	EmitMs  int64 `json:"emit_ms"`
}

// SyncStatus is the persisted record of the most recent run. FinalNodeCount
// is read back on the next run to compute "change since last sync" for the
// completion notification.
//
// GenTimeMs is always written explicitly — zero when no artifact was
// generated this run, rather than omitted — so every consumer of
// sync_status.json sees a stable schema whether or not this run reached
// the Emitter.
type SyncStatus struct {
	LastRunAt      time.Time `json:"last_run_at"`
	InputNodeCount int       `json:"input_node_count"`
	ValidNodeCount int       `json:"valid_node_count"`
	FinalNodeCount int       `json:"final_node_count"`
	GenTimeMs      int64     `json:"gen_time_ms"`
	Durations      Durations `json:"durations"`
}

// LoadSyncStatus reads path, returning a zero-value SyncStatus (not an
// error) when the file doesn't exist yet — the first run of a fresh
// deployment has no prior status to diff against.
func LoadSyncStatus(path string) (*SyncStatus, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &SyncStatus{}, nil
		}
		return nil, fmt.Errorf("orchestrator: read %s: %w", path, err)
	}
	var s SyncStatus
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("orchestrator: parse %s: %w", path, err)
	}
	return &s, nil
}

// Save persists s to path as indented JSON.
func (s *SyncStatus) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("orchestrator: mkdir %s: %w", filepath.Dir(path), err)
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("orchestrator: marshal sync status: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("orchestrator: write %s: %w", path, err)
	}
	return nil
}
