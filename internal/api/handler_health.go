package api

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/subagg/resin/internal/orchestrator"
)

// CheckStatus is a single health sub-check's outcome.
type CheckStatus string

const (
	CheckUp   CheckStatus = "up"
	CheckDown CheckStatus = "down"
)

// HealthCheck is one named sub-check in the health schema.
type HealthCheck struct {
	Name   string      `json:"name"`
	Status CheckStatus `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

// HealthResponse is the full `GET /api/health` body.
type HealthResponse struct {
	Status CheckStatus   `json:"status"`
	Checks []HealthCheck `json:"checks"`
}

// HandleHealth returns a handler for GET /api/health. It reports the
// output directory's writability and the freshness of the last sync as
// independent sub-checks, returning 503 the moment either is down.
func HandleHealth(outputDir, dataDir string, staleAfter time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := []HealthCheck{
			checkOutputDir(outputDir),
			checkLastSync(dataDir, staleAfter),
		}
		status := CheckUp
		httpStatus := http.StatusOK
		for _, c := range checks {
			if c.Status == CheckDown {
				status = CheckDown
				httpStatus = http.StatusServiceUnavailable
				break
			}
		}
		WriteJSON(w, httpStatus, HealthResponse{Status: status, Checks: checks})
	}
}

func checkOutputDir(outputDir string) HealthCheck {
	if info, err := os.Stat(outputDir); err != nil || !info.IsDir() {
		return HealthCheck{Name: "output_dir", Status: CheckDown, Detail: "output directory missing"}
	}
	return HealthCheck{Name: "output_dir", Status: CheckUp}
}

func checkLastSync(dataDir string, staleAfter time.Duration) HealthCheck {
	status, err := orchestrator.LoadSyncStatus(filepath.Join(dataDir, "sync_status.json"))
	if err != nil {
		return HealthCheck{Name: "last_sync", Status: CheckDown, Detail: err.Error()}
	}
	if status.LastRunAt.IsZero() {
		return HealthCheck{Name: "last_sync", Status: CheckDown, Detail: "no sync has completed yet"}
	}
	if staleAfter > 0 && time.Since(status.LastRunAt) > staleAfter {
		return HealthCheck{Name: "last_sync", Status: CheckDown, Detail: "last sync is stale"}
	}
	return HealthCheck{Name: "last_sync", Status: CheckUp}
}
