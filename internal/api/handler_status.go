package api

import (
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/subagg/resin/internal/buildinfo"
	"github.com/subagg/resin/internal/config"
)

// StatusResponse is the `GET /api/status` body.
type StatusResponse struct {
	Version         string    `json:"version"`
	Uptime          string    `json:"uptime"`
	Environment     string    `json:"environment"`
	Timestamp       time.Time `json:"timestamp"`
	AdminTokenSet   bool      `json:"admin_token_set"`
	AdminTokenWeak  bool      `json:"admin_token_weak"`
}

// HandleStatus returns a handler for GET /api/status. environment is a
// free-form deployment label (e.g. "production", "dev"); startedAt is the
// process start time used to compute the humanized uptime.
func HandleStatus(environment, adminToken string, startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, StatusResponse{
			Version:        buildinfo.Version,
			Uptime:         humanize.RelTime(startedAt, time.Now(), "", ""),
			Environment:    environment,
			Timestamp:      time.Now(),
			AdminTokenSet:  adminToken != "",
			AdminTokenWeak: adminToken != "" && config.IsWeakToken(adminToken),
		})
	}
}
