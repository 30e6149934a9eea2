package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RuntimeConfig holds the pipeline tuning knobs: fetcher, dedup, IP
// locator, probe/location, filter and naming settings. Unlike EnvConfig
// it is JSON-persisted. cmd/subagg reads it once at process start, so an
// edit takes effect on the next restart; it is not reloaded while the
// process runs.
type RuntimeConfig struct {
	// Fetcher
	FetchMaxRetries              int      `json:"fetch_max_retries"`
	FetchUserAgents              []string `json:"fetch_user_agents"`
	FetchPerAttemptTimeout       Duration `json:"fetch_per_attempt_timeout"`
	FetchBackoffBase             Duration `json:"fetch_backoff_base"`
	FetchRateLimitSleep          Duration `json:"fetch_rate_limit_sleep"`
	FetchEgressFallbackThreshold int      `json:"fetch_egress_fallback_threshold"`

	// Deduplicator
	DedupPreferLowerLatency bool `json:"dedup_prefer_lower_latency"`

	// IP Locator
	GeoCacheTTL         Duration `json:"geo_cache_ttl"`
	GeoMemoryCacheSize  int      `json:"geo_memory_cache_size"`
	GeoRequestTimeout   Duration `json:"geo_request_timeout"`

	// Prober
	ProbeConcurrency    int      `json:"probe_concurrency"`
	ProbePerNodeTimeout Duration `json:"probe_per_node_timeout"`
	ProbeHighLatencyFloor Duration `json:"probe_high_latency_floor"`
	ProbeTestURL        string   `json:"probe_test_url"`
	ProbeVerifyLocation bool     `json:"probe_verify_location"`

	// Orchestrator filters
	MaxLatency          Duration `json:"max_latency"`
	MaxNodes            int      `json:"max_nodes"`
	ExcludedJurisdiction string  `json:"excluded_jurisdiction"`
	EgressJurisdiction   string  `json:"egress_jurisdiction"`

	// Namer
	NameTemplate string `json:"name_template"`
}

// NewDefaultRuntimeConfig returns a RuntimeConfig populated with sensible
// production defaults for every pipeline stage.
func NewDefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		FetchMaxRetries:              3,
		FetchUserAgents:              nil, // fetch.Options falls back to its own default list
		FetchPerAttemptTimeout:       Duration(10 * time.Second),
		FetchBackoffBase:             Duration(500 * time.Millisecond),
		FetchRateLimitSleep:          Duration(2 * time.Second),
		FetchEgressFallbackThreshold: 4,

		DedupPreferLowerLatency: true,

		GeoCacheTTL:        Duration(7 * 24 * time.Hour),
		GeoMemoryCacheSize: 4096,
		GeoRequestTimeout:  Duration(5 * time.Second),

		ProbeConcurrency:      32,
		ProbePerNodeTimeout:   Duration(5 * time.Second),
		ProbeHighLatencyFloor: Duration(1000 * time.Millisecond),
		ProbeTestURL:          "http://www.gstatic.com/generate_204",
		ProbeVerifyLocation:   true,

		MaxLatency:           Duration(1000 * time.Millisecond),
		MaxNodes:             0, // 0 means unbounded
		ExcludedJurisdiction: "CN",
		EgressJurisdiction:   "CN",

		NameTemplate: "{country} {protocol} {tags} {number}",
	}
}

// LoadRuntimeConfig reads path, creating it with NewDefaultRuntimeConfig's
// values on first run (a fresh deployment has no tuned config yet).
func LoadRuntimeConfig(path string) (*RuntimeConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := NewDefaultRuntimeConfig()
			return cfg, cfg.Save(path)
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg RuntimeConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Save persists cfg to path as indented JSON.
func (cfg *RuntimeConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir %s: %w", filepath.Dir(path), err)
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal runtime config: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
