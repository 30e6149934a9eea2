// Package config handles environment-based configuration loading and the
// JSON-persisted runtime tuning knobs for the sync pipeline.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
)

// EnvConfig holds all environment-variable-driven settings (not
// hot-updatable; read once at process start).
type EnvConfig struct {
	// Directories
	CacheDir  string
	DataDir   string
	OutputDir string

	// HTTP facade
	ListenAddress   string
	Port            int
	APIMaxBodyBytes int
	AdminToken      string

	// Pipeline concurrency
	ProbeConcurrency int
	FetchConcurrency int

	// Cron schedules
	GeoIPUpdateSchedule string
	SyncSchedule        string

	// Notifier (the push client itself lives outside this package; only
	// the env surface lives here)
	BarkURL   string
	BarkTitle string

	// IP Locator HTTP provider
	IPAPIURL string
	IPAPIKey string

	// Logging
	LogLevel string
}

// LoadEnvConfig reads environment variables and returns a validated
// EnvConfig. Invalid values are collected into a single error rather than
// failing on the first bad variable.
func LoadEnvConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	var errs []string

	cfg.CacheDir = envStr("SUBAGG_CACHE_DIR", "./data/ip_cache")
	cfg.DataDir = envStr("SUBAGG_DATA_DIR", "./data")
	cfg.OutputDir = envStr("SUBAGG_OUTPUT_DIR", "./output")

	cfg.ListenAddress = strings.TrimSpace(envStr("SUBAGG_LISTEN_ADDRESS", "0.0.0.0"))
	cfg.Port = envInt("SUBAGG_PORT", 8787, &errs)
	cfg.APIMaxBodyBytes = envInt("SUBAGG_API_MAX_BODY_BYTES", 1<<20, &errs)
	cfg.AdminToken = os.Getenv("SUBAGG_ADMIN_TOKEN")

	cfg.ProbeConcurrency = envInt("SUBAGG_PROBE_CONCURRENCY", 32, &errs)
	cfg.FetchConcurrency = envInt("SUBAGG_FETCH_CONCURRENCY", 4, &errs)

	cfg.GeoIPUpdateSchedule = envStr("SUBAGG_GEOIP_UPDATE_SCHEDULE", "0 7 * * *")
	cfg.SyncSchedule = envStr("SUBAGG_SYNC_SCHEDULE", "0 */6 * * *")

	cfg.BarkURL = os.Getenv("BARK_URL")
	cfg.BarkTitle = envStr("BARK_TITLE", "subagg")

	cfg.IPAPIURL = os.Getenv("IP_API_URL")
	cfg.IPAPIKey = os.Getenv("IP_API_KEY")

	cfg.LogLevel = envStr("LOG_LEVEL", "info")

	if cfg.ListenAddress == "" {
		errs = append(errs, "SUBAGG_LISTEN_ADDRESS must not be empty")
	}
	validatePort("SUBAGG_PORT", cfg.Port, &errs)
	validatePositive("SUBAGG_API_MAX_BODY_BYTES", cfg.APIMaxBodyBytes, &errs)
	validatePositive("SUBAGG_PROBE_CONCURRENCY", cfg.ProbeConcurrency, &errs)
	validatePositive("SUBAGG_FETCH_CONCURRENCY", cfg.FetchConcurrency, &errs)
	if _, err := cron.ParseStandard(cfg.GeoIPUpdateSchedule); err != nil {
		errs = append(errs, fmt.Sprintf("SUBAGG_GEOIP_UPDATE_SCHEDULE: invalid cron expression %q: %v", cfg.GeoIPUpdateSchedule, err))
	}
	if _, err := cron.ParseStandard(cfg.SyncSchedule); err != nil {
		errs = append(errs, fmt.Sprintf("SUBAGG_SYNC_SCHEDULE: invalid cron expression %q: %v", cfg.SyncSchedule, err))
	}
	if !isValidLogLevel(cfg.LogLevel) {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL: invalid value %q (allowed: debug, info, warn, error)", cfg.LogLevel))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return cfg, nil
}

func isValidLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// --- helpers ---

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int, errs *[]string) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid integer %q", key, v))
		return defaultVal
	}
	return n
}

func validatePort(name string, value int, errs *[]string) {
	if value < 1 || value > 65535 {
		*errs = append(*errs, fmt.Sprintf("%s: port must be 1-65535, got %d", name, value))
	}
}

func validatePositive(name string, value int, errs *[]string) {
	if value <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s: must be positive, got %d", name, value))
	}
}
