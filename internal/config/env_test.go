package config

import "testing"

func TestLoadEnvConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"SUBAGG_CACHE_DIR", "SUBAGG_DATA_DIR", "SUBAGG_OUTPUT_DIR",
		"SUBAGG_LISTEN_ADDRESS", "SUBAGG_PORT", "SUBAGG_API_MAX_BODY_BYTES",
		"SUBAGG_ADMIN_TOKEN", "SUBAGG_PROBE_CONCURRENCY", "SUBAGG_FETCH_CONCURRENCY",
		"SUBAGG_GEOIP_UPDATE_SCHEDULE", "SUBAGG_SYNC_SCHEDULE", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadEnvConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8787 {
		t.Errorf("default port = %d, want 8787", cfg.Port)
	}
	if cfg.ProbeConcurrency != 32 {
		t.Errorf("default probe concurrency = %d, want 32", cfg.ProbeConcurrency)
	}
	if cfg.ListenAddress != "0.0.0.0" {
		t.Errorf("default listen address = %q, want 0.0.0.0", cfg.ListenAddress)
	}
}

func TestLoadEnvConfigInvalidPort(t *testing.T) {
	t.Setenv("SUBAGG_PORT", "99999")
	if _, err := LoadEnvConfig(); err == nil {
		t.Fatal("expected validation error for out-of-range port")
	}
}

func TestLoadEnvConfigInvalidCronSchedule(t *testing.T) {
	t.Setenv("SUBAGG_SYNC_SCHEDULE", "not a cron expression")
	if _, err := LoadEnvConfig(); err == nil {
		t.Fatal("expected validation error for malformed cron schedule")
	}
}

func TestLoadEnvConfigInvalidLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")
	if _, err := LoadEnvConfig(); err == nil {
		t.Fatal("expected validation error for invalid log level")
	}
}

func TestLoadEnvConfigNonIntegerEnv(t *testing.T) {
	t.Setenv("SUBAGG_PORT", "notanumber")
	if _, err := LoadEnvConfig(); err == nil {
		t.Fatal("expected validation error for non-integer SUBAGG_PORT")
	}
}
