// Command subagg runs the proxy-subscription aggregation pipeline: it
// periodically fetches configured sources, dedups and classifies the
// result, probes reachability, groups and renames nodes, emits per-group
// lists and per-client configs, and serves the result over a small HTTP
// facade.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/subagg/resin/internal/api"
	"github.com/subagg/resin/internal/config"
	"github.com/subagg/resin/internal/emit"
	"github.com/subagg/resin/internal/fetch"
	"github.com/subagg/resin/internal/geoip"
	"github.com/subagg/resin/internal/netutil"
	"github.com/subagg/resin/internal/orchestrator"
	"github.com/subagg/resin/internal/probe"
)

func main() {
	envCfg, err := config.LoadEnvConfig()
	if err != nil {
		fatalf("%v", err)
	}

	logger := log.New(os.Stderr, "[subagg] ", log.LstdFlags)

	runtimeCfg, err := config.LoadRuntimeConfig(filepath.Join(envCfg.DataDir, "runtime_config.json"))
	if err != nil {
		fatalf("runtime config: %v", err)
	}

	sources, err := orchestrator.LoadSources(filepath.Join(envCfg.DataDir, "sources.json"))
	if err != nil {
		fatalf("sources: %v", err)
	}
	if len(sources) == 0 {
		logger.Println("no subscription sources configured; sync runs will produce empty artifacts")
	}

	locator, err := newLocator(envCfg, runtimeCfg)
	if err != nil {
		fatalf("geoip locator: %v", err)
	}

	egressCache, err := fetch.LoadEgressCache(filepath.Join(envCfg.CacheDir, "china_proxies.json"))
	if err != nil {
		fatalf("egress cache: %v", err)
	}

	fetcher := fetch.New(fetch.Options{
		MaxRetries:              runtimeCfg.FetchMaxRetries,
		UAList:                  runtimeCfg.FetchUserAgents,
		PerAttemptTimeout:       runtimeCfg.FetchPerAttemptTimeout.Std(),
		BackoffBase:             runtimeCfg.FetchBackoffBase.Std(),
		RateLimitSleep:          runtimeCfg.FetchRateLimitSleep.Std(),
		EgressFallbackThreshold: runtimeCfg.FetchEgressFallbackThreshold,
		EgressProxies:           egressCache,
	}, logger)

	prober := probe.New(probe.Options{
		Concurrency:      runtimeCfg.ProbeConcurrency,
		PerNodeTimeout:   runtimeCfg.ProbePerNodeTimeout.Std(),
		HighLatencyFloor: runtimeCfg.ProbeHighLatencyFloor.Std(),
		TestURL:          runtimeCfg.ProbeTestURL,
		VerifyLocation:   runtimeCfg.ProbeVerifyLocation,
		Locator:          locator,
	})

	emitter := emit.New(envCfg.OutputDir)

	orch := orchestrator.New(orchestrator.Config{
		Sources:              sources,
		Fetcher:              fetcher,
		Locator:              locator,
		Prober:               prober,
		Emitter:              emitter,
		EgressCache:          egressCache,
		DataDir:              envCfg.DataDir,
		FetchConcurrency:     envCfg.FetchConcurrency,
		NameTemplate:         runtimeCfg.NameTemplate,
		MaxLatency:           runtimeCfg.MaxLatency.Std(),
		MaxNodes:             runtimeCfg.MaxNodes,
		ExcludedJurisdiction: runtimeCfg.ExcludedJurisdiction,
		EgressJurisdiction:   runtimeCfg.EgressJurisdiction,
		Logger:               logger,
	})

	maintenance, err := geoip.NewMaintenance(locator, envCfg.GeoIPUpdateSchedule, logger)
	if err != nil {
		fatalf("geoip maintenance schedule: %v", err)
	}
	maintenance.Start()
	defer maintenance.Stop()

	syncCron := cron.New()
	if _, err := syncCron.AddFunc(envCfg.SyncSchedule, func() {
		runOnce(context.Background(), orch, logger)
	}); err != nil {
		fatalf("sync schedule: %v", err)
	}
	syncCron.Start()
	defer syncCron.Stop()

	// Run one sync immediately so a fresh deployment has artifacts before
	// the first scheduled tick.
	runOnce(context.Background(), orch, logger)

	downloader := netutil.NewDirectDownloader(runtimeCfg.FetchPerAttemptTimeout.Std())
	server := api.NewServer(api.Config{
		ListenAddress:     envCfg.ListenAddress,
		Port:              envCfg.Port,
		APIMaxBodyBytes:   int64(envCfg.APIMaxBodyBytes),
		OutputDir:         envCfg.OutputDir,
		DataDir:           envCfg.DataDir,
		Environment:       envStringOr("SUBAGG_ENVIRONMENT", "production"),
		AdminToken:        envCfg.AdminToken,
		StartedAt:         time.Now(),
		StaleAfter:        2 * syncInterval(envCfg.SyncSchedule),
		GHProxyDownloader: downloader,
		ShortcutRepoSlug:  os.Getenv("SUBAGG_SHORTCUT_REPO"),
	})

	serveErr := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s:%d", envCfg.ListenAddress, envCfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Printf("received %s, shutting down", sig)
	case err := <-serveErr:
		logger.Printf("server error: %v", err)
	}

	syncCron.Stop()
	maintenance.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("server shutdown: %v", err)
	}
}

func runOnce(ctx context.Context, orch *orchestrator.Orchestrator, logger *log.Logger) {
	status, err := orch.Run(ctx)
	if err != nil {
		logger.Printf("sync run failed: %v", err)
		return
	}
	logger.Printf("sync complete: %d input, %d valid, %d final nodes (fetch=%dms probe=%dms emit=%dms)",
		status.InputNodeCount, status.ValidNodeCount, status.FinalNodeCount,
		status.Durations.FetchMs, status.Durations.ProbeMs, status.Durations.EmitMs)
}

func newLocator(envCfg *config.EnvConfig, runtimeCfg *config.RuntimeConfig) (*geoip.Locator, error) {
	var mmdb geoip.GeoReader
	if path := os.Getenv("SUBAGG_MMDB_PATH"); path != "" {
		reader, err := geoip.OpenMMDB(path)
		if err != nil {
			return nil, err
		}
		mmdb = reader
	}
	return geoip.New(geoip.Config{
		L1Size:         runtimeCfg.GeoMemoryCacheSize,
		TTL:            runtimeCfg.GeoCacheTTL.Std(),
		DiskCacheDir:   envCfg.CacheDir,
		Providers:      geoip.DefaultProviders(envCfg.IPAPIURL, envCfg.IPAPIKey),
		MMDB:           mmdb,
		RequestTimeout: runtimeCfg.GeoRequestTimeout.Std(),
	})
}

// syncInterval estimates the sync schedule's period so the health check's
// staleness threshold scales with how often a fresh run is actually
// expected, rather than a hardcoded constant.
func syncInterval(schedule string) time.Duration {
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return time.Hour
	}
	now := time.Now()
	next := sched.Next(now)
	after := sched.Next(next)
	return after.Sub(next)
}

func envStringOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
