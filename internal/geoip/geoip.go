// Package geoip resolves a server host or IP to a country, fronted by a
// bounded memory cache and a sharded disk cache, falling back to a local
// MaxMind database and then a round-robin pool of HTTP providers.
package geoip

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/maypok86/otter"

	"github.com/subagg/resin/internal/node"
)

// GeoCacheEntry is the canonicalised, cacheable result of a lookup.
type GeoCacheEntry struct {
	Geo       node.GeoInfo
	ExpiresAt time.Time
}

func (e GeoCacheEntry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// LocateError reports that no provider was available to resolve host.
type LocateError struct {
	Host string
	Err  error
}

func (e *LocateError) Error() string {
	return fmt.Sprintf("geoip: locate %s: %v", e.Host, e.Err)
}

func (e *LocateError) Unwrap() error { return e.Err }

// Others is the sentinel country name used whenever a location cannot be
// determined (non-IP host, no ready provider, or a provider that returned
// no country fields).
const Others = "Others"

// Config configures a Locator.
type Config struct {
	// L1Size bounds the otter memory cache entry count.
	L1Size int
	// TTL is how long a resolved entry remains valid in both caches.
	TTL time.Duration
	// DiskCacheDir holds the sharded JSON cache files. Empty disables the
	// disk tier (memory-only, process-lifetime cache).
	DiskCacheDir string
	// Providers is the ordered HTTP provider pool, consulted in
	// round-robin order after the memory/disk caches and the optional
	// local MMDB reader miss.
	Providers []*Provider
	// MMDB is an optional local database reader tried before any HTTP
	// provider is consulted.
	MMDB GeoReader
	// RequestTimeout bounds each provider HTTP call.
	RequestTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.L1Size <= 0 {
		c.L1Size = 4096
	}
	if c.TTL <= 0 {
		c.TTL = 7 * 24 * time.Hour
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Second
	}
	return c
}

// Locator resolves hosts to geolocations. It is safe for concurrent use
// by the Prober's worker pool.
type Locator struct {
	cfg Config

	l1   otter.Cache[string, GeoCacheEntry]
	disk *diskCache

	// decisionMu guards a single critical section: cache lookup, the
	// local-database attempt, and the round-robin advance + counter
	// increment happen together, or not at all. The HTTP round trip
	// itself happens outside this lock.
	decisionMu sync.Mutex
	pool       *providerPool

	httpClient *http.Client
}

// New constructs a Locator. cfg.Providers and cfg.MMDB may be nil/empty; a
// Locator with neither can still resolve cache hits and non-IP sentinels,
// but returns LocateError on every other cache miss.
func New(cfg Config) (*Locator, error) {
	cfg = cfg.withDefaults()

	l1, err := otter.MustBuilder[string, GeoCacheEntry](cfg.L1Size).
		Cost(func(_ string, _ GeoCacheEntry) uint32 { return 1 }).
		Build()
	if err != nil {
		return nil, fmt.Errorf("geoip: build memory cache: %w", err)
	}

	disk, err := newDiskCache(cfg.DiskCacheDir)
	if err != nil {
		return nil, fmt.Errorf("geoip: load disk cache: %w", err)
	}

	return &Locator{
		cfg:        cfg,
		l1:         l1,
		disk:       disk,
		pool:       newProviderPool(cfg.Providers),
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
	}, nil
}

// Locate resolves hostOrIP to a GeoCacheEntry.
func (l *Locator) Locate(ctx context.Context, hostOrIP string) (GeoCacheEntry, error) {
	if net.ParseIP(hostOrIP) == nil {
		return GeoCacheEntry{Geo: node.GeoInfo{CountryName: Others}}, nil
	}

	entry, provider, hit := l.decide(hostOrIP)
	if hit {
		return entry, nil
	}
	if provider == nil {
		return GeoCacheEntry{}, &LocateError{Host: hostOrIP, Err: errNoReadyProvider}
	}
	return l.queryProvider(ctx, hostOrIP, provider, true)
}

// decide is the critical section covering memory cache, disk cache, the
// local MMDB reader, and the provider round-robin advance plus counter
// charge, all attempted under one lock.
func (l *Locator) decide(key string) (GeoCacheEntry, *Provider, bool) {
	l.decisionMu.Lock()
	defer l.decisionMu.Unlock()

	now := time.Now()
	if entry, ok := l.l1.Get(key); ok && !entry.expired(now) {
		return entry, nil, true
	}
	if entry, ok := l.disk.get(key); ok && !entry.expired(now) {
		l.l1.Set(key, entry)
		return entry, nil, true
	}
	if entry, ok := l.mmdbLookup(key, now); ok {
		return entry, nil, true
	}

	l.pool.resetWindows(now)
	provider := l.pool.nextReady()
	if provider == nil {
		return GeoCacheEntry{}, nil, false
	}
	l.pool.charge(provider)
	return GeoCacheEntry{}, provider, false
}

func (l *Locator) mmdbLookup(hostOrIP string, now time.Time) (GeoCacheEntry, bool) {
	if l.cfg.MMDB == nil {
		return GeoCacheEntry{}, false
	}
	code := l.cfg.MMDB.Lookup(hostOrIP)
	if code == "" {
		return GeoCacheEntry{}, false
	}
	entry := GeoCacheEntry{
		Geo:       node.GeoInfo{CountryCode: code, CountryName: countryNameFor(code)},
		ExpiresAt: now.Add(l.cfg.TTL),
	}
	l.l1.Set(hostOrIP, entry)
	l.disk.put(hostOrIP, entry)
	return entry, true
}

// queryProvider issues the GET already charged against provider by decide,
// retrying once against the next ready provider on a 429/rate-limit
// signal. allowRetry bounds that to a single extra attempt.
func (l *Locator) queryProvider(ctx context.Context, key string, provider *Provider, allowRetry bool) (GeoCacheEntry, error) {
	body, rateLimited, err := provider.fetch(ctx, l.httpClient, key)
	if rateLimited {
		l.pool.markLimited(provider)
		if allowRetry {
			l.decisionMu.Lock()
			next := l.pool.nextReady()
			if next != nil {
				l.pool.charge(next)
			}
			l.decisionMu.Unlock()
			if next != nil {
				return l.queryProvider(ctx, key, next, false)
			}
		}
		return GeoCacheEntry{}, &LocateError{Host: key, Err: errNoReadyProvider}
	}
	if err != nil {
		l.pool.markFailed(provider)
		return GeoCacheEntry{}, &LocateError{Host: key, Err: err}
	}

	geo, ok := provider.Parser(body)
	if !ok {
		geo = node.GeoInfo{CountryName: Others}
	}
	entry := GeoCacheEntry{Geo: geo, ExpiresAt: time.Now().Add(l.cfg.TTL)}
	l.l1.Set(key, entry)
	l.disk.put(key, entry)
	return entry, nil
}

// Close releases the memory cache and any local MMDB reader.
func (l *Locator) Close() error {
	l.l1.Close()
	if l.cfg.MMDB != nil {
		return l.cfg.MMDB.Close()
	}
	return nil
}
