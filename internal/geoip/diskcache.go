package geoip

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// diskCache is the sharded on-disk geolocation cache: one JSON file per
// shard (the first dotted IPv4 octet, or a reserved bucket for everything
// else),
// mirrored in full by an in-memory xsync.Map so concurrent probe workers
// never block on a file read. Writes are serialised by mu and rewrite the
// whole shard file, which is cheap because per-shard cardinality is low.
type diskCache struct {
	dir string
	mu  sync.Mutex

	index *xsync.Map[string, GeoCacheEntry]
}

const otherShard = "other"

func newDiskCache(dir string) (*diskCache, error) {
	dc := &diskCache{dir: dir, index: xsync.NewMap[string, GeoCacheEntry]()}
	if dir == "" {
		return dc, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("diskcache: mkdir %s: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("diskcache: read %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := dc.loadShardFile(filepath.Join(dir, e.Name())); err != nil {
			return nil, err
		}
	}
	return dc, nil
}

func (dc *diskCache) loadShardFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("diskcache: read %s: %w", path, err)
	}
	var shard map[string]GeoCacheEntry
	if err := json.Unmarshal(data, &shard); err != nil {
		return fmt.Errorf("diskcache: decode %s: %w", path, err)
	}
	for key, entry := range shard {
		dc.index.Store(key, entry)
	}
	return nil
}

func (dc *diskCache) get(key string) (GeoCacheEntry, bool) {
	return dc.index.Load(key)
}

// put stores key in the in-memory index and rewrites its shard file.
func (dc *diskCache) put(key string, entry GeoCacheEntry) {
	dc.index.Store(key, entry)
	if dc.dir == "" {
		return
	}
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.rewriteShard(shardOf(key))
}

// rewriteShard gathers every indexed key belonging to shard and rewrites
// its file. Called with mu held.
func (dc *diskCache) rewriteShard(shard string) {
	out := make(map[string]GeoCacheEntry)
	dc.index.Range(func(key string, entry GeoCacheEntry) bool {
		if shardOf(key) == shard {
			out[key] = entry
		}
		return true
	})
	data, err := json.Marshal(out)
	if err != nil {
		return
	}
	path := filepath.Join(dc.dir, shard+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, path)
}

// purgeExpired removes every entry past its ExpiresAt from both the
// in-memory index and the shard files it touched. Invoked by the
// scheduled maintenance pass.
func (dc *diskCache) purgeExpired(now time.Time) int {
	var expired []string
	dc.index.Range(func(key string, entry GeoCacheEntry) bool {
		if entry.expired(now) {
			expired = append(expired, key)
		}
		return true
	})
	if len(expired) == 0 {
		return 0
	}

	dc.mu.Lock()
	defer dc.mu.Unlock()
	touched := make(map[string]bool)
	for _, key := range expired {
		touched[shardOf(key)] = true
		dc.index.Delete(key)
	}
	if dc.dir != "" {
		for shard := range touched {
			dc.rewriteShard(shard)
		}
	}
	return len(expired)
}

// shardOf returns the first dotted IPv4 octet of key, or otherShard for
// IPv6 addresses and anything else that doesn't parse as dotted decimal.
func shardOf(key string) string {
	dot := strings.IndexByte(key, '.')
	if dot <= 0 {
		return otherShard
	}
	octet := key[:dot]
	for _, r := range octet {
		if r < '0' || r > '9' {
			return otherShard
		}
	}
	return octet
}
