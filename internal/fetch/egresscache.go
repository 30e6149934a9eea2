package fetch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// EgressCache is the egress-proxy candidate pool, persisted at
// data/ip_cache/china_proxies.json and rewritten after each run. It also
// implements EgressProxyProvider via round-robin Next().
type EgressCache struct {
	path string

	mu      sync.Mutex
	entries []string
	idx     int
}

// LoadEgressCache reads path as a JSON array of proxy URLs. A missing
// file yields an empty, usable cache.
func LoadEgressCache(path string) (*EgressCache, error) {
	c := &EgressCache{path: path}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("egress cache: read %s: %w", path, err)
	}
	if len(b) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(b, &c.entries); err != nil {
		return nil, fmt.Errorf("egress cache: parse %s: %w", path, err)
	}
	return c, nil
}

// Next returns the next proxy URL in round-robin order.
func (c *EgressCache) Next() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) == 0 {
		return "", false
	}
	v := c.entries[c.idx%len(c.entries)]
	c.idx++
	return v, true
}

// Replace overwrites the in-memory entry set (called by the orchestrator
// after harvesting egress-proxy candidates from the final node list).
func (c *EgressCache) Replace(entries []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append([]string(nil), entries...)
	c.idx = 0
}

// Save persists the current entry set back to disk as a JSON array.
func (c *EgressCache) Save() error {
	c.mu.Lock()
	entries := append([]string(nil), c.entries...)
	c.mu.Unlock()

	if entries == nil {
		entries = []string{}
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("egress cache: mkdir %s: %w", filepath.Dir(c.path), err)
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("egress cache: marshal: %w", err)
	}
	if err := os.WriteFile(c.path, b, 0o644); err != nil {
		return fmt.Errorf("egress cache: write %s: %w", c.path, err)
	}
	return nil
}

// Len reports how many proxies are currently cached.
func (c *EgressCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
