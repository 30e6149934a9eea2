// Package probe measures reachability and latency for a batch of nodes
// using a bounded worker pool.
package probe

import (
	"context"
	"sync"
	"time"

	"github.com/subagg/resin/internal/classify"
	"github.com/subagg/resin/internal/geoip"
	"github.com/subagg/resin/internal/node"
)

// Options configures a Manager.
type Options struct {
	Concurrency      int
	PerNodeTimeout   time.Duration
	HighLatencyFloor time.Duration // default 1000ms; probes slower than this are demoted to down
	TestURL          string        // default http://www.gstatic.com/generate_204
	VerifyLocation   bool
	Locator          *geoip.Locator // required when VerifyLocation is set
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	if o.PerNodeTimeout <= 0 {
		o.PerNodeTimeout = 5 * time.Second
	}
	if o.HighLatencyFloor <= 0 {
		o.HighLatencyFloor = 1000 * time.Millisecond
	}
	if o.TestURL == "" {
		o.TestURL = "http://www.gstatic.com/generate_204"
	}
	return o
}

// Manager runs probes against a node batch, starting one goroutine per
// node and using a semaphore so that at most Options.Concurrency probes
// run at once.
type Manager struct {
	opts Options
}

// New constructs a Manager.
func New(opts Options) *Manager {
	return &Manager{opts: opts.withDefaults()}
}

// ProbeAll probes every node concurrently (bounded by Options.Concurrency),
// writing the result onto each node's Probe field and returning the same
// results as a slice, aligned to the nodes slice's original indices. Probes
// run in no particular order; only the returned slice's positions are
// guaranteed to match the input.
func (m *Manager) ProbeAll(ctx context.Context, nodes []*node.Node) []*node.ProbeInfo {
	results := make([]*node.ProbeInfo, len(nodes))
	sem := make(chan struct{}, m.opts.Concurrency)
	var wg sync.WaitGroup

	for i, n := range nodes {
		i, n := i, n
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			info := m.probeOne(ctx, n)
			results[i] = info
			n.Probe = info
		}()
	}
	wg.Wait()
	return results
}

func (m *Manager) probeOne(ctx context.Context, n *node.Node) *node.ProbeInfo {
	callCtx, cancel := context.WithTimeout(ctx, m.dialTimeout(n.Protocol))
	defer cancel()

	start := time.Now()
	err := dispatch(callCtx, n, m.opts.TestURL)
	elapsed := time.Since(start)

	info := &node.ProbeInfo{ProbedAt: time.Now()}
	if err != nil {
		info.Status = node.ProbeDown
		info.Error = err.Error()
		return info
	}

	info.LatencyMs = elapsed.Milliseconds()
	if elapsed >= m.opts.HighLatencyFloor {
		info.Status = node.ProbeDown
		info.Error = "latency too high"
		return info
	}
	info.Status = node.ProbeUp

	if m.opts.VerifyLocation && m.opts.Locator != nil {
		m.checkLocation(ctx, n, info)
	}
	return info
}

// dialTimeout doubles the per-node timeout for shadowsocks/shadowsocksr,
// whose handshake takes longer to observe over a plain TCP dial.
func (m *Manager) dialTimeout(p node.Protocol) time.Duration {
	if p == node.ProtocolShadowsocks || p == node.ProtocolShadowsocksR {
		return 2 * m.opts.PerNodeTimeout
	}
	return m.opts.PerNodeTimeout
}

// checkLocation resolves n.Server's country and compares it to any
// country hint embedded in the display name, recording a mismatch on the
// probe result.
func (m *Manager) checkLocation(ctx context.Context, n *node.Node, info *node.ProbeInfo) {
	entry, err := m.opts.Locator.Locate(ctx, n.Server)
	if err != nil {
		return
	}
	hint := classify.Classify(n).Country
	if hint == "" || entry.Geo.CountryCode == "" {
		return
	}
	if hint != entry.Geo.CountryCode {
		info.LocationMismatch = true
	}
	n.Geo = &entry.Geo
}
