// Package dedup collapses nodes that share a fingerprint, keeping the
// best-latency (or earliest-seen) survivor.
package dedup

import "github.com/subagg/resin/internal/node"

// Options tunes the collapse.
type Options struct {
	PreferLowerLatency bool
}

// DefaultOptions prefers the lower-latency survivor on collision.
var DefaultOptions = Options{PreferLowerLatency: true}

// Dedup collapses nodes sharing a (server, port, protocol) fingerprint.
// On collision, if both incumbents carry a probe latency and
// PreferLowerLatency is set, the lower-latency node wins; otherwise the
// earlier arrival wins. Output preserves the insertion order of survivors
// and is deterministic across runs for identical input.
func Dedup(nodes []*node.Node, opts Options) []*node.Node {
	index := make(map[node.FingerprintKey]int, len(nodes))
	var out []*node.Node

	for _, n := range nodes {
		key := n.Fingerprint()
		pos, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, n)
			continue
		}
		if shouldReplace(out[pos], n, opts) {
			out[pos] = n
		}
	}
	return out
}

func shouldReplace(incumbent, candidate *node.Node, opts Options) bool {
	if !opts.PreferLowerLatency {
		return false // earlier arrival always wins when latency isn't consulted
	}
	if incumbent.Probe == nil || candidate.Probe == nil {
		return false
	}
	return candidate.Probe.LatencyMs < incumbent.Probe.LatencyMs
}
