package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/subagg/resin/internal/node"
)

// nodeSnapshot is the debugging projection of a Node written to
// raw_nodes.json / final_nodes.json — plain fields only, no methods, so
// the file stays readable without importing the node package.
type nodeSnapshot struct {
	ID          string          `json:"id"`
	Protocol    node.Protocol   `json:"protocol"`
	DisplayName string          `json:"display_name"`
	Server      string          `json:"server"`
	Port        int             `json:"port"`
	SourceTag   string          `json:"source_tag"`
	Tags        []string        `json:"tags"`
	Geo         *node.GeoInfo   `json:"geo,omitempty"`
	Probe       *node.ProbeInfo `json:"probe,omitempty"`
}

func toSnapshots(nodes []*node.Node) []nodeSnapshot {
	out := make([]nodeSnapshot, len(nodes))
	for i, n := range nodes {
		out[i] = nodeSnapshot{
			ID:          n.ID.String(),
			Protocol:    n.Protocol,
			DisplayName: n.DisplayName,
			Server:      n.Server,
			Port:        n.Port,
			SourceTag:   n.SourceTag,
			Tags:        n.Tags,
			Geo:         n.Geo,
			Probe:       n.Probe,
		}
	}
	return out
}

func writeJSONSnapshot(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("orchestrator: mkdir %s: %w", filepath.Dir(path), err)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("orchestrator: marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("orchestrator: write %s: %w", path, err)
	}
	return nil
}

// writeRawNodesSnapshot implements the data/raw_nodes.json debugging
// snapshot taken immediately after parse+dedup, before any probe.
func (o *Orchestrator) writeRawNodesSnapshot(nodes []*node.Node) error {
	return writeJSONSnapshot(filepath.Join(o.cfg.DataDir, "raw_nodes.json"), toSnapshots(nodes))
}

// writeFinalNodesSnapshot implements the data/final_nodes.json debugging
// snapshot taken after probe/filter/classification.
func (o *Orchestrator) writeFinalNodesSnapshot(nodes []*node.Node) error {
	return writeJSONSnapshot(filepath.Join(o.cfg.DataDir, "final_nodes.json"), toSnapshots(nodes))
}

// testReportEntry is one node's probe outcome, as recorded in
// data/test_report.json.
type testReportEntry struct {
	DisplayName string `json:"display_name"`
	Server      string `json:"server"`
	Port        int    `json:"port"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latency_ms"`
	Error       string `json:"error,omitempty"`
}

// testReport is the per-run probe report.
type testReport struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Entries     []testReportEntry `json:"entries"`
}

// writeTestReport writes data/test_report.json, covering every node that
// went through the Prober regardless of whether it survived the
// subsequent filters.
func (o *Orchestrator) writeTestReport(nodes []*node.Node) error {
	entries := make([]testReportEntry, 0, len(nodes))
	for _, n := range nodes {
		if n.Probe == nil {
			continue
		}
		entries = append(entries, testReportEntry{
			DisplayName: n.DisplayName,
			Server:      n.Server,
			Port:        n.Port,
			Status:      string(n.Probe.Status),
			LatencyMs:   n.Probe.LatencyMs,
			Error:       n.Probe.Error,
		})
	}
	return writeJSONSnapshot(filepath.Join(o.cfg.DataDir, "test_report.json"), testReport{
		GeneratedAt: time.Now(),
		Entries:     entries,
	})
}
