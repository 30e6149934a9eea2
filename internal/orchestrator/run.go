package orchestrator

import (
	"context"
	"log"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/subagg/resin/internal/classify"
	"github.com/subagg/resin/internal/dedup"
	"github.com/subagg/resin/internal/emit"
	"github.com/subagg/resin/internal/fetch"
	"github.com/subagg/resin/internal/format"
	"github.com/subagg/resin/internal/geoip"
	"github.com/subagg/resin/internal/group"
	"github.com/subagg/resin/internal/node"
	"github.com/subagg/resin/internal/probe"
)

// Config bundles everything one Run needs: the configured sources, the
// wired collaborators (fetch/geoip/probe/emit), and the filter knobs from
// RuntimeConfig.
type Config struct {
	Sources []*Source

	Fetcher  *fetch.Fetcher
	Locator  *geoip.Locator
	Prober   *probe.Manager
	Emitter  *emit.Emitter

	EgressCache *fetch.EgressCache
	DataDir     string

	FetchConcurrency int // bounded parallel source fetches, default 1 (sequential)

	NameTemplate         string
	MaxLatency           time.Duration
	MaxNodes             int
	ExcludedJurisdiction string // country code filtered out of the final set, default "CN"
	EgressJurisdiction   string // country code harvested into the egress-proxy cache, default "CN"

	Notifier Notifier
	Logger   *log.Logger
}

func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

func (c Config) notifier() Notifier {
	if c.Notifier != nil {
		return c.Notifier
	}
	return NoopNotifier{}
}

// Orchestrator sequences one run of the pipeline end to end.
type Orchestrator struct {
	cfg Config
}

// New constructs an Orchestrator.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{cfg: cfg}
}

// Run executes one full sync. Per-subscription and per-node failures are
// logged and skipped; the run only returns an error when no artifact was
// produced at all.
func (o *Orchestrator) Run(ctx context.Context) (*SyncStatus, error) {
	logger := o.cfg.logger()
	statusPath := filepath.Join(o.cfg.DataDir, "sync_status.json")

	prevStatus, err := LoadSyncStatus(statusPath)
	if err != nil {
		logger.Printf("[orchestrator] loading prior sync status: %v", err)
		prevStatus = &SyncStatus{}
	}

	fetchStart := time.Now()
	nodes := o.fetchAndParse(ctx, logger)
	inputCount := len(nodes)
	fetchElapsed := time.Since(fetchStart)

	nodes = dedup.Dedup(nodes, dedup.DefaultOptions)
	validCount := len(nodes)

	if err := o.writeRawNodesSnapshot(nodes); err != nil {
		logger.Printf("[orchestrator] raw nodes snapshot: %v", err)
	}

	// Pass 1: name-only classification, gives the Prober a best-effort
	// country hint before any network probe has run.
	classifyAll(nodes)

	probeStart := time.Now()
	o.cfg.Prober.ProbeAll(ctx, nodes)
	probeElapsed := time.Since(probeStart)

	if err := o.writeTestReport(nodes); err != nil {
		logger.Printf("[orchestrator] test report: %v", err)
	}

	nodes = filterUpAndLatency(nodes, o.cfg.MaxLatency)
	applyLocationCorrections(nodes)
	nodes = filterExcludedJurisdiction(nodes, o.cfg.ExcludedJurisdiction)
	nodes = capMaxNodes(nodes, o.cfg.MaxNodes)

	results := classifyAll(nodes)
	template := o.cfg.NameTemplate
	classify.Rename(nodes, results, template)

	if err := o.writeFinalNodesSnapshot(nodes); err != nil {
		logger.Printf("[orchestrator] final nodes snapshot: %v", err)
	}

	groups := buildGroups(nodes)

	emitStart := time.Now()
	emitErr := o.emitArtifacts(groups)
	emitElapsed := time.Since(emitStart)
	if emitErr != nil {
		logger.Printf("[orchestrator] emit: %v", emitErr)
	}

	o.harvestEgressProxies(nodes, logger)

	status := &SyncStatus{
		LastRunAt:      time.Now(),
		InputNodeCount: inputCount,
		ValidNodeCount: validCount,
		FinalNodeCount: len(nodes),
		GenTimeMs:      0, // set below only if at least one artifact was written
		Durations: Durations{
			FetchMs: fetchElapsed.Milliseconds(),
			ProbeMs: probeElapsed.Milliseconds(),
			EmitMs:  emitElapsed.Milliseconds(),
		},
	}
	if emitErr == nil {
		status.GenTimeMs = time.Now().UnixMilli()
	}
	if err := status.Save(statusPath); err != nil {
		logger.Printf("[orchestrator] saving sync status: %v", err)
	}

	o.cfg.notifier().NotifyCompletion(CompletionEvent{
		Type:              EventSyncCompleted,
		NodeCount:         len(nodes),
		PreviousNodeCount: prevStatus.FinalNodeCount,
		Durations:         status.Durations,
		RegionsCount:      countDistinctRegions(nodes),
		ProtocolsCount:    countDistinctProtocols(nodes),
		EmittedAt:         time.Now(),
	})

	if len(nodes) == 0 && emitErr != nil {
		return status, emitErr
	}
	return status, nil
}

// fetchAndParse fetches every enabled source with
// up to FetchConcurrency requests in flight, then concatenate the parsed
// nodes in declaration order regardless of which fetch finished first —
// the "fetched in declaration order" guarantee is about the resulting
// node order, not the network calls themselves.
func (o *Orchestrator) fetchAndParse(ctx context.Context, logger *log.Logger) []*node.Node {
	concurrency := o.cfg.FetchConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	perSource := make([][]*node.Node, len(o.cfg.Sources))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, src := range o.cfg.Sources {
		if !src.Enabled {
			continue
		}
		i, src := i, src
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			body, err := o.fetchSourceBody(ctx, src)
			if err != nil {
				logger.Printf("[orchestrator] source %q: %v", src.Name, err)
				return
			}
			result := format.Parse(body, src.Name, logger)
			for _, perr := range result.ParseErr {
				logger.Printf("[orchestrator] source %q parse: %v", src.Name, perr)
			}
			perSource[i] = result.Nodes
		}()
	}
	wg.Wait()

	var all []*node.Node
	for _, nodes := range perSource {
		all = append(all, nodes...)
	}
	return all
}

func (o *Orchestrator) fetchSourceBody(ctx context.Context, src *Source) ([]byte, error) {
	switch src.Kind {
	case SourceKindURL:
		result, err := o.cfg.Fetcher.Fetch(ctx, src.URL)
		if err != nil {
			return nil, err
		}
		return result.Body, nil
	case SourceKindBase64, SourceKindSingleURI:
		return []byte(src.InlineContent), nil
	default:
		return []byte(src.InlineContent), nil
	}
}

func classifyAll(nodes []*node.Node) []classify.Result {
	results := make([]classify.Result, len(nodes))
	for i, n := range nodes {
		r := classify.Classify(n)
		results[i] = r
		n.Tags = nil
		for _, t := range r.Tags {
			n.AddTag(t)
		}
	}
	return results
}

// filterUpAndLatency drops any node that isn't reachable or exceeds the
// configured latency ceiling.
func filterUpAndLatency(nodes []*node.Node, maxLatency time.Duration) []*node.Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		if n.Probe == nil || n.Probe.Status != node.ProbeUp {
			continue
		}
		if maxLatency > 0 && time.Duration(n.Probe.LatencyMs)*time.Millisecond > maxLatency {
			continue
		}
		out = append(out, n)
	}
	return out
}

// applyLocationCorrections fixes up any node whose probe reported a
// location mismatch: its display name and geo get corrected to the
// probe-resolved country.
func applyLocationCorrections(nodes []*node.Node) {
	for _, n := range nodes {
		if n.Probe != nil && n.Probe.LocationMismatch && n.Geo != nil {
			classify.ApplyLocationCorrection(n, n.Geo.CountryCode)
		}
	}
}

// filterExcludedJurisdiction drops every node resolved to the excluded
// country code.
func filterExcludedJurisdiction(nodes []*node.Node, excluded string) []*node.Node {
	if excluded == "" {
		return nodes
	}
	out := nodes[:0:0]
	for _, n := range nodes {
		if n.Geo != nil && n.Geo.CountryCode == excluded {
			continue
		}
		out = append(out, n)
	}
	return out
}

func capMaxNodes(nodes []*node.Node, maxNodes int) []*node.Node {
	if maxNodes <= 0 || len(nodes) <= maxNodes {
		return nodes
	}
	return nodes[:maxNodes]
}

func buildGroups(nodes []*node.Node) []group.Group {
	regionGroups := group.BuildRegionGroups(nodes)
	serviceTags := distinctServiceTags(nodes)
	serviceGroups := group.BuildServiceGroups(nodes, serviceTags)

	all := append([]group.Group{}, regionGroups...)
	all = append(all, serviceGroups...)

	regionKeys := make([]string, 0, len(regionGroups))
	for _, g := range regionGroups {
		regionKeys = append(regionKeys, g.Key)
	}
	metaGroups := group.BuildMetaGroups(group.DefaultMetaGroupDefs(regionKeys), all, nodes)
	return append(all, metaGroups...)
}

func distinctServiceTags(nodes []*node.Node) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, n := range nodes {
		for _, t := range n.Tags {
			if classify.IsServiceTag(t) && !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)
	return tags
}

// emitArtifacts writes per-group URI lists plus every per-client config.
// A single client's failure is logged and skipped; the run is still
// successful as long as one artifact lands.
func (o *Orchestrator) emitArtifacts(groups []group.Group) error {
	var lastErr error
	if err := o.cfg.Emitter.WriteGroupFiles(groups); err != nil {
		lastErr = err
	}
	if err := o.cfg.Emitter.WriteClashConfig(groups); err != nil {
		lastErr = err
	}
	if err := o.cfg.Emitter.WriteLegacyClashConfig(groups); err != nil {
		lastErr = err
	}
	if err := o.cfg.Emitter.WriteSurgeConfig(groups); err != nil {
		lastErr = err
	}
	if err := o.cfg.Emitter.WriteSingBoxConfig(groups); err != nil {
		lastErr = err
	}
	if err := o.cfg.Emitter.WriteV2RayConfig(groups); err != nil {
		lastErr = err
	}
	return lastErr
}

// harvestEgressProxies collects egress-proxy candidates from the final,
// post-correction node list, after the *second* classification pass,
// never from the name-only first pass.
func (o *Orchestrator) harvestEgressProxies(nodes []*node.Node, logger *log.Logger) {
	if o.cfg.EgressCache == nil {
		return
	}
	var entries []string
	for _, n := range nodes {
		if n.Geo == nil || n.Geo.CountryCode != o.cfg.EgressJurisdiction {
			continue
		}
		switch n.Protocol {
		case node.ProtocolHTTP, node.ProtocolHTTPS, node.ProtocolSOCKS5:
		default:
			continue
		}
		entries = append(entries, egressURL(n))
	}
	o.cfg.EgressCache.Replace(entries)
	if err := o.cfg.EgressCache.Save(); err != nil {
		logger.Printf("[orchestrator] saving egress cache: %v", err)
	}
}

func egressURL(n *node.Node) string {
	scheme := string(n.Protocol)
	if scheme == "https" {
		scheme = "http" // CONNECT-capable either way; egress dialing treats both alike
	}
	auth := ""
	if n.Settings.Username != "" {
		auth = n.Settings.Username + ":" + n.Settings.Password + "@"
	}
	return scheme + "://" + auth + n.Server + ":" + itoa(n.Port)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func countDistinctRegions(nodes []*node.Node) int {
	seen := make(map[string]bool)
	for _, n := range nodes {
		if n.Geo != nil && n.Geo.CountryCode != "" {
			seen[n.Geo.CountryCode] = true
		}
	}
	return len(seen)
}

func countDistinctProtocols(nodes []*node.Node) int {
	seen := make(map[node.Protocol]bool)
	for _, n := range nodes {
		seen[n.Protocol] = true
	}
	return len(seen)
}
