package orchestrator

import (
	"testing"
	"time"

	"github.com/subagg/resin/internal/node"
)

func mkProbedNode(server string, port int, status node.ProbeStatus, latencyMs int64) *node.Node {
	return &node.Node{
		Protocol: node.ProtocolVMess,
		Server:   server,
		Port:     port,
		Probe:    &node.ProbeInfo{Status: status, LatencyMs: latencyMs},
	}
}

func TestFilterUpAndLatencyDropsDownAndNilProbe(t *testing.T) {
	up := mkProbedNode("a", 1, node.ProbeUp, 100)
	down := mkProbedNode("b", 2, node.ProbeDown, 50)
	noProbe := &node.Node{Protocol: node.ProtocolVMess, Server: "c", Port: 3}

	out := filterUpAndLatency([]*node.Node{up, down, noProbe}, 0)
	if len(out) != 1 || out[0] != up {
		t.Fatalf("got %v, want only the up node", out)
	}
}

func TestFilterUpAndLatencyAppliesMaxLatency(t *testing.T) {
	fast := mkProbedNode("a", 1, node.ProbeUp, 100)
	slow := mkProbedNode("b", 2, node.ProbeUp, 2000)

	out := filterUpAndLatency([]*node.Node{fast, slow}, 500*time.Millisecond)
	if len(out) != 1 || out[0] != fast {
		t.Fatalf("got %v, want only the fast node", out)
	}
}

func TestFilterUpAndLatencyZeroMeansUnbounded(t *testing.T) {
	slow := mkProbedNode("a", 1, node.ProbeUp, 99999)
	out := filterUpAndLatency([]*node.Node{slow}, 0)
	if len(out) != 1 {
		t.Fatalf("zero max latency should not filter anything, got %v", out)
	}
}

func TestFilterExcludedJurisdiction(t *testing.T) {
	cn := &node.Node{Server: "a", Geo: &node.GeoInfo{CountryCode: "CN"}}
	us := &node.Node{Server: "b", Geo: &node.GeoInfo{CountryCode: "US"}}
	noGeo := &node.Node{Server: "c"}

	out := filterExcludedJurisdiction([]*node.Node{cn, us, noGeo}, "CN")
	if len(out) != 2 {
		t.Fatalf("got %d nodes, want 2 (US + no-geo survive)", len(out))
	}
	for _, n := range out {
		if n == cn {
			t.Fatal("CN node should have been excluded")
		}
	}
}

func TestFilterExcludedJurisdictionEmptyMeansNoFilter(t *testing.T) {
	cn := &node.Node{Server: "a", Geo: &node.GeoInfo{CountryCode: "CN"}}
	out := filterExcludedJurisdiction([]*node.Node{cn}, "")
	if len(out) != 1 {
		t.Fatalf("empty excluded jurisdiction should filter nothing, got %v", out)
	}
}

func TestCapMaxNodes(t *testing.T) {
	nodes := make([]*node.Node, 5)
	for i := range nodes {
		nodes[i] = &node.Node{Server: "x"}
	}
	if got := capMaxNodes(nodes, 3); len(got) != 3 {
		t.Errorf("got %d nodes, want 3", len(got))
	}
	if got := capMaxNodes(nodes, 0); len(got) != 5 {
		t.Errorf("zero max should mean unbounded, got %d", len(got))
	}
	if got := capMaxNodes(nodes, 100); len(got) != 5 {
		t.Errorf("max above length should be a no-op, got %d", len(got))
	}
}

func TestApplyLocationCorrectionsOnlyTouchesMismatches(t *testing.T) {
	matched := &node.Node{
		DisplayName: "US Node",
		Geo:         &node.GeoInfo{CountryCode: "US"},
		Probe:       &node.ProbeInfo{LocationMismatch: false},
	}
	mismatched := &node.Node{
		DisplayName: "US Node",
		Geo:         &node.GeoInfo{CountryCode: "DE"},
		Probe:       &node.ProbeInfo{LocationMismatch: true},
	}
	applyLocationCorrections([]*node.Node{matched, mismatched})

	if matched.RawDisplayName != "" {
		t.Error("a matched node must not be rewritten")
	}
	if mismatched.RawDisplayName == "" {
		t.Error("a mismatched node should have its original name preserved")
	}
}

func TestEgressURLFormatsHTTPAndHTTPSAlike(t *testing.T) {
	n := &node.Node{Protocol: node.ProtocolHTTPS, Server: "1.2.3.4", Port: 8080}
	got := egressURL(n)
	if got != "http://1.2.3.4:8080" {
		t.Errorf("got %q", got)
	}
}

func TestEgressURLIncludesAuth(t *testing.T) {
	n := &node.Node{
		Protocol: node.ProtocolSOCKS5,
		Server:   "1.2.3.4",
		Port:     1080,
		Settings: node.Settings{Username: "u", Password: "p"},
	}
	got := egressURL(n)
	if got != "socks5://u:p@1.2.3.4:1080" {
		t.Errorf("got %q", got)
	}
}

func TestItoa(t *testing.T) {
	cases := map[int]string{0: "0", 443: "443", -7: "-7", 65535: "65535"}
	for in, want := range cases {
		if got := itoa(in); got != want {
			t.Errorf("itoa(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestCountDistinctRegionsAndProtocols(t *testing.T) {
	nodes := []*node.Node{
		{Protocol: node.ProtocolVMess, Geo: &node.GeoInfo{CountryCode: "US"}},
		{Protocol: node.ProtocolVMess, Geo: &node.GeoInfo{CountryCode: "US"}},
		{Protocol: node.ProtocolTrojan, Geo: &node.GeoInfo{CountryCode: "HK"}},
		{Protocol: node.ProtocolTrojan, Geo: nil},
	}
	if got := countDistinctRegions(nodes); got != 2 {
		t.Errorf("regions = %d, want 2", got)
	}
	if got := countDistinctProtocols(nodes); got != 2 {
		t.Errorf("protocols = %d, want 2", got)
	}
}

func TestDistinctServiceTagsSortedAndDeduped(t *testing.T) {
	nodes := []*node.Node{
		{Tags: []string{"Netflix", "US"}},
		{Tags: []string{"OpenAI", "Netflix"}},
	}
	got := distinctServiceTags(nodes)
	want := []string{"Netflix", "OpenAI"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
