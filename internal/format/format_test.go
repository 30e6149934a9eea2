package format

import (
	"encoding/base64"
	"log"
	"testing"
)

func TestDetectYAMLWithProxiesAndRules(t *testing.T) {
	text := "proxies:\n  - name: a\nrules:\n  - MATCH,DIRECT\n"
	if got := Detect(text); got != KindYAML {
		t.Errorf("got %v want KindYAML", got)
	}
}

func TestDetectYAMLBlockSequenceEntry(t *testing.T) {
	text := "- name: n1\n  type: ss\n  server: s.example\n  port: 443\n  cipher: aes-256-gcm\n  password: p\n"
	if got := Detect(text); got != KindYAML {
		t.Errorf("got %v want KindYAML", got)
	}
}

func TestDetectJSON(t *testing.T) {
	text := `{"proxies":[{"name":"n","type":"ss","server":"s","port":443,"cipher":"aes-256-gcm","password":"p"}]}`
	if got := Detect(text); got != KindJSON {
		t.Errorf("got %v want KindJSON", got)
	}
}

func TestDetectURIList(t *testing.T) {
	text := "ss://aGVsbG8=@a.example:443#A\nvmess://eyJ2IjoiMiJ9\n"
	if got := Detect(text); got != KindURIList {
		t.Errorf("got %v want KindURIList", got)
	}
}

func TestDetectBase64Envelope(t *testing.T) {
	inner := "ss://aGVsbG8=@a.example:443#A\n"
	text := base64.StdEncoding.EncodeToString([]byte(inner))
	if got := Detect(text); got != KindBase64Envelope {
		t.Errorf("got %v want KindBase64Envelope", got)
	}
}

func TestDetectFallsBackToYAML(t *testing.T) {
	text := "some: random\nkeys: without\nproxy: markers\n"
	if got := Detect(text); got != KindYAMLFallback {
		t.Errorf("got %v want KindYAMLFallback", got)
	}
}

// TestBase64EnvelopeToDedupCandidates checks that a base64 envelope
// containing one vmess and one ss advertisement for the same server:port
// yields two distinct pre-dedup nodes, since their protocols differ.
func TestBase64EnvelopeToDedupCandidates(t *testing.T) {
	inner := "vmess://eyJ2IjoiMiIsInBzIjoiQSIsImFkZCI6IjEuMS4xLjEiLCJwb3J0IjoiNDQzIiwiaWQiOiJhYmMiLCJhaWQiOiIwIiwibmV0IjoidGNwIiwidGxzIjoidGxzIn0=\nss://YWVzLTI1Ni1nY206cGFzcw==@1.1.1.1:443#A\n"
	text := base64.StdEncoding.EncodeToString([]byte(inner))

	result := Parse([]byte(text), "test-source", log.Default())
	if result.Kind != KindBase64Envelope {
		t.Fatalf("kind: got %v want KindBase64Envelope", result.Kind)
	}
	if len(result.Nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(result.Nodes))
	}
	for _, n := range result.Nodes {
		if n.Server != "1.1.1.1" || n.Port != 443 {
			t.Errorf("node %+v has unexpected server/port", n)
		}
		if n.SourceTag != "test-source" {
			t.Errorf("sourceTag: got %q want test-source", n.SourceTag)
		}
	}
}

// TestParserFallbackProxyProviders checks that a Clash YAML document
// missing top-level proxies: but carrying a nested proxy-providers block
// still yields one node.
func TestParserFallbackProxyProviders(t *testing.T) {
	text := `proxy-providers:
  x:
    proxies:
      - name: n
        type: ss
        server: s
        port: 443
        cipher: aes-256-gcm
        password: p
`
	result := Parse([]byte(text), "fallback-source", log.Default())
	if len(result.Nodes) != 1 {
		t.Fatalf("got %d nodes, want 1", len(result.Nodes))
	}
	n := result.Nodes[0]
	if n.Server != "s" || n.Port != 443 {
		t.Errorf("got server=%q port=%d", n.Server, n.Port)
	}
}

func TestParseDropsInvalidNodes(t *testing.T) {
	// port 0 is invalid.
	text := "proxies:\n  - name: bad\n    type: ss\n    server: s\n    port: 0\n    cipher: aes-256-gcm\n    password: p\nrules:\n  - MATCH,DIRECT\n"
	result := Parse([]byte(text), "src", log.Default())
	if len(result.Nodes) != 0 {
		t.Fatalf("got %d nodes, want 0 (invalid port should be dropped)", len(result.Nodes))
	}
}
