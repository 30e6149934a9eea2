package emit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/subagg/resin/internal/group"
	"github.com/subagg/resin/internal/node"
)

func mkEmitNode(name string, protocol node.Protocol) *node.Node {
	return &node.Node{
		Protocol:    protocol,
		DisplayName: name,
		Server:      "1.2.3.4",
		Port:        443,
		Settings: node.Settings{
			UUID:     "uuid-1",
			Method:   "aes-256-gcm",
			Password: "secret",
		},
	}
}

func regionGroup(key string, members ...*node.Node) group.Group {
	return group.Group{Key: key, DisplayName: key, Kind: group.KindRegion, Members: members, Test: group.DefaultURLTest}
}

func TestWriteClashConfigProducesValidYAMLWithSubstitutedProxies(t *testing.T) {
	dir := t.TempDir()
	e := New(dir)
	n := mkEmitNode("HK 01", node.ProtocolVMess)
	groups := []group.Group{regionGroup("HK", n)}

	if err := e.WriteClashConfig(groups); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "mihomo.yaml"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		t.Fatalf("output is not valid YAML: %v\n%s", err, b)
	}
	if !strings.Contains(string(b), "HK 01") {
		t.Errorf("expected proxy name in output:\n%s", b)
	}
	if strings.Contains(string(b), clashProxiesMarker) {
		t.Errorf("marker was not substituted:\n%s", b)
	}
}

func TestWriteLegacyClashConfigWritesClashYAML(t *testing.T) {
	dir := t.TempDir()
	e := New(dir)
	groups := []group.Group{regionGroup("HK", mkEmitNode("HK 01", node.ProtocolTrojan))}
	if err := e.WriteLegacyClashConfig(groups); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "clash.yaml")); err != nil {
		t.Fatalf("clash.yaml not written: %v", err)
	}
}

func TestWriteSurgeConfigSkipsUnsupportedProtocols(t *testing.T) {
	dir := t.TempDir()
	e := New(dir)
	supported := mkEmitNode("SS Node", node.ProtocolShadowsocks)
	unsupported := mkEmitNode("VLESS Node", node.ProtocolVLESS)
	groups := []group.Group{regionGroup("HK", supported, unsupported)}

	if err := e.WriteSurgeConfig(groups); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "surge.conf"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !strings.Contains(string(b), "SS Node") {
		t.Errorf("expected supported proxy present:\n%s", b)
	}
	if strings.Contains(string(b), "VLESS Node") {
		t.Errorf("unsupported protocol should be omitted:\n%s", b)
	}
}

func TestWriteSingBoxConfigIsValidJSONWithSelectSelector(t *testing.T) {
	dir := t.TempDir()
	e := New(dir)
	n := mkEmitNode("HK 01", node.ProtocolVMess)
	groups := []group.Group{regionGroup("HK", n)}

	if err := e.WriteSingBoxConfig(groups); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "singbox.json"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, b)
	}
	outbounds, _ := doc["outbounds"].([]any)
	var hasSelect bool
	for _, ob := range outbounds {
		m, ok := ob.(map[string]any)
		if ok && m["tag"] == "select" {
			hasSelect = true
		}
	}
	if !hasSelect {
		t.Errorf("expected a top-level select selector outbound, got: %s", b)
	}
}

func TestWriteSingBoxConfigOmitsSelectSelectorWhenNoProxies(t *testing.T) {
	dir := t.TempDir()
	e := New(dir)
	if err := e.WriteSingBoxConfig(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "singbox.json"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, b)
	}
	outbounds, _ := doc["outbounds"].([]any)
	for _, ob := range outbounds {
		m, _ := ob.(map[string]any)
		if m["tag"] == "select" {
			t.Errorf("should not emit a select selector with zero proxies: %s", b)
		}
	}
}

func TestWriteV2RayConfigOnlyEmitsVmessAndVless(t *testing.T) {
	dir := t.TempDir()
	e := New(dir)
	vmess := mkEmitNode("VMess", node.ProtocolVMess)
	ss := mkEmitNode("SS", node.ProtocolShadowsocks)
	groups := []group.Group{regionGroup("HK", vmess, ss)}

	if err := e.WriteV2RayConfig(groups); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "v2ray.json"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, b)
	}
	outbounds, _ := doc["outbounds"].([]any)
	if len(outbounds) != 1 {
		t.Fatalf("got %d outbounds, want 1 (only vmess supported)", len(outbounds))
	}
}
