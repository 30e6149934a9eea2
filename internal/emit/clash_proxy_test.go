package emit

import (
	"testing"

	"github.com/subagg/resin/internal/node"
)

func TestClashProxyVmessIncludesWSOptsWhenWebsocket(t *testing.T) {
	n := &node.Node{
		Protocol: node.ProtocolVMess,
		Server:   "1.2.3.4",
		Port:     443,
		Settings: node.Settings{UUID: "u1", Transport: "ws", WSPath: "/path", WSHost: "example.com", TLS: "tls"},
	}
	m := clashProxy(n)
	if m["type"] != "vmess" || m["tls"] != true {
		t.Fatalf("unexpected base fields: %+v", m)
	}
	opts, ok := m["ws-opts"].(map[string]any)
	if !ok {
		t.Fatalf("expected ws-opts map, got %+v", m)
	}
	if opts["path"] != "/path" {
		t.Errorf("ws path = %v, want /path", opts["path"])
	}
}

func TestClashProxyShadowsocks(t *testing.T) {
	n := &node.Node{
		Protocol: node.ProtocolShadowsocks,
		Server:   "1.2.3.4",
		Port:     8388,
		Settings: node.Settings{Method: "aes-256-gcm", Password: "secret"},
	}
	m := clashProxy(n)
	if m["type"] != "ss" || m["cipher"] != "aes-256-gcm" || m["password"] != "secret" {
		t.Errorf("unexpected shadowsocks record: %+v", m)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "", "c"); got != "c" {
		t.Errorf("got %q, want c", got)
	}
	if got := firstNonEmpty(); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
