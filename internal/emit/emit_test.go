package emit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/subagg/resin/internal/group"
	"github.com/subagg/resin/internal/node"
)

func TestWriteGroupFilesWritesOneFilePerGroup(t *testing.T) {
	dir := t.TempDir()
	e := New(dir)
	n := &node.Node{
		Protocol: node.ProtocolShadowsocks,
		Server:   "1.2.3.4",
		Port:     8388,
		Settings: node.Settings{Method: "aes-256-gcm", Password: "secret"},
	}
	groups := []group.Group{
		{Key: "HK", DisplayName: "HK", Kind: group.KindRegion, Members: []*node.Node{n}},
		{Key: "Others", DisplayName: "Others", Kind: group.KindOther},
	}

	if err := e.WriteGroupFiles(groups); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hkBody, err := os.ReadFile(filepath.Join(dir, "groups", "HK.txt"))
	if err != nil {
		t.Fatalf("HK.txt not written: %v", err)
	}
	if len(hkBody) == 0 {
		t.Error("expected non-empty HK.txt")
	}
	othersBody, err := os.ReadFile(filepath.Join(dir, "groups", "Others.txt"))
	if err != nil {
		t.Fatalf("Others.txt not written: %v", err)
	}
	if len(othersBody) != 0 {
		t.Errorf("expected empty Others.txt, got %q", othersBody)
	}
}

func TestSanitizeFilenameStripsSeparators(t *testing.T) {
	if got := sanitizeFilename("a/b\\c"); got != "a_b_c" {
		t.Errorf("got %q, want a_b_c", got)
	}
}

func TestUriForPrefersRawOverSynthesized(t *testing.T) {
	n := &node.Node{
		Protocol: node.ProtocolShadowsocks,
		Server:   "1.2.3.4",
		Port:     8388,
		Raw:      "ss://already-encoded",
		Settings: node.Settings{Method: "aes-256-gcm", Password: "secret"},
	}
	got, err := uriFor(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ss://already-encoded" {
		t.Errorf("got %q, want the raw URI preserved", got)
	}
}
