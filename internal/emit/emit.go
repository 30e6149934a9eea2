// Package emit writes per-group URI lists and per-client configuration
// files from a built group set.
package emit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/subagg/resin/internal/decode"
	"github.com/subagg/resin/internal/group"
	"github.com/subagg/resin/internal/node"
)

// Emitter writes artifacts under OutputDir.
type Emitter struct {
	OutputDir string
}

// New constructs an Emitter rooted at outputDir.
func New(outputDir string) *Emitter {
	return &Emitter{OutputDir: outputDir}
}

// WriteGroupFiles writes one URI-list file per group under
// output/groups/<Name>.txt. LF line endings, no trailing blank line. A
// node's raw advertisement is reused when present; otherwise a canonical
// URI is synthesized via decode.EncodeURI.
func (e *Emitter) WriteGroupFiles(groups []group.Group) error {
	dir := filepath.Join(e.OutputDir, "groups")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("emit: mkdir %s: %w", dir, err)
	}
	for _, g := range groups {
		lines := make([]string, 0, len(g.Members))
		for _, n := range g.Members {
			uri, err := uriFor(n)
			if err != nil {
				continue // unencodable node is silently skipped, not fatal to the run
			}
			lines = append(lines, uri)
		}
		path := filepath.Join(dir, sanitizeFilename(g.DisplayName)+".txt")
		if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
			return fmt.Errorf("emit: write %s: %w", path, err)
		}
	}
	return nil
}

// uriFor prefers the node's original advertisement URI, falling back to
// a freshly synthesized one.
func uriFor(n *node.Node) (string, error) {
	if n.Raw != "" {
		return n.Raw, nil
	}
	return decode.EncodeURI(n)
}

// sanitizeFilename strips path separators from a group display name so it
// is safe to use as a file name (group names may contain CJK text and
// spaces, both fine on all three major filesystems, but never '/').
func sanitizeFilename(name string) string {
	return strings.ReplaceAll(strings.ReplaceAll(name, "/", "_"), "\\", "_")
}
