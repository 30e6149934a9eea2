// Package orchestrator sequences the end-to-end sync pipeline: fetch,
// parse, dedup, classify (pass 1), probe, filter, classify (pass 2),
// group, emit, and the cache/status bookkeeping around each run.
package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// SourceKind discriminates how a SubscriptionSource's content is
// retrieved.
type SourceKind string

const (
	SourceKindURL      SourceKind = "url"
	SourceKindBase64   SourceKind = "base64"
	SourceKindSingleURI SourceKind = "singleUri"
)

// Source is a configured subscription input.
type Source struct {
	ID                    string     `json:"id"`
	Name                  string     `json:"name"`
	Kind                  SourceKind `json:"kind"`
	URL                   string     `json:"url,omitempty"`
	InlineContent         string     `json:"inline_content,omitempty"`
	Enabled               bool       `json:"enabled"`
	RequireRegionalEgress bool       `json:"require_regional_egress"`
}

// NewSource constructs a Source with a generated ID.
func NewSource(name string, kind SourceKind, enabled bool) *Source {
	return &Source{
		ID:      uuid.NewString(),
		Name:    name,
		Kind:    kind,
		Enabled: enabled,
	}
}

// LoadSources reads the configured subscription list from path, returning
// an empty slice (not an error) when the file doesn't exist yet.
func LoadSources(path string) ([]*Source, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("orchestrator: read %s: %w", path, err)
	}
	var sources []*Source
	if err := json.Unmarshal(b, &sources); err != nil {
		return nil, fmt.Errorf("orchestrator: parse %s: %w", path, err)
	}
	return sources, nil
}

// SaveSources persists sources to path as indented JSON.
func SaveSources(path string, sources []*Source) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("orchestrator: mkdir %s: %w", filepath.Dir(path), err)
	}
	b, err := json.MarshalIndent(sources, "", "  ")
	if err != nil {
		return fmt.Errorf("orchestrator: marshal sources: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("orchestrator: write %s: %w", path, err)
	}
	return nil
}
