// Package format auto-detects the wire shape of a subscription payload and
// dispatches it to the right decoder(s), turning it into canonical nodes.
// Detection tries, in order: Clash-style YAML, JSON, a plain URI list, a
// base64 envelope around a URI list, and finally a lenient YAML fallback.
package format

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/subagg/resin/internal/decode"
	"github.com/subagg/resin/internal/node"
	"gopkg.in/yaml.v3"
)

// Kind is the detected payload shape.
type Kind int

const (
	KindYAML Kind = iota
	KindJSON
	KindURIList
	KindBase64Envelope
	KindYAMLFallback
)

func (k Kind) String() string {
	switch k {
	case KindYAML:
		return "yaml"
	case KindJSON:
		return "json"
	case KindURIList:
		return "uri-list"
	case KindBase64Envelope:
		return "base64-envelope"
	case KindYAMLFallback:
		return "yaml-fallback"
	default:
		return "unknown"
	}
}

var yamlBlockEntryRe = regexp.MustCompile(`(?m)^\s*-\s*name:`)

// Detect classifies raw payload text by trying each shape in order;
// first match wins.
func Detect(raw string) Kind {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)

	if looksLikeClashYAML(lower) {
		return KindYAML
	}
	if looksLikeJSON(trimmed) {
		return KindJSON
	}
	if countURIOccurrences(trimmed) >= 2 {
		return KindURIList
	}
	if looksLikeBase64Envelope(trimmed) {
		return KindBase64Envelope
	}
	return KindYAMLFallback
}

func looksLikeClashYAML(lower string) bool {
	hasProxies := strings.Contains(lower, "proxies:")
	hasRulesOrGroups := strings.Contains(lower, "rules:") || strings.Contains(lower, "proxy-groups:")
	if hasProxies && hasRulesOrGroups {
		return true
	}
	return hasBlockSequenceProxyEntry(lower)
}

// hasBlockSequenceProxyEntry looks for a YAML list item opened with
// "- name:" whose nearby text also carries type:/server:/port: keys.
func hasBlockSequenceProxyEntry(lower string) bool {
	loc := yamlBlockEntryRe.FindStringIndex(lower)
	if loc == nil {
		return false
	}
	end := loc[0] + 400
	if end > len(lower) {
		end = len(lower)
	}
	chunk := lower[loc[0]:end]
	return strings.Contains(chunk, "type:") && strings.Contains(chunk, "server:") && strings.Contains(chunk, "port:")
}

func looksLikeJSON(trimmed string) bool {
	if trimmed == "" {
		return false
	}
	switch trimmed[0] {
	case '{', '[':
		var v any
		return json.Unmarshal([]byte(trimmed), &v) == nil
	default:
		return false
	}
}

func countURIOccurrences(text string) int {
	count := 0
	for _, prefix := range decode.KnownPrefixes() {
		count += strings.Count(text, prefix)
	}
	return count
}

var base64CharsRe = regexp.MustCompile(`^[A-Za-z0-9+/=\s]+$`)

func looksLikeBase64Envelope(trimmed string) bool {
	if trimmed == "" || !base64CharsRe.MatchString(trimmed) {
		return false
	}
	decoded, ok := decodeEnvelope(trimmed)
	if !ok {
		return false
	}
	text := string(decoded)
	for _, prefix := range decode.KnownPrefixes() {
		if strings.Contains(text, prefix) {
			return true
		}
	}
	return false
}

func decodeEnvelope(s string) ([]byte, bool) {
	compact := strings.Join(strings.Fields(s), "")
	if compact == "" {
		return nil, false
	}
	if m := len(compact) % 4; m != 0 {
		compact += strings.Repeat("=", 4-m)
	}
	if b, err := base64.StdEncoding.DecodeString(compact); err == nil {
		return b, true
	}
	if b, err := base64.URLEncoding.DecodeString(compact); err == nil {
		return b, true
	}
	return nil, false
}

// Result is the outcome of parsing one subscription payload.
type Result struct {
	Kind     Kind
	Nodes    []*node.Node
	Dropped  int // nodes produced but failing Node.Validate
	ParseErr []error
}

// Parse detects the payload's shape and decodes it into canonical nodes,
// tagging each with sourceTag. Decoder/validation failures are logged and
// the offending entry is dropped; the run never aborts on a single bad
// entry.
func Parse(raw []byte, sourceTag string, logger *log.Logger) Result {
	if logger == nil {
		logger = log.Default()
	}
	text := string(raw)
	kind := Detect(text)

	var nodes []*node.Node
	var errs []error

	switch kind {
	case KindYAML, KindYAMLFallback:
		nodes, errs = parseYAML(text, logger)
	case KindJSON:
		nodes, errs = parseJSON(text, logger)
	case KindURIList:
		nodes, errs = parseURIList(text, logger)
	case KindBase64Envelope:
		decoded, ok := decodeEnvelope(text)
		if !ok {
			errs = append(errs, fmt.Errorf("format: base64 envelope failed to decode"))
			break
		}
		nodes, errs = parseURIList(string(decoded), logger)
	}

	result := Result{Kind: kind, ParseErr: errs}
	for _, n := range nodes {
		if err := n.Validate(); err != nil {
			logger.Printf("[format] dropping invalid node from %q: %v", sourceTag, err)
			result.Dropped++
			continue
		}
		n.SourceTag = sourceTag
		result.Nodes = append(result.Nodes, n)
	}
	return result
}

func parseURIList(text string, logger *log.Logger) ([]*node.Node, []error) {
	var nodes []*node.Node
	var errs []error
	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		n, err := decode.DecodeURI(line)
		if err != nil {
			logger.Printf("[format] uri decode failed: %v", err)
			errs = append(errs, err)
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes, errs
}

// clashDoc is the subset of a Clash/Mihomo config this system reads.
// proxy-providers entries are matched loosely (map[string]any) since their
// shape varies by provider type.
type clashDoc struct {
	Proxies        []map[string]any          `yaml:"proxies" json:"proxies"`
	ProxyProviders map[string]map[string]any `yaml:"proxy-providers" json:"proxy-providers"`
}

func parseYAML(text string, logger *log.Logger) ([]*node.Node, []error) {
	var doc clashDoc
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, []error{fmt.Errorf("format: unmarshal yaml: %w", err)}
	}
	return decodeClashDoc(doc, logger), nil
}

func parseJSON(text string, logger *log.Logger) ([]*node.Node, []error) {
	var doc clashDoc
	if err := json.Unmarshal([]byte(text), &doc); err == nil && (len(doc.Proxies) > 0 || len(doc.ProxyProviders) > 0) {
		return decodeClashDoc(doc, logger), nil
	}

	// Fall back to a bare JSON array of advertisement URIs.
	var lines []string
	if err := json.Unmarshal([]byte(text), &lines); err != nil {
		return nil, []error{fmt.Errorf("format: unmarshal json: %w", err)}
	}
	var nodes []*node.Node
	var errs []error
	for _, uri := range lines {
		n, err := decode.DecodeURI(uri)
		if err != nil {
			logger.Printf("[format] uri decode failed: %v", err)
			errs = append(errs, err)
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes, errs
}

func decodeClashDoc(doc clashDoc, logger *log.Logger) []*node.Node {
	records := append([]map[string]any{}, doc.Proxies...)
	for _, provider := range doc.ProxyProviders {
		nested, ok := provider["proxies"].([]any)
		if !ok {
			continue
		}
		for _, item := range nested {
			if m, ok := item.(map[string]any); ok {
				records = append(records, m)
			}
		}
	}

	var nodes []*node.Node
	for _, rec := range records {
		n, ok := decode.DecodeClashProxy(rec)
		if !ok {
			logger.Printf("[format] clash record not recognised: %v", rec["name"])
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes
}
