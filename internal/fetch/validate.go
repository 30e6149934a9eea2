package fetch

import (
	"bytes"
	"encoding/base64"
	"strings"

	"github.com/subagg/resin/internal/decode"
)

// Validate applies a handful of plausibility heuristics to a fetched body:
// it's considered a plausible subscription payload if it's non-empty and
// looks like base64, a URI list, or a Clash-style config.
func Validate(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return false
	}
	text := string(trimmed)

	if containsKnownPrefix(decodeBase64Loose(text)) {
		return true // base64 envelope decodes to a known URI prefix
	}
	if containsKnownPrefix(text) {
		return true // contains a known URI prefix directly
	}
	if strings.Contains(text, "proxies:") || strings.Contains(text, "Proxy:") || strings.Contains(text, "- name:") {
		return true // looks like a Clash-style config
	}
	if (strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}")) ||
		(strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]")) {
		return true // a bare JSON object or array
	}
	return false
}

func containsKnownPrefix(text string) bool {
	if text == "" {
		return false
	}
	for _, prefix := range decode.KnownPrefixes() {
		if strings.Contains(text, prefix) {
			return true
		}
	}
	return false
}

func decodeBase64Loose(text string) string {
	compact := strings.Join(strings.Fields(text), "")
	if compact == "" {
		return ""
	}
	if m := len(compact) % 4; m != 0 {
		compact += strings.Repeat("=", 4-m)
	}
	if b, err := base64.StdEncoding.DecodeString(compact); err == nil {
		return string(b)
	}
	return ""
}
