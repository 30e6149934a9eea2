package emit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/subagg/resin/internal/group"
	"github.com/subagg/resin/internal/node"
)

// ConversionError reports that one artifact could not be produced; the
// run is still considered successful as long as at least one artifact
// was emitted.
type ConversionError struct {
	Artifact string
	Err      error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("emit: %s: %v", e.Artifact, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

func (e *Emitter) writeFile(name, content string) error {
	if err := os.MkdirAll(e.OutputDir, 0o755); err != nil {
		return &ConversionError{Artifact: name, Err: err}
	}
	path := filepath.Join(e.OutputDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return &ConversionError{Artifact: name, Err: err}
	}
	return nil
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n") + "\n"
}

// WriteClashConfig renders the Mihomo/Clash YAML client config and
// writes it to <OutputDir>/mihomo.yaml.
func (e *Emitter) WriteClashConfig(groups []group.Group) error {
	return e.writeClashLike(groups, "mihomo.yaml")
}

// WriteLegacyClashConfig writes the same document to the legacy /clash
// path's backing file.
func (e *Emitter) WriteLegacyClashConfig(groups []group.Group) error {
	return e.writeClashLike(groups, "clash.yaml")
}

func (e *Emitter) writeClashLike(groups []group.Group, filename string) error {
	var proxyBlock strings.Builder
	for _, g := range groups {
		if g.Kind == group.KindMeta {
			continue
		}
		for _, n := range g.Members {
			line, err := yaml.Marshal([]map[string]any{clashProxy(n)})
			if err != nil {
				return &ConversionError{Artifact: filename, Err: err}
			}
			proxyBlock.WriteString(indent(string(line), "  "))
		}
	}

	var groupBlock strings.Builder
	for _, g := range groups {
		entry := clashGroupEntry(g)
		line, err := yaml.Marshal([]map[string]any{entry})
		if err != nil {
			return &ConversionError{Artifact: filename, Err: err}
		}
		groupBlock.WriteString(indent(string(line), "  "))
	}

	// The template already indents each marker line, so the first line of
	// each block drops its own indent to keep every list item aligned.
	doc := strings.Replace(clashTemplate, clashProxiesMarker, strings.TrimPrefix(strings.TrimRight(proxyBlock.String(), "\n"), "  "), 1)
	doc = strings.Replace(doc, clashGroupsMarker, strings.TrimPrefix(strings.TrimRight(groupBlock.String(), "\n"), "  "), 1)

	return e.writeFile(filename, doc)
}

// clashGroupEntry builds a proxy-groups record for g: a url-test selector
// listing g's own members for region/service groups, or a select
// selector listing the meta-group's member node names (the union of its
// referenced groups' nodes) plus DIRECT/REJECT for meta-groups.
func clashGroupEntry(g group.Group) map[string]any {
	entry := map[string]any{
		"name": g.DisplayName,
		"icon": group.IconFor(g.Key),
	}
	names := make([]string, 0, len(g.Members))
	for _, n := range g.Members {
		names = append(names, n.DisplayName)
	}
	if g.Kind == group.KindMeta {
		names = append(names, "DIRECT", "REJECT")
		entry["type"] = "select"
		entry["proxies"] = names
		return entry
	}
	if len(names) == 0 {
		names = []string{"DIRECT"}
	}
	entry["type"] = "url-test"
	entry["proxies"] = names
	entry["url"] = g.Test.URL
	entry["interval"] = int(g.Test.Interval.Seconds())
	entry["tolerance"] = int(g.Test.Tolerance.Milliseconds())
	return entry
}

// WriteSurgeConfig renders the Surge ini-like client config.
func (e *Emitter) WriteSurgeConfig(groups []group.Group) error {
	var proxyLines []string
	var groupLines []string

	for _, g := range groups {
		if g.Kind == group.KindMeta {
			continue
		}
		for _, n := range g.Members {
			if line, ok := surgeProxyLine(n); ok {
				proxyLines = append(proxyLines, line)
			}
		}
	}
	for _, g := range groups {
		groupLines = append(groupLines, surgeGroupLine(g))
	}

	doc := strings.Replace(surgeTemplate, surgeProxyMarker, strings.Join(proxyLines, "\n"), 1)
	doc = strings.Replace(doc, surgeGroupMarker, strings.Join(groupLines, "\n"), 1)
	return e.writeFile("surge.conf", doc)
}

// surgeProxyLine renders one Surge [Proxy] entry. Surge has no wire
// representation for shadowsocksr or vless/hysteria2; those protocols are
// skipped in the Surge artifact (ok=false), matching Surge's own client
// support matrix rather than inventing a non-standard extension.
func surgeProxyLine(n *node.Node) (string, bool) {
	switch n.Protocol {
	case node.ProtocolShadowsocks:
		return fmt.Sprintf("%s = ss, %s, %d, encrypt-method=%s, password=%s",
			n.DisplayName, n.Server, n.Port, n.Settings.Method, n.Settings.Password), true
	case node.ProtocolTrojan:
		return fmt.Sprintf("%s = trojan, %s, %d, password=%s, sni=%s, skip-cert-verify=%t",
			n.DisplayName, n.Server, n.Port, n.Settings.Password, n.Settings.SNI, n.Settings.AllowInsecure), true
	case node.ProtocolVMess:
		return fmt.Sprintf("%s = vmess, %s, %d, username=%s, tls=%t, ws=%t, ws-path=%s, ws-headers=Host:%s",
			n.DisplayName, n.Server, n.Port, n.Settings.UUID, n.Settings.TLS == "tls",
			n.Settings.Transport == "ws", n.Settings.WSPath, n.Settings.WSHost), true
	case node.ProtocolHTTP, node.ProtocolHTTPS:
		return fmt.Sprintf("%s = http, %s, %d, %s, %s",
			n.DisplayName, n.Server, n.Port, n.Settings.Username, n.Settings.Password), true
	case node.ProtocolSOCKS5:
		return fmt.Sprintf("%s = socks5, %s, %d, %s, %s",
			n.DisplayName, n.Server, n.Port, n.Settings.Username, n.Settings.Password), true
	default:
		return "", false
	}
}

func surgeGroupLine(g group.Group) string {
	names := make([]string, 0, len(g.Members))
	for _, n := range g.Members {
		names = append(names, n.DisplayName)
	}
	kind := "url-test"
	if g.Kind == group.KindMeta {
		kind = "select"
		names = append(names, "DIRECT", "REJECT")
	}
	if len(names) == 0 {
		names = []string{"DIRECT"}
	}
	line := fmt.Sprintf("%s = %s, %s", g.DisplayName, kind, strings.Join(names, ", "))
	if kind == "url-test" {
		line += fmt.Sprintf(", url=%s, interval=%d", g.Test.URL, int(g.Test.Interval.Seconds()))
	}
	return line
}

// WriteSingBoxConfig renders the SingBox JSON client config.
func (e *Emitter) WriteSingBoxConfig(groups []group.Group) error {
	var outbounds []map[string]any
	var allTags []string
	for _, g := range groups {
		if g.Kind == group.KindMeta {
			continue
		}
		for _, n := range g.Members {
			ob, ok := singboxOutbound(n)
			if !ok {
				continue
			}
			outbounds = append(outbounds, ob)
			allTags = append(allTags, n.DisplayName)
		}
	}
	for _, g := range groups {
		tags := make([]string, 0, len(g.Members))
		for _, n := range g.Members {
			tags = append(tags, n.DisplayName)
		}
		if g.Kind == group.KindMeta {
			tags = append(tags, "direct")
		}
		outbounds = append(outbounds, map[string]any{
			"type":      "urltest",
			"tag":       g.DisplayName,
			"outbounds": tags,
			"url":       g.Test.URL,
			"interval":  g.Test.Interval.String(),
		})
	}
	outbounds = append(outbounds, map[string]any{"type": "direct", "tag": "direct"})
	if len(allTags) > 0 {
		outbounds = append(outbounds, map[string]any{
			"type":      "selector",
			"tag":       "select",
			"outbounds": append(append([]string{}, allTags...), "direct"),
		})
	}

	doc := map[string]any{
		"log":       json.RawMessage(singboxSkeletonLog),
		"outbounds": outbounds,
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &ConversionError{Artifact: "singbox.json", Err: err}
	}
	return e.writeFile("singbox.json", string(raw))
}

func singboxOutbound(n *node.Node) (map[string]any, bool) {
	base := map[string]any{
		"tag":         n.DisplayName,
		"server":      n.Server,
		"server_port": n.Port,
	}
	switch n.Protocol {
	case node.ProtocolVMess:
		base["type"] = "vmess"
		base["uuid"] = n.Settings.UUID
		base["alter_id"] = n.Settings.AlterID
		base["security"] = "auto"
		return base, true
	case node.ProtocolVLESS:
		base["type"] = "vless"
		base["uuid"] = n.Settings.UUID
		base["flow"] = n.Settings.Flow
		return base, true
	case node.ProtocolShadowsocks:
		base["type"] = "shadowsocks"
		base["method"] = n.Settings.Method
		base["password"] = n.Settings.Password
		return base, true
	case node.ProtocolTrojan:
		base["type"] = "trojan"
		base["password"] = n.Settings.Password
		return base, true
	case node.ProtocolHysteria2:
		base["type"] = "hysteria2"
		base["password"] = n.Settings.Auth
		return base, true
	default:
		return nil, false
	}
}

// WriteV2RayConfig renders the V2Ray JSON client config.
// V2Ray's outbound shape only covers vmess/vless natively among this
// system's protocols; other protocols are omitted from this artifact.
func (e *Emitter) WriteV2RayConfig(groups []group.Group) error {
	var outbounds []map[string]any
	for _, g := range groups {
		if g.Kind == group.KindMeta {
			continue
		}
		for _, n := range g.Members {
			ob, ok := v2rayOutbound(n)
			if !ok {
				continue
			}
			outbounds = append(outbounds, ob)
		}
	}
	doc := map[string]any{
		"log":       json.RawMessage(v2raySkeletonLog),
		"outbounds": outbounds,
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &ConversionError{Artifact: "v2ray.json", Err: err}
	}
	return e.writeFile("v2ray.json", string(raw))
}

func v2rayOutbound(n *node.Node) (map[string]any, bool) {
	if n.Protocol != node.ProtocolVMess && n.Protocol != node.ProtocolVLESS {
		return nil, false
	}
	user := map[string]any{"id": n.Settings.UUID}
	if n.Protocol == node.ProtocolVMess {
		user["alterId"] = n.Settings.AlterID
		user["security"] = "auto"
	} else {
		user["encryption"] = firstNonEmpty(n.Settings.Encryption, "none")
		user["flow"] = n.Settings.Flow
	}
	return map[string]any{
		"tag":      n.DisplayName,
		"protocol": string(n.Protocol),
		"settings": map[string]any{
			"vnext": []map[string]any{{
				"address": n.Server,
				"port":    n.Port,
				"users":   []map[string]any{user},
			}},
		},
		"streamSettings": map[string]any{
			"network":  firstNonEmpty(n.Settings.Transport, "tcp"),
			"security": firstNonEmpty(strings.Replace(n.Settings.TLS, "none", "", 1), ""),
		},
	}, true
}
