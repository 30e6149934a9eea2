package decode

import (
	"strconv"
	"strings"

	"github.com/subagg/resin/internal/node"
)

// DecodeClashProxy synthesizes a canonical Node from a Clash-style proxy
// record, without going through a URI. Supported keys: name, type, server,
// port, uuid|password|cipher, network, tls, sni, ws-opts.path,
// ws-opts.headers.Host, skip-cert-verify.
func DecodeClashProxy(m map[string]any) (*node.Node, bool) {
	server := getString(m, "server")
	port, ok := getInt(m, "port")
	if server == "" || !ok {
		return nil, false
	}
	name := firstNonEmpty(getString(m, "name"), getString(m, "tag"))
	typ := strings.ToLower(strings.TrimSpace(getString(m, "type")))

	n := &node.Node{Server: server, Port: port, DisplayName: name}

	switch typ {
	case "ss", "shadowsocks":
		method := firstNonEmpty(getString(m, "cipher"), getString(m, "method"))
		password := getString(m, "password")
		if method == "" || password == "" {
			return nil, false
		}
		n.Protocol = node.ProtocolShadowsocks
		n.Settings = node.Settings{Method: method, Password: password}
	case "ssr", "shadowsocksr":
		method := firstNonEmpty(getString(m, "cipher"), getString(m, "method"))
		password := getString(m, "password")
		if method == "" || password == "" {
			return nil, false
		}
		n.Protocol = node.ProtocolShadowsocksR
		n.Settings = node.Settings{
			Method:     method,
			Password:   password,
			SSRProto:   getString(m, "protocol"),
			Obfs:       getString(m, "obfs"),
			ObfsParam:  getString(m, "obfs-param"),
			ProtoParam: getString(m, "protocol-param"),
		}
	case "vmess":
		uuid := getString(m, "uuid")
		if uuid == "" {
			return nil, false
		}
		n.Protocol = node.ProtocolVMess
		n.Settings = node.Settings{
			UUID:      uuid,
			Transport: firstNonEmpty(getString(m, "network"), "tcp"),
			WSPath:    getNested(m, "ws-opts", "path"),
			WSHost:    getNestedHeader(m, "ws-opts", "headers", "Host"),
			TLS:       tlsFlag(m),
			SNI:       getString(m, "sni"),
		}
		if aid, ok := getInt(m, "alterId"); ok {
			n.Settings.AlterID = aid
		}
	case "vless":
		uuid := getString(m, "uuid")
		if uuid == "" {
			return nil, false
		}
		n.Protocol = node.ProtocolVLESS
		n.Settings = node.Settings{
			UUID:       uuid,
			Transport:  firstNonEmpty(getString(m, "network"), "tcp"),
			WSPath:     getNested(m, "ws-opts", "path"),
			WSHost:     getNestedHeader(m, "ws-opts", "headers", "Host"),
			TLS:        tlsFlag(m),
			SNI:        getString(m, "sni"),
			Flow:       getString(m, "flow"),
			Encryption: "none",
		}
	case "trojan":
		password := getString(m, "password")
		if password == "" {
			return nil, false
		}
		n.Protocol = node.ProtocolTrojan
		n.Settings = node.Settings{
			Password:      password,
			SNI:           getString(m, "sni"),
			AllowInsecure: getBoolValue(m, "skip-cert-verify"),
		}
	case "hysteria2":
		password := firstNonEmpty(getString(m, "password"), getString(m, "auth"))
		if password == "" {
			return nil, false
		}
		n.Protocol = node.ProtocolHysteria2
		n.Settings = node.Settings{
			Auth:          password,
			SNI:           getString(m, "sni"),
			AllowInsecure: getBoolValue(m, "skip-cert-verify"),
			Obfs:          getString(m, "obfs"),
			ObfsPassword:  getString(m, "obfs-password"),
		}
	case "http":
		n.Protocol = node.ProtocolHTTP
		n.Settings = node.Settings{Username: getString(m, "username"), Password: getString(m, "password")}
	case "socks5", "socks":
		n.Protocol = node.ProtocolSOCKS5
		n.Settings = node.Settings{Username: getString(m, "username"), Password: getString(m, "password")}
	default:
		return nil, false
	}

	if n.DisplayName == "" {
		n.DisplayName = defaultDisplayName(n.Protocol, n.Server, n.Port)
	}
	n.ID = node.IDFor(n.Protocol, n.Server, n.Port, "")
	return n, true
}

func tlsFlag(m map[string]any) string {
	if getBoolValue(m, "tls") {
		return "tls"
	}
	return "none"
}

func getString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.Itoa(int(t))
	default:
		return ""
	}
}

func getBoolValue(m map[string]any, key string) bool {
	v, ok := m[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func getInt(m map[string]any, key string) (int, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return t, true
	case float64:
		return int(t), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		return i, err == nil
	default:
		return 0, false
	}
}

func getNested(m map[string]any, outerKey, innerKey string) string {
	outer, ok := m[outerKey].(map[string]any)
	if !ok {
		return ""
	}
	return getString(outer, innerKey)
}

func getNestedHeader(m map[string]any, outerKey, headersKey, headerName string) string {
	outer, ok := m[outerKey].(map[string]any)
	if !ok {
		return ""
	}
	headers, ok := outer[headersKey].(map[string]any)
	if !ok {
		return ""
	}
	return getString(headers, headerName)
}
