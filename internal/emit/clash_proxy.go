package emit

import "github.com/subagg/resin/internal/node"

// clashProxy builds the Clash/Mihomo proxy record for n as a plain
// map[string]any so the caller can marshal it with gopkg.in/yaml.v3 as
// structured YAML, never as a JSON string embedded in a YAML document.
func clashProxy(n *node.Node) map[string]any {
	m := map[string]any{
		"name":   n.DisplayName,
		"server": n.Server,
		"port":   n.Port,
	}
	switch n.Protocol {
	case node.ProtocolVMess:
		m["type"] = "vmess"
		m["uuid"] = n.Settings.UUID
		m["alterId"] = n.Settings.AlterID
		m["cipher"] = "auto"
		m["network"] = firstNonEmpty(n.Settings.Transport, "tcp")
		m["tls"] = n.Settings.TLS == "tls"
		if n.Settings.SNI != "" {
			m["servername"] = n.Settings.SNI
		}
		if n.Settings.Transport == "ws" {
			m["ws-opts"] = wsOpts(n)
		}
	case node.ProtocolVLESS:
		m["type"] = "vless"
		m["uuid"] = n.Settings.UUID
		m["network"] = firstNonEmpty(n.Settings.Transport, "tcp")
		m["tls"] = n.Settings.TLS == "tls"
		m["flow"] = n.Settings.Flow
		if n.Settings.SNI != "" {
			m["servername"] = n.Settings.SNI
		}
		if n.Settings.Transport == "ws" {
			m["ws-opts"] = wsOpts(n)
		}
	case node.ProtocolShadowsocks:
		m["type"] = "ss"
		m["cipher"] = n.Settings.Method
		m["password"] = n.Settings.Password
	case node.ProtocolShadowsocksR:
		m["type"] = "ssr"
		m["cipher"] = n.Settings.Method
		m["password"] = n.Settings.Password
		m["protocol"] = n.Settings.SSRProto
		m["obfs"] = n.Settings.Obfs
		m["protocol-param"] = n.Settings.ProtoParam
		m["obfs-param"] = n.Settings.ObfsParam
	case node.ProtocolTrojan:
		m["type"] = "trojan"
		m["password"] = n.Settings.Password
		if n.Settings.SNI != "" {
			m["sni"] = n.Settings.SNI
		}
		m["skip-cert-verify"] = n.Settings.AllowInsecure
	case node.ProtocolHysteria2:
		m["type"] = "hysteria2"
		m["password"] = n.Settings.Auth
		if n.Settings.SNI != "" {
			m["sni"] = n.Settings.SNI
		}
		m["obfs"] = n.Settings.Obfs
		m["obfs-password"] = n.Settings.ObfsPassword
	case node.ProtocolHTTP, node.ProtocolHTTPS:
		m["type"] = "http"
		m["tls"] = n.Protocol == node.ProtocolHTTPS
		if n.Settings.Username != "" {
			m["username"] = n.Settings.Username
			m["password"] = n.Settings.Password
		}
	case node.ProtocolSOCKS5:
		m["type"] = "socks5"
		if n.Settings.Username != "" {
			m["username"] = n.Settings.Username
			m["password"] = n.Settings.Password
		}
	}
	return m
}

func wsOpts(n *node.Node) map[string]any {
	opts := map[string]any{"path": firstNonEmpty(n.Settings.WSPath, "/")}
	if n.Settings.WSHost != "" {
		opts["headers"] = map[string]any{"Host": n.Settings.WSHost}
	}
	return opts
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
