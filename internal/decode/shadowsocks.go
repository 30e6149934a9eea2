package decode

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/subagg/resin/internal/node"
)

// DecodeShadowsocks decodes a ss:// share link. Two shapes are tried in
// order: SIP002 (ss://BASE64(method:password)@host:port#name) first,
// then the legacy all-in-base64 form.
func DecodeShadowsocks(uri string) (*node.Node, error) {
	const prefix = "ss://"
	body := strings.TrimPrefix(uri, prefix)

	fragment := ""
	if idx := strings.IndexByte(body, '#'); idx >= 0 {
		fragment = body[idx+1:]
		body = body[:idx]
	}

	if n, err := decodeSIP002(body, fragment); err == nil {
		n.Protocol = node.ProtocolShadowsocks
		return n, nil
	}
	if n, err := decodeLegacySS(body, fragment); err == nil {
		n.Protocol = node.ProtocolShadowsocks
		return n, nil
	}
	return nil, newParseError(prefix, fmt.Errorf("neither SIP002 nor legacy form parsed"))
}

func decodeSIP002(body, fragment string) (*node.Node, error) {
	at := strings.LastIndexByte(body, '@')
	if at < 0 {
		return nil, fmt.Errorf("no userinfo separator")
	}
	userinfo, hostport := body[:at], body[at+1:]

	decoded, err := decodeBase64Tolerant(userinfo)
	if err != nil {
		// Some generators leave userinfo unencoded ("method:password").
		decoded = []byte(userinfo)
	}
	method, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return nil, fmt.Errorf("userinfo missing method:password")
	}

	host, portStr, err := splitHostPort(hostport)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("bad port: %w", err)
	}

	name := displayNameFromFragment(fragment)
	if name == "" {
		name = defaultDisplayName(node.ProtocolShadowsocks, host, port)
	}
	return &node.Node{
		Server:      host,
		Port:        port,
		DisplayName: name,
		Settings:    node.Settings{Method: method, Password: password},
	}, nil
}

func decodeLegacySS(body, fragment string) (*node.Node, error) {
	decoded, err := decodeBase64Tolerant(body)
	if err != nil {
		return nil, fmt.Errorf("base64: %w", err)
	}
	at := strings.LastIndexByte(string(decoded), '@')
	if at < 0 {
		return nil, fmt.Errorf("no userinfo separator in decoded body")
	}
	userinfo, hostport := string(decoded)[:at], string(decoded)[at+1:]
	method, password, ok := strings.Cut(userinfo, ":")
	if !ok {
		return nil, fmt.Errorf("userinfo missing method:password")
	}
	host, portStr, err := splitHostPort(hostport)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("bad port: %w", err)
	}
	name := displayNameFromFragment(fragment)
	if name == "" {
		name = defaultDisplayName(node.ProtocolShadowsocks, host, port)
	}
	return &node.Node{
		Server:      host,
		Port:        port,
		DisplayName: name,
		Settings:    node.Settings{Method: method, Password: password},
	}, nil
}

func splitHostPort(hostport string) (host, port string, err error) {
	idx := strings.LastIndexByte(hostport, ':')
	if idx < 0 {
		return "", "", fmt.Errorf("missing port")
	}
	return hostport[:idx], hostport[idx+1:], nil
}

// EncodeShadowsocks synthesizes a SIP002-shaped ss:// link from a Node.
func EncodeShadowsocks(n *node.Node) (string, error) {
	userinfo := base64.StdEncoding.EncodeToString([]byte(n.Settings.Method + ":" + n.Settings.Password))
	u := url.URL{
		Scheme:   "ss",
		Host:     fmt.Sprintf("%s:%d", n.Server, n.Port),
		Fragment: n.DisplayName,
	}
	return fmt.Sprintf("ss://%s@%s#%s", userinfo, u.Host, url.QueryEscape(u.Fragment)), nil
}
