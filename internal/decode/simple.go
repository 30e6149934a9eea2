package decode

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/subagg/resin/internal/node"
)

// DecodeHTTP decodes an http:// or https:// proxy URL with optional userinfo.
func DecodeHTTP(uri string) (*node.Node, error) {
	return decodeSimpleURL(uri, func(scheme string) node.Protocol {
		if scheme == "https" {
			return node.ProtocolHTTPS
		}
		return node.ProtocolHTTP
	})
}

// DecodeSOCKS5 decodes a socks5:// or socks:// proxy URL with optional userinfo.
func DecodeSOCKS5(uri string) (*node.Node, error) {
	return decodeSimpleURL(uri, func(string) node.Protocol { return node.ProtocolSOCKS5 })
}

func decodeSimpleURL(uri string, protocolFor func(scheme string) node.Protocol) (*node.Node, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, newParseError(shortPrefix(uri), err)
	}
	host := u.Hostname()
	portStr := u.Port()
	if host == "" {
		return nil, newParseError(u.Scheme, fmt.Errorf("missing host"))
	}
	port := 80
	if portStr != "" {
		p, convErr := strconv.Atoi(portStr)
		if convErr != nil {
			return nil, newParseError(u.Scheme, fmt.Errorf("bad port: %w", convErr))
		}
		port = p
	} else if u.Scheme == "https" || u.Scheme == "socks5" || u.Scheme == "socks" {
		port = 443
	}

	protocol := protocolFor(u.Scheme)
	name := displayNameFromFragment(u.Fragment)
	if name == "" {
		name = defaultDisplayName(protocol, host, port)
	}

	settings := node.Settings{}
	if u.User != nil {
		settings.Username = u.User.Username()
		settings.Password, _ = u.User.Password()
	}

	return &node.Node{
		Protocol:    protocol,
		Server:      host,
		Port:        port,
		DisplayName: name,
		Settings:    settings,
	}, nil
}

// EncodeHTTP synthesizes an http(s):// URL from a Node.
func EncodeHTTP(n *node.Node) (string, error) {
	return encodeSimpleURL(n, string(n.Protocol))
}

// EncodeSOCKS5 synthesizes a socks5:// URL from a Node.
func EncodeSOCKS5(n *node.Node) (string, error) {
	return encodeSimpleURL(n, "socks5")
}

func encodeSimpleURL(n *node.Node, scheme string) (string, error) {
	u := url.URL{
		Scheme:   scheme,
		Host:     fmt.Sprintf("%s:%d", n.Server, n.Port),
		Fragment: n.DisplayName,
	}
	if n.Settings.Username != "" {
		if n.Settings.Password != "" {
			u.User = url.UserPassword(n.Settings.Username, n.Settings.Password)
		} else {
			u.User = url.User(n.Settings.Username)
		}
	}
	return u.String(), nil
}
