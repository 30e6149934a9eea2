package decode

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/subagg/resin/internal/node"
)

// DecodeTrojan decodes a trojan:// share link:
//
//	trojan://PASSWORD@host:port?sni=&allowInsecure=#name
//
// The password segment may itself contain a literal '@' (only partially
// percent-encoded by some generators), which would confuse a naive
// url.Parse. We isolate the authority portion (before '?'/'#'), split on
// its LAST '@' to find the host:port boundary, and percent-decode the
// password independently of the rest of the URL.
func DecodeTrojan(uri string) (*node.Node, error) {
	const prefix = "trojan://"
	rest := strings.TrimPrefix(uri, prefix)

	authorityEnd := len(rest)
	if idx := strings.IndexAny(rest, "?#"); idx >= 0 {
		authorityEnd = idx
	}
	authority, suffix := rest[:authorityEnd], rest[authorityEnd:]

	at := strings.LastIndexByte(authority, '@')
	if at < 0 {
		return nil, newParseError(prefix, fmt.Errorf("missing @ separator"))
	}
	rawPassword, hostport := authority[:at], authority[at+1:]

	password, err := url.PathUnescape(rawPassword)
	if err != nil {
		password = rawPassword
	}

	host, portStr, err := splitHostPort(hostport)
	if err != nil {
		return nil, newParseError(prefix, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, newParseError(prefix, fmt.Errorf("bad port: %w", err))
	}

	u, err := url.Parse("trojan://placeholder" + suffix)
	if err != nil {
		return nil, newParseError(prefix, fmt.Errorf("query/fragment: %w", err))
	}
	q := u.Query()

	name := displayNameFromFragment(u.Fragment)
	if name == "" {
		name = defaultDisplayName(node.ProtocolTrojan, host, port)
	}

	return &node.Node{
		Protocol:    node.ProtocolTrojan,
		Server:      host,
		Port:        port,
		DisplayName: name,
		Settings: node.Settings{
			Password:      password,
			SNI:           q.Get("sni"),
			AllowInsecure: q.Get("allowInsecure") == "1" || strings.EqualFold(q.Get("allowInsecure"), "true"),
		},
	}, nil
}

// EncodeTrojan synthesizes a trojan:// link from a Node, percent-encoding
// the password so it survives round-tripping through URI parsing.
func EncodeTrojan(n *node.Node) (string, error) {
	q := url.Values{}
	if n.Settings.SNI != "" {
		q.Set("sni", n.Settings.SNI)
	}
	if n.Settings.AllowInsecure {
		q.Set("allowInsecure", "1")
	}
	return fmt.Sprintf("trojan://%s@%s:%d?%s#%s",
		url.PathEscape(n.Settings.Password), n.Server, n.Port, q.Encode(), url.QueryEscape(n.DisplayName)), nil
}
