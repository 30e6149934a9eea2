package decode

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/subagg/resin/internal/node"
)

// DecodeVLESS decodes a vless:// share link:
//
//	vless://UUID@host:port?type=&security=&sni=&fp=&alpn=&path=&host=&flow=#name
func DecodeVLESS(uri string) (*node.Node, error) {
	const prefix = "vless://"
	u, err := url.Parse(uri)
	if err != nil {
		return nil, newParseError(prefix, err)
	}
	if u.User == nil || u.User.Username() == "" {
		return nil, newParseError(prefix, fmt.Errorf("missing uuid"))
	}
	host := u.Hostname()
	port, _ := strconv.Atoi(u.Port())
	if host == "" || port == 0 {
		return nil, newParseError(prefix, fmt.Errorf("missing host:port"))
	}

	q := u.Query()
	var alpn []string
	if a := q.Get("alpn"); a != "" {
		alpn = strings.Split(a, ",")
	}

	n := &node.Node{
		Protocol:    node.ProtocolVLESS,
		Server:      host,
		Port:        port,
		DisplayName: displayNameFromFragment(u.Fragment),
		Settings: node.Settings{
			UUID:        u.User.Username(),
			Transport:   firstNonEmpty(q.Get("type"), "tcp"),
			TLS:         mapSecurity(q.Get("security")),
			SNI:         q.Get("sni"),
			Fingerprint: q.Get("fp"),
			ALPN:        alpn,
			WSPath:      q.Get("path"),
			WSHost:      q.Get("host"),
			Flow:        q.Get("flow"),
			Encryption:  firstNonEmpty(q.Get("encryption"), "none"),
		},
	}
	if n.DisplayName == "" {
		n.DisplayName = defaultDisplayName(n.Protocol, n.Server, n.Port)
	}
	n.ID = node.IDFor(n.Protocol, n.Server, n.Port, uri)
	return n, nil
}

// EncodeVLESS synthesizes a vless:// share link from a Node.
func EncodeVLESS(n *node.Node) (string, error) {
	u := url.URL{
		Scheme: "vless",
		User:   url.User(n.Settings.UUID),
		Host:   fmt.Sprintf("%s:%d", n.Server, n.Port),
	}
	q := url.Values{}
	q.Set("type", firstNonEmpty(n.Settings.Transport, "tcp"))
	q.Set("security", securityFromTLS(n.Settings.TLS))
	if n.Settings.SNI != "" {
		q.Set("sni", n.Settings.SNI)
	}
	if n.Settings.Fingerprint != "" {
		q.Set("fp", n.Settings.Fingerprint)
	}
	if len(n.Settings.ALPN) > 0 {
		q.Set("alpn", strings.Join(n.Settings.ALPN, ","))
	}
	if n.Settings.WSPath != "" {
		q.Set("path", n.Settings.WSPath)
	}
	if n.Settings.WSHost != "" {
		q.Set("host", n.Settings.WSHost)
	}
	if n.Settings.Flow != "" {
		q.Set("flow", n.Settings.Flow)
	}
	u.RawQuery = q.Encode()
	u.Fragment = n.DisplayName
	return u.String(), nil
}

func mapSecurity(security string) string {
	switch security {
	case "tls", "reality":
		return "tls"
	default:
		return "none"
	}
}

func securityFromTLS(tls string) string {
	if tls == "tls" {
		return "tls"
	}
	return "none"
}

func displayNameFromFragment(fragment string) string {
	name, err := url.QueryUnescape(fragment)
	if err != nil {
		return fragment
	}
	return name
}
