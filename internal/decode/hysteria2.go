package decode

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/subagg/resin/internal/node"
)

// DecodeHysteria2 decodes a hysteria2:// share link:
//
//	hysteria2://AUTH@host:port?sni=&insecure=&obfs=&obfs-password=&up=&down=#name
func DecodeHysteria2(uri string) (*node.Node, error) {
	const prefix = "hysteria2://"
	u, err := url.Parse(uri)
	if err != nil {
		return nil, newParseError(prefix, err)
	}
	if u.User == nil || u.User.Username() == "" {
		return nil, newParseError(prefix, fmt.Errorf("missing auth"))
	}
	host := u.Hostname()
	port, err := strconv.Atoi(u.Port())
	if err != nil || host == "" {
		return nil, newParseError(prefix, fmt.Errorf("missing host:port"))
	}

	q := u.Query()
	name := displayNameFromFragment(u.Fragment)
	if name == "" {
		name = defaultDisplayName(node.ProtocolHysteria2, host, port)
	}

	return &node.Node{
		Protocol:    node.ProtocolHysteria2,
		Server:      host,
		Port:        port,
		DisplayName: name,
		Settings: node.Settings{
			Auth:          u.User.Username(),
			SNI:           q.Get("sni"),
			AllowInsecure: q.Get("insecure") == "1" || q.Get("insecure") == "true",
			Obfs:          q.Get("obfs"),
			ObfsPassword:  q.Get("obfs-password"),
			Up:            q.Get("up"),
			Down:          q.Get("down"),
		},
	}, nil
}

// EncodeHysteria2 synthesizes a hysteria2:// link from a Node.
func EncodeHysteria2(n *node.Node) (string, error) {
	q := url.Values{}
	if n.Settings.SNI != "" {
		q.Set("sni", n.Settings.SNI)
	}
	if n.Settings.AllowInsecure {
		q.Set("insecure", "1")
	}
	if n.Settings.Obfs != "" {
		q.Set("obfs", n.Settings.Obfs)
		q.Set("obfs-password", n.Settings.ObfsPassword)
	}
	if n.Settings.Up != "" {
		q.Set("up", n.Settings.Up)
	}
	if n.Settings.Down != "" {
		q.Set("down", n.Settings.Down)
	}
	u := url.URL{
		Scheme:   "hysteria2",
		User:     url.User(n.Settings.Auth),
		Host:     fmt.Sprintf("%s:%d", n.Server, n.Port),
		RawQuery: q.Encode(),
		Fragment: n.DisplayName,
	}
	return u.String(), nil
}
