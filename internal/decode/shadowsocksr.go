package decode

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/subagg/resin/internal/node"
)

// DecodeShadowsocksR decodes an ssr:// share link:
//
//	ssr://BASE64(host:port:proto:method:obfs:BASE64(pass)/?k=BASE64(v)&...)
func DecodeShadowsocksR(uri string) (*node.Node, error) {
	const prefix = "ssr://"
	body := strings.TrimPrefix(uri, prefix)
	decoded, err := decodeBase64Tolerant(body)
	if err != nil {
		return nil, newParseError(prefix, fmt.Errorf("base64: %w", err))
	}

	main, query, _ := strings.Cut(string(decoded), "/?")
	parts := strings.SplitN(main, ":", 6)
	if len(parts) != 6 {
		return nil, newParseError(prefix, fmt.Errorf("expected 6 colon-separated fields, got %d", len(parts)))
	}
	host := parts[0]
	port, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, newParseError(prefix, fmt.Errorf("bad port: %w", err))
	}
	proto, method, obfs, passwordB64 := parts[2], parts[3], parts[4], parts[5]

	password := base64ValueTolerant(passwordB64)

	values, _ := url.ParseQuery(query)
	remarks := base64ValueTolerant(values.Get("remarks"))
	obfsParam := base64ValueTolerant(values.Get("obfsparam"))
	protoParam := base64ValueTolerant(values.Get("protoparam"))

	name := remarks
	if name == "" {
		name = defaultDisplayName(node.ProtocolShadowsocksR, host, port)
	}

	return &node.Node{
		Protocol:    node.ProtocolShadowsocksR,
		Server:      host,
		Port:        port,
		DisplayName: name,
		Settings: node.Settings{
			Method:     method,
			Password:   password,
			SSRProto:   proto,
			Obfs:       obfs,
			ObfsParam:  obfsParam,
			ProtoParam: protoParam,
		},
	}, nil
}

// base64ValueTolerant decodes a base64 query-parameter value, tolerant of
// missing padding; returns the raw value unchanged if decoding fails.
func base64ValueTolerant(v string) string {
	if v == "" {
		return ""
	}
	if b, err := decodeBase64Tolerant(v); err == nil {
		return string(b)
	}
	return v
}

// EncodeShadowsocksR synthesizes an ssr:// link from a Node.
func EncodeShadowsocksR(n *node.Node) (string, error) {
	main := fmt.Sprintf("%s:%d:%s:%s:%s:%s",
		n.Server, n.Port, n.Settings.SSRProto, n.Settings.Method, n.Settings.Obfs,
		base64Encode(n.Settings.Password))
	q := url.Values{}
	q.Set("remarks", base64Encode(n.DisplayName))
	if n.Settings.ObfsParam != "" {
		q.Set("obfsparam", base64Encode(n.Settings.ObfsParam))
	}
	if n.Settings.ProtoParam != "" {
		q.Set("protoparam", base64Encode(n.Settings.ProtoParam))
	}
	return "ssr://" + base64Encode(main+"/?"+q.Encode()), nil
}
