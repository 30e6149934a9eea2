// Package decode turns a single proxy advertisement (URI or Clash-style
// map) into a canonical node.Node, and the inverse: synthesizing an
// advertisement URI from a Node when no raw URI survives.
package decode

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/subagg/resin/internal/node"
)

// ParseError is returned by a decoder when it cannot make sense of a URI.
// It carries the offending prefix so callers can report which advertisement
// failed without leaking credentials in logs.
type ParseError struct {
	Prefix string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decode: %s: %v", e.Prefix, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func newParseError(prefix string, err error) *ParseError {
	return &ParseError{Prefix: prefix, Err: err}
}

// Decoder turns one URI into a Node.
type Decoder func(uri string) (*node.Node, error)

// prefixes in a fixed, deterministic order: the parser falls back to trying
// every decoder in this order before surfacing a ParseError.
var orderedPrefixes = []string{
	"vmess://",
	"vless://",
	"ss://",
	"ssr://",
	"trojan://",
	"hysteria2://",
	"https://",
	"http://",
	"socks5://",
	"socks://",
}

var decoders = map[string]Decoder{
	"vmess://":     DecodeVMess,
	"vless://":     DecodeVLESS,
	"ss://":        DecodeShadowsocks,
	"ssr://":       DecodeShadowsocksR,
	"trojan://":    DecodeTrojan,
	"hysteria2://": DecodeHysteria2,
	"http://":      DecodeHTTP,
	"https://":     DecodeHTTP,
	"socks5://":    DecodeSOCKS5,
	"socks://":     DecodeSOCKS5,
}

// KnownPrefixes returns the URI prefixes this package recognises, in
// decode-attempt order.
func KnownPrefixes() []string {
	out := make([]string, len(orderedPrefixes))
	copy(out, orderedPrefixes)
	return out
}

// PrefixFor returns the scheme prefix of uri if it is one we recognise.
func PrefixFor(uri string) (string, bool) {
	for _, p := range orderedPrefixes {
		if strings.HasPrefix(uri, p) {
			return p, true
		}
	}
	return "", false
}

// DecodeURI dispatches uri to the decoder matching its scheme prefix.
// On decoder failure, it tries every other decoder in deterministic order
// before returning the original ParseError — tolerant of malformed
// scheme prefixes in noisy subscription feeds.
func DecodeURI(uri string) (*node.Node, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, newParseError("", fmt.Errorf("empty uri"))
	}

	prefix, ok := PrefixFor(uri)
	if !ok {
		return nil, newParseError(shortPrefix(uri), fmt.Errorf("unrecognised scheme"))
	}

	n, err := decoders[prefix](uri)
	if err == nil {
		n.Raw = uri
		return n, nil
	}
	firstErr := err

	for _, p := range orderedPrefixes {
		if p == prefix {
			continue
		}
		if n, altErr := decoders[p](uri); altErr == nil {
			n.Raw = uri
			return n, nil
		}
	}
	return nil, firstErr
}

// Encoder is the inverse of Decoder: it synthesizes a share URI from a
// Node, reusing node.Raw when present and falling back to the
// protocol-specific template otherwise.
type Encoder func(n *node.Node) (string, error)

var encoders = map[node.Protocol]Encoder{
	node.ProtocolVMess:        EncodeVMess,
	node.ProtocolVLESS:        EncodeVLESS,
	node.ProtocolShadowsocks:  EncodeShadowsocks,
	node.ProtocolShadowsocksR: EncodeShadowsocksR,
	node.ProtocolTrojan:       EncodeTrojan,
	node.ProtocolHysteria2:    EncodeHysteria2,
	node.ProtocolHTTP:         EncodeHTTP,
	node.ProtocolHTTPS:        EncodeHTTP,
	node.ProtocolSOCKS5:       EncodeSOCKS5,
}

// EncodeURI synthesizes a share URI for n using its protocol's encoder.
func EncodeURI(n *node.Node) (string, error) {
	enc, ok := encoders[n.Protocol]
	if !ok {
		return "", fmt.Errorf("decode: no encoder for protocol %q", n.Protocol)
	}
	return enc(n)
}

func shortPrefix(s string) string {
	if len(s) > 16 {
		return s[:16]
	}
	return s
}

// decodeBase64Tolerant decodes s as standard base64, tolerating missing
// padding and URL-safe alphabets.
func decodeBase64Tolerant(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("-", "+", "_", "/").Replace(s)
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

func defaultDisplayName(protocol node.Protocol, server string, port int) string {
	return fmt.Sprintf("%s %s:%d", strings.ToUpper(string(protocol)), server, port)
}

func base64Encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}
