// Package node defines the canonical proxy node model shared by every
// pipeline stage (decode, dedup, geoip, probe, classify, group, emit).
package node

import (
	"fmt"
	"time"
)

// Protocol is the canonical protocol label of a Node.
type Protocol string

const (
	ProtocolVMess         Protocol = "vmess"
	ProtocolVLESS         Protocol = "vless"
	ProtocolShadowsocks   Protocol = "shadowsocks"
	ProtocolShadowsocksR  Protocol = "shadowsocksr"
	ProtocolTrojan        Protocol = "trojan"
	ProtocolHysteria2     Protocol = "hysteria2"
	ProtocolHTTP          Protocol = "http"
	ProtocolHTTPS         Protocol = "https"
	ProtocolSOCKS5        Protocol = "socks5"
)

// knownProtocols is the set of protocols a Node is allowed to carry.
var knownProtocols = map[Protocol]bool{
	ProtocolVMess:        true,
	ProtocolVLESS:        true,
	ProtocolShadowsocks:  true,
	ProtocolShadowsocksR: true,
	ProtocolTrojan:       true,
	ProtocolHysteria2:    true,
	ProtocolHTTP:         true,
	ProtocolHTTPS:        true,
	ProtocolSOCKS5:       true,
}

// IsKnown reports whether p is one of the protocols this system understands.
func (p Protocol) IsKnown() bool {
	return knownProtocols[p]
}

// Settings is the protocol-discriminated settings record. Only the
// fields relevant to Node.Protocol are populated; the rest are zero values.
type Settings struct {
	// vmess / vless
	UUID        string
	AlterID     int
	Transport   string // "tcp", "ws", "grpc", ...
	WSPath      string
	WSHost      string
	TLS         string // "tls" or "none"
	SNI         string
	Flow        string
	ALPN        []string
	Fingerprint string
	Encryption  string

	// shadowsocks / shadowsocksr
	Method     string
	Password   string
	SSRProto   string
	Obfs       string
	ObfsParam  string
	ProtoParam string

	// trojan
	AllowInsecure bool

	// hysteria2
	Auth         string
	ObfsPassword string
	Up           string
	Down         string

	// http / https / socks5
	Username string
}

// GeoInfo is the resolved geolocation of a Node's server.
type GeoInfo struct {
	CountryCode string
	CountryName string
	City        string
	Org         string
	ASN         string
	ResolvedAt  time.Time
}

// ProbeStatus is the outcome of a single reachability probe.
type ProbeStatus string

const (
	ProbeUp   ProbeStatus = "up"
	ProbeDown ProbeStatus = "down"
)

// ProbeInfo is the transient result of the most recent probe.
type ProbeInfo struct {
	Status           ProbeStatus
	LatencyMs        int64
	Error            string
	LocationMismatch bool
	ProbedAt         time.Time
}

// Node is the canonical, wire-format-agnostic representation of an
// advertised proxy endpoint. It is immutable after classification
// except for the DisplayName rewrite performed by the Namer.
type Node struct {
	ID             Hash
	Protocol       Protocol
	DisplayName    string
	RawDisplayName string // original name, preserved once location-corrected
	Server         string
	Port           int
	Settings       Settings
	SourceTag      string
	Geo            *GeoInfo
	Probe          *ProbeInfo
	Tags           []string
	Raw            string // original advertisement URI, for faithful re-emission
}

// Validate checks that the Node is well-formed: server is non-empty, port
// is in range, and the protocol is one this system recognizes.
func (n *Node) Validate() error {
	if n.Server == "" {
		return fmt.Errorf("node: empty server")
	}
	if n.Port < 1 || n.Port > 65535 {
		return fmt.Errorf("node: port %d out of range", n.Port)
	}
	if !n.Protocol.IsKnown() {
		return fmt.Errorf("node: unknown protocol %q", n.Protocol)
	}
	return nil
}

// Fingerprint returns the deduplication key.
func (n *Node) Fingerprint() FingerprintKey {
	return FingerprintKey{Server: n.Server, Port: n.Port, Protocol: n.Protocol}
}

// AddTag appends tag to Tags if not already present, preserving order.
func (n *Node) AddTag(tag string) {
	if tag == "" {
		return
	}
	for _, t := range n.Tags {
		if t == tag {
			return
		}
	}
	n.Tags = append(n.Tags, tag)
}

// HasTag reports whether tag is present (case-sensitive exact match).
func (n *Node) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// FingerprintKey is the tuple (server, port, protocol) used for dedup.
type FingerprintKey struct {
	Server   string
	Port     int
	Protocol Protocol
}

// Hash returns the xxh3-128 hash of the fingerprint, usable as a map key
// when a fixed-size key is preferred over the struct itself.
func (k FingerprintKey) Hash() Hash {
	return HashString(fmt.Sprintf("%s|%d|%s", k.Server, k.Port, k.Protocol))
}
