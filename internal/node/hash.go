package node

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/xxh3"
)

// Hash is a 128-bit identity derived from a canonical string. Used both as
// the Node.ID (hash of raw+server+port+protocol) and as the FingerprintKey
// hash.
type Hash [16]byte

// Zero is the zero-value Hash.
var Zero Hash

// HashString computes the xxh3-128 hash of s.
func HashString(s string) Hash {
	h128 := xxh3.HashString128(s)
	var h Hash
	binary.LittleEndian.PutUint64(h[:8], h128.Lo)
	binary.LittleEndian.PutUint64(h[8:], h128.Hi)
	return h
}

// IDFor computes the stable identity of a node from its most distinguishing
// fields: protocol, server, port and the raw advertisement (when present).
// Two decodes of the same advertisement always produce the same ID.
func IDFor(protocol Protocol, server string, port int, raw string) Hash {
	return HashString(fmt.Sprintf("%s|%s|%d|%s", protocol, server, port, raw))
}

// Hex returns the lowercase hex encoding of the hash.
func (h Hash) Hex() string { return hex.EncodeToString(h[:]) }

// String implements fmt.Stringer.
func (h Hash) String() string { return h.Hex() }

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool { return h == Zero }

// ParseHex decodes a 32-character hex string into a Hash.
func ParseHex(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Zero, fmt.Errorf("node: ParseHex: %w", err)
	}
	if len(b) != 16 {
		return Zero, fmt.Errorf("node: ParseHex: expected 16 bytes, got %d", len(b))
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}
