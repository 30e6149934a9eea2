package decode

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/subagg/resin/internal/node"
)

// vmessPayload mirrors the loose JSON shape used by vmess:// shares. Port and
// aid sometimes arrive as strings or numbers depending on the generator, so
// both are decoded via json.Number-friendly any fields.
type vmessPayload struct {
	Add  string `json:"add"`
	Port any    `json:"port"`
	ID   string `json:"id"`
	Aid  any    `json:"aid"`
	Net  string `json:"net"`
	Path string `json:"path"`
	Host string `json:"host"`
	TLS  string `json:"tls"`
	SNI  string `json:"sni"`
	PS   string `json:"ps"`
}

// DecodeVMess decodes a vmess:// share link.
func DecodeVMess(uri string) (*node.Node, error) {
	const prefix = "vmess://"
	body := strings.TrimPrefix(uri, prefix)
	raw, err := decodeBase64Tolerant(body)
	if err != nil {
		return nil, newParseError(prefix, fmt.Errorf("base64: %w", err))
	}

	var payload vmessPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, newParseError(prefix, fmt.Errorf("json: %w", err))
	}

	port := toInt(payload.Port)
	tls := "none"
	if payload.TLS == "tls" {
		tls = "tls"
	}

	n := &node.Node{
		Protocol:    node.ProtocolVMess,
		Server:      payload.Add,
		Port:        port,
		DisplayName: payload.PS,
		Settings: node.Settings{
			UUID:      payload.ID,
			AlterID:   toInt(payload.Aid),
			Transport: firstNonEmpty(payload.Net, "tcp"),
			WSPath:    payload.Path,
			WSHost:    payload.Host,
			TLS:       tls,
			SNI:       payload.SNI,
		},
	}
	if n.DisplayName == "" {
		n.DisplayName = defaultDisplayName(n.Protocol, n.Server, n.Port)
	}
	n.ID = node.IDFor(n.Protocol, n.Server, n.Port, uri)
	return n, nil
}

// EncodeVMess synthesizes a vmess:// share link from a Node (inverse of
// DecodeVMess).
func EncodeVMess(n *node.Node) (string, error) {
	payload := map[string]any{
		"v":    "2",
		"ps":   n.DisplayName,
		"add":  n.Server,
		"port": strconv.Itoa(n.Port),
		"id":   n.Settings.UUID,
		"aid":  strconv.Itoa(n.Settings.AlterID),
		"net":  firstNonEmpty(n.Settings.Transport, "tcp"),
		"path": n.Settings.WSPath,
		"host": n.Settings.WSHost,
		"sni":  n.Settings.SNI,
	}
	if n.Settings.TLS == "tls" {
		payload["tls"] = "tls"
	} else {
		payload["tls"] = ""
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode vmess: %w", err)
	}
	return "vmess://" + base64.StdEncoding.EncodeToString(raw), nil
}

func toInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		i, _ := strconv.Atoi(strings.TrimSpace(t))
		return i
	case json.Number:
		i, _ := t.Int64()
		return int(i)
	default:
		return 0
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
