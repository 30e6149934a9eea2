package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/subagg/resin/internal/fetch"
	"github.com/subagg/resin/internal/node"
)

// dispatch runs the protocol-specific probe for n, returning nil on
// success.
func dispatch(ctx context.Context, n *node.Node, testURL string) error {
	switch n.Protocol {
	case node.ProtocolHTTP, node.ProtocolHTTPS:
		return probeHTTPProxy(ctx, n, testURL)
	case node.ProtocolSOCKS5:
		return probeSOCKS5Proxy(ctx, n, testURL)
	case node.ProtocolTrojan:
		return probeTLSHandshake(ctx, n)
	default: // shadowsocks, shadowsocksr, vmess, vless, hysteria2, unknown
		return probeTCPDial(ctx, n)
	}
}

func proxyURLFor(n *node.Node) *url.URL {
	scheme := string(n.Protocol)
	host := fmt.Sprintf("%s:%d", n.Server, n.Port)
	u := &url.URL{Scheme: scheme, Host: host}
	if n.Settings.Username != "" {
		u.User = url.UserPassword(n.Settings.Username, n.Settings.Password)
	}
	return u
}

// probeHTTPProxy dials testURL through n acting as an HTTP(S) CONNECT
// proxy; success is any 2xx/3xx response.
func probeHTTPProxy(ctx context.Context, n *node.Node, testURL string) error {
	transport, err := fetch.ProxyTransport(proxyURLFor(n).String())
	if err != nil {
		return err
	}
	return httpGetThrough(ctx, transport, testURL)
}

// probeSOCKS5Proxy is identical to probeHTTPProxy but over SOCKS5, with
// optional username/password.
func probeSOCKS5Proxy(ctx context.Context, n *node.Node, testURL string) error {
	u := proxyURLFor(n)
	u.Scheme = "socks5"
	transport, err := fetch.ProxyTransport(u.String())
	if err != nil {
		return err
	}
	return httpGetThrough(ctx, transport, testURL)
}

func httpGetThrough(ctx context.Context, transport http.RoundTripper, testURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, testURL, nil)
	if err != nil {
		return err
	}
	client := &http.Client{Transport: transport}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("probe: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// probeTLSHandshake establishes TLS to server:port with SNI=server and no
// certificate verification; success is a completed handshake.
func probeTLSHandshake(ctx context.Context, n *node.Node) error {
	dialer := &tls.Dialer{
		Config: &tls.Config{ServerName: n.Server, InsecureSkipVerify: true},
	}
	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", n.Server, n.Port))
	if err != nil {
		return err
	}
	return conn.Close()
}

// probeTCPDial establishes a plain TCP connection, used for protocols
// whose handshake this system doesn't implement.
func probeTCPDial(ctx context.Context, n *node.Node) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", n.Server, n.Port))
	if err != nil {
		return err
	}
	return conn.Close()
}
