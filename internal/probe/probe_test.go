package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/subagg/resin/internal/node"
)

func TestProbeTCPDialSuccessAndFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	up := &node.Node{Protocol: node.ProtocolVMess, Server: host, Port: port}
	down := &node.Node{Protocol: node.ProtocolVMess, Server: "127.0.0.1", Port: 1} // nothing listening

	m := New(Options{Concurrency: 2, PerNodeTimeout: 500 * time.Millisecond})
	results := m.ProbeAll(context.Background(), []*node.Node{up, down})

	if results[0].Status != node.ProbeUp {
		t.Errorf("up node status = %v, want up (err=%s)", results[0].Status, results[0].Error)
	}
	if results[1].Status != node.ProbeDown {
		t.Error("down node should fail to connect")
	}
}

func TestProbeDemotesHighLatencyToDown(t *testing.T) {
	// The node is an HTTP proxy that answers only after 30ms, so the probe
	// measures more than the 10ms floor. A bare TCP listener cannot be slowed
	// this way: the dial completes before Accept returns.
	slowProxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(30 * time.Millisecond)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer slowProxy.Close()

	host, portStr, _ := net.SplitHostPort(slowProxy.Listener.Addr().String())
	port, _ := strconv.Atoi(portStr)

	n := &node.Node{Protocol: node.ProtocolHTTP, Server: host, Port: port}
	m := New(Options{Concurrency: 1, PerNodeTimeout: time.Second, HighLatencyFloor: 10 * time.Millisecond, TestURL: slowProxy.URL})
	results := m.ProbeAll(context.Background(), []*node.Node{n})

	if results[0].Status != node.ProbeDown || results[0].Error != "latency too high" {
		t.Errorf("got status=%v error=%q, want down/latency too high", results[0].Status, results[0].Error)
	}
}

func TestProbeHTTPProxySuccess(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer target.Close()

	proxySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, err := http.Get(target.URL)
		if err != nil {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()
		w.WriteHeader(resp.StatusCode)
	}))
	defer proxySrv.Close()

	host, portStr, _ := net.SplitHostPort(proxySrv.Listener.Addr().String())
	port, _ := strconv.Atoi(portStr)

	n := &node.Node{Protocol: node.ProtocolHTTP, Server: host, Port: port}
	m := New(Options{Concurrency: 1, PerNodeTimeout: 2 * time.Second, TestURL: target.URL})
	results := m.ProbeAll(context.Background(), []*node.Node{n})

	if results[0].Status != node.ProbeUp {
		t.Errorf("status = %v, error = %q, want up", results[0].Status, results[0].Error)
	}
}
