package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestValidateRules(t *testing.T) {
	cases := []struct {
		name string
		body string
		want bool
	}{
		{"empty", "   ", false},
		{"known prefix", "ss://aGVsbG8=@a.example:443#A", true},
		{"base64 wrapping known prefix", "c3M6Ly9hR1ZzYkc4PUBhLmV4YW1wbGU6NDQz", true},
		{"clash marker", "proxies:\n  - name: a\n", true},
		{"json braces", "{\"a\":1}", true},
		{"json brackets", "[1,2,3]", true},
		{"garbage", "this is not a subscription at all", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Validate([]byte(tc.body)); got != tc.want {
				t.Errorf("Validate(%q) = %v, want %v", tc.body, got, tc.want)
			}
		})
	}
}

// TestFetchUARotation checks that when the first UA is rejected with 403
// and the second succeeds with a valid body, Fetch recovers without
// returning a FetchError, using at most maxRetries*len(uaList) requests.
func TestFetchUARotation(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		ua := r.Header.Get("User-Agent")
		if ua == "ua-one" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ss://aGVsbG8=@a.example:443#A\n"))
	}))
	defer srv.Close()

	f := New(Options{
		MaxRetries:        2,
		UAList:            []string{"ua-one", "ua-two"},
		PerAttemptTimeout: 2 * time.Second,
		BackoffBase:       time.Millisecond,
	}, nil)

	result, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.BestEffort {
		t.Error("expected a non-best-effort result")
	}
	if got := atomic.LoadInt32(&requests); got > 4 {
		t.Errorf("made %d requests, want <= 4", got)
	}
}

func TestFetchExhaustsRetriesReturnsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := New(Options{
		MaxRetries:        1,
		UAList:            []string{"ua-one"},
		PerAttemptTimeout: 2 * time.Second,
		BackoffBase:       time.Millisecond,
	}, nil)

	_, err := f.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected a FetchError")
	}
	if _, ok := err.(*FetchError); !ok {
		t.Errorf("got %T, want *FetchError", err)
	}
}

func TestFetchCacheBusterAppended(t *testing.T) {
	var sawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawQuery = r.URL.Query().Get("_t")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ss://aGVsbG8=@a.example:443#A\n"))
	}))
	defer srv.Close()

	f := New(Options{MaxRetries: 1, UAList: []string{"ua"}, BackoffBase: time.Millisecond}, nil)
	if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if sawQuery == "" {
		t.Error("expected a _t cache-busting query parameter")
	}
}

func TestEgressCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/china_proxies.json"

	c, err := LoadEgressCache(path)
	if err != nil {
		t.Fatalf("LoadEgressCache: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cache for missing file, got %d entries", c.Len())
	}

	c.Replace([]string{"socks5://u:p@1.2.3.4:1080", "http://5.6.7.8:8080"})
	if err := c.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := LoadEgressCache(path)
	if err != nil {
		t.Fatalf("LoadEgressCache reload: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("got %d entries, want 2", reloaded.Len())
	}
	first, ok := reloaded.Next()
	if !ok || first != "socks5://u:p@1.2.3.4:1080" {
		t.Errorf("got %q, want socks5 entry first", first)
	}
}
