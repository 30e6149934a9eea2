// Package fetch implements the resilient multi-source subscription
// retriever: UA rotation, retry with backoff, and optional egress-proxy
// fallback for geo-restricted sources.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Result is the outcome of a successful (or best-effort) fetch.
type Result struct {
	Body       []byte
	Status     int
	Headers    http.Header
	FinalURL   string
	BestEffort bool // returned despite failing the plausibility validator
}

// FetchError is returned once every (attempt × UA) combination has been
// exhausted without a usable response. It is retryable at the orchestrator
// level — another subscription may still succeed — and never fatal.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch: %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// EgressProxyProvider hands out proxy URLs in round-robin order.
type EgressProxyProvider interface {
	// Next returns the next proxy URL (http://, https://, or socks5://),
	// or ok=false if the pool is empty.
	Next() (string, bool)
}

var defaultUAList = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	"ClashforWindows/0.20.39",
}

// Options configures one Fetcher instance.
type Options struct {
	MaxRetries              int           // attempts per UA before rotating
	UAList                  []string      // cycled through; defaults to defaultUAList
	PerAttemptTimeout       time.Duration // per-HTTP-call timeout
	BackoffBase             time.Duration // base of the exponential backoff
	RateLimitSleep          time.Duration // extra sleep on HTTP 429
	EgressFallbackThreshold int           // global attempt index at which egress proxying kicks in
	EgressProxies           EgressProxyProvider
}

func (o Options) uaList() []string {
	if len(o.UAList) == 0 {
		return defaultUAList
	}
	return o.UAList
}

func (o Options) maxRetries() int {
	if o.MaxRetries <= 0 {
		return 3
	}
	return o.MaxRetries
}

func (o Options) perAttemptTimeout() time.Duration {
	if o.PerAttemptTimeout <= 0 {
		return 10 * time.Second
	}
	return o.PerAttemptTimeout
}

func (o Options) backoffBase() time.Duration {
	if o.BackoffBase <= 0 {
		return 500 * time.Millisecond
	}
	return o.BackoffBase
}

func (o Options) rateLimitSleep() time.Duration {
	if o.RateLimitSleep <= 0 {
		return 2 * time.Second
	}
	return o.RateLimitSleep
}

// Fetcher retrieves subscription payloads with UA rotation, retry/backoff,
// and egress-proxy fallback.
type Fetcher struct {
	opts   Options
	logger *log.Logger
}

// New creates a Fetcher. A nil logger defaults to log.Default().
func New(opts Options, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Fetcher{opts: opts, logger: logger}
}

// Fetch retrieves rawURL, looping over the (attempt × UA) cartesian product
// until a plausible body is obtained or every combination is exhausted.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	uaList := f.opts.uaList()
	maxRetries := f.opts.maxRetries()
	totalAttempts := maxRetries * len(uaList)

	var lastErr error
	var bestEffort *Result

	for attempt := 1; attempt <= totalAttempts; attempt++ {
		ua := uaList[((attempt-1)/maxRetries)%len(uaList)]

		reqURL, err := withCacheBuster(rawURL)
		if err != nil {
			return nil, &FetchError{URL: rawURL, Err: err}
		}

		client := f.client(attempt)
		status, body, headers, finalURL, err := f.doRequest(ctx, client, reqURL, ua)
		if err != nil {
			lastErr = err
			f.logger.Printf("[fetch] attempt %d/%d for %s: %v", attempt, totalAttempts, rawURL, err)
			f.sleep(attempt)
			continue
		}

		if status == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			time.Sleep(f.opts.rateLimitSleep())
			f.sleep(attempt)
			continue
		}

		if status < 200 || status >= 300 {
			lastErr = fmt.Errorf("unexpected status %d", status)
			f.sleep(attempt)
			continue
		}

		result := &Result{Body: body, Status: status, Headers: headers, FinalURL: finalURL}
		if Validate(body) {
			return result, nil
		}
		result.BestEffort = true
		bestEffort = result
		lastErr = fmt.Errorf("implausible body")
		f.sleep(attempt)
	}

	if bestEffort != nil {
		f.logger.Printf("[fetch] %s: returning best-effort body after exhausting retries", rawURL)
		return bestEffort, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no attempts made")
	}
	return nil, &FetchError{URL: rawURL, Err: lastErr}
}

func (f *Fetcher) doRequest(ctx context.Context, client *http.Client, reqURL, ua string) (status int, body []byte, headers http.Header, finalURL string, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.opts.perAttemptTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, nil, nil, "", err
	}
	req.Header.Set("User-Agent", ua)

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, nil, "", err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, "", err
	}
	final := reqURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return resp.StatusCode, b, resp.Header, final, nil
}

// client builds the HTTP client for this attempt: direct, or via the next
// egress proxy once the attempt index crosses EgressFallbackThreshold.
func (f *Fetcher) client(attempt int) *http.Client {
	threshold := f.opts.EgressFallbackThreshold
	if threshold <= 0 || attempt < threshold || f.opts.EgressProxies == nil {
		return &http.Client{Timeout: f.opts.perAttemptTimeout()}
	}
	proxyURL, ok := f.opts.EgressProxies.Next()
	if !ok {
		return &http.Client{Timeout: f.opts.perAttemptTimeout()}
	}
	transport, err := ProxyTransport(proxyURL)
	if err != nil {
		f.logger.Printf("[fetch] egress proxy %q unusable: %v", proxyURL, err)
		return &http.Client{Timeout: f.opts.perAttemptTimeout()}
	}
	return &http.Client{Timeout: f.opts.perAttemptTimeout(), Transport: transport}
}

// sleep applies exponential backoff: base · 1.5^(attempt mod maxRetries).
func (f *Fetcher) sleep(attempt int) {
	exp := attempt % f.opts.maxRetries()
	delay := time.Duration(float64(f.opts.backoffBase()) * math.Pow(1.5, float64(exp)))
	time.Sleep(delay)
}

func withCacheBuster(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("bad url: %w", err)
	}
	q := u.Query()
	q.Set("_t", strconv.FormatInt(nowMillis(), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
