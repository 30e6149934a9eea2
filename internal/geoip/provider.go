package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/subagg/resin/internal/node"
)

var errNoReadyProvider = errors.New("no ready geolocation provider")

// Status is a provider's availability state.
type Status string

const (
	StatusReady   Status = "ready"
	StatusLimited Status = "limited"
	StatusNoKey   Status = "noKey"
	StatusFailed  Status = "failed"
)

// Provider is one entry in the ordered geolocation provider pool.
type Provider struct {
	Name               string
	URLTemplate        string // contains the literal "{ip}" placeholder
	RequiresKey        bool
	APIKey             string
	RateLimitPerMinute int
	Parser             func(body []byte) (node.GeoInfo, bool)

	// mutable pool bookkeeping, touched only under Locator.decisionMu.
	status      Status
	count       int
	windowStart time.Time
}

// newProvider builds a Provider whose status reflects RequiresKey/APIKey.
func newProvider(name, urlTemplate string, requiresKey bool, apiKey string, rateLimitPerMinute int, parser func([]byte) (node.GeoInfo, bool)) *Provider {
	p := &Provider{
		Name:               name,
		URLTemplate:        urlTemplate,
		RequiresKey:        requiresKey,
		APIKey:             apiKey,
		RateLimitPerMinute: rateLimitPerMinute,
		Parser:             parser,
		status:             StatusReady,
	}
	if requiresKey && apiKey == "" {
		p.status = StatusNoKey
	}
	return p
}

func (p *Provider) url(ip string) string {
	u := strings.ReplaceAll(p.URLTemplate, "{ip}", ip)
	if p.APIKey != "" {
		u = strings.ReplaceAll(u, "{key}", p.APIKey)
	}
	return u
}

// fetch issues the GET for ip and reports whether the response signalled a
// rate limit (HTTP 429 or a textual "rate limit" marker in the body).
func (p *Provider) fetch(ctx context.Context, client *http.Client, ip string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url(ip), nil)
	if err != nil {
		return nil, false, fmt.Errorf("geoip: %s: build request: %w", p.Name, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("geoip: %s: %w", p.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, false, fmt.Errorf("geoip: %s: read body: %w", p.Name, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || looksRateLimited(body) {
		return nil, true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("geoip: %s: status %d", p.Name, resp.StatusCode)
	}
	return body, false, nil
}

func looksRateLimited(body []byte) bool {
	lower := strings.ToLower(string(body))
	return strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests") || strings.Contains(lower, "quota")
}

// providerPool is the ordered, round-robin provider set. All methods are
// called only while the owning Locator holds decisionMu.
type providerPool struct {
	providers []*Provider
	idx       int
}

func newProviderPool(providers []*Provider) *providerPool {
	return &providerPool{providers: providers}
}

// resetWindows rolls a provider's minute counter (and any limited→ready
// transition) back to ready once its 1-minute window has elapsed.
func (pp *providerPool) resetWindows(now time.Time) {
	for _, p := range pp.providers {
		if p.windowStart.IsZero() || now.Sub(p.windowStart) >= time.Minute {
			p.windowStart = now
			p.count = 0
			if p.status == StatusLimited {
				p.status = StatusReady
			}
		}
	}
}

// nextReady advances the round-robin index to the next ready provider,
// returning nil if none qualify.
func (pp *providerPool) nextReady() *Provider {
	n := len(pp.providers)
	for i := 0; i < n; i++ {
		p := pp.providers[pp.idx%n]
		pp.idx++
		if p.status == StatusReady {
			return p
		}
	}
	return nil
}

// charge increments the provider's per-minute counter and flips it to
// limited if that pushes it past its declared rate limit.
func (pp *providerPool) charge(p *Provider) {
	p.count++
	if p.RateLimitPerMinute > 0 && p.count >= p.RateLimitPerMinute {
		p.status = StatusLimited
	}
}

func (pp *providerPool) markLimited(p *Provider) { p.status = StatusLimited }
func (pp *providerPool) markFailed(p *Provider)  { p.status = StatusFailed }

// genericJSONParser builds a declarative provider parser: it looks up
// the first matching country-code key and the first matching
// country-name key in a flat JSON object, falling back to Others when
// both are absent.
func genericJSONParser(codeKeys, nameKeys, cityKeys, orgKeys []string) func([]byte) (node.GeoInfo, bool) {
	return func(body []byte) (node.GeoInfo, bool) {
		var raw map[string]any
		if err := json.Unmarshal(body, &raw); err != nil {
			return node.GeoInfo{}, false
		}
		code := firstStringKey(raw, codeKeys)
		name := firstStringKey(raw, nameKeys)
		if code == "" && name == "" {
			return node.GeoInfo{CountryName: Others}, true
		}
		return node.GeoInfo{
			CountryCode: strings.ToUpper(code),
			CountryName: name,
			City:        firstStringKey(raw, cityKeys),
			Org:         firstStringKey(raw, orgKeys),
		}, true
	}
}

// DefaultProviders returns the declarative provider table for the IP
// Locator: a free, keyless provider first, then a keyed provider only
// when an API key is configured. Order matters — round-robin consults
// entries in this order.
func DefaultProviders(ipAPIURL, ipAPIKey string) []*Provider {
	providers := []*Provider{
		newProvider(
			"ip-api.com",
			"http://ip-api.com/json/{ip}?fields=status,countryCode,country,city,org",
			false, "", 45,
			genericJSONParser(
				[]string{"countryCode"},
				[]string{"country"},
				[]string{"city"},
				[]string{"org"},
			),
		),
	}
	if ipAPIURL != "" {
		providers = append(providers, newProvider(
			"ip-api-custom",
			ipAPIURL,
			ipAPIKey != "", ipAPIKey, 60,
			genericJSONParser(
				[]string{"country_code", "countryCode"},
				[]string{"country_name", "country"},
				[]string{"city"},
				[]string{"org", "isp"},
			),
		))
	}
	return providers
}

func firstStringKey(raw map[string]any, keys []string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
	}
	return ""
}
