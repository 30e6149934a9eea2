// Package classify extracts country/protocol/service hints from a node's
// display name and canonical fields, and renames nodes from those hints.
package classify

import (
	"regexp"
	"sort"
	"strings"

	"github.com/subagg/resin/internal/node"
)

// CountryMap lists the keyword variants (English, CJK, ISO codes, flag
// emoji) recognised for each country code. Matching is case-insensitive
// and the first match in a precomputed alternation wins, so longer/more
// specific keys are ordered first when the alternation is built.
var CountryMap = map[string][]string{
	"HK": {"hong kong", "hongkong", "香港", "🇭🇰", "hk"},
	"TW": {"taiwan", "台湾", "臺灣", "🇹🇼", "tw"},
	"JP": {"japan", "日本", "🇯🇵", "jp"},
	"US": {"united states", "america", "美国", "🇺🇸", "usa", "us"},
	"SG": {"singapore", "新加坡", "狮城", "🇸🇬", "sg"},
	"CN": {"china", "中国", "中国大陆", "大陆", "🇨🇳", "cn"},
	"KR": {"korea", "韩国", "南韩", "🇰🇷", "kr"},
	"UK": {"united kingdom", "britain", "英国", "🇬🇧", "gb", "uk"},
	"DE": {"germany", "德国", "🇩🇪", "de"},
	"FR": {"france", "法国", "🇫🇷", "fr"},
	"CA": {"canada", "加拿大", "🇨🇦", "ca"},
	"AU": {"australia", "澳大利亚", "澳洲", "🇦🇺", "au"},
	"IN": {"india", "印度", "🇮🇳", "in"},
	"RU": {"russia", "俄罗斯", "🇷🇺", "ru"},
	"NL": {"netherlands", "荷兰", "🇳🇱", "nl"},
	"BR": {"brazil", "巴西", "🇧🇷", "br"},
}

// CountryNames gives a display name for a country code, used by the
// Grouper's regional group titles.
var CountryNames = map[string]string{
	"HK": "香港", "TW": "台湾", "JP": "日本", "US": "美国", "SG": "新加坡",
	"CN": "中国", "KR": "韩国", "UK": "英国", "DE": "德国", "FR": "法国",
	"CA": "加拿大", "AU": "澳大利亚", "IN": "印度", "RU": "俄罗斯",
	"NL": "荷兰", "BR": "巴西",
}

// ProtocolMap maps protocol aliases found in a display name to the
// canonical label used in the rename template.
var ProtocolMap = map[string][]string{
	"VMess":       {"vmess"},
	"VLESS":       {"vless"},
	"Shadowsocks": {"shadowsocks", "ss"},
	"ShadowsocksR": {"shadowsocksr", "ssr"},
	"Trojan":      {"trojan"},
	"Hysteria2":   {"hysteria2", "hy2"},
	"HTTP":        {"http"},
	"HTTPS":       {"https"},
	"SOCKS5":      {"socks5", "socks"},
}

// ServiceTagMap maps service aliases to their canonical tag.
var ServiceTagMap = map[string][]string{
	"Netflix": {"netflix", "nflx", "nf"},
	"OpenAI":  {"openai", "chatgpt", "gpt"},
	"Disney+": {"disney+", "disney"},
	"YouTube": {"youtube", "ytb"},
	"HBO":     {"hbo", "hbomax"},
	"Spotify": {"spotify"},
	"TikTok":  {"tiktok"},
}

// alternation builds a case-insensitive regexp matching any keyword in m,
// longest-first so a more specific phrase wins over a short substring
// (e.g. "united states" before "us").
func alternation(m map[string][]string) (*regexp.Regexp, map[string]string) {
	type kv struct {
		keyword string
		code    string
	}
	var all []kv
	for code, keywords := range m {
		for _, kw := range keywords {
			all = append(all, kv{keyword: kw, code: code})
		}
	}
	sort.Slice(all, func(i, j int) bool { return len(all[i].keyword) > len(all[j].keyword) })

	index := make(map[string]string, len(all))
	parts := make([]string, len(all))
	for i, e := range all {
		index[strings.ToLower(e.keyword)] = e.code
		parts[i] = regexp.QuoteMeta(e.keyword)
	}
	return regexp.MustCompile("(?i)(" + strings.Join(parts, "|") + ")"), index
}

var (
	countryRe, countryIndex     = alternation(CountryMap)
	protocolRe, protocolIndex   = alternation(ProtocolMap)
	serviceRe, serviceIndex     = alternation(ServiceTagMap)
	numberSuffixRe              = regexp.MustCompile(`[^0-9A-Za-z]([0-9]+)[^0-9]*$`)
)

// Result is the per-node classification output.
type Result struct {
	Country  string // ISO country code, "" if undetermined
	Protocol string // canonical protocol label
	Number   string // extracted numeric suffix, "" if none
	Tags     []string
}

// Classify extracts the country/protocol/number/tags hints for n.
func Classify(n *node.Node) Result {
	r := Result{}

	if m := countryRe.FindString(n.DisplayName); m != "" {
		r.Country = countryIndex[strings.ToLower(m)]
	} else if n.Geo != nil {
		r.Country = n.Geo.CountryCode
	}

	if m := protocolRe.FindString(n.DisplayName); m != "" {
		r.Protocol = protocolIndex[strings.ToLower(m)]
	} else {
		r.Protocol = canonicalProtocolLabel(n.Protocol)
	}

	if m := numberSuffixRe.FindStringSubmatch(n.DisplayName); m != nil {
		r.Number = m[1]
	}

	// Combined tags list: country, protocol, then every distinct service
	// tag, deduplicated, insertion order preserved.
	for _, t := range []string{r.Country, r.Protocol} {
		r.Tags = appendUnique(r.Tags, t)
	}
	for _, m := range serviceRe.FindAllString(n.DisplayName, -1) {
		r.Tags = appendUnique(r.Tags, serviceIndex[strings.ToLower(m)])
	}
	return r
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func canonicalProtocolLabel(p node.Protocol) string {
	switch p {
	case node.ProtocolVMess:
		return "VMess"
	case node.ProtocolVLESS:
		return "VLESS"
	case node.ProtocolShadowsocks:
		return "Shadowsocks"
	case node.ProtocolShadowsocksR:
		return "ShadowsocksR"
	case node.ProtocolTrojan:
		return "Trojan"
	case node.ProtocolHysteria2:
		return "Hysteria2"
	case node.ProtocolHTTP:
		return "HTTP"
	case node.ProtocolHTTPS:
		return "HTTPS"
	case node.ProtocolSOCKS5:
		return "SOCKS5"
	default:
		return string(p)
	}
}

// IsServiceTag reports whether tag is a canonical ServiceTagMap label
// (as opposed to a country code or protocol label that also rides in
// Node.Tags).
func IsServiceTag(tag string) bool {
	_, ok := ServiceTagMap[tag]
	return ok
}

// FlagFor returns the regional-indicator flag emoji for a two-letter ISO
// country code, or "" for an unrecognised code. UK is mapped onto GB's
// flag, matching the emoji actually in use.
func FlagFor(code string) string {
	code = strings.ToUpper(code)
	if code == "UK" {
		code = "GB"
	}
	if len(code) != 2 {
		return ""
	}
	a, b := code[0], code[1]
	if a < 'A' || a > 'Z' || b < 'A' || b > 'Z' {
		return ""
	}
	return string(rune(0x1F1E6+int(a-'A'))) + string(rune(0x1F1E6+int(b-'A')))
}
