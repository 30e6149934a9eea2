package classify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/subagg/resin/internal/node"
)

// DefaultTemplate is the default rename format: tokens are substituted
// with the classification's country ("<flag> <code>"), protocol, a
// comma-joined tag list, and a monotonic two-digit index.
const DefaultTemplate = "{country} {protocol} {tags} {number}"

var tokenRe = regexp.MustCompile(`\{(country|protocol|tags|number)\}`)

// Rename assigns DisplayName for every node in nodes from its
// classification, using template. The {number} token is a monotonic
// two-digit index within nodes (the post-filter list), ignoring any
// number embedded in the original name. Whitespace is collapsed; a node
// whose rendered name is empty keeps its original DisplayName.
func Rename(nodes []*node.Node, results []Result, template string) {
	if template == "" {
		template = DefaultTemplate
	}
	for i, n := range nodes {
		r := results[i]
		number := fmt.Sprintf("%02d", i+1)

		rendered := tokenRe.ReplaceAllStringFunc(template, func(tok string) string {
			switch tok {
			case "{country}":
				return countryToken(r.Country)
			case "{protocol}":
				return r.Protocol
			case "{tags}":
				return strings.Join(r.Tags, ",")
			case "{number}":
				return number
			default:
				return ""
			}
		})
		rendered = collapseWhitespace(rendered)
		if rendered == "" {
			continue // falls back to the original DisplayName
		}
		n.DisplayName = rendered
	}
}

func countryToken(code string) string {
	if code == "" {
		return ""
	}
	flag := FlagFor(code)
	if flag == "" {
		return code
	}
	return flag + " " + code
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// ApplyLocationCorrection rewrites n's display name and geo when the
// Prober reported a location mismatch: the leading flag is swapped for
// the probe-resolved country's flag, the original name is preserved in
// RawDisplayName, and Geo is updated.
func ApplyLocationCorrection(n *node.Node, resolvedCountryCode string) {
	if n.RawDisplayName == "" {
		n.RawDisplayName = n.DisplayName
	}
	newFlag := FlagFor(resolvedCountryCode)
	n.DisplayName = replaceLeadingFlag(n.DisplayName, newFlag)

	if n.Geo == nil {
		n.Geo = &node.GeoInfo{}
	}
	n.Geo.CountryCode = resolvedCountryCode
	n.Geo.CountryName = CountryNames[strings.ToUpper(resolvedCountryCode)]
}

// replaceLeadingFlag swaps a leading flag-emoji run (two regional
// indicator runes) for newFlag, or prepends newFlag when the name carries
// no recognisable leading flag.
func replaceLeadingFlag(name, newFlag string) string {
	runes := []rune(name)
	if len(runes) >= 2 && isRegionalIndicator(runes[0]) && isRegionalIndicator(runes[1]) {
		rest := strings.TrimLeft(string(runes[2:]), " ")
		return strings.TrimSpace(newFlag + " " + rest)
	}
	return strings.TrimSpace(newFlag + " " + name)
}

func isRegionalIndicator(r rune) bool {
	return r >= 0x1F1E6 && r <= 0x1F1FF
}

// NumericSuffix extracts the trailing integer preceded by a non-
// alphanumeric character, mirroring the classifier's own extraction
// (exported so callers/tests can validate it independently).
func NumericSuffix(name string) (int, bool) {
	m := numberSuffixRe.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
