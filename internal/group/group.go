// Package group builds region, service, and meta node groupings from a
// classified node list.
package group

import (
	"time"

	"github.com/subagg/resin/internal/classify"
	"github.com/subagg/resin/internal/node"
)

// Kind discriminates a Group's construction origin.
type Kind string

const (
	KindRegion Kind = "region"
	KindOther  Kind = "other"
	KindService Kind = "service"
	KindMeta   Kind = "meta"
)

// URLTest is the default connectivity-check configuration every group
// exposes.
type URLTest struct {
	URL       string
	Interval  time.Duration
	Tolerance time.Duration
}

// DefaultURLTest is the standard generate_204 connectivity check used by
// every constructed group.
var DefaultURLTest = URLTest{
	URL:       "http://www.gstatic.com/generate_204",
	Interval:  300 * time.Second,
	Tolerance: 150 * time.Millisecond,
}

// Group is a named bundle of nodes.
type Group struct {
	Key         string
	DisplayName string
	Kind        Kind
	Members     []*node.Node
	Test        URLTest
}

// shortlist is the set of country codes that get their own regional
// group; everything else lands in Others.
var shortlist = map[string]bool{"HK": true, "SG": true, "US": true, "JP": true, "TW": true}

const othersGroupName = "Others"

// BuildRegionGroups returns one group per shortlisted country code
// encountered in nodes, named "<flag> <country-name>节点", plus a
// single "Others" group covering every node whose country isn't
// shortlisted — including nodes with no resolved country at all. The
// Emitter relies on there being exactly one such catch-all so it never
// writes a duplicate "others" file alongside it.
func BuildRegionGroups(nodes []*node.Node) []Group {
	byCountry := make(map[string][]*node.Node)
	var order []string
	var others []*node.Node

	for _, n := range nodes {
		code := ""
		if n.Geo != nil {
			code = n.Geo.CountryCode
		}
		if code != "" && shortlist[code] {
			if _, seen := byCountry[code]; !seen {
				order = append(order, code)
			}
			byCountry[code] = append(byCountry[code], n)
			continue
		}
		others = append(others, n)
	}

	groups := make([]Group, 0, len(order)+1)
	for _, code := range order {
		groups = append(groups, Group{
			Key:         code,
			DisplayName: classify.FlagFor(code) + " " + classify.CountryNames[code] + "节点",
			Kind:        KindRegion,
			Members:     byCountry[code],
			Test:        DefaultURLTest,
		})
	}
	groups = append(groups, Group{
		Key:         othersGroupName,
		DisplayName: othersGroupName,
		Kind:        KindOther,
		Members:     others,
		Test:        DefaultURLTest,
	})
	return groups
}

// BuildServiceGroups returns one group per distinct service tag carried
// by any node (service tags are every tag that isn't a country code or a
// protocol label; callers pass the exact set via serviceTags to avoid
// re-deriving it here).
func BuildServiceGroups(nodes []*node.Node, serviceTags []string) []Group {
	groups := make([]Group, 0, len(serviceTags))
	for _, tag := range serviceTags {
		var members []*node.Node
		for _, n := range nodes {
			if n.HasTag(tag) {
				members = append(members, n)
			}
		}
		if len(members) == 0 {
			continue
		}
		groups = append(groups, Group{
			Key:         tag,
			DisplayName: tag,
			Kind:        KindService,
			Members:     members,
			Test:        DefaultURLTest,
		})
	}
	return groups
}

// MetaGroupDef declares a meta-group selector.
type MetaGroupDef struct {
	Name           string
	IncludeGroups []string // group keys whose members are unioned in
	IncludeByTag  []string // node tags whose carriers are unioned in
	IncludeDirect bool     // append a DIRECT selector (Emitter-side, no node)
	IncludeReject bool     // append a REJECT selector (Emitter-side, no node)
	IncludeCustom []*node.Node
}

// BuildMetaGroups expands each def against the already-built groups and
// the full node list, producing the set union of referenced members,
// deduplicated by node identity, in first-seen order.
func BuildMetaGroups(defs []MetaGroupDef, existing []Group, allNodes []*node.Node) []Group {
	byKey := make(map[string]*Group, len(existing))
	for i := range existing {
		byKey[existing[i].Key] = &existing[i]
	}

	out := make([]Group, 0, len(defs))
	for _, def := range defs {
		seen := make(map[*node.Node]bool)
		var members []*node.Node
		add := func(n *node.Node) {
			if !seen[n] {
				seen[n] = true
				members = append(members, n)
			}
		}

		for _, key := range def.IncludeGroups {
			if g, ok := byKey[key]; ok {
				for _, n := range g.Members {
					add(n)
				}
			}
		}
		for _, tag := range def.IncludeByTag {
			for _, n := range allNodes {
				if n.HasTag(tag) {
					add(n)
				}
			}
		}
		for _, n := range def.IncludeCustom {
			add(n)
		}

		out = append(out, Group{
			Key:         def.Name,
			DisplayName: def.Name,
			Kind:        KindMeta,
			Members:     members,
			Test:        DefaultURLTest,
		})
	}
	return out
}
