package emit

// Each client template carries a literal marker the Emitter substitutes
// with generated content: a proxies region replaced with generated proxy
// entries, and a proxy-groups region replaced with generated group
// selectors.
const (
	clashProxiesMarker = "# __PROXIES__"
	clashGroupsMarker  = "# __PROXY_GROUPS__"
	surgeProxyMarker   = "; __PROXY__"
	surgeGroupMarker   = "; __PROXY_GROUP__"
)

// clashTemplate is the Mihomo/Clash base skeleton. The proxies: and
// proxy-groups: keys exist so the document parses even before
// substitution; their placeholder list entries are replaced wholesale.
const clashTemplate = `mixed-port: 7890
allow-lan: false
mode: rule
log-level: info
external-controller: 127.0.0.1:9090

proxies:
  # __PROXIES__

proxy-groups:
  # __PROXY_GROUPS__

rules:
  - MATCH,PROXY
`

// surgeTemplate is the Surge ini-like base skeleton.
const surgeTemplate = `[General]
loglevel = notify
skip-proxy = 127.0.0.1, 192.168.0.0/16, 10.0.0.0/8

[Proxy]
; __PROXY__

[Proxy Group]
; __PROXY_GROUP__

[Rule]
FINAL,PROXY
`

// The SingBox and V2Ray configs are JSON documents; since JSON has no
// natural "marker line" to splice into mid-document the way YAML/ini
// allow, the Emitter builds each as a full object tree: the fixed "log"
// section below plus generated outbounds.
const singboxSkeletonLog = `{"level":"info","timestamp":true}`
const v2raySkeletonLog = `{"loglevel":"warning"}`
