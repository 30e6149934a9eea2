package config

import "strings"

// weakTokenMinLength and weakTokenMinClasses are the entropy heuristic's
// thresholds: a token is weak if it's short or draws from too few
// character classes. There's no breached-password corpus to score
// against here, only a single bearer admin token, so a cheap
// character-class heuristic stands in for a full strength estimator.
const (
	weakTokenMinLength  = 12
	weakTokenMinClasses = 3
)

// IsWeakToken reports whether token is trivially guessable: short, or
// drawn from very few character classes (lower/upper/digit/symbol).
// Empty token is treated as not weak since an empty token means auth is
// disabled, not misconfigured.
func IsWeakToken(token string) bool {
	if token == "" {
		return false
	}
	if len(token) < weakTokenMinLength {
		return true
	}
	return classCount(token) < weakTokenMinClasses
}

func classCount(s string) int {
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	n := 0
	for _, b := range []bool{hasLower, hasUpper, hasDigit, hasSymbol} {
		if b {
			n++
		}
	}
	return n
}

// reservedTokens guards against a bearer token colliding with a routed
// path segment.
var reservedTokens = map[string]bool{"api": true, "healthz": true, "groups": true}

// IsReservedToken reports whether token collides with a reserved path
// segment this system routes on.
func IsReservedToken(token string) bool {
	return reservedTokens[strings.ToLower(token)]
}
