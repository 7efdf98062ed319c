package auth

import (
	"net"
	"strings"
)

// Client carries the request attributes recorded with a refresh session.
type Client struct {
	// IP is the best-guess caller address; see NormalizeIP.
	IP string
	// UserAgent is stored raw alongside the derived fingerprint.
	UserAgent string
	// PlatformHint is the explicit platform sent by native clients
	// ("ios", "android", "electron", "web"); empty for browsers.
	PlatformHint string
}

// NormalizeIP validates candidate as an IPv4/IPv6 literal, stripping an
// optional port. Anything that does not parse becomes empty: a bogus proxy
// header must not end up rendered in the session list.
func NormalizeIP(candidate string) string {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(candidate); err == nil {
		candidate = host
	}
	candidate = strings.Trim(candidate, "[]")
	if net.ParseIP(candidate) == nil {
		return ""
	}
	return candidate
}
