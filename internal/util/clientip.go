package util

import (
	"net"
	"net/http"
	"strings"
)

// clientIPHeaders is checked in order; the first non-empty value wins.
// Edge/CDN headers come before generic proxy headers.
var clientIPHeaders = []string{
	"Fly-Client-IP",
	"CF-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// ResolveClientIP returns the real client address for a request that may
// have passed through a load balancer or CDN, falling back to the socket
// address.
func ResolveClientIP(header http.Header, remoteAddr string) string {
	for _, name := range clientIPHeaders {
		value := header.Get(name)
		if value == "" {
			continue
		}
		if name == "X-Forwarded-For" {
			value, _, _ = strings.Cut(value, ",")
		}
		if ip := NormalizeIP(value); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	return NormalizeIP(host)
}

// NormalizeIP canonicalizes an address, unwrapping IPv4-mapped IPv6 forms
// such as ::ffff:10.0.0.1. Unparseable input is returned trimmed.
func NormalizeIP(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(strings.TrimSuffix(raw, "]"), "[")
	if raw == "" {
		return ""
	}

	ip := net.ParseIP(raw)
	if ip == nil {
		return raw
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return ip.String()
}

// DescribeClient reduces a user agent to a short descriptor for the admin
// status view.
func DescribeClient(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case ua == "":
		return "unknown"
	case strings.Contains(ua, "obs"):
		return "OBS Browser Source"
	case strings.Contains(ua, "streamlabs"):
		return "Streamlabs"
	case strings.Contains(ua, "edg/"):
		return "Edge"
	case strings.Contains(ua, "firefox"):
		return "Firefox"
	case strings.Contains(ua, "chrome"):
		return "Chrome"
	case strings.Contains(ua, "safari"):
		return "Safari"
	default:
		return "other"
	}
}
