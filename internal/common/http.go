package common

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the originating client address for rate limit keys.
// The service sits behind a proxy in every deployed environment, so
// X-Forwarded-For wins when present; it takes the first hop, which is the
// address the edge recorded.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	if host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr)); err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
