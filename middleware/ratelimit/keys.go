package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// KeyFunc extracts the rate limit key of a request.
type KeyFunc func(r *http.Request) string

// DefaultKeyFunc keys by keyHeader when present, then by the first
// X-Forwarded-For hop when trustXFF, then by the remote host.
func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
				return strings.TrimSpace(first)
			}
		}

		return RemoteHost(r)
	}
}

// RemoteHost is r.RemoteAddr without the port.
func RemoteHost(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	if addr != "" {
		return addr
	}
	return "unknown"
}
