package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the host part of the remote address.
// Forwarding headers are honored only when chi's RealIP middleware has rewritten RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// BaseURL returns configured without trailing slashes, or the scheme and host the request came in on.
// The host is always r.Host; X-Forwarded-Host is ignored.
func BaseURL(r *http.Request, configured string) string {
	if base := strings.TrimRight(configured, "/"); base != "" {
		return base
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		first, _, _ := strings.Cut(proto, ",")
		scheme = strings.ToLower(strings.TrimSpace(first))
	}

	return scheme + "://" + r.Host
}
