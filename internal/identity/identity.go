// Package identity derives an opaque voter identity from a request's
// network origin. The engine only requires the derivation to be stable per
// distinct voter; it performs no normalization of its own.
package identity

import (
	"net"
	"net/http"
	"strings"
)

// FromRequest returns the client address as the voter identity: the first
// X-Forwarded-For hop when present, otherwise the peer address without the
// port.
func FromRequest(r *http.Request) string {
	if xfwd := r.Header.Get("X-Forwarded-For"); xfwd != "" {
		parts := strings.Split(xfwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
