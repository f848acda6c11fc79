package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the originating client address for logging. Forwarding
// headers are only honored when trustProxy is set, since any client can
// forge them when the server is directly exposed.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := forwardedClient(r.Header); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// forwardedClient returns the leftmost X-Forwarded-For entry, or X-Real-IP
// when no forwarding chain is present.
func forwardedClient(h http.Header) string {
	if xff := h.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return strings.TrimSpace(h.Get("X-Real-IP"))
}
