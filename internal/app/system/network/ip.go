// internal/app/system/network/ip.go
// Package network reads client details off incoming requests.
package network

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the address recorded against a request in the audit log.
//
// Behind a proxy the first X-Forwarded-For hop wins, then X-Real-IP.
// Otherwise RemoteAddr is used with its port removed; bracketed IPv6
// addresses come back without brackets.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
