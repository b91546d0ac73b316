package middleware

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// RealIP resolves the client address once per request. Forwarding headers
// are only honoured when the direct peer is a trusted proxy.
type RealIP struct {
	trusted []netip.Prefix
}

// NewRealIP creates the resolver. With no trusted proxies the peer address is used.
func NewRealIP(trusted []netip.Prefix) *RealIP {
	return &RealIP{trusted: trusted}
}

// Handler stores the resolved address for ClientIP
func (m *RealIP) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := m.resolve(r)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ClientIPKey, ip)))
	})
}

// resolve walks X-Forwarded-For from the nearest hop and returns the first
// address that is not a trusted proxy
func (m *RealIP) resolve(r *http.Request) string {
	peer := remoteHost(r)
	addr, err := netip.ParseAddr(peer)
	if err != nil || !m.isTrusted(addr) {
		return peer
	}

	hops := forwardedHops(r)
	if len(hops) == 0 {
		if ip, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
			return ip.Unmap().String()
		}
		return peer
	}

	client := addr
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(hops[i])
		if err != nil {
			break
		}
		client = hop.Unmap()
		if !m.isTrusted(client) {
			break
		}
	}
	return client.String()
}

func (m *RealIP) isTrusted(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range m.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func forwardedHops(r *http.Request) []string {
	var hops []string
	for _, header := range r.Header.Values("X-Forwarded-For") {
		for _, hop := range strings.Split(header, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}
	return hops
}

// ClientIP returns the address resolved by RealIP, or the peer address when
// the request did not pass through it
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(ClientIPKey).(string); ok && ip != "" {
		return ip
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
