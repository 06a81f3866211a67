package http

import (
	"net"
	"net/http"
	"strings"
)

// IPConfig decides which peers may speak for the client via forwarding
// headers. Trusted ranges are parsed once at construction.
type IPConfig struct {
	trustedNets []*net.IPNet
}

// NewIPConfig parses the given CIDR ranges. Entries that do not parse are
// dropped rather than failing startup.
func NewIPConfig(trustedProxies []string) *IPConfig {
	cfg := &IPConfig{}
	for _, cidr := range trustedProxies {
		if _, ipNet, err := net.ParseCIDR(strings.TrimSpace(cidr)); err == nil {
			cfg.trustedNets = append(cfg.trustedNets, ipNet)
		}
	}
	return cfg
}

// ExtractClientIP returns the client address for a request. Forwarding
// headers are honored only when the direct peer is a trusted proxy, so a
// client cannot spoof its own address by setting X-Forwarded-For.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	peer := peerAddr(r)

	if config == nil || !config.trusts(peer) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, candidate := range strings.Split(xff, ",") {
			candidate = strings.TrimSpace(candidate)
			if net.ParseIP(candidate) != nil {
				return candidate
			}
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}

	return peer
}

func (c *IPConfig) trusts(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, ipNet := range c.trustedNets {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// peerAddr strips the port from RemoteAddr
func peerAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
