package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// UnknownClient is the identifier used when no client address can be found.
// Every such request shares one bucket.
const UnknownClient = "unknown"

const (
	headerForwardedFor = "X-Forwarded-For"
	headerRealIP       = "X-Real-IP"
)

// TrustedProxies is the set of reverse proxies allowed to report the client
// address through X-Forwarded-For or X-Real-IP.
type TrustedProxies struct {
	prefixes []netip.Prefix
}

// ParseTrustedProxies accepts single addresses ("10.0.0.1") and CIDR ranges
// ("10.0.0.0/8"). Blank entries are skipped.
func ParseTrustedProxies(entries []string) (*TrustedProxies, error) {
	tp := &TrustedProxies{}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
			}
			tp.prefixes = append(tp.prefixes, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		tp.prefixes = append(tp.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return tp, nil
}

// Contains reports whether addr belongs to a trusted proxy.
func (tp *TrustedProxies) Contains(addr netip.Addr) bool {
	if tp == nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range tp.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// NewIPKeyExtractor returns a key extractor that identifies clients by
// network address.
//
// Forwarding headers are only read when the direct peer is a trusted proxy.
// X-Forwarded-For is then walked from the right and the first hop that is not
// itself a trusted proxy wins; X-Real-IP is the fallback. Any other request is
// keyed by the RemoteAddr host, so a client cannot pick its own bucket by
// sending headers.
func NewIPKeyExtractor(trusted *TrustedProxies) func(*http.Request) string {
	return func(r *http.Request) string {
		host := remoteHost(r.RemoteAddr)
		if host == "" {
			return UnknownClient
		}

		peer, err := netip.ParseAddr(host)
		if err != nil || !trusted.Contains(peer) {
			return host
		}

		if ip, ok := forwardedClient(r.Header.Values(headerForwardedFor), trusted); ok {
			return ip
		}

		if realIP, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get(headerRealIP))); err == nil {
			return realIP.Unmap().String()
		}

		return host
	}
}

// IPKeyExtractor keys requests by the RemoteAddr host and ignores forwarding
// headers. Use NewIPKeyExtractor when running behind a reverse proxy.
var IPKeyExtractor = NewIPKeyExtractor(nil)

// forwardedClient walks X-Forwarded-For right to left. A malformed hop ends
// the walk since nothing left of it can be trusted. When every hop is a
// trusted proxy the left-most one is returned.
func forwardedClient(values []string, trusted *TrustedProxies) (string, bool) {
	var hops []string
	for _, value := range values {
		for _, hop := range strings.Split(value, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}

	var last netip.Addr
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(hops[i])
		if err != nil {
			break
		}
		addr = addr.Unmap()
		if !trusted.Contains(addr) {
			return addr.String(), true
		}
		last = addr
	}

	if last.IsValid() {
		return last.String(), true
	}
	return "", false
}

func remoteHost(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
