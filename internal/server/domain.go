package server

import (
	"fmt"
	"net"
	"strings"

	"github.com/placekit-labs/placekit/internal/rest"
	"golang.org/x/net/publicsuffix"
)

// DefaultAllowedDomains accepts cloud portals on any bitrix24 public suffix.
var DefaultAllowedDomains = []string{"bitrix24.*"}

// checkDomain normalises a posted portal domain and matches it against
// allowed. Entries are domain suffixes ("example.com" admits the domain and
// its subdomains); "name.*" admits name under any public suffix; "*" admits
// every well-formed host.
func checkDomain(domain string, allowed []string) (string, error) {
	host, err := rest.PortalHost(domain)
	if err != nil {
		return "", err
	}
	name := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		name = h
	}
	name = strings.Trim(name, "[]")

	for _, pattern := range allowed {
		if domainMatches(name, pattern) {
			return host, nil
		}
	}
	return "", fmt.Errorf("portal domain %q is not in server.allowed_domains", domain)
}

func domainMatches(name, pattern string) bool {
	pattern = strings.ToLower(strings.Trim(strings.TrimSpace(pattern), "."))
	switch {
	case pattern == "":
		return false
	case pattern == "*":
		return true
	case strings.HasSuffix(pattern, ".*"):
		suffix, icann := publicsuffix.PublicSuffix(name)
		if !icann || suffix == name {
			return false
		}
		base := strings.TrimSuffix(pattern, ".*") + "." + suffix
		return name == base || strings.HasSuffix(name, "."+base)
	default:
		return name == pattern || strings.HasSuffix(name, "."+pattern)
	}
}
