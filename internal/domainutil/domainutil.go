// Package domainutil extracts the registrable domain (eTLD+1) that
// keys every politeness and queuing decision (spec §4.6).
//
// Grounded on anishpateluk-walker's fetcher.go, which resolves the
// same quantity via publicsuffix.EffectiveTLDPlusOne; golang.org/x/net
// is already a dependency of the teacher repo, so this uses the
// modern golang.org/x/net/publicsuffix package rather than the
// archived code.google.com/p/go.net import that example used.
package domainutil

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ExtractDomain returns the lowercased registrable domain for rawURL.
// Hosts with no public-suffix match (including IP-literal hosts) fall
// back to the lowercased host itself, per §4.6.
func ExtractDomain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return ExtractDomainFromHost(u.Hostname())
}

// ExtractDomainFromHost applies the same rule directly to a hostname.
func ExtractDomainFromHost(host string) (string, error) {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return "", errEmptyHost
	}

	if isIPLiteral(host) {
		return host, nil
	}

	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// No public-suffix match: return the full lowercased host,
		// per §4.6.
		return host, nil
	}
	return etld1, nil
}

func isIPLiteral(host string) bool {
	// Hostname() already strips [] brackets for IPv6 literals and any
	// port suffix, so a literal IPv4/IPv6 address parses cleanly here.
	return strings.Count(host, ":") > 0 || isDottedQuad(host)
}

func isDottedQuad(host string) bool {
	parts := strings.Split(host, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" || len(p) > 3 {
			return false
		}
		for _, c := range p {
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}

type domainError string

func (e domainError) Error() string { return string(e) }

const errEmptyHost = domainError("domainutil: empty host")
