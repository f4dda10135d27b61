// Package urlnorm implements the URL normalization contract of spec
// §4.5: lowercase scheme/host, drop default ports, drop fragments,
// collapse path segments, and never panic on pathological input.
package urlnorm

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ErrEmpty is returned for blank input after trimming.
var ErrEmpty = fmt.Errorf("urlnorm: empty input")

// ErrUnparseable is returned when net/url cannot parse the input.
var ErrUnparseable = fmt.Errorf("urlnorm: unparseable URL")

// ErrScheme is returned for any scheme other than http/https.
var ErrScheme = fmt.Errorf("urlnorm: unsupported scheme")

// ErrNoHost is returned when the parsed URL has an empty host.
var ErrNoHost = fmt.Errorf("urlnorm: missing host")

// ErrEmptyPath is returned when normalization leaves nothing usable.
var ErrEmptyPath = fmt.Errorf("urlnorm: empty path after normalization")

// Normalize applies the ordered steps of §4.5 and returns the
// normalized absolute URL string, or an error describing why the
// input was rejected. It never panics, matching the spec's
// requirement that normalization failures are always reported as
// errors rather than runtime faults.
func Normalize(raw string) (normalized string, err error) {
	defer func() {
		if r := recover(); r != nil {
			normalized = ""
			err = fmt.Errorf("urlnorm: panic recovered: %v", r)
		}
	}()

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrEmpty
	}

	u, parseErr := url.Parse(trimmed)
	if parseErr != nil {
		return "", fmt.Errorf("%w: %v", ErrUnparseable, parseErr)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrScheme, u.Scheme)
	}
	u.Scheme = scheme

	if u.Host == "" {
		return "", ErrNoHost
	}
	u.Host = lowercaseHost(u.Host)
	if u.Host == "" {
		return "", ErrNoHost
	}

	stripDefaultPort(u)

	u.Fragment = ""
	u.RawFragment = ""

	u.Path = normalizePath(u.Path)

	serialized := u.String()
	if serialized == "" {
		return "", ErrEmptyPath
	}

	return serialized, nil
}

// lowercaseHost lowercases the hostname portion while preserving a
// literal port suffix and bracketed IPv6 notation. net/url rejects
// hosts with an invalid bracket form at Parse time already, so by the
// time we get here u.Host is syntactically valid.
func lowercaseHost(host string) string {
	return strings.ToLower(host)
}

// stripDefaultPort removes :80 for http and :443 for https.
func stripDefaultPort(u *url.URL) {
	host := u.Host
	switch {
	case u.Scheme == "http" && strings.HasSuffix(host, ":80"):
		u.Host = strings.TrimSuffix(host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(host, ":443"):
		u.Host = strings.TrimSuffix(host, ":443")
	}
}

// normalizePath resolves "." / ".." segments, collapses duplicate
// slashes, and strips a trailing slash on any path deeper than root.
func normalizePath(p string) string {
	if p == "" {
		return "/"
	}

	cleaned := path.Clean(p)
	// path.Clean turns "" into "." and collapses "//" already; it also
	// strips a trailing slash, which we want, except for root.
	if cleaned == "." {
		cleaned = "/"
	}
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}

	if p == "/" {
		return "/"
	}
	if cleaned == "/" && p != "/" {
		return "/"
	}

	return cleaned
}
