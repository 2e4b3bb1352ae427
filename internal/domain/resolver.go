// Package domain resolves registrable domains and public suffixes from URLs.
package domain

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ErrUnresolvedDomain reports a URL with no registrable domain. Callers treat
// it as a per-URL skip, never as a fatal error.
var ErrUnresolvedDomain = errors.New("unresolved domain")

// Parts is the decomposition of a URL host.
type Parts struct {
	Host string
	// Registrable is the eTLD+1, e.g. "charity.org.uk".
	Registrable string
	// Suffix is the public suffix, e.g. "org.uk".
	Suffix string
}

// Resolver looks hosts up in the compiled-in public suffix list.
type Resolver struct{}

// NewResolver returns a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve splits rawURL into host, registrable domain and public suffix.
func (Resolver) Resolve(rawURL string) (Parts, error) {
	host, err := Host(rawURL)
	if err != nil {
		return Parts{}, err
	}
	if net.ParseIP(host) != nil {
		return Parts{}, fmt.Errorf("%w: %q is an IP address", ErrUnresolvedDomain, host)
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return Parts{}, fmt.Errorf("%w: %s: %v", ErrUnresolvedDomain, host, err)
	}
	suffix, _ := publicsuffix.PublicSuffix(host)
	return Parts{Host: host, Registrable: registrable, Suffix: suffix}, nil
}

// Registrable returns the eTLD+1 of rawURL.
func (r Resolver) Registrable(rawURL string) (string, error) {
	parts, err := r.Resolve(rawURL)
	if err != nil {
		return "", err
	}
	return parts.Registrable, nil
}

// PublicSuffix returns the public suffix of rawURL.
func (r Resolver) PublicSuffix(rawURL string) (string, error) {
	parts, err := r.Resolve(rawURL)
	if err != nil {
		return "", err
	}
	return parts.Suffix, nil
}

// Host extracts the lower-cased host of rawURL. Scheme-less input such as
// "example.org/path" is accepted.
func Host(rawURL string) (string, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return "", fmt.Errorf("%w: empty url", ErrUnresolvedDomain)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnresolvedDomain, err)
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return "", fmt.Errorf("%w: no host in %q", ErrUnresolvedDomain, rawURL)
	}
	return host, nil
}
