package normalizer

import (
	"net/url"
	"sort"
	"strings"
)

// DefaultTrackingParams are query parameters stripped during
// normalization. They identify marketing campaigns, not content, so two
// URLs differing only in these parameters are the same page.
var DefaultTrackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_content", "utm_term",
	"fbclid", "gclid", "msclkid", "mc_cid", "mc_eid", "ref", "source",
}

// Config holds the normalization rule set. The zero value disables every
// optional rule; use NewConfig for the defaults.
type Config struct {
	// EnforceHTTPS upgrades http:// URLs to https:// before keying.
	EnforceHTTPS bool

	// LowercaseHost lowercases the host component.
	LowercaseHost bool

	// RemoveDefaultPorts strips :80 from http and :443 from https hosts.
	RemoveDefaultPorts bool

	// RemoveFragments drops the #fragment component.
	RemoveFragments bool

	// RemoveTrailingSlash strips a trailing slash from non-root paths.
	RemoveTrailingSlash bool

	// SortQueryParams re-encodes remaining query parameters in a
	// deterministic order so normalization is stable and idempotent.
	SortQueryParams bool

	// TrackingParams are query parameter names removed by exact match.
	TrackingParams []string
}

// NewConfig returns the default normalization rule set.
func NewConfig() Config {
	return Config{
		EnforceHTTPS:        true,
		LowercaseHost:       true,
		RemoveDefaultPorts:  true,
		RemoveFragments:     true,
		RemoveTrailingSlash: false,
		SortQueryParams:     true,
		TrackingParams:      DefaultTrackingParams,
	}
}

// Normalizer canonicalizes URLs according to a Config. It is stateless
// and safe for concurrent use.
type Normalizer struct {
	cfg      Config
	tracking map[string]bool
}

// New creates a Normalizer for the given rule set.
func New(cfg Config) *Normalizer {
	tracking := make(map[string]bool, len(cfg.TrackingParams))
	for _, p := range cfg.TrackingParams {
		tracking[p] = true
	}
	return &Normalizer{cfg: cfg, tracking: tracking}
}

// Normalize resolves rawURL (optionally relative to baseURL) and applies
// the configured rules in a fixed order: host lowercase, default-port
// strip, scheme upgrade, tracking-parameter removal, fragment removal,
// trailing-slash removal, query re-sort.
//
// Returns ok=false on any parse failure or non-absolute result; it never
// panics. Normalize(Normalize(x)) == Normalize(x) for all accepted x.
func (n *Normalizer) Normalize(rawURL, baseURL string) (string, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", false
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	// Resolve relative references against the page that mentioned them.
	if !u.IsAbs() {
		if baseURL == "" {
			return "", false
		}
		base, err := url.Parse(baseURL)
		if err != nil || !base.IsAbs() {
			return "", false
		}
		u = base.ResolveReference(u)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Host == "" {
		return "", false
	}

	if n.cfg.LowercaseHost {
		u.Host = strings.ToLower(u.Host)
	}

	// Port stripping must see the original scheme: upgrading first would
	// leave :80 on an https URL and key it apart from the portless form.
	if n.cfg.RemoveDefaultPorts {
		u.Host = stripDefaultPort(u.Host, u.Scheme)
	}

	if n.cfg.EnforceHTTPS && u.Scheme == "http" {
		u.Scheme = "https"
	}

	if u.RawQuery != "" {
		u.RawQuery = n.normalizeQuery(u.RawQuery)
	}

	if n.cfg.RemoveFragments {
		u.Fragment = ""
	}

	if n.cfg.RemoveTrailingSlash && len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), true
}

// normalizeQuery strips tracking parameters and re-encodes the rest.
// url.Values.Encode sorts by key; we additionally sort repeated values
// so the output is fully deterministic.
func (n *Normalizer) normalizeQuery(rawQuery string) string {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}

	kept := url.Values{}
	for key, vals := range values {
		if n.tracking[key] {
			continue
		}
		if n.cfg.SortQueryParams {
			sorted := make([]string, len(vals))
			copy(sorted, vals)
			sort.Strings(sorted)
			vals = sorted
		}
		for _, v := range vals {
			kept.Add(key, v)
		}
	}

	return kept.Encode()
}

// IsSameDomain reports whether rawURL belongs to domain. A leading
// "www." is stripped from both sides before comparing. When
// includeSubdomains is true, any host ending in "." + domain matches.
func (n *Normalizer) IsSameDomain(rawURL, domain string, includeSubdomains bool) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	host := stripWWW(strings.ToLower(u.Hostname()))
	domain = stripWWW(strings.ToLower(domain))
	if host == "" || domain == "" {
		return false
	}

	if host == domain {
		return true
	}
	if includeSubdomains && strings.HasSuffix(host, "."+domain) {
		return true
	}
	return false
}

// ResolveCanonical prefers the page's declared canonical URL over the
// original, but only when the canonical normalizes successfully and
// stays on the same domain. Anything else falls back to original, since
// canonical tags are third-party-authored and routinely broken.
func (n *Normalizer) ResolveCanonical(original, canonical, domain string) string {
	if canonical == "" {
		return original
	}

	normalized, ok := n.Normalize(canonical, original)
	if !ok {
		return original
	}
	if !n.IsSameDomain(normalized, domain, true) {
		return original
	}
	return normalized
}

// stripDefaultPort removes the scheme's default port from host.
func stripDefaultPort(host, scheme string) string {
	if (scheme == "http" && strings.HasSuffix(host, ":80")) ||
		(scheme == "https" && strings.HasSuffix(host, ":443")) {
		return host[:strings.LastIndex(host, ":")]
	}
	return host
}

// stripWWW removes a single leading "www." label.
func stripWWW(host string) string {
	return strings.TrimPrefix(host, "www.")
}
