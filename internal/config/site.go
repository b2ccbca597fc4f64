package config

// SiteConfig holds site-specific configuration for a single domain.
// This allows customizing crawl behavior per audited site.
type SiteConfig struct {
	// Headers are custom HTTP headers to include in requests to this
	// site. Useful for staging environments behind basic auth proxies
	// or custom access tokens.
	Headers map[string]string `yaml:"headers,omitempty"`

	// MaxDepth overrides the global depth limit for this site.
	// If zero, the global MaxDepth is used.
	MaxDepth int `yaml:"maxDepth,omitempty"`

	// MaxURLs overrides the global inventory ceiling for this site.
	// If zero, the global MaxURLs is used.
	MaxURLs int `yaml:"maxUrls,omitempty"`

	// RatePerMinute overrides the global request rate for this site.
	// If zero, the global rate is used.
	RatePerMinute int `yaml:"ratePerMinute,omitempty"`

	// ExcludePatterns are URL patterns to skip during crawling for
	// this site, in addition to the global exclusions.
	ExcludePatterns []string `yaml:"excludePatterns,omitempty"`

	// IncludeSubdomains widens the crawl scope to subdomains for this
	// site.
	IncludeSubdomains bool `yaml:"includeSubdomains,omitempty"`

	// JSRendering enables rendered-DOM link extraction for this site.
	JSRendering bool `yaml:"jsRendering,omitempty"`
}

// File represents the structure of the .seoscan configuration file.
type File struct {
	// Sites maps domains to their site-specific configurations.
	// Keys should be the bare domain (e.g., "example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a specific domain.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(domain string) SiteConfig {
	// Start with defaults
	result := cf.Defaults

	// Override with site-specific configuration if present
	if siteConfig, ok := cf.Sites[domain]; ok {
		if siteConfig.MaxDepth != 0 {
			result.MaxDepth = siteConfig.MaxDepth
		}
		if siteConfig.MaxURLs != 0 {
			result.MaxURLs = siteConfig.MaxURLs
		}
		if siteConfig.RatePerMinute != 0 {
			result.RatePerMinute = siteConfig.RatePerMinute
		}
		if len(siteConfig.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range siteConfig.Headers {
				result.Headers[k] = v
			}
		}
		if len(siteConfig.ExcludePatterns) > 0 {
			result.ExcludePatterns = append(result.ExcludePatterns, siteConfig.ExcludePatterns...)
		}
		if siteConfig.IncludeSubdomains {
			result.IncludeSubdomains = true
		}
		if siteConfig.JSRendering {
			result.JSRendering = true
		}
	}

	return result
}
