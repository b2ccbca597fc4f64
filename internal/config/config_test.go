package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestNewConfigDefaults verifies the constructor's default values.
func TestNewConfigDefaults(t *testing.T) {
	t.Parallel()

	c := NewConfig()

	if c.Timeout != DefaultTimeout {
		t.Errorf("unexpected timeout %v", c.Timeout)
	}
	if c.MaxDepth != DefaultMaxDepth {
		t.Errorf("unexpected max depth %d", c.MaxDepth)
	}
	if c.MaxURLs != DefaultMaxURLs {
		t.Errorf("unexpected max URLs %d", c.MaxURLs)
	}
	if c.RatePerMinute != DefaultRatePerMinute {
		t.Errorf("unexpected rate %d", c.RatePerMinute)
	}
	if !c.SitemapDiscovery {
		t.Error("sitemap discovery should default on")
	}
	if !c.EnforceHTTPS {
		t.Error("HTTPS enforcement should default on")
	}
	if c.UserAgent != DefaultUserAgent {
		t.Errorf("unexpected user agent %q", c.UserAgent)
	}
}

// TestConfigValidate walks the validation rules one by one.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		c := NewConfig()
		c.SeedURLs = []string{"https://example.com/"}
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid config", func(*Config) {}, nil},
		{"no seed", func(c *Config) { c.SeedURLs = nil }, ErrNoSeed},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"zero depth", func(c *Config) { c.MaxDepth = 0 }, ErrInvalidMaxDepth},
		{"zero ceiling", func(c *Config) { c.MaxURLs = 0 }, ErrInvalidMaxURLs},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, ErrInvalidConcurrency},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, ErrInvalidBatchSize},
		{"both report formats", func(c *Config) { c.JSONReport = true; c.MarkdownReport = true }, ErrConflictingReportFormats},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := valid()
			tt.mutate(c)

			err := c.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected valid config, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestLoadConfigFile verifies YAML loading and the not-found sentinel.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("valid file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, ".seoscan")
		content := `
defaults:
  maxDepth: 2
sites:
  shop.example.com:
    maxDepth: 5
    ratePerMinute: 30
    excludePatterns:
      - /search
    includeSubdomains: true
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}

		site := cf.GetSiteConfig("shop.example.com")
		if site.MaxDepth != 5 {
			t.Errorf("expected site override depth 5, got %d", site.MaxDepth)
		}
		if site.RatePerMinute != 30 {
			t.Errorf("expected rate 30, got %d", site.RatePerMinute)
		}
		if len(site.ExcludePatterns) != 1 || site.ExcludePatterns[0] != "/search" {
			t.Errorf("unexpected exclude patterns %v", site.ExcludePatterns)
		}
		if !site.IncludeSubdomains {
			t.Error("expected subdomain inclusion")
		}

		// Unknown site falls back to defaults.
		other := cf.GetSiteConfig("other.example.com")
		if other.MaxDepth != 2 {
			t.Errorf("expected default depth 2, got %d", other.MaxDepth)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("malformed YAML", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".seoscan")
		if err := os.WriteFile(path, []byte("sites: [not a map"), 0o600); err != nil {
			t.Fatal(err)
		}

		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected error for malformed YAML")
		}
	})
}

// TestFindConfigFile verifies explicit-path resolution.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, ".seoscan")
	if err := os.WriteFile(path, []byte("sites: {}"), 0o600); err != nil {
		t.Fatal(err)
	}

	if got := FindConfigFile(path); got != path {
		t.Errorf("expected %q, got %q", path, got)
	}
	if got := FindConfigFile(filepath.Join(dir, "nope")); got != "" {
		t.Errorf("expected empty result for missing explicit path, got %q", got)
	}
}

// TestXDGDirs verifies the app name lands in every XDG path.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for _, dir := range []string{XDGDataDir(), XDGConfigDir(), XDGCacheDir()} {
		if filepath.Base(dir) != AppName {
			t.Errorf("expected %q suffix in %q", AppName, dir)
		}
	}
}
