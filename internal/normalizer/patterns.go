package normalizer

import (
	"net/url"
	"regexp"
	"strings"
	"sync"
)

// nonHTMLExtensions are file extensions that never yield crawlable HTML.
// URLs pointing at these are rejected before admission: fetching them
// wastes the rate budget and their content has no links to extract.
var nonHTMLExtensions = map[string]bool{
	// Images
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".svg": true, ".ico": true, ".bmp": true, ".tiff": true, ".avif": true,
	// Archives
	".zip": true, ".tar": true, ".gz": true, ".rar": true, ".7z": true,
	// Fonts
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
	// Documents
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".csv": true,
	// Scripts and styles
	".js": true, ".css": true, ".map": true,
	// Media
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".webm": true,
	".wav": true, ".flac": true, ".mkv": true,
	// Binaries
	".exe": true, ".dmg": true, ".apk": true, ".bin": true, ".iso": true,
}

// nonWebSchemes are URL schemes that cannot be fetched over HTTP.
var nonWebSchemes = []string{
	"mailto:", "javascript:", "data:", "tel:", "sms:", "ftp:", "file:",
	"about:", "chrome:", "blob:",
}

// IsValidCrawlableURL reports whether rawURL is worth fetching: an
// absolute HTTP(S) URL that is not a pseudo-link and does not point at
// a known non-HTML file type.
func (n *Normalizer) IsValidCrawlableURL(rawURL string) bool {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" || trimmed == "#" {
		return false
	}

	lower := strings.ToLower(trimmed)
	for _, scheme := range nonWebSchemes {
		if strings.HasPrefix(lower, scheme) {
			return false
		}
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return false
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	if ext := pathExtension(u.Path); ext != "" && nonHTMLExtensions[ext] {
		return false
	}

	return true
}

// regexCache memoizes compiled exclude patterns. Pattern lists are small
// and fixed per job, so the cache never needs eviction.
var (
	regexCacheMu sync.RWMutex
	regexCache   = make(map[string]*regexp.Regexp)
)

// MatchesExcludePattern reports whether rawURL matches any configured
// exclude pattern. A pattern wrapped in /.../ is treated as a
// case-insensitive regular expression tested against both the path and
// the full URL; any other pattern is a case-insensitive substring match
// against the full URL.
func (n *Normalizer) MatchesExcludePattern(rawURL string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	u, err := url.Parse(rawURL)
	path := ""
	if err == nil {
		path = u.Path
	}

	lowerURL := strings.ToLower(rawURL)
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}

		if len(pattern) > 2 && strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") {
			re := compileExcludeRegex(pattern[1 : len(pattern)-1])
			if re == nil {
				continue
			}
			if re.MatchString(path) || re.MatchString(rawURL) {
				return true
			}
			continue
		}

		if strings.Contains(lowerURL, strings.ToLower(pattern)) {
			return true
		}
	}

	return false
}

// compileExcludeRegex compiles expr case-insensitively, returning nil on
// invalid expressions. Bad patterns are silently skipped: exclude lists
// come from user configuration and one typo must not break admission.
func compileExcludeRegex(expr string) *regexp.Regexp {
	regexCacheMu.RLock()
	re, ok := regexCache[expr]
	regexCacheMu.RUnlock()
	if ok {
		return re
	}

	compiled, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		compiled = nil
	}

	regexCacheMu.Lock()
	regexCache[expr] = compiled
	regexCacheMu.Unlock()
	return compiled
}

// pathExtension returns the lowercased extension of the final path
// segment, or "" when there is none.
func pathExtension(urlPath string) string {
	segment := urlPath
	if i := strings.LastIndex(segment, "/"); i >= 0 {
		segment = segment[i+1:]
	}

	dot := strings.LastIndex(segment, ".")
	if dot <= 0 {
		return ""
	}
	return strings.ToLower(segment[dot:])
}
