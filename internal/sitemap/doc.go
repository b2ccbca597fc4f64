// Package sitemap implements the sitemap discovery collaborator:
// locating a site's sitemaps (robots.txt Sitemap directives first,
// conventional well-known paths as fallback) and streaming URL
// locations out of sitemap and sitemap-index XML.
package sitemap
