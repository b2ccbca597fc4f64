package extractor

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Link is one extracted anchor target, resolved to an absolute URL.
type Link struct {
	// URL is the resolved absolute target of the anchor.
	URL string

	// Text is the anchor's visible text, trimmed.
	Text string

	// Rel is the anchor's rel attribute ("nofollow", ...).
	Rel string
}

// pseudoSchemes are href prefixes that are not navigable pages.
var pseudoSchemes = []string{"javascript:", "mailto:", "tel:", "data:", "sms:"}

// ExtractLinks parses body as HTML and returns every <a href> target
// resolved against pageURL. Duplicate targets are kept; deduplication
// belongs to the inventory, which keys by normalized URL.
//
// Design decision: We parse with x/net/html rather than regular
// expressions because:
//  1. It correctly handles the malformed HTML common on the web
//  2. Anchors inside comments or scripts are not false positives
//  3. One parse pass also yields anchor text and rel attributes
func ExtractLinks(pageURL string, body []byte) ([]Link, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var links []Link
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := attrValue(n, "href"); href != "" {
				if resolved := resolveHref(base, href); resolved != "" {
					links = append(links, Link{
						URL:  resolved,
						Text: strings.TrimSpace(nodeText(n)),
						Rel:  attrValue(n, "rel"),
					})
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links, nil
}

// resolveHref resolves href against base, dropping pseudo-links and
// unparsable values.
func resolveHref(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return ""
	}

	lower := strings.ToLower(href)
	for _, scheme := range pseudoSchemes {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	return base.ResolveReference(u).String()
}

// attrValue returns the value of the named attribute, or "".
func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// nodeText concatenates the text nodes beneath n.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
