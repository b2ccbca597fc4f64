package seo

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/seoscan/internal/model"
)

// ExtractSignals parses body and pulls the on-page SEO signals: title,
// meta description, H1 count, canonical link, robots meta, visible word
// count, and internal/external anchor counts relative to pageURL's host.
//
// Design decision: We use goquery here, not the raw x/net/html walker
// the link extractor uses, because:
//  1. Signal extraction is selector-shaped (head > meta[name=...])
//  2. goquery's text aggregation handles the word count cleanly
//  3. The link extractor stays dependency-light on the hot BFS path
func ExtractSignals(pageURL string, body []byte) (*model.SEOSignals, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	signals := &model.SEOSignals{}

	signals.Title = strings.TrimSpace(doc.Find("head title").First().Text())

	if desc, ok := doc.Find(`head meta[name="description"]`).First().Attr("content"); ok {
		signals.MetaDescription = strings.TrimSpace(desc)
	}
	if robots, ok := doc.Find(`head meta[name="robots"]`).First().Attr("content"); ok {
		signals.RobotsMeta = strings.TrimSpace(robots)
	}
	if canonical, ok := doc.Find(`head link[rel="canonical"]`).First().Attr("href"); ok {
		signals.CanonicalURL = strings.TrimSpace(canonical)
	}

	signals.H1Count = doc.Find("h1").Length()

	// Word count over visible text only.
	doc.Find("script, style, noscript").Remove()
	signals.WordCount = len(strings.Fields(doc.Find("body").Text()))

	base, err := url.Parse(pageURL)
	if err == nil {
		baseHost := strings.ToLower(base.Hostname())
		doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			href = strings.TrimSpace(href)
			if href == "" || strings.HasPrefix(strings.ToLower(href), "javascript:") ||
				strings.HasPrefix(strings.ToLower(href), "mailto:") {
				return
			}
			u, err := url.Parse(href)
			if err != nil {
				return
			}
			resolved := base.ResolveReference(u)
			if strings.EqualFold(resolved.Hostname(), baseHost) {
				signals.InternalLinkCount++
			} else {
				signals.ExternalLinkCount++
			}
		})
	}

	return signals, nil
}
