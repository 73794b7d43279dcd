package crawlengine

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// discoverLinks walks the already-rewritten page HTML and returns every
// <a href> target in document order. Only hrefs are considered: by
// this point in the pipeline, C4 has already rewritten every asset
// reference it cares about, so link discovery's only job is finding
// more pages to crawl. Grounded on the same goquery document-walk
// idiom used to extract link references elsewhere in this codebase.
func discoverLinks(pageHTML string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil
	}

	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}
		hrefs = append(hrefs, href)
	})
	return hrefs
}
