package rewrite

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// CSSRewriteFunc rewrites a CSS fragment (an inline <style> block or a
// style="…" attribute value) resolving url(...) references against
// baseURL through C3.
type CSSRewriteFunc func(css string, baseURL url.URL) string

// rewriteInlineStyles processes every <style> element's text content and
// every style="…" attribute as CSS, in place. style and script elements
// are raw-text elements (html.Render never entity-escapes their
// contents), so SetText is used instead of SetHtml to avoid round-
// tripping CSS through the HTML parser.
func rewriteInlineStyles(doc *goquery.Document, baseURL url.URL, rewriteCSS CSSRewriteFunc) {
	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		s.SetText(rewriteCSS(s.Text(), baseURL))
	})

	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		val, exists := s.Attr("style")
		if !exists || val == "" {
			return
		}
		s.SetAttr("style", rewriteCSS(val, baseURL))
	})
}
