package pageprocessor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultDynamicMarkers is the documented set of substrings/selectors
// that indicate a page's real content is assembled client-side and the
// static fast-path fetch must be abandoned in favor of the browser
// path. Kept as a package-level default rather than a hardcoded list
// inside isDynamic so new frameworks can be recognized by widening a
// Config value instead of a code change.
var DefaultDynamicMarkers = []string{
	"<code-island",
	"data-reactroot",
	"data-server-rendered",
	"__NEXT_DATA__",
	"ng-version",
	"id=\"root\"></div>",
	"id=\"app\"></div>",
}

// isDynamic classifies a fetched HTML document as dynamic iff it
// carries one of the configured marker substrings, or its <body> is
// effectively empty of text and block content — the "obvious SPA
// shell" case spec.md calls out separately from named framework
// markers. It parses once and tests a small number of cheap
// structural signals to answer one question: is there any real
// content here without running JS.
func isDynamic(htmlSrc string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(htmlSrc, marker) {
			return true
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlSrc))
	if err != nil {
		// Unparseable HTML can't be processed statically either way;
		// let the dynamic path's own browser-level parser take it.
		return true
	}

	return isEmptyShell(doc)
}

// isEmptyShell reports whether body holds no meaningful static content:
// no text beyond whitespace, and at most one child element other than
// script, style and noscript (a single mount point). A page this sparse is almost
// certainly a client-rendered shell even without a recognized marker.
func isEmptyShell(doc *goquery.Document) bool {
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return false
	}

	text := strings.TrimSpace(body.Text())
	if len(text) > 0 {
		return false
	}

	meaningfulChildren := 0
	body.Children().Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		if name == "script" || name == "style" || name == "noscript" {
			return
		}
		meaningfulChildren++
	})

	return meaningfulChildren <= 1
}
