package rewrite

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/archivekit/webarchiver/internal/assets"
)

// assetAttrsByTag maps a tag name to the attributes on it that
// reference a downloadable resource. href on <a> and action on <form>
// are handled separately: most of those point to other pages or API
// endpoints, not assets, so they are only rewritten when their target
// resolves to a recognized asset extension.
var assetAttrsByTag = map[string][]string{
	"link":   {"href"},
	"img":    {"src", "srcset"},
	"source": {"src", "srcset"},
	"script": {"src"},
	"video":  {"poster", "src"},
	"audio":  {"src"},
	"iframe": {"src"},
}

// metaAssetProperties lists the meta name/property values whose
// content attribute is a resource reference (social-preview images,
// pinned-tab/tile icons) rather than arbitrary text.
var metaAssetProperties = map[string]bool{
	"og:image":                true,
	"og:image:url":            true,
	"og:image:secure_url":     true,
	"twitter:image":           true,
	"twitter:image:src":       true,
	"msapplication-TileImage": true,
}

// rewriteAttrs walks the document's href/src/poster/srcset/action/content
// attributes and substitutes each resolvable asset reference with the
// archive-local path download returns. Attributes whose value does not
// resolve to a recognized asset extension (ordinary page-to-page links,
// form submit endpoints, non-asset meta content) are left untouched.
func rewriteAttrs(doc *goquery.Document, baseURL url.URL, download assets.DownloadFunc) {
	for tag, attrNames := range assetAttrsByTag {
		doc.Find(tag).Each(func(_ int, s *goquery.Selection) {
			for _, attr := range attrNames {
				val, exists := s.Attr(attr)
				if !exists || strings.TrimSpace(val) == "" {
					continue
				}
				if attr == "srcset" {
					s.SetAttr(attr, rewriteSrcset(val, baseURL, download))
					continue
				}
				if local, ok := rewriteURLAttr(val, baseURL, download); ok {
					s.SetAttr(attr, local)
				}
			}
		})
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		val, _ := s.Attr("href")
		if local, ok := rewriteURLAttr(val, baseURL, download); ok {
			s.SetAttr("href", local)
		}
	})

	doc.Find("form[action]").Each(func(_ int, s *goquery.Selection) {
		val, _ := s.Attr("action")
		if local, ok := rewriteURLAttr(val, baseURL, download); ok {
			s.SetAttr("action", local)
		}
	})

	doc.Find("meta[content]").Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		name, _ := s.Attr("name")
		if !metaAssetProperties[prop] && !metaAssetProperties[name] {
			return
		}
		val, _ := s.Attr("content")
		if local, ok := rewriteURLAttr(val, baseURL, download); ok {
			s.SetAttr("content", local)
		}
	})
}

// rewriteURLAttr resolves raw against baseURL and, if it looks like a
// reference to a recognized asset category, downloads it and returns
// its archive-local path. Fragment-only, data:, javascript:, mailto:
// and tel: references and anything without a recognized extension are
// reported as not-ok, leaving the original value untouched — this is
// what keeps ordinary page links and form actions out of C3's path.
func rewriteURLAttr(raw string, baseURL url.URL, download assets.DownloadFunc) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	switch {
	case strings.HasPrefix(raw, "#"),
		strings.HasPrefix(raw, "data:"),
		strings.HasPrefix(raw, "javascript:"),
		strings.HasPrefix(raw, "mailto:"),
		strings.HasPrefix(raw, "tel:"):
		return "", false
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	resolved := *baseURL.ResolveReference(parsed)

	category, ok := assets.ClassifyExtension(extOf(resolved.Path))
	if !ok {
		return "", false
	}
	return download(resolved, category)
}

func rewriteSrcset(val string, baseURL url.URL, download assets.DownloadFunc) string {
	candidates := strings.Split(val, ",")
	out := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		fields := strings.Fields(candidate)
		if len(fields) == 0 {
			continue
		}
		descriptor := ""
		if len(fields) > 1 {
			descriptor = " " + strings.Join(fields[1:], " ")
		}
		local, ok := rewriteURLAttr(fields[0], baseURL, download)
		if !ok {
			out = append(out, candidate)
			continue
		}
		out = append(out, local+descriptor)
	}
	return strings.Join(out, ", ")
}

func extOf(p string) string {
	idx := strings.LastIndexByte(p, '.')
	if idx < 0 || idx == len(p)-1 {
		return ""
	}
	return p[idx+1:]
}
