package assets

import (
	"net/url"
	"regexp"
	"strings"
)

// cssURLRe matches CSS url(...) occurrences, optionally quoted with
// single or double quotes.
var cssURLRe = regexp.MustCompile(`url\(\s*(['"]?)([^'")]+)\1\s*\)`)

// DownloadFunc resolves assetURL (relative to baseURL already) to an
// archive-local path, downloading it if necessary. It never returns an
// error for a failed fetch — per spec, asset failures are logged and
// the original URL is kept, so implementations return ("", false) on
// failure and the rewriter leaves the token untouched.
type DownloadFunc func(assetURL url.URL, category Category) (localPath string, ok bool)

// RewriteCSS rewrites every non-data:/non-fragment url(...) occurrence
// in css, resolving each relative to baseURL, classifying by extension,
// and substituting the local path download returns. The original quote
// style is preserved; unresolvable or skipped references are left
// unchanged.
func RewriteCSS(css string, baseURL url.URL, download DownloadFunc) string {
	return cssURLRe.ReplaceAllStringFunc(css, func(match string) string {
		sub := cssURLRe.FindStringSubmatch(match)
		if len(sub) < 3 {
			return match
		}
		quote, raw := sub[1], strings.TrimSpace(sub[2])

		if raw == "" || strings.HasPrefix(raw, "data:") || strings.HasPrefix(raw, "#") {
			return match
		}

		parsed, err := url.Parse(raw)
		if err != nil {
			return match
		}
		resolved := *baseURL.ResolveReference(parsed)

		ext := extOf(resolved.Path)
		category, ok := ClassifyExtension(ext)
		if !ok {
			category = CategoryImage // CSS url() without a recognizable ext is almost always a background image
		}

		localPath, ok := download(resolved, category)
		if !ok {
			return match
		}
		return "url(" + quote + localPath + quote + ")"
	})
}

func extOf(p string) string {
	idx := strings.LastIndexByte(p, '.')
	if idx < 0 || idx == len(p)-1 {
		return ""
	}
	return p[idx+1:]
}
