package assets

import (
	"net/url"
	"regexp"
)

// assetPathRe matches string-literal asset paths: an optional leading
// "/", "./" or "../", then path segments, ending in a recognized asset
// extension. Conservative by design (spec §4.3) — it is applied only to
// the *contents* of string literals already isolated by jsStringRe, not
// to arbitrary JS source.
var assetPathRe = regexp.MustCompile(`^(?:\.{0,2}/)?[a-zA-Z0-9._\-/]+\.(js|mjs|cjs|css|png|jpg|jpeg|gif|webp|svg|avif|woff2?|ttf|otf|mp4|webm|mp3|wav|ogg)$`)

// jsStringRe matches single- or double-quoted string literals that do
// not themselves contain the quote character or a newline, conservative
// enough to avoid most false positives from escaped quotes.
var jsStringRe = regexp.MustCompile(`(['"])([^'"\n]*)(['"])`)

// dynamicImportRe matches dynamic import("...") specifiers.
var dynamicImportRe = regexp.MustCompile(`import\(\s*(['"])([^'"\n]+)(['"])\s*\)`)

// webpackConcatRe matches __webpack_require__.p + "chunk.js" style
// concatenations.
var webpackConcatRe = regexp.MustCompile(`(__webpack_require__\.p\s*\+\s*)(['"])([^'"\n]+)(['"])`)

// chunkManifestRe matches a webpack/rspack chunk-URL function of the
// form `<ident>.u = (id) => "<prefix>" + {...}[id] + "<suffix>"`.
var chunkManifestRe = regexp.MustCompile(`\.u\s*=\s*\([a-zA-Z0-9_]+\)\s*=>\s*(['"])([^'"\n]*)\1\s*\+\s*\{([^}]*)\}\s*\[[a-zA-Z0-9_]+\]\s*\+\s*(['"])([^'"\n]*)\4`)

// chunkEntryRe extracts "id":"hash" or id:"hash" pairs from a chunk
// manifest's object literal body.
var chunkEntryRe = regexp.MustCompile(`"?([a-zA-Z0-9_]+)"?\s*:\s*"([^"]+)"`)

// RewriteJS conservatively rewrites asset references inside JS source:
// string-literal asset paths, dynamic import(...) specifiers, and
// __webpack_require__.p concatenations. Template literals containing
// interpolation (`${...}`) are left untouched because jsStringRe only
// matches quote-delimited literals, not backtick ones. Before string
// rewriting it scans for a chunk manifest and proactively downloads
// every chunk it lists, without altering the manifest function itself
// (the runtime computes publicPath from the script's own URL).
func RewriteJS(js string, baseURL url.URL, download DownloadFunc) string {
	downloadChunkManifest(js, baseURL, download)

	js = dynamicImportRe.ReplaceAllStringFunc(js, func(m string) string {
		sub := dynamicImportRe.FindStringSubmatch(m)
		return rewriteIfAsset(m, sub[1], sub[2], baseURL, download, func(local string) string {
			return "import(" + sub[1] + local + sub[1] + ")"
		})
	})

	js = webpackConcatRe.ReplaceAllStringFunc(js, func(m string) string {
		sub := webpackConcatRe.FindStringSubmatch(m)
		prefix, quote, raw := sub[1], sub[2], sub[3]
		return rewriteIfAsset(m, quote, raw, baseURL, download, func(local string) string {
			return prefix + quote + local + quote
		})
	})

	js = jsStringRe.ReplaceAllStringFunc(js, func(m string) string {
		sub := jsStringRe.FindStringSubmatch(m)
		quote, raw := sub[1], sub[2]
		return rewriteIfAsset(m, quote, raw, baseURL, download, func(local string) string {
			return quote + local + quote
		})
	})

	return js
}

func rewriteIfAsset(original, quote, raw string, baseURL url.URL, download DownloadFunc, build func(local string) string) string {
	if !assetPathRe.MatchString(raw) {
		return original
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return original
	}
	resolved := *baseURL.ResolveReference(parsed)
	category, ok := ClassifyExtension(extOf(resolved.Path))
	if !ok {
		return original
	}
	localPath, ok := download(resolved, category)
	if !ok {
		return original
	}
	return build(localPath)
}

// downloadChunkManifest finds a chunk-URL function in js and
// proactively downloads every chunk it enumerates (same-origin or
// CDN-allow-listed), without rewriting the manifest source itself.
func downloadChunkManifest(js string, baseURL url.URL, download DownloadFunc) {
	m := chunkManifestRe.FindStringSubmatch(js)
	if m == nil {
		return
	}
	prefix, body, suffix := m[2], m[3], m[5]

	for _, entry := range chunkEntryRe.FindAllStringSubmatch(body, -1) {
		hash := entry[2]
		chunkURLStr := prefix + hash + suffix
		parsed, err := url.Parse(chunkURLStr)
		if err != nil {
			continue
		}
		resolved := *baseURL.ResolveReference(parsed)
		if !isAllowed(resolved.Hostname(), baseURL.Hostname()) {
			continue
		}
		category, ok := ClassifyExtension(extOf(resolved.Path))
		if !ok {
			category = CategoryJS
		}
		download(resolved, category)
	}
}
