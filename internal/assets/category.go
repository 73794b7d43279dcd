package assets

import "strings"

// Category is one of the six fixed asset categories the archive layout
// partitions downloads into (spec §4.3).
type Category string

const (
	CategoryCSS   Category = "css"
	CategoryJS    Category = "js"
	CategoryImage Category = "image"
	CategoryFont  Category = "font"
	CategoryMedia Category = "media"
	CategoryHTML  Category = "html"
)

// Dir returns the fixed archive-relative directory for the category.
func (c Category) Dir() string {
	switch c {
	case CategoryCSS:
		return "css"
	case CategoryJS:
		return "js"
	case CategoryImage:
		return "images"
	case CategoryFont:
		return "fonts"
	case CategoryMedia:
		return "media"
	case CategoryHTML:
		return "html"
	default:
		return "misc"
	}
}

// IsBinary reports whether the category's bytes are safe to share
// across pages via C2 (unlike CSS/JS, which are rewritten per page and
// therefore not shareable verbatim).
func (c Category) IsBinary() bool {
	switch c {
	case CategoryImage, CategoryFont, CategoryMedia:
		return true
	default:
		return false
	}
}

var categoryExtensions = map[Category]map[string]bool{
	CategoryCSS: {"css": true},
	CategoryJS:  {"js": true, "mjs": true, "cjs": true},
	CategoryImage: {
		"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true,
		"svg": true, "avif": true, "ico": true, "bmp": true,
	},
	CategoryFont: {"woff": true, "woff2": true, "ttf": true, "otf": true, "eot": true},
	CategoryMedia: {
		"mp4": true, "webm": true, "mov": true, "mp3": true, "wav": true,
		"ogg": true, "m4a": true, "avi": true,
	},
	CategoryHTML: {"html": true, "htm": true},
}

var categoryFallbackExt = map[Category]string{
	CategoryCSS:   "css",
	CategoryJS:    "js",
	CategoryImage: "bin",
	CategoryFont:  "woff2",
	CategoryMedia: "bin",
	CategoryHTML:  "html",
}

var contentTypeExt = map[string]string{
	"text/css":               "css",
	"text/javascript":        "js",
	"application/javascript": "js",
	"application/x-javascript": "js",
	"image/png":              "png",
	"image/jpeg":             "jpg",
	"image/gif":              "gif",
	"image/webp":             "webp",
	"image/svg+xml":          "svg",
	"image/avif":             "avif",
	"image/x-icon":           "ico",
	"image/bmp":              "bmp",
	"font/woff":              "woff",
	"font/woff2":             "woff2",
	"font/ttf":               "ttf",
	"font/otf":               "otf",
	"application/font-woff":  "woff",
	"application/font-woff2": "woff2",
	"video/mp4":              "mp4",
	"video/webm":             "webm",
	"audio/mpeg":             "mp3",
	"audio/wav":              "wav",
	"audio/ogg":              "ogg",
	"text/html":              "html",
}

// ExtensionForCategory reports whether ext (without the leading dot,
// already lowercased) belongs to category's allowed extension set.
func ExtensionForCategory(category Category, ext string) bool {
	set, ok := categoryExtensions[category]
	if !ok {
		return false
	}
	return set[strings.ToLower(ext)]
}

// ClassifyExtension guesses a category from a bare file extension
// (without the leading dot). Used when recursively downloading assets
// discovered inside CSS/JS, where only a path — not a Content-Type — is
// known up front.
func ClassifyExtension(ext string) (Category, bool) {
	ext = strings.ToLower(ext)
	for _, cat := range []Category{CategoryCSS, CategoryJS, CategoryImage, CategoryFont, CategoryMedia, CategoryHTML} {
		if categoryExtensions[cat][ext] {
			return cat, true
		}
	}
	return "", false
}

// ExtensionFromContentType maps a (possibly parameterized) Content-Type
// header value to a bare extension, or "" if unrecognized.
func ExtensionFromContentType(contentType string) string {
	ct := contentType
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = ct[:idx]
	}
	ct = strings.TrimSpace(strings.ToLower(ct))
	return contentTypeExt[ct]
}

// FallbackExtension returns the category's fallback extension when
// neither the URL nor the Content-Type yield one.
func FallbackExtension(category Category) string {
	ext, ok := categoryFallbackExt[category]
	if !ok {
		return "bin"
	}
	return ext
}
