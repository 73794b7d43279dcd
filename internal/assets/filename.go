package assets

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/archivekit/webarchiver/pkg/hashutil"
)

// shortHashLen is the length of the filename collision suffix (spec:
// "A 10-char SHA-1 prefix of the full URL").
const shortHashLen = 10

// chunkBasenameRe matches webpack/rspack's own chunk-naming convention
// (spec glob: "*.a?chunk.<hex>.<ext>" — an optional single char between
// "a" and "chunk", so both ".achunk." and ".aXchunk." match). Files matching it keep their original basename
// verbatim because the runtime chunk loader resolves by exact name.
var chunkBasenameRe = regexp.MustCompile(`(?i)\.a.?chunk\.[0-9a-f]+\.[a-z0-9]+$`)

var slugUnsafeRe = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lowercases name and collapses every run of non [a-z0-9]
// characters into a single hyphen, trimming leading/trailing hyphens.
func slugify(name string) string {
	s := strings.ToLower(name)
	s = slugUnsafeRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = "asset"
	}
	return s
}

// IsVerbatimChunk reports whether basename is a webpack/rspack chunk
// file that must be stored under its original name.
func IsVerbatimChunk(basename string) bool {
	return chunkBasenameRe.MatchString(basename)
}

// ChooseExtension applies the filename policy's extension priority:
// URL extension (if it belongs to the category) > Content-Type derived
// extension > category fallback.
func ChooseExtension(category Category, urlPath string, contentType string) string {
	if ext := strings.TrimPrefix(filepath.Ext(urlPath), "."); ext != "" && ExtensionForCategory(category, ext) {
		return strings.ToLower(ext)
	}
	if ext := ExtensionFromContentType(contentType); ext != "" {
		return ext
	}
	return FallbackExtension(category)
}

// LocalFilename computes the archive-local basename for assetURL per
// the filename policy: a slugified basename plus a 10-char SHA-1 prefix
// of the full URL for collision resistance, except verbatim chunk files
// which keep their original name untouched.
func LocalFilename(assetURL url.URL, category Category, contentType string) string {
	base := filepath.Base(assetURL.Path)
	if base == "." || base == "/" || base == "" {
		base = "asset"
	}
	if IsVerbatimChunk(base) {
		return base
	}

	ext := ChooseExtension(category, assetURL.Path, contentType)
	nameWithoutExt := strings.TrimSuffix(base, filepath.Ext(base))
	slug := slugify(nameWithoutExt)
	suffix := hashutil.ShortSHA1(assetURL.String(), shortHashLen)

	filename := slug + "-" + suffix
	if ext != "" {
		filename += "." + ext
	}
	return filename
}

// LocalPath returns the archive-relative path (category dir + filename)
// for assetURL.
func LocalPath(assetURL url.URL, category Category, contentType string) string {
	return filepath.Join(category.Dir(), LocalFilename(assetURL, category, contentType))
}
