package pageprocessor

import (
	"net/url"
	"path"
	"strings"
)

// relativePath derives the on-disk path a page is written to, mirroring
// the URL path the way a static site host would: the root path becomes
// index.html, a directory-shaped path (trailing slash, or no file
// extension on its last segment) gets an index.html appended, and
// everything else is mirrored literally. Every segment is sanitized
// against traversal before being joined back together.
func relativePath(u url.URL) string {
	clean := path.Clean("/" + u.Path)
	if clean == "/" || clean == "." {
		return "index.html"
	}

	segments := strings.Split(strings.Trim(clean, "/"), "/")
	sanitized := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg == "" || seg == "." || seg == ".." {
			continue
		}
		sanitized = append(sanitized, seg)
	}
	if len(sanitized) == 0 {
		return "index.html"
	}

	last := sanitized[len(sanitized)-1]
	isDirShaped := strings.HasSuffix(u.Path, "/") || !strings.Contains(last, ".")
	if isDirShaped {
		sanitized = append(sanitized, "index.html")
	}

	return strings.Join(sanitized, "/")
}
