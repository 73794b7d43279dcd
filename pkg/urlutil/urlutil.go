package urlutil

import "net/url"

// Canonicalize applies a deterministic normalization to a URL, producing a canonical form.
// It maps equivalent URL spellings to a single canonical representation.
//
// The normalization follows these rules:
//   - Scheme and host are lowercased
//   - Path is cleaned (trailing slashes removed, except for root "/")
//   - Fragments are removed
//   - Query parameters are removed
//   - Default ports are omitted (e.g., :80 for http, :443 for https)
//
// Properties:
//   - Pure: no state, no memory
//   - Deterministic: same input always produces same output
//   - Idempotent: Canonicalize(Canonicalize(url)) == Canonicalize(url)
//   - Context-free: does not depend on crawl history
func Canonicalize(sourceUrl url.URL) url.URL {
	// Create a copy to avoid mutating the original
	canonical := sourceUrl

	// Lowercase scheme and host
	canonical.Scheme = lowerASCII(canonical.Scheme)
	canonical.Host = lowerASCII(canonical.Host)

	// Remove default port if present
	if host, port := canonical.Hostname(), canonical.Port(); port != "" {
		if (canonical.Scheme == "http" && port == "80") ||
			(canonical.Scheme == "https" && port == "443") {
			canonical.Host = host
		}
	}

	// Clean the path: remove trailing slashes (except root)
	if len(canonical.Path) > 1 {
		canonical.Path = stripTrailingSlash(canonical.Path)
	}

	// Remove fragment (anchor)
	canonical.Fragment = ""
	canonical.RawFragment = ""

	// Remove query parameters
	canonical.RawQuery = ""
	canonical.ForceQuery = false

	return canonical
}

// lowerASCII converts ASCII characters to lowercase without allocating.
// This is faster than strings.ToLower for ASCII-only strings.
func lowerASCII(s string) string {
	var needsLower bool
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			needsLower = true
			break
		}
	}
	if !needsLower {
		return s
	}
	b := make([]byte, len(s))
	copy(b, s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

// stripTrailingSlash removes trailing slashes from a path.
func stripTrailingSlash(path string) string {
	for len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	return path
}

// CanonicalizePreserveQuery applies the same scheme/host/fragment
// normalization as Canonicalize but keeps the query string. The
// blacklist's prefix-match rules (spec: "a URL prefix ending in *")
// are defined to match with the query preserved, unlike the exact-match
// and cache-key forms which strip it — so this variant exists alongside
// Canonicalize rather than replacing it.
func CanonicalizePreserveQuery(sourceUrl url.URL) url.URL {
	canonical := sourceUrl
	canonical.Scheme = lowerASCII(canonical.Scheme)
	canonical.Host = lowerASCII(canonical.Host)
	if host, port := canonical.Hostname(), canonical.Port(); port != "" {
		if (canonical.Scheme == "http" && port == "80") ||
			(canonical.Scheme == "https" && port == "443") {
			canonical.Host = host
		}
	}
	if len(canonical.Path) > 1 {
		canonical.Path = stripTrailingSlash(canonical.Path)
	}
	canonical.Fragment = ""
	canonical.RawFragment = ""
	return canonical
}

// Resolve returns u made absolute against scheme/host when it is a
// relative reference (no scheme or host of its own); otherwise u is
// returned unchanged.
func Resolve(u url.URL, scheme string, host string) url.URL {
	resolved := u
	if resolved.Scheme == "" {
		resolved.Scheme = scheme
	}
	if resolved.Host == "" {
		resolved.Host = host
	}
	return resolved
}

// FilterByHost returns the subset of urls whose host equals host
// (case-insensitive).
func FilterByHost(urls []url.URL, host string) []url.URL {
	want := lowerASCII(host)
	var out []url.URL
	for _, u := range urls {
		if lowerASCII(u.Hostname()) == want {
			out = append(out, u)
		}
	}
	return out
}

// SameOrHostSuffix reports whether host equals suffix or ends with
// "."+suffix — the matching rule for the blacklist's `domain:` pseudo
// scheme (spec: "host equals or ends with the value").
func SameOrHostSuffix(host string, suffix string) bool {
	host = lowerASCII(host)
	suffix = lowerASCII(suffix)
	if host == suffix {
		return true
	}
	return len(host) > len(suffix) && host[len(host)-len(suffix)-1] == '.' && host[len(host)-len(suffix):] == suffix
}
