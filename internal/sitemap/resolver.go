package sitemap

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/archivekit/webarchiver/internal/fetcher"
	"github.com/archivekit/webarchiver/internal/metadata"
	"github.com/archivekit/webarchiver/internal/robots"
	"github.com/archivekit/webarchiver/pkg/retry"
)

// fallbackPaths is tried, in order, once /sitemap.xml and every
// Sitemap: directive from robots.txt have both failed to turn up
// anything. Most sites that don't serve /sitemap.xml use one of these.
var fallbackPaths = []string{
	"/sitemap_index.xml",
	"/sitemap-index.xml",
	"/sitemaps.xml",
	"/sitemap/sitemap.xml",
	"/wp-sitemap.xml",
	"/sitemap.txt",
}

// maxSitemapDepth bounds sitemapindex recursion independently of the
// visited-set guard, as a defense against pathological documents that
// keep minting new, never-repeating child URLs.
const maxSitemapDepth = 5

// Resolver discovers the initial set of page URLs for a site, before
// any of them have been fetched or admitted to the frontier.
type Resolver interface {
	Resolve(ctx context.Context, baseURL url.URL) []url.URL
}

// XMLResolver is the default Resolver. It tries /sitemap.xml, then any
// Sitemap: directives in robots.txt, then a fixed list of conventional
// fallback paths, accepting both XML sitemaps/sitemap indexes and
// plain-text newline-delimited sitemaps. Every step fails soft: an
// unreachable or malformed document is recorded and skipped rather
// than aborting discovery.
type XMLResolver struct {
	metadataSink  metadata.MetadataSink
	fetcher       fetcher.Fetcher
	robotsFetcher *robots.RobotsFetcher
	userAgent     string
	retryParam    retry.RetryParam
}

// NewXMLResolver builds a resolver that fetches documents through f
// (under userAgent) and discovers robots.txt Sitemap: directives
// through robotsFetcher.
func NewXMLResolver(
	metadataSink metadata.MetadataSink,
	f fetcher.Fetcher,
	robotsFetcher *robots.RobotsFetcher,
	userAgent string,
	retryParam retry.RetryParam,
) *XMLResolver {
	return &XMLResolver{
		metadataSink:  metadataSink,
		fetcher:       f,
		robotsFetcher: robotsFetcher,
		userAgent:     userAgent,
		retryParam:    retryParam,
	}
}

var _ Resolver = (*XMLResolver)(nil)

// Resolve returns the sorted, deduplicated, fragment-stripped union of
// every page URL discovered under baseURL by the first discovery step
// (sitemap.xml, robots.txt directives, fallback paths) that finds any.
func (r *XMLResolver) Resolve(ctx context.Context, baseURL url.URL) []url.URL {
	visited := map[string]struct{}{}
	pages := map[string]struct{}{}

	for step := 0; step < 3 && len(pages) == 0; step++ {
		candidates := []string{"/sitemap.xml"}
		switch step {
		case 1:
			candidates = r.robotsSitemaps(ctx, baseURL)
		case 2:
			candidates = fallbackPaths
		}
		for _, c := range candidates {
			sitemapURL := resolveReference(baseURL, c)
			r.crawlSitemap(ctx, sitemapURL, visited, pages, 0)
		}
	}

	seen := map[string]struct{}{}
	result := make([]url.URL, 0, len(pages))
	for raw := range pages {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		u.Fragment = ""
		if _, dup := seen[u.String()]; dup {
			continue
		}
		seen[u.String()] = struct{}{}
		result = append(result, *u)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].String() < result[j].String()
	})
	return result
}

// robotsSitemaps fetches robots.txt for baseURL's host and returns any
// Sitemap: directives it declares. A fetch or parse failure here is
// unsurprising (many sites have no robots.txt at all) and is recorded,
// not escalated.
func (r *XMLResolver) robotsSitemaps(ctx context.Context, baseURL url.URL) []string {
	if r.robotsFetcher == nil {
		return nil
	}

	scheme := baseURL.Scheme
	if scheme == "" {
		scheme = "https"
	}

	result, err := r.robotsFetcher.Fetch(ctx, scheme, baseURL.Host)
	if err != nil {
		r.recordError(wrapf(ErrCauseFetchFailure, true, "fetching robots.txt for %s: %s", baseURL.Host, err.Error()), baseURL.Host)
		return nil
	}
	return result.Response.Sitemaps
}

// crawlSitemap fetches and parses one sitemap document, recursing into
// any child sitemaps it references. visited prevents a cyclic or
// duplicated sitemapindex from being walked more than once; depth is a
// hard backstop on top of that.
func (r *XMLResolver) crawlSitemap(ctx context.Context, sitemapURL url.URL, visited map[string]struct{}, pages map[string]struct{}, depth int) {
	key := sitemapURL.String()
	if _, seen := visited[key]; seen {
		return
	}
	visited[key] = struct{}{}

	if depth > maxSitemapDepth {
		return
	}

	body, ok := r.fetch(ctx, sitemapURL)
	if !ok {
		return
	}

	if looksLikeXML(body) {
		isIndex, locs, err := parseXML(body)
		if err != nil {
			r.recordError(wrapf(ErrCauseParseFailure, false, "parsing sitemap XML at %s: %s", key, err.Error()), sitemapURL.Host)
			return
		}
		for _, loc := range locs {
			childURL, parseErr := url.Parse(loc)
			if parseErr != nil {
				continue
			}
			if isIndex {
				r.crawlSitemap(ctx, *childURL, visited, pages, depth+1)
			} else {
				pages[loc] = struct{}{}
			}
		}
		return
	}

	childSitemaps, plainPages := parsePlainText(body)
	for _, loc := range plainPages {
		pages[loc] = struct{}{}
	}
	for _, loc := range childSitemaps {
		childURL, parseErr := url.Parse(loc)
		if parseErr != nil {
			continue
		}
		r.crawlSitemap(ctx, *childURL, visited, pages, depth+1)
	}
}

func (r *XMLResolver) fetch(ctx context.Context, target url.URL) ([]byte, bool) {
	fetchParam := fetcher.NewFetchParam(target, r.userAgent)
	result, err := r.fetcher.Fetch(ctx, 0, fetchParam, r.retryParam)
	if err != nil {
		r.recordError(wrapf(ErrCauseFetchFailure, true, "fetching %s: %s", target.String(), err.Error()), target.Host)
		return nil, false
	}
	if result.Code() < 200 || result.Code() >= 300 {
		return nil, false
	}
	return result.Body(), true
}

func (r *XMLResolver) recordError(err *ResolveError, host string) {
	if r.metadataSink == nil {
		return
	}
	r.metadataSink.RecordError(
		time.Now(),
		"sitemap",
		"XMLResolver.Resolve",
		mapResolveErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrHost, host),
		},
	)
}

// resolveReference joins a (possibly relative) candidate path against
// baseURL, tolerating candidates that are already absolute URLs (as
// robots.txt Sitemap: directives always are).
func resolveReference(baseURL url.URL, candidate string) url.URL {
	if strings.HasPrefix(candidate, "http://") || strings.HasPrefix(candidate, "https://") {
		if u, err := url.Parse(candidate); err == nil {
			return *u
		}
	}
	ref, err := url.Parse(candidate)
	if err != nil {
		return baseURL
	}
	return *baseURL.ResolveReference(ref)
}
