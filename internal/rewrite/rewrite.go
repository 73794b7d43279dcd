package rewrite

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/archivekit/webarchiver/internal/assets"
	"github.com/archivekit/webarchiver/internal/metadata"
	"github.com/archivekit/webarchiver/pkg/failure"
	"github.com/archivekit/webarchiver/pkg/retry"
)

/*
Responsibilities
- Walk a loaded HTML document and substitute every external asset
  reference with the archive-local path C3 returns
- Process inline <style> blocks and style="…" attributes as CSS
- Mirror module-federation manifests reachable from <code-island> tags
- Optionally strip the Webflow publish badge

C4 never fails a page over a single missing asset: every reference C3
could not resolve is left as-is in the document, and only a parse or
serialize failure is reported to the caller.
*/

// Rewriter is C4: the URL rewriter.
type Rewriter interface {
	Rewrite(ctx context.Context, htmlSrc string, pageURL url.URL, downloader assets.Downloader, downloadParam assets.DownloadParam, retryParam retry.RetryParam, removeWebflowBadge bool) (string, failure.ClassifiedError)
}

// DOMRewriter is the goquery-backed Rewriter implementation. One
// instance is shared across an entire crawl; it holds no per-page
// state beyond the http.Client used for module-federation manifest
// fetches (a fetch C3's fixed-category Downloader is not shaped for,
// since the manifest itself is mirrored outside the css/js/images/...
// directory layout).
type DOMRewriter struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
}

func NewDOMRewriter(metadataSink metadata.MetadataSink, httpClient *http.Client) *DOMRewriter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &DOMRewriter{metadataSink: metadataSink, httpClient: httpClient}
}

func (r *DOMRewriter) Rewrite(
	ctx context.Context,
	htmlSrc string,
	pageURL url.URL,
	downloader assets.Downloader,
	downloadParam assets.DownloadParam,
	retryParam retry.RetryParam,
	removeWebflowBadge bool,
) (string, failure.ClassifiedError) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlSrc))
	if err != nil {
		return "", &RewriteError{Message: err.Error(), Cause: ErrCauseParseFailure}
	}

	download := func(assetURL url.URL, category assets.Category) (string, bool) {
		return downloader.Download(ctx, assetURL, category, downloadParam, retryParam)
	}
	rewriteCSS := func(css string, base url.URL) string {
		return downloader.RewriteCSS(ctx, css, base, downloadParam, retryParam)
	}

	rewriteAttrs(doc, pageURL, download)
	rewriteInlineStyles(doc, pageURL, rewriteCSS)
	r.mirrorFederationManifests(ctx, doc, pageURL, downloadParam.OutputDir(), download)

	if removeWebflowBadge {
		removeWebflowBadgeFrom(doc)
	}

	out, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return "", &RewriteError{Message: err.Error(), Cause: ErrCauseSerializeFailure}
	}
	return out, nil
}

var _ Rewriter = (*DOMRewriter)(nil)
