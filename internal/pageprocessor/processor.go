package pageprocessor

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/archivekit/webarchiver/internal/assets"
	"github.com/archivekit/webarchiver/internal/fetcher"
	"github.com/archivekit/webarchiver/internal/metadata"
	"github.com/archivekit/webarchiver/internal/rewrite"
	"github.com/archivekit/webarchiver/pkg/failure"
	"github.com/archivekit/webarchiver/pkg/retry"
)

/*
Responsibilities
- For one URL, decide the static-vs-dynamic fetch path
- Fetch the page's HTML, by direct request or headless browser
- Hand the document to C4 for rewriting
- Persist the rewritten page under outputDir
- Return the rewritten HTML so the caller can run link discovery

C5 never decides whether to discover links or stop at sitemap entries —
that belongs to the crawl engine, which already knows sitemapOnly and
discoverLinks before a page is ever fetched.
*/

// Result is what one processPage call returns: the archive-relative
// path the page was written to, its final rewritten HTML (for the
// caller's own link-discovery pass), and whether the static fast-path
// served it.
type Result struct {
	RelativePath string
	HTML         string
	Static       bool
}

// Processor is C5. One instance is shared across a crawl; browserCtx is
// supplied per call rather than held, since it is owned and recreated
// by the crawl engine on browser-closed errors (spec.md §4.5/§9).
type Processor struct {
	metadataSink metadata.MetadataSink
	htmlFetcher  fetcher.Fetcher
	rewriter     rewrite.Rewriter
	cfg          Config
}

func NewProcessor(
	metadataSink metadata.MetadataSink,
	htmlFetcher fetcher.Fetcher,
	rewriter rewrite.Rewriter,
	cfg Config,
) *Processor {
	return &Processor{
		metadataSink: metadataSink,
		htmlFetcher:  htmlFetcher,
		rewriter:     rewriter,
		cfg:          cfg,
	}
}

// Process runs processPage for one URL. browserCtx is only consulted on
// the dynamic path; it may be nil when tryStaticFirst always succeeds
// for the crawl's content (callers still pay for a non-nil browserCtx
// whenever dynamic detection could trigger).
func (p *Processor) Process(
	ctx context.Context,
	browserCtx context.Context,
	pageURL url.URL,
	crawlDepth int,
	outputDir string,
	downloader assets.Downloader,
	downloadParam assets.DownloadParam,
	retryParam retry.RetryParam,
	tryStaticFirst bool,
	shouldAbort func() bool,
) (Result, failure.ClassifiedError) {
	if aborted(shouldAbort) {
		return Result{}, newAbortError()
	}

	htmlSrc, static, err := p.fetch(ctx, browserCtx, pageURL, crawlDepth, retryParam, tryStaticFirst, shouldAbort)
	if err != nil {
		var procErr *ProcessError
		if errors.As(err, &procErr) {
			p.recordError(pageURL, procErr)
			return Result{}, procErr
		}
		var classified failure.ClassifiedError
		if errors.As(err, &classified) {
			return Result{}, classified
		}
		return Result{}, wrapf(ErrCauseNavigation, true, "%v", err)
	}

	if aborted(shouldAbort) {
		return Result{}, newAbortError()
	}

	rewritten, rewriteErr := p.rewriter.Rewrite(ctx, htmlSrc, pageURL, downloader, downloadParam, retryParam, p.cfg.RemoveWebflowBadge)
	if rewriteErr != nil {
		p.recordError(pageURL, &ProcessError{Message: rewriteErr.Error(), Cause: ErrCauseRewriteFailure})
		return Result{}, rewriteErr
	}

	if aborted(shouldAbort) {
		return Result{}, newAbortError()
	}

	relPath := relativePath(pageURL)
	if writeErr := p.write(outputDir, relPath, rewritten, pageURL); writeErr != nil {
		return Result{}, writeErr
	}

	return Result{RelativePath: relPath, HTML: rewritten, Static: static}, nil
}

func (p *Processor) fetch(
	ctx context.Context,
	browserCtx context.Context,
	pageURL url.URL,
	crawlDepth int,
	retryParam retry.RetryParam,
	tryStaticFirst bool,
	shouldAbort func() bool,
) (string, bool, error) {
	if tryStaticFirst {
		htmlSrc, dynamic, err := fetchStatic(ctx, p.htmlFetcher, pageURL, crawlDepth, p.cfg.UserAgent, retryParam, p.cfg.markers())
		if err != nil {
			return "", false, err
		}
		if !dynamic {
			return htmlSrc, true, nil
		}
	}

	if aborted(shouldAbort) {
		return "", false, newAbortError()
	}
	if browserCtx == nil {
		return "", false, wrapf(ErrCauseNavigation, false, "dynamic path required but no browser context supplied")
	}

	htmlSrc, err := fetchDynamic(browserCtx, pageURL, p.cfg.navigationTimeout(), p.cfg.networkIdleWindow(), shouldAbort)
	if err != nil {
		return "", false, err
	}
	return htmlSrc, false, nil
}

func (p *Processor) write(outputDir string, relPath string, html string, pageURL url.URL) failure.ClassifiedError {
	fullPath := filepath.Join(outputDir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		procErr := wrapf(ErrCauseWriteFailure, true, "create page dir: %v", err)
		p.recordError(pageURL, procErr)
		return procErr
	}
	if err := os.WriteFile(fullPath, []byte(html), 0644); err != nil {
		procErr := wrapf(ErrCauseWriteFailure, true, "write page: %v", err)
		p.recordError(pageURL, procErr)
		return procErr
	}

	p.metadataSink.RecordArtifact(
		metadata.ArtifactHTML,
		fullPath,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, pageURL.String()),
			metadata.NewAttr(metadata.AttrWritePath, fullPath),
		},
	)
	return nil
}

func (p *Processor) recordError(pageURL url.URL, err *ProcessError) {
	p.metadataSink.RecordError(
		time.Now(),
		"pageprocessor",
		"Processor.Process",
		mapProcessErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, pageURL.String())},
	)
}

func aborted(shouldAbort func() bool) bool {
	return shouldAbort != nil && shouldAbort()
}
