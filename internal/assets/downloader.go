package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/archivekit/webarchiver/internal/assetcache"
	"github.com/archivekit/webarchiver/internal/metadata"
	"github.com/archivekit/webarchiver/pkg/failure"
	"github.com/archivekit/webarchiver/pkg/hashutil"
	"github.com/archivekit/webarchiver/pkg/retry"
)

/*
Responsibilities
- Resolve asset URLs against the page/stylesheet/script that references them
- Gate downloads through the blacklist and hostile-domain allow-list
- Download assets locally, deduplicating via content hashing
- Rewrite CSS and JS references to archive-local paths

Asset Policies
- Preserve original formats
- Stable local filenames (see filename.go)
- Fixed category directories under the output root
- Missing/blocked assets reported, not fatal; the original URL is kept
*/

// Downloader is C3: the asset downloader. One Downloader instance is
// scoped to a single crawl; its in-memory dedup map spans every page
// processed during that crawl.
type Downloader interface {
	Download(ctx context.Context, assetURL url.URL, category Category, downloadParam DownloadParam, retryParam retry.RetryParam) (string, bool)
	RewriteCSS(ctx context.Context, css string, baseURL url.URL, downloadParam DownloadParam, retryParam retry.RetryParam) string
	RewriteJS(ctx context.Context, js string, baseURL url.URL, downloadParam DownloadParam, retryParam retry.RetryParam) string
}

type LocalDownloader struct {
	metadataSink metadata.MetadataSink
	cache        *assetcache.Cache // nil disables C2 consultation (ASSET_CACHE_ENABLED=false)
	httpClient   *http.Client
	userAgent    string

	mu            sync.Mutex
	writtenAssets map[string]string // canonical URL -> archive-local path
	hashToPath    map[string]string // content hash -> archive-local path
	inflight      map[string]*sync.WaitGroup
}

func NewLocalDownloader(
	metadataSink metadata.MetadataSink,
	cache *assetcache.Cache,
	httpClient *http.Client,
	userAgent string,
) *LocalDownloader {
	return &LocalDownloader{
		metadataSink:  metadataSink,
		cache:         cache,
		httpClient:    httpClient,
		userAgent:     userAgent,
		writtenAssets: make(map[string]string),
		hashToPath:    make(map[string]string),
		inflight:      make(map[string]*sync.WaitGroup),
	}
}

// Download resolves assetURL to an archive-local path, downloading it
// if this is the first time it has been seen this crawl. Gating
// (empty/data:/blob:, blacklist, hostile-domain) happens here; a
// blocked or failed asset returns ("", false) so the caller keeps the
// absolute reference unchanged.
func (d *LocalDownloader) Download(
	ctx context.Context,
	assetURL url.URL,
	category Category,
	downloadParam DownloadParam,
	retryParam retry.RetryParam,
) (string, bool) {
	if assetURL.Fragment != "" {
		assetURL.Fragment = ""
		assetURL.RawFragment = ""
	}
	if assetURL.String() == "" || assetURL.Scheme == "data" || assetURL.Scheme == "blob" {
		return "", false
	}

	if blocked, rule, shouldLog := downloadParam.Blacklist().Check(assetURL); blocked {
		if shouldLog {
			d.recordError(assetURL, &AssetsError{
				Message:   fmt.Sprintf("blocked by rule %q", rule),
				Retryable: false,
				Cause:     ErrCauseBlacklisted,
			})
		}
		return "", false
	}

	canonicalKey := assetURL.String()

	d.mu.Lock()
	if existing, ok := d.writtenAssets[canonicalKey]; ok {
		d.mu.Unlock()
		return existing, true
	}
	wg, inFlight := d.inflight[canonicalKey]
	if inFlight {
		d.mu.Unlock()
		wg.Wait()
		d.mu.Lock()
		existing, ok := d.writtenAssets[canonicalKey]
		d.mu.Unlock()
		return existing, ok
	}
	wg = &sync.WaitGroup{}
	wg.Add(1)
	d.inflight[canonicalKey] = wg
	d.mu.Unlock()

	localPath, ok := d.fetchAndWrite(ctx, assetURL, category, downloadParam, retryParam)

	d.mu.Lock()
	if ok {
		d.writtenAssets[canonicalKey] = localPath
	}
	delete(d.inflight, canonicalKey)
	d.mu.Unlock()
	wg.Done()

	return localPath, ok
}

func (d *LocalDownloader) fetchAndWrite(
	ctx context.Context,
	assetURL url.URL,
	category Category,
	downloadParam DownloadParam,
	retryParam retry.RetryParam,
) (string, bool) {
	if category.IsBinary() && d.cache != nil {
		cacheKey := assetURL.String()
		if data, hit := d.cache.Get(cacheKey); hit {
			localPath, err := d.writeToArchive(downloadParam.OutputDir(), assetURL, category, "", data)
			if err == nil {
				d.metadataSink.RecordArtifact(metadata.ArtifactAsset, localPath, []metadata.Attribute{
					metadata.NewAttr(metadata.AttrAssetURL, assetURL.String()),
				})
				return localPath, true
			}
		}
	}

	result := d.fetchWithRetry(ctx, assetURL, retryParam, downloadParam.MaxAssetSize())
	retryCount := result.Attempts() - 1

	if result.Err() != nil {
		d.metadataSink.RecordAssetFetch(assetURL.String(), 0, 0, retryCount)
		d.recordError(assetURL, result.Err())
		return "", false
	}

	fetchResult := result.Value()
	d.metadataSink.RecordAssetFetch(assetURL.String(), fetchResult.Status(), fetchResult.Duration(), retryCount)

	data := fetchResult.Data()
	switch category {
	case CategoryCSS:
		rewritten := d.RewriteCSS(ctx, string(data), assetURL, downloadParam, retryParam)
		data = []byte(rewritten)
	case CategoryJS:
		rewritten := d.RewriteJS(ctx, string(data), assetURL, downloadParam, retryParam)
		data = []byte(rewritten)
	}

	contentType := fetchResult.ContentType()
	contentHash, hashErr := hashutil.HashBytes(data, downloadParam.HashAlgo())
	if hashErr != nil {
		d.recordError(assetURL, &AssetsError{Message: hashErr.Error(), Retryable: false, Cause: ErrCauseHashError})
		return "", false
	}

	d.mu.Lock()
	existingPath, deduped := d.hashToPath[contentHash]
	d.mu.Unlock()
	if deduped {
		return existingPath, true
	}

	localPath, err := d.writeToArchive(downloadParam.OutputDir(), assetURL, category, contentType, data)
	if err != nil {
		d.recordError(assetURL, err)
		return "", false
	}

	d.mu.Lock()
	d.hashToPath[contentHash] = localPath
	d.mu.Unlock()

	if category.IsBinary() && d.cache != nil {
		_ = d.cache.Put(assetURL.String(), fetchResult.Data())
	}

	d.metadataSink.RecordArtifact(metadata.ArtifactAsset, localPath, []metadata.Attribute{
		metadata.NewAttr(metadata.AttrAssetURL, assetURL.String()),
	})

	return localPath, true
}

func (d *LocalDownloader) recordError(assetURL url.URL, err failure.ClassifiedError) {
	var assetsErr *AssetsError
	cause := metadata.CauseUnknown
	if errors.As(err, &assetsErr) {
		cause = mapAssetsErrorToMetadataCause(*assetsErr)
	}
	d.metadataSink.RecordError(
		time.Now(),
		"assets",
		"Downloader.Download",
		cause,
		err.Error(),
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrAssetURL, assetURL.String())},
	)
}

func (d *LocalDownloader) writeToArchive(outputDir string, assetURL url.URL, category Category, contentType string, data []byte) (string, failure.ClassifiedError) {
	localPath := LocalPath(assetURL, category, contentType)
	fullPath := filepath.Join(outputDir, localPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", &AssetsError{Message: err.Error(), Retryable: false, Cause: ErrCausePathError}
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		if errors.Is(err, syscall.ENOSPC) {
			return "", &AssetsError{Message: err.Error(), Retryable: true, Cause: ErrCauseDiskFull}
		}
		return "", &AssetsError{Message: err.Error(), Retryable: false, Cause: ErrCauseWriteFailure}
	}
	return localPath, nil
}

func (d *LocalDownloader) fetchWithRetry(ctx context.Context, assetURL url.URL, retryParam retry.RetryParam, maxAssetSize int64) retry.Result[AssetFetchResult] {
	task := func() (AssetFetchResult, failure.ClassifiedError) {
		return d.performFetch(ctx, assetURL, maxAssetSize)
	}
	return retry.Retry(retryParam, task)
}

func (d *LocalDownloader) performFetch(ctx context.Context, fetchUrl url.URL, maxAssetSize int64) (AssetFetchResult, failure.ClassifiedError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchUrl.String(), nil)
	if err != nil {
		return AssetFetchResult{}, &AssetsError{Message: err.Error(), Retryable: false, Cause: ErrCauseNetworkFailure}
	}
	for key, value := range assetRequestHeaders(d.userAgent) {
		req.Header.Set(key, value)
	}

	startTime := time.Now()
	resp, err := d.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		return AssetFetchResult{}, &AssetsError{Message: err.Error(), Retryable: true, Cause: ErrCauseNetworkFailure}
	}
	defer resp.Body.Close()

	if resp.ContentLength > maxAssetSize && maxAssetSize > 0 {
		return AssetFetchResult{}, &AssetsError{
			Message:   fmt.Sprintf("asset too large: %d bytes (max %d)", resp.ContentLength, maxAssetSize),
			Retryable: false,
			Cause:     ErrCauseSizeExceeded,
		}
	}

	switch {
	case resp.StatusCode >= 500:
		return AssetFetchResult{}, &AssetsError{Message: fmt.Sprintf("server error: %d", resp.StatusCode), Retryable: true, Cause: ErrCauseRequest5xx}
	case resp.StatusCode == 429:
		return AssetFetchResult{}, &AssetsError{Message: "rate limited (429)", Retryable: true, Cause: ErrCauseRequestTooMany}
	case resp.StatusCode == 403:
		return AssetFetchResult{}, &AssetsError{Message: "access forbidden (403)", Retryable: false, Cause: ErrCauseRequestForbidden}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return AssetFetchResult{}, &AssetsError{Message: fmt.Sprintf("client error: %d", resp.StatusCode), Retryable: false, Cause: ErrCauseRequestForbidden}
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return AssetFetchResult{}, &AssetsError{Message: fmt.Sprintf("redirect error: %d", resp.StatusCode), Retryable: false, Cause: ErrCauseRedirectLimitExceeded}
	}

	var limit int64 = maxAssetSize + 1
	if maxAssetSize <= 0 {
		limit = 1 << 30
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return AssetFetchResult{}, &AssetsError{Message: err.Error(), Retryable: true, Cause: ErrCauseReadResponseBodyError}
	}
	if maxAssetSize > 0 && int64(len(body)) > maxAssetSize {
		return AssetFetchResult{}, &AssetsError{
			Message:   fmt.Sprintf("asset too large: exceeded max %d bytes", maxAssetSize),
			Retryable: false,
			Cause:     ErrCauseSizeExceeded,
		}
	}

	result := NewAssetFetchResult(fetchUrl, resp.StatusCode, duration, body)
	result.contentType = resp.Header.Get("Content-Type")
	return result, nil
}

// RewriteCSS downloads and rewrites every url(...) reference in css,
// resolved relative to baseURL.
func (d *LocalDownloader) RewriteCSS(ctx context.Context, css string, baseURL url.URL, downloadParam DownloadParam, retryParam retry.RetryParam) string {
	return RewriteCSS(css, baseURL, func(assetURL url.URL, category Category) (string, bool) {
		return d.Download(ctx, assetURL, category, downloadParam, retryParam)
	})
}

// RewriteJS downloads and rewrites conservative asset references in js,
// resolved relative to baseURL.
func (d *LocalDownloader) RewriteJS(ctx context.Context, js string, baseURL url.URL, downloadParam DownloadParam, retryParam retry.RetryParam) string {
	return RewriteJS(js, baseURL, func(assetURL url.URL, category Category) (string, bool) {
		if !isAllowed(assetURL.Hostname(), baseURL.Hostname()) {
			return "", false
		}
		return d.Download(ctx, assetURL, category, downloadParam, retryParam)
	})
}

func assetRequestHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "image/webp,image/apng,image/*,font/*,video/*,audio/*,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
		"DNT":             "1",
		"Connection":      "keep-alive",
	}
}

var _ Downloader = (*LocalDownloader)(nil)
