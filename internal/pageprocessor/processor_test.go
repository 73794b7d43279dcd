package pageprocessor

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/archivekit/webarchiver/internal/assets"
	"github.com/archivekit/webarchiver/internal/fetcher"
	"github.com/archivekit/webarchiver/internal/metadata"
	"github.com/archivekit/webarchiver/pkg/failure"
	"github.com/archivekit/webarchiver/pkg/hashutil"
	"github.com/archivekit/webarchiver/pkg/retry"
	"github.com/archivekit/webarchiver/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher is a minimal fetcher.Fetcher stub returning canned HTML
// (or a canned error) without any network I/O.
type fakeFetcher struct {
	html string
	err  failure.ClassifiedError
}

func (f *fakeFetcher) Init(*http.Client) {}

func (f *fakeFetcher) Fetch(_ context.Context, _ int, _ fetcher.FetchParam, _ retry.RetryParam) (fetcher.FetchResult, failure.ClassifiedError) {
	if f.err != nil {
		return fetcher.FetchResult{}, f.err
	}
	return fetcher.NewFetchResultForTest(url.URL{}, []byte(f.html), 200, "text/html", nil, time.Time{}), nil
}

var _ fetcher.Fetcher = (*fakeFetcher)(nil)

// fakeRewriter returns its input unchanged, recording the pageURL it
// was called with so tests can assert C5 invoked C4 exactly once.
type fakeRewriter struct {
	calls int
}

func (f *fakeRewriter) Rewrite(_ context.Context, htmlSrc string, _ url.URL, _ assets.Downloader, _ assets.DownloadParam, _ retry.RetryParam, _ bool) (string, failure.ClassifiedError) {
	f.calls++
	return "REWRITTEN:" + htmlSrc, nil
}

func testRetryParam() retry.RetryParam {
	return retry.NewRetryParam(time.Millisecond, time.Millisecond, 1, 1, timeutil.NewBackoffParam(time.Millisecond, 2.0, time.Second))
}

func testDownloadParam(t *testing.T) assets.DownloadParam {
	t.Helper()
	return assets.NewDownloadParam(t.TempDir(), 1<<20, hashutil.HashAlgoSHA256, nil)
}

func TestProcess_StaticFastPathWritesPageAndSkipsBrowser(t *testing.T) {
	outDir := t.TempDir()
	rewriter := &fakeRewriter{}
	htmlFetcher := &fakeFetcher{html: `<html><body><main><h1>Hi</h1><p>content</p></main></body></html>`}
	proc := NewProcessor(metadata.NoopSink{}, htmlFetcher, rewriter, Config{})

	result, err := proc.Process(
		context.Background(), nil,
		mustURL(t, "https://example.com/docs/guide"), 0, outDir,
		nil, testDownloadParam(t), testRetryParam(),
		true, nil,
	)
	require.Nil(t, err)
	assert.True(t, result.Static)
	assert.Equal(t, "docs/guide/index.html", result.RelativePath)
	assert.Contains(t, result.HTML, "REWRITTEN:")
	assert.Equal(t, 1, rewriter.calls)

	written, readErr := os.ReadFile(filepath.Join(outDir, "docs/guide/index.html"))
	require.NoError(t, readErr)
	assert.Equal(t, result.HTML, string(written))
}

func TestProcess_AbortBeforeNavigationReturnsAbortError(t *testing.T) {
	outDir := t.TempDir()
	proc := NewProcessor(metadata.NoopSink{}, &fakeFetcher{html: "<html></html>"}, &fakeRewriter{}, Config{})

	_, err := proc.Process(
		context.Background(), nil,
		mustURL(t, "https://example.com/"), 0, outDir,
		nil, testDownloadParam(t), testRetryParam(),
		true, func() bool { return true },
	)
	require.NotNil(t, err)
	assert.Equal(t, abortMessage, err.Error())
	assert.Equal(t, failure.SeverityAbort, err.Severity())
}

func TestProcess_DynamicMarkerFallsThroughToBrowserPathAndFailsWithoutContext(t *testing.T) {
	outDir := t.TempDir()
	htmlFetcher := &fakeFetcher{html: `<html><body><code-island data-loader='{}'></code-island></body></html>`}
	proc := NewProcessor(metadata.NoopSink{}, htmlFetcher, &fakeRewriter{}, Config{})

	_, err := proc.Process(
		context.Background(), nil,
		mustURL(t, "https://example.com/"), 0, outDir,
		nil, testDownloadParam(t), testRetryParam(),
		true, nil,
	)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "dynamic path required but no browser context supplied")
}

func TestProcess_StaticFetchErrorPropagatesWithoutBrowserFallback(t *testing.T) {
	outDir := t.TempDir()
	fetchErr := &fetcher.FetchError{Message: "forbidden", Retryable: false, Cause: fetcher.ErrCauseRequestPageForbidden}
	htmlFetcher := &fakeFetcher{err: fetchErr}
	proc := NewProcessor(metadata.NoopSink{}, htmlFetcher, &fakeRewriter{}, Config{})

	_, err := proc.Process(
		context.Background(), nil,
		mustURL(t, "https://example.com/"), 0, outDir,
		nil, testDownloadParam(t), testRetryParam(),
		true, nil,
	)
	require.NotNil(t, err)
	assert.Equal(t, fetchErr, err)
}
