package sitemap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/archivekit/webarchiver/internal/fetcher"
	"github.com/archivekit/webarchiver/internal/metadata"
	"github.com/archivekit/webarchiver/internal/robots"
	"github.com/archivekit/webarchiver/internal/robots/cache"
	"github.com/archivekit/webarchiver/pkg/failure"
	"github.com/archivekit/webarchiver/pkg/retry"
	"github.com/archivekit/webarchiver/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResponse is what fakeFetcher.Fetch replies for a given URL.
type fakeResponse struct {
	body []byte
	code int
}

type fakeFetcher struct {
	responses map[string]fakeResponse
}

func newFakeFetcher(responses map[string]string) *fakeFetcher {
	m := make(map[string]fakeResponse, len(responses))
	for k, v := range responses {
		m[k] = fakeResponse{body: []byte(v), code: http.StatusOK}
	}
	return &fakeFetcher{responses: m}
}

func (f *fakeFetcher) Init(_ *http.Client) {}

type fakeFetchError struct{ message string }

func (e *fakeFetchError) Error() string            { return e.message }
func (e *fakeFetchError) Severity() failure.Severity { return failure.SeverityRecoverable }

func (f *fakeFetcher) Fetch(_ context.Context, _ int, fetchParam fetcher.FetchParam, _ retry.RetryParam) (fetcher.FetchResult, failure.ClassifiedError) {
	target := fetchParam.URL()
	resp, ok := f.responses[target.String()]
	if !ok {
		return fetcher.FetchResult{}, &fakeFetchError{message: "not found: " + target.String()}
	}
	return fetcher.NewFetchResultForTest(target, resp.body, resp.code, "", nil, time.Time{}), nil
}

var _ fetcher.Fetcher = (*fakeFetcher)(nil)

func testRetryParam() retry.RetryParam {
	return retry.NewRetryParam(0, 0, 1, 1, timeutil.NewBackoffParam(0, 1, 0))
}

func mustURL(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return *u
}

func TestResolve_XMLUrlset(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/a</loc></url>
  <url><loc>https://example.com/b</loc></url>
</urlset>`

	f := newFakeFetcher(map[string]string{
		"https://example.com/sitemap.xml": body,
	})

	r := NewXMLResolver(metadata.NoopSink{}, f, nil, "testbot", testRetryParam())
	got := r.Resolve(context.Background(), mustURL(t, "https://example.com/"))

	want := []string{"https://example.com/a", "https://example.com/b"}
	assert.Equal(t, want, urlsToStrings(got))
}

func TestResolve_SitemapIndexRecursion(t *testing.T) {
	index := `<sitemapindex>
  <sitemap><loc>https://example.com/sitemap-a.xml</loc></sitemap>
  <sitemap><loc>https://example.com/sitemap-b.xml</loc></sitemap>
</sitemapindex>`
	sitemapA := `<urlset><url><loc>https://example.com/a1</loc></url></urlset>`
	sitemapB := `<urlset><url><loc>https://example.com/b1</loc></url></urlset>`

	f := newFakeFetcher(map[string]string{
		"https://example.com/sitemap.xml":   index,
		"https://example.com/sitemap-a.xml": sitemapA,
		"https://example.com/sitemap-b.xml": sitemapB,
	})

	r := NewXMLResolver(metadata.NoopSink{}, f, nil, "testbot", testRetryParam())
	got := r.Resolve(context.Background(), mustURL(t, "https://example.com/"))

	want := []string{"https://example.com/a1", "https://example.com/b1"}
	assert.Equal(t, want, urlsToStrings(got))
}

func TestResolve_SitemapIndexCycleDoesNotLoopForever(t *testing.T) {
	index := `<sitemapindex>
  <sitemap><loc>https://example.com/sitemap.xml</loc></sitemap>
</sitemapindex>`

	f := newFakeFetcher(map[string]string{
		"https://example.com/sitemap.xml": index,
	})

	r := NewXMLResolver(metadata.NoopSink{}, f, nil, "testbot", testRetryParam())

	done := make(chan []url.URL, 1)
	go func() {
		done <- r.Resolve(context.Background(), mustURL(t, "https://example.com/"))
	}()

	select {
	case got := <-done:
		assert.Empty(t, got)
	case <-time.After(2 * time.Second):
		t.Fatal("Resolve did not terminate on a self-referencing sitemap index")
	}
}

func TestResolve_PlainTextSitemap(t *testing.T) {
	body := "https://example.com/page-1\n\nhttps://example.com/page-2\n"

	f := newFakeFetcher(map[string]string{
		"https://example.com/sitemap.xml": body,
	})

	r := NewXMLResolver(metadata.NoopSink{}, f, nil, "testbot", testRetryParam())
	got := r.Resolve(context.Background(), mustURL(t, "https://example.com/"))

	want := []string{"https://example.com/page-1", "https://example.com/page-2"}
	assert.Equal(t, want, urlsToStrings(got))
}

func TestResolve_PlainTextChildSitemapIsFollowed(t *testing.T) {
	index := "https://example.com/sub-sitemap.xml\n"
	child := "https://example.com/child-page\n"

	f := newFakeFetcher(map[string]string{
		"https://example.com/sitemap.xml":     index,
		"https://example.com/sub-sitemap.xml": child,
	})

	r := NewXMLResolver(metadata.NoopSink{}, f, nil, "testbot", testRetryParam())
	got := r.Resolve(context.Background(), mustURL(t, "https://example.com/"))

	assert.Equal(t, []string{"https://example.com/child-page"}, urlsToStrings(got))
}

func TestResolve_FallsBackWhenSitemapXMLMissing(t *testing.T) {
	fallback := `<urlset><url><loc>https://example.com/fallback-page</loc></url></urlset>`

	f := newFakeFetcher(map[string]string{
		"https://example.com/sitemap_index.xml": fallback,
	})

	r := NewXMLResolver(metadata.NoopSink{}, f, nil, "testbot", testRetryParam())
	got := r.Resolve(context.Background(), mustURL(t, "https://example.com/"))

	assert.Equal(t, []string{"https://example.com/fallback-page"}, urlsToStrings(got))
}

func TestResolve_NothingFoundReturnsEmptyNotNilPanic(t *testing.T) {
	f := newFakeFetcher(map[string]string{})

	r := NewXMLResolver(metadata.NoopSink{}, f, nil, "testbot", testRetryParam())
	got := r.Resolve(context.Background(), mustURL(t, "https://example.com/"))

	assert.Empty(t, got)
}

func TestResolve_DedupesAndStripsFragments(t *testing.T) {
	index := `<sitemapindex>
  <sitemap><loc>https://example.com/sitemap-a.xml</loc></sitemap>
  <sitemap><loc>https://example.com/sitemap-b.xml</loc></sitemap>
</sitemapindex>`
	sitemapA := `<urlset><url><loc>https://example.com/dup#section1</loc></url></urlset>`
	sitemapB := `<urlset><url><loc>https://example.com/dup#section2</loc></url></urlset>`

	f := newFakeFetcher(map[string]string{
		"https://example.com/sitemap.xml":   index,
		"https://example.com/sitemap-a.xml": sitemapA,
		"https://example.com/sitemap-b.xml": sitemapB,
	})

	r := NewXMLResolver(metadata.NoopSink{}, f, nil, "testbot", testRetryParam())
	got := r.Resolve(context.Background(), mustURL(t, "https://example.com/"))

	require.Len(t, got, 1)
	assert.Equal(t, "https://example.com/dup", got[0].String())
}

func TestResolve_RobotsTxtSitemapDirectiveIsDiscovered(t *testing.T) {
	robotsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow:\nSitemap: https://example.com/custom-sitemap.xml\n"))
	}))
	defer robotsServer.Close()

	customSitemap := `<urlset><url><loc>https://example.com/custom-page</loc></url></urlset>`
	f := newFakeFetcher(map[string]string{
		"https://example.com/custom-sitemap.xml": customSitemap,
	})

	robotsHost := mustURL(t, robotsServer.URL).Host
	robotsFetcher := robots.NewRobotsFetcherWithClient(metadata.NoopSink{}, "testbot", robotsServer.Client(), cache.NewMemoryCache())

	r := NewXMLResolver(metadata.NoopSink{}, f, robotsFetcher, "testbot", testRetryParam())
	got := r.Resolve(context.Background(), mustURL(t, "http://"+robotsHost+"/"))

	assert.Equal(t, []string{"https://example.com/custom-page"}, urlsToStrings(got))
}

func urlsToStrings(urls []url.URL) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		out = append(out, u.String())
	}
	return out
}
