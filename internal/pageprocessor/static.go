package pageprocessor

import (
	"context"
	"net/url"

	"github.com/archivekit/webarchiver/internal/fetcher"
	"github.com/archivekit/webarchiver/pkg/retry"
)

// fetchStatic performs the static fast-path fetch: a direct HTTP
// request via C1's fetcher, classified dynamic-or-not by isDynamic. It
// never itself decides to fall back to the browser path — that
// decision belongs to Process, which also has the dynamic path
// available to fall back to.
func fetchStatic(
	ctx context.Context,
	htmlFetcher fetcher.Fetcher,
	pageURL url.URL,
	crawlDepth int,
	userAgent string,
	retryParam retry.RetryParam,
	markers []string,
) (htmlSrc string, dynamic bool, err error) {
	fetchParam := fetcher.NewFetchParam(pageURL, userAgent)
	result, fetchErr := htmlFetcher.Fetch(ctx, crawlDepth, fetchParam, retryParam)
	if fetchErr != nil {
		return "", false, fetchErr
	}

	body := string(result.Body())
	return body, isDynamic(body, markers), nil
}
