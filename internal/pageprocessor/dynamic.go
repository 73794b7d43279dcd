package pageprocessor

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// fetchDynamic renders pageURL in browserCtx (a context created by the
// caller via chromedp.NewContext and shared across pages within one
// worker, per spec.md's single-browser-context-per-worker model) and
// returns the serialized DOM after the page has settled. shouldAbort is
// polled once before navigation begins; chromedp itself is left to
// honor browserCtx cancellation for everything after that.
func fetchDynamic(
	browserCtx context.Context,
	pageURL url.URL,
	navigationTimeout time.Duration,
	networkIdleWindow time.Duration,
	shouldAbort func() bool,
) (string, error) {
	if shouldAbort != nil && shouldAbort() {
		return "", newAbortError()
	}

	navCtx, cancel := context.WithTimeout(browserCtx, navigationTimeout)
	defer cancel()

	var htmlSrc string
	err := chromedp.Run(navCtx,
		chromedp.Navigate(pageURL.String()),
		chromedp.WaitVisible(`body`, chromedp.ByQuery),
		waitNetworkIdle(networkIdleWindow),
		chromedp.OuterHTML("html", &htmlSrc, chromedp.ByQuery),
	)
	if err != nil {
		if isBrowserClosedErr(err) {
			return "", wrapf(ErrCauseBrowserClosed, true, "dynamic fetch: %v", err)
		}
		return "", wrapf(ErrCauseNavigation, true, "dynamic fetch: %v", err)
	}

	return htmlSrc, nil
}

// waitNetworkIdle polls document.readyState and a quiescence timer
// rather than chromedp's network-event listeners, which need a
// separate CDP domain enabled per page; a readyState+settle-window
// poll is the lighter-weight approximation spec.md allows ("network
// idle, or a framework-specific signal").
func waitNetworkIdle(window time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		deadline := time.Now().Add(window)
		for time.Now().Before(deadline) {
			var ready bool
			if err := chromedp.Evaluate(`document.readyState === "complete"`, &ready).Do(ctx); err != nil {
				return err
			}
			if !ready {
				deadline = time.Now().Add(window)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(50 * time.Millisecond):
			}
		}
		return nil
	})
}

// isBrowserClosedErr recognizes chromedp's analogue of the Playwright
// "target closed"/"context closed" signatures spec.md's retry policy
// singles out for browser-context recovery rather than a plain retry.
func isBrowserClosedErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "context canceled") ||
		strings.Contains(msg, "target closed") ||
		strings.Contains(msg, "session closed") ||
		strings.Contains(msg, "could not find node")
}
