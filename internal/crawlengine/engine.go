package crawlengine

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/archivekit/webarchiver/internal/assetcache"
	"github.com/archivekit/webarchiver/internal/assets"
	"github.com/archivekit/webarchiver/internal/config"
	"github.com/archivekit/webarchiver/internal/crawlstate"
	"github.com/archivekit/webarchiver/internal/frontier"
	"github.com/archivekit/webarchiver/internal/metadata"
	"github.com/archivekit/webarchiver/internal/pageprocessor"
	"github.com/archivekit/webarchiver/internal/robots"
	"github.com/archivekit/webarchiver/internal/sitemap"
	"github.com/archivekit/webarchiver/pkg/failure"
	"github.com/archivekit/webarchiver/pkg/hashutil"
	"github.com/archivekit/webarchiver/pkg/limiter"
	"github.com/archivekit/webarchiver/pkg/retry"
	"github.com/archivekit/webarchiver/pkg/timeutil"
	"github.com/archivekit/webarchiver/pkg/urlutil"
)

/*
Responsibilities
- Discover a crawl's seed set through C1, admit every URL through the
  single robots/scope/depth choke point also used for link discovery
- Size and run a pool of headless-browser-backed workers over a single
  shared frontier
- Keep C6's durable state in lockstep with progress, flushing
  periodically rather than once at the end
- On drain, write the archive's output config and evict C2's asset
  cache, then report final stats

Concurrency
- One frontier, one rate limiter, one asset downloader/cache: all are
  safe for concurrent use by every worker goroutine (see their own
  package docs for the synchronization each provides).
- Workers coordinate shutdown via inFlight: a worker that dequeues
  nothing exits only once no other worker is mid-page, since a page
  being processed by another worker may still submit new URLs.
- Each worker group shares one browserHandle: a dead browser is
  relaunched in place (single-flight per generation) instead of torn
  down per worker, and Run closes each handle only after every worker
  sharing it has returned from wg.Wait().
*/

// Engine is C7. One instance runs exactly one crawl.
type Engine struct {
	cfg            config.Config
	resolver       sitemap.Resolver
	robot          robots.Robot
	frontier       frontier.Frontier
	processor      *pageprocessor.Processor
	downloader     assets.Downloader
	stateManager   *crawlstate.Manager
	cache          *assetcache.Cache
	rateLimiter    limiter.RateLimiter
	progressSink   ProgressSink
	logSink        LogSink
	metadataSink   metadata.MetadataSink
	crawlFinalizer metadata.CrawlFinalizer
	crawlID        string
	excludeList    *assets.Blacklist

	succeededBatch []string
	failedBatch    []string
	batchMu        sync.Mutex

	totalSucceeded int32
	totalFailed    int32
	staticPages    int32
}

// NewEngine wires C7 against its dependencies. A nil cache is valid —
// it simply disables C2 consultation and eviction.
func NewEngine(
	cfg config.Config,
	resolver sitemap.Resolver,
	robot robots.Robot,
	fr frontier.Frontier,
	processor *pageprocessor.Processor,
	downloader assets.Downloader,
	stateManager *crawlstate.Manager,
	cache *assetcache.Cache,
	rateLimiter limiter.RateLimiter,
	progressSink ProgressSink,
	logSink LogSink,
	metadataSink metadata.MetadataSink,
	crawlFinalizer metadata.CrawlFinalizer,
) *Engine {
	if progressSink == nil {
		progressSink = NoopProgressSink{}
	}
	if logSink == nil {
		logSink = NoopLogSink{}
	}
	return &Engine{
		cfg:            cfg,
		resolver:       resolver,
		robot:          robot,
		frontier:       fr,
		processor:      processor,
		downloader:     downloader,
		stateManager:   stateManager,
		cache:          cache,
		rateLimiter:    rateLimiter,
		progressSink:   progressSink,
		logSink:        logSink,
		metadataSink:   metadataSink,
		crawlFinalizer: crawlFinalizer,
		excludeList:    assets.NewBlacklist(cfg.ExcludePatterns(), nil),
	}
}

// WithCrawlID attaches the crawl identity used to mirror progress to an
// external store via stateManager's Mirror. Callers that run a single
// ad-hoc crawl with no mirror configured can leave this unset.
func (e *Engine) WithCrawlID(crawlID string) *Engine {
	e.crawlID = crawlID
	return e
}

// Run discovers seeds, sizes and starts the worker pool, drives it to
// completion, and returns the crawl's final stats.
func (e *Engine) Run(ctx context.Context) (CompletionStats, failure.ClassifiedError) {
	startedAt := time.Now()

	if len(e.cfg.SeedURLs()) == 0 {
		return CompletionStats{}, wrapf(ErrCauseNoSeeds, false, "no seed URLs configured")
	}

	e.rateLimiter.SetBaseDelay(e.cfg.BaseDelay())
	e.rateLimiter.SetJitter(e.cfg.Jitter())
	e.rateLimiter.SetRandomSeed(e.cfg.RandomSeed())

	e.robot.Init(e.cfg.UserAgent())
	e.frontier.Init(e.cfg)

	var state *crawlstate.State
	if e.cfg.StateFilePath() != "" {
		loaded, err := e.stateManager.Load(e.cfg.StateFilePath())
		if err != nil {
			return CompletionStats{}, wrapf(ErrCauseStateFlush, false, "load state: %v", err)
		}
		state = loaded
	}
	if state == nil {
		state = crawlstate.NewState()
	}

	e.seedFrontier(ctx, state)

	retryParam := retryParamFrom(e.cfg)
	sizing := computeSizing(sizingInputs{
		requested:             e.cfg.Concurrency(),
		cpus:                  hostCPUs(),
		freeGB:                hostFreeGB(),
		maxConcurrency:        e.cfg.MaxConcurrency(),
		mbPerPage:             e.cfg.MBPerPage(),
		mbPerBrowser:          e.cfg.MBPerBrowser(),
		memoryBufferGB:        e.cfg.MemoryBufferGB(),
		pagesPerBrowser:       e.cfg.PagesPerBrowser(),
		maxBrowsersByMemory:   e.cfg.MaxBrowsersByMemory(),
		disableResourceChecks: e.cfg.DisableResourceChecks(),
		overrideConcurrency:   e.cfg.OverrideConcurrency(),
		overrideBrowsers:      e.cfg.OverrideBrowsers(),
	})

	e.logSink.OnLog("info", "crawl sizing resolved", map[string]string{
		"effectiveConcurrency": itoa(sizing.EffectiveConcurrency),
		"numBrowsers":          itoa(sizing.NumBrowsers),
		"workersPerBrowser":    itoa(sizing.WorkersPerBrowser),
	})

	var inFlight int32
	var aborted int32
	var wg sync.WaitGroup
	flushedSinceLast := int32(0)

	var handles []*browserHandle
	for b := 0; b < sizing.NumBrowsers; b++ {
		handle, browserErr := newBrowserHandle(ctx, e.cfg.UserAgent())
		if browserErr != nil {
			e.logSink.OnLog("warn", "browser launch failed, worker group skipped", map[string]string{"error": browserErr.Error()})
			continue
		}
		handles = append(handles, handle)

		for w := 0; w < sizing.WorkersPerBrowser; w++ {
			wg.Add(1)
			go func(handle *browserHandle) {
				defer wg.Done()
				e.workerLoop(ctx, handle, retryParam, state, &inFlight, &aborted, &flushedSinceLast)
			}(handle)
		}
	}

	wg.Wait()

	// Every worker in a group has drained by now, so tearing down the
	// group's (possibly relaunched) browser here can't cut off a
	// still-live sibling the way each worker cancelling its own copy
	// of the original context used to.
	for _, handle := range handles {
		handle.close()
	}

	runWasAborted := ctx.Err() != nil || atomic.LoadInt32(&aborted) != 0

	if e.cfg.StateFilePath() != "" {
		if err := e.stateManager.Save(e.cfg.StateFilePath(), state); err != nil {
			e.logSink.OnLog("error", "final state flush failed", map[string]string{"error": err.Error()})
		}
	}

	if err := writeOutputConfig(e.cfg.OutputDir(), e.cfg.RedirectsCSVPath()); err != nil {
		e.logSink.OnLog("error", "output config write failed", map[string]string{"error": err.Error()})
	}

	var cacheHitRate float64
	if e.cache != nil {
		cacheHitRate = e.cache.Stats().HitRate()
		if err := e.cache.Evict(); err != nil {
			e.logSink.OnLog("error", "asset cache eviction failed", map[string]string{"error": err.Error()})
		}
	}

	succeeded := int(atomic.LoadInt32(&e.totalSucceeded))
	failed := int(atomic.LoadInt32(&e.totalFailed))
	durationMs := time.Since(startedAt).Milliseconds()

	e.crawlFinalizer.RecordFinalCrawlStats(succeeded+failed, failed, 0, durationMs)

	stats := CompletionStats{
		Total:        succeeded + failed,
		Succeeded:    succeeded,
		Failed:       failed,
		DurationMs:   durationMs,
		StaticPages:  int(atomic.LoadInt32(&e.staticPages)),
		CacheHitRate: cacheHitRate,
	}

	// A cancelled run must surface as SeverityAbort, not a clean
	// success: the caller (C9) only treats that severity as "leave the
	// crawl's cancelled status alone" rather than overwriting it with
	// uploading/completed.
	if runWasAborted {
		return stats, newAbortError()
	}

	return stats, nil
}

// seedFrontier discovers a site's initial page set via C1 for every
// seed URL, narrows it to whatever FilterForResume says a restarted
// crawl should still cover, and admits the result into the frontier.
func (e *Engine) seedFrontier(ctx context.Context, state *crawlstate.State) {
	seen := map[string]struct{}{}
	var discovered []url.URL

	for _, seed := range e.cfg.SeedURLs() {
		discovered = append(discovered, seed)
		if e.resolver == nil {
			continue
		}
		for _, u := range e.resolver.Resolve(ctx, seed) {
			key := urlutil.Canonicalize(u).String()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			discovered = append(discovered, u)
		}
	}

	asStrings := make([]string, 0, len(discovered))
	byString := map[string]url.URL{}
	for _, u := range discovered {
		key := urlutil.Canonicalize(u).String()
		if _, ok := byString[key]; ok {
			continue
		}
		byString[key] = u
		asStrings = append(asStrings, key)
	}

	toAdmit := crawlstate.FilterForResume(asStrings, state, e.cfg.Resume(), e.cfg.RetryFailed())
	for _, key := range toAdmit {
		u, ok := byString[key]
		if !ok {
			continue
		}
		e.admit(u, frontier.SourceSeed, 0)
	}
}

// admit is the single choke point through which a URL enters the
// frontier: robots.txt is consulted, the rate limiter's crawl-delay and
// backoff state are kept current, and only an allowed URL is ever
// handed to the frontier. Link discovery and seeding both flow through
// this one path, matching the invariant that only the engine decides
// admission.
func (e *Engine) admit(target url.URL, source frontier.SourceContext, depth int) {
	decision, robotsErr := e.robot.Decide(target)
	if robotsErr != nil {
		if robotsErr.Cause == robots.ErrCauseHttpTooManyRequests || robotsErr.Cause == robots.ErrCauseHttpServerError {
			e.rateLimiter.Backoff(target.Host)
		}
		return
	}

	e.rateLimiter.ResetBackoff(target.Host)
	if decision.CrawlDelay > 0 {
		e.rateLimiter.SetCrawlDelay(target.Host, decision.CrawlDelay)
	}
	if !decision.Allowed {
		return
	}

	if blocked, _, _ := e.excludeList.Check(decision.Url); blocked {
		return
	}

	candidate := frontier.NewCrawlAdmissionCandidate(
		decision.Url,
		source,
		frontier.NewDiscoveryMetadata(depth, nil),
	)
	e.frontier.Submit(candidate)
}

// workerLoop drains the shared frontier until it and every sibling
// worker have gone idle at once. handle is this worker group's shared,
// swappable chromedp context: a dead browser is relaunched in place by
// processOne, not recreated per worker, so every sibling picks up the
// same live context on its next page.
func (e *Engine) workerLoop(
	ctx context.Context,
	handle *browserHandle,
	retryParam retry.RetryParam,
	state *crawlstate.State,
	inFlight *int32,
	aborted *int32,
	flushedSinceLast *int32,
) {
	shouldAbort := func() bool {
		return ctx.Err() != nil || atomic.LoadInt32(aborted) != 0
	}

	for {
		if shouldAbort() {
			return
		}

		token, ok := e.frontier.Dequeue()
		if !ok {
			if atomic.LoadInt32(inFlight) == 0 {
				return
			}
			time.Sleep(50 * time.Millisecond)
			continue
		}

		atomic.AddInt32(inFlight, 1)
		e.processOne(ctx, handle, token, retryParam, state, aborted, flushedSinceLast)
		atomic.AddInt32(inFlight, -1)
	}
}

func (e *Engine) processOne(
	ctx context.Context,
	handle *browserHandle,
	token frontier.CrawlToken,
	retryParam retry.RetryParam,
	state *crawlstate.State,
	aborted *int32,
	flushedSinceLast *int32,
) {
	host := token.URL().Host
	delay := e.rateLimiter.ResolveDelay(host)
	if delay > 0 {
		time.Sleep(delay)
	}

	downloadParam := assets.NewDownloadParam(
		e.cfg.OutputDir(),
		e.cfg.MaxAssetSize(),
		hashutil.HashAlgo(e.cfg.AssetHashAlgo()),
		assets.NewBlacklist(nil, e.cfg.AssetBlacklist()),
	)

	shouldAbort := func() bool {
		return ctx.Err() != nil || atomic.LoadInt32(aborted) != 0
	}

	result := retry.Retry(retryParam, func() (pageprocessor.Result, failure.ClassifiedError) {
		browserCtx, gen := handle.current()
		page, err := e.processor.Process(
			ctx,
			browserCtx,
			token.URL(),
			token.Depth(),
			e.cfg.OutputDir(),
			e.downloader,
			downloadParam,
			retryParam,
			true,
			shouldAbort,
		)
		if procErr, ok := err.(*pageprocessor.ProcessError); ok && procErr.Cause == pageprocessor.ErrCauseBrowserClosed {
			// The next attempt (this retry loop, or a sibling
			// worker's next page) gets a freshly launched browser
			// instead of hammering the one that just died.
			handle.relaunch(ctx, gen)
		}
		return page, err
	})

	e.rateLimiter.MarkLastFetchAsNow(host)

	key := urlutil.Canonicalize(token.URL()).String()
	if result.IsFailure() {
		if result.Err().Severity() == failure.SeverityAbort {
			atomic.StoreInt32(aborted, 1)
		}
		atomic.AddInt32(&e.totalFailed, 1)
		e.recordBatch(state, "", key)
		e.progressSink.OnProgress(e.progress(token.URL().String()))
		e.maybeFlush(state, flushedSinceLast)
		return
	}

	page := result.Value()
	if page.Static {
		atomic.AddInt32(&e.staticPages, 1)
	}
	atomic.AddInt32(&e.totalSucceeded, 1)
	e.recordBatch(state, key, "")

	if e.cfg.DiscoverLinks() && !e.cfg.SitemapOnly() {
		e.submitDiscovered(page.HTML, token.URL(), token.Depth()+1)
	}

	e.progressSink.OnProgress(e.progress(token.URL().String()))
	e.maybeFlush(state, flushedSinceLast)
}

// submitDiscovered resolves every hyperlink found on an already
// processed page against that page's own URL, keeps only same-host
// targets, and admits each one at the next crawl depth.
func (e *Engine) submitDiscovered(pageHTML string, pageURL url.URL, nextDepth int) {
	for _, href := range discoverLinks(pageHTML) {
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		resolved := pageURL.ResolveReference(ref)
		if resolved.Hostname() != pageURL.Hostname() {
			continue
		}
		e.admit(resolved, frontier.SourceCrawl, nextDepth)
	}
}

func (e *Engine) recordBatch(state *crawlstate.State, succeededKey string, failedKey string) {
	e.batchMu.Lock()
	if succeededKey != "" {
		e.succeededBatch = append(e.succeededBatch, succeededKey)
	}
	if failedKey != "" {
		e.failedBatch = append(e.failedBatch, failedKey)
	}
	e.batchMu.Unlock()
}

func (e *Engine) maybeFlush(state *crawlstate.State, flushedSinceLast *int32) {
	if e.cfg.StateFilePath() == "" {
		return
	}
	if atomic.AddInt32(flushedSinceLast, 1) < int32(e.cfg.StateFlushBatchSize()) {
		return
	}
	atomic.StoreInt32(flushedSinceLast, 0)

	e.batchMu.Lock()
	succeeded := e.succeededBatch
	failed := e.failedBatch
	e.succeededBatch = nil
	e.failedBatch = nil
	e.batchMu.Unlock()

	if len(succeeded) == 0 && len(failed) == 0 {
		return
	}

	e.stateManager.UpdateProgress(e.crawlID, state, succeeded, failed)
	if err := e.stateManager.Save(e.cfg.StateFilePath(), state); err != nil {
		e.logSink.OnLog("error", "periodic state flush failed", map[string]string{"error": err.Error()})
	}
}

func (e *Engine) progress(currentURL string) Progress {
	total := e.frontier.VisitedCount()
	succeeded := int(atomic.LoadInt32(&e.totalSucceeded))
	failed := int(atomic.LoadInt32(&e.totalFailed))
	if total < succeeded+failed {
		total = succeeded + failed
	}
	return Progress{
		Total:      total,
		Succeeded:  succeeded,
		Failed:     failed,
		CurrentURL: currentURL,
	}
}

// newBrowserContext starts one headless chromedp browser for a
// worker group to share. Cancelling the returned context tears down
// both the chromedp context and its underlying allocator.
func newBrowserContext(parent context.Context, userAgent string) (context.Context, context.CancelFunc, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.UserAgent(userAgent),
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
		)...,
	)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, nil, err
	}
	cancel := func() {
		browserCancel()
		allocCancel()
	}
	return browserCtx, cancel, nil
}

func retryParamFrom(cfg config.Config) retry.RetryParam {
	return retry.NewRetryParam(
		cfg.BaseDelay(),
		cfg.Jitter(),
		cfg.RandomSeed(),
		cfg.MaxAttempt(),
		timeutil.NewBackoffParam(
			cfg.BackoffInitialDuration(),
			cfg.BackoffMultiplier(),
			cfg.BackoffMaxDuration(),
		),
	)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
