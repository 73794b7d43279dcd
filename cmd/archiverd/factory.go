package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/archivekit/webarchiver/internal/assetcache"
	"github.com/archivekit/webarchiver/internal/assets"
	"github.com/archivekit/webarchiver/internal/config"
	"github.com/archivekit/webarchiver/internal/crawlengine"
	"github.com/archivekit/webarchiver/internal/crawlstate"
	"github.com/archivekit/webarchiver/internal/fetcher"
	"github.com/archivekit/webarchiver/internal/frontier"
	"github.com/archivekit/webarchiver/internal/jobprocessor"
	"github.com/archivekit/webarchiver/internal/metadata"
	"github.com/archivekit/webarchiver/internal/pageprocessor"
	"github.com/archivekit/webarchiver/internal/rewrite"
	"github.com/archivekit/webarchiver/internal/robots"
	"github.com/archivekit/webarchiver/internal/robots/cache"
	"github.com/archivekit/webarchiver/internal/runtimeconfig"
	"github.com/archivekit/webarchiver/internal/sitemap"
	"github.com/archivekit/webarchiver/internal/store"
	"github.com/archivekit/webarchiver/pkg/failure"
	"github.com/archivekit/webarchiver/pkg/limiter"
	"github.com/archivekit/webarchiver/pkg/retry"
	"github.com/archivekit/webarchiver/pkg/timeutil"
)

/*
newEngineFactory closes over everything that's shared across every
job a Processor runs (the DB-backed SettingsStore for the global download
blacklist, the CrawlStore behind the crawl-state mirror, the
process-wide RuntimeConfig, the asset-cache root) and
returns a jobprocessor.EngineFactory: the seam C9 calls once per
dequeued job to build a full C1-C7 graph for exactly that Site/Crawl
pair.
*/

// factoryError is the failure.ClassifiedError this package raises when
// a job's engine graph can't be built at all (bad BaseURL, unreadable
// global blacklist, invalid crawl config) — always fatal, since none of
// these are retryable within the job.
type factoryError struct {
	message string
}

func (e *factoryError) Error() string               { return "engine factory: " + e.message }
func (e *factoryError) Severity() failure.Severity   { return failure.SeverityFatal }
func factoryErrf(format string, args ...any) *factoryError {
	return &factoryError{message: fmt.Sprintf(format, args...)}
}

var _ failure.ClassifiedError = (*factoryError)(nil)

func newEngineFactory(crawls *store.CrawlStore, settings *store.SettingsStore, runtimeCfg runtimeconfig.RuntimeConfig, cacheRoot string) jobprocessor.EngineFactory {
	return func(
		ctx context.Context,
		site store.Site,
		crawl store.Crawl,
		outputDir string,
		progressSink crawlengine.ProgressSink,
		logSink crawlengine.LogSink,
	) (jobprocessor.Crawler, failure.ClassifiedError) {
		seedURL, err := url.Parse(site.BaseURL)
		if err != nil {
			return nil, factoryErrf("parse site %s base URL %q: %v", site.ID, site.BaseURL, err)
		}

		globalBlacklist, err := settings.GlobalDownloadBlacklist()
		if err != nil {
			return nil, factoryErrf("load global download blacklist: %v", err)
		}

		cfg, err := config.WithDefault([]url.URL{*seedURL}).
			WithOutputDir(outputDir).
			WithMaxPages(site.MaxPages).
			WithConcurrency(site.Concurrency).
			WithExcludePatterns(site.ExcludePatterns).
			WithAssetBlacklist(append(append([]string{}, site.DownloadBlacklist...), globalBlacklist...)).
			WithRedirectsCSVPath(site.RedirectsCSV).
			WithMaxConcurrency(runtimeCfg.MaxCrawlConcurrency).
			WithMemoryBufferGB(runtimeCfg.CrawlMemoryBufferGB).
			WithMBPerPage(runtimeCfg.CrawlMemoryMBPerPage).
			WithMBPerBrowser(runtimeCfg.CrawlMemoryMBPerBrowser).
			WithPagesPerBrowser(runtimeCfg.CrawlPagesPerBrowser).
			WithOverrideConcurrency(runtimeCfg.CrawlOverrideConcurrency).
			WithOverrideBrowsers(runtimeCfg.CrawlOverrideBrowsers).
			WithDisableResourceChecks(runtimeCfg.CrawlDisableResourceChecks).
			WithStateFlushBatchSize(runtimeCfg.CrawlStateFlushBatchSize).
			WithMaxAttempt(runtimeCfg.CrawlPageMaxRetries).
			WithBaseDelay(runtimeCfg.CrawlPageRetryDelay).
			WithStateFilePath(filepath.Join(outputDir, ".crawl-state.json")).
			Build()
		if err != nil {
			return nil, factoryErrf("build crawl config for site %s: %v", site.ID, err)
		}

		retryParam := retry.NewRetryParam(
			cfg.BaseDelay(),
			cfg.Jitter(),
			cfg.RandomSeed(),
			cfg.MaxAttempt(),
			timeutil.NewBackoffParam(cfg.BackoffInitialDuration(), cfg.BackoffMultiplier(), cfg.BackoffMaxDuration()),
		)

		metadataSink := metadata.NewRecorder(logger)
		httpClient := &http.Client{Timeout: cfg.Timeout()}

		htmlFetcher := fetcher.NewHtmlFetcher(metadataSink)
		htmlFetcher.Init(httpClient)

		// robotsFetcher feeds the sitemap resolver's robots.txt
		// Sitemap: directive lookup; it gets its own cache, separate
		// from the one Engine.Run installs on robot via Init.
		robotsFetcher := robots.NewRobotsFetcherWithClient(metadataSink, cfg.UserAgent(), httpClient, cache.NewMemoryCache())
		robot := robots.NewCachedRobot(metadataSink)

		resolver := sitemap.NewXMLResolver(metadataSink, &htmlFetcher, robotsFetcher, cfg.UserAgent(), retryParam)

		fr := frontier.NewCrawlFrontier()

		rewriter := rewrite.NewDOMRewriter(metadataSink, httpClient)
		pageCfg := pageprocessor.Config{
			UserAgent:          cfg.UserAgent(),
			RemoveWebflowBadge: site.RemoveWebflowBadge,
		}
		processor := pageprocessor.NewProcessor(metadataSink, &htmlFetcher, rewriter, pageCfg)

		var assetCache *assetcache.Cache
		if runtimeCfg.AssetCacheEnabled {
			assetCache = assetcache.New(filepath.Join(cacheRoot, seedURL.Hostname()), assetcache.DefaultMaxBytes)
		}
		downloader := assets.NewLocalDownloader(metadataSink, assetCache, httpClient, cfg.UserAgent())

		mirror := store.NewCrawlMirror(crawls, logger)
		stateManager := crawlstate.NewManager(mirror)

		rateLimiter := limiter.NewConcurrentRateLimiter()
		rateLimiter.SetBaseDelay(cfg.BaseDelay())
		rateLimiter.SetJitter(cfg.Jitter())
		rateLimiter.SetRandomSeed(cfg.RandomSeed())

		engine := crawlengine.NewEngine(
			cfg,
			resolver,
			&robot,
			fr,
			processor,
			downloader,
			stateManager,
			assetCache,
			rateLimiter,
			progressSink,
			logSink,
			metadataSink,
			metadataSink,
		).WithCrawlID(crawl.ID)

		return engine, nil
	}
}
