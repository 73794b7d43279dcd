package cmd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/archivekit/webarchiver/internal/assets"
	"github.com/archivekit/webarchiver/internal/config"
	"github.com/archivekit/webarchiver/internal/crawlengine"
	"github.com/archivekit/webarchiver/internal/crawlstate"
	"github.com/archivekit/webarchiver/internal/fetcher"
	"github.com/archivekit/webarchiver/internal/frontier"
	"github.com/archivekit/webarchiver/internal/metadata"
	"github.com/archivekit/webarchiver/internal/pageprocessor"
	"github.com/archivekit/webarchiver/internal/rewrite"
	"github.com/archivekit/webarchiver/internal/robots"
	"github.com/archivekit/webarchiver/internal/robots/cache"
	"github.com/archivekit/webarchiver/internal/sitemap"
	"github.com/archivekit/webarchiver/pkg/limiter"
	"github.com/archivekit/webarchiver/pkg/retry"
	"github.com/archivekit/webarchiver/pkg/timeutil"
)

var (
	cfgFile           string
	seedURLs          []string
	maxDepth          int
	concurrency       int
	outputDir         string
	dryRun            bool
	maxPages          int
	userAgent         string
	timeout           time.Duration
	baseDelay         time.Duration
	jitter            time.Duration
	randomSeed        int64
	allowedHosts      []string
	allowedPathPrefix []string
)

// parseStringSliceToSet converts a string slice to a map[string]struct{} set
func parseStringSliceToSet(strings []string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, s := range strings {
		if s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

// parseSeedURLs converts a string slice of URLs to []url.URL
func parseSeedURLs(urlStrings []string) ([]url.URL, error) {
	if len(urlStrings) == 0 {
		return nil, fmt.Errorf("seed URLs cannot be empty")
	}

	var urls []url.URL
	for _, urlStr := range urlStrings {
		parsedURL, err := url.Parse(urlStr)
		if err != nil {
			return nil, fmt.Errorf("error parsing seed URL %s: %w", urlStr, err)
		}
		urls = append(urls, *parsedURL)
	}
	return urls, nil
}

// rootCmd is the ad-hoc, database-free crawl runner: everything
// cmd/archiverd's queue-driven path does for a registered Site, minus
// the Site row, the job queue, and the storage upload — a seed URL
// typed on the command line goes straight into a crawlengine.Engine
// and writes its output to --output-dir directly.
var rootCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a one-off crawl from the command line, outside the job queue",
	Long: `run crawls one or more seed URLs to completion without touching the
job database or Redis queue: useful for trying out exclude patterns,
asset blacklists, or sizing overrides against a real site before
registering it with "site add". With --dry-run it only prints the
resolved configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(seedURLs) == 0 {
			return fmt.Errorf("--seed-url is required: provide at least one seed URL to start crawling")
		}

		parsedURLs, err := parseSeedURLs(seedURLs)
		if err != nil {
			return err
		}

		cfg, err := InitConfigWithError(parsedURLs)
		if err != nil {
			return err
		}

		printConfigSummary(cfg)
		if cfg.DryRun() {
			return nil
		}

		return runCrawl(cmd.Context(), cfg)
	},
}

func printConfigSummary(cfg config.Config) {
	fmt.Printf("Configuration initialized successfully\n")
	if len(cfg.SeedURLs()) > 0 {
		var urls []string
		for _, u := range cfg.SeedURLs() {
			urls = append(urls, u.String())
		}
		fmt.Printf("Seed URLs: %s\n", strings.Join(urls, ", "))
	}
	if len(cfg.AllowedHosts()) > 0 {
		var hosts []string
		for host := range cfg.AllowedHosts() {
			hosts = append(hosts, host)
		}
		fmt.Printf("Allowed Hosts: %s\n", strings.Join(hosts, ", "))
	}
	if len(cfg.AllowedPathPrefix()) > 0 {
		fmt.Printf("Allowed Path Prefixes: %s\n", strings.Join(cfg.AllowedPathPrefix(), ", "))
	}
	fmt.Printf("Max Depth: %d\n", cfg.MaxDepth())
	fmt.Printf("Max Pages: %d\n", cfg.MaxPages())
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency())
	fmt.Printf("Base Delay: %v\n", cfg.BaseDelay())
	fmt.Printf("Jitter: %v\n", cfg.Jitter())
	fmt.Printf("Random Seed: %d\n", cfg.RandomSeed())
	fmt.Printf("Timeout: %v\n", cfg.Timeout())
	fmt.Printf("User Agent: %s\n", cfg.UserAgent())
	fmt.Printf("Output Directory: %s\n", cfg.OutputDir())
	fmt.Printf("Dry Run: %t\n", cfg.DryRun())
}

// consoleSink prints progress and log events as they happen; there's
// no CrawlLog row or pub/sub channel to fan them into outside the job
// processor.
type consoleSink struct{}

func (consoleSink) OnProgress(p crawlengine.Progress) {
	fmt.Printf("\rprogress: %d/%d ok, %d failed - %s", p.Succeeded, p.Total, p.Failed, p.CurrentURL)
}

func (consoleSink) OnLog(level, message string, attrs map[string]string) {
	if level == "error" || level == "warn" {
		fmt.Printf("\n[%s] %s %v\n", level, message, attrs)
	}
}

// runCrawl builds the same C1-C7 graph cmd/archiverd's job processor
// builds per Site, minus the CrawlMirror (nil is a valid, no-op
// Mirror for a run outside the job processor) and the asset cache
// (an ad-hoc run has no stable cache root to reuse across runs).
func runCrawl(ctx context.Context, cfg config.Config) error {
	retryParam := retry.NewRetryParam(
		cfg.BaseDelay(),
		cfg.Jitter(),
		cfg.RandomSeed(),
		cfg.MaxAttempt(),
		timeutil.NewBackoffParam(cfg.BackoffInitialDuration(), cfg.BackoffMultiplier(), cfg.BackoffMaxDuration()),
	)

	metadataSink := metadata.NewRecorder(nil)
	httpClient := &http.Client{Timeout: cfg.Timeout()}

	htmlFetcher := fetcher.NewHtmlFetcher(metadataSink)
	htmlFetcher.Init(httpClient)

	robotsFetcher := robots.NewRobotsFetcherWithClient(metadataSink, cfg.UserAgent(), httpClient, cache.NewMemoryCache())
	robot := robots.NewCachedRobot(metadataSink)

	resolver := sitemap.NewXMLResolver(metadataSink, &htmlFetcher, robotsFetcher, cfg.UserAgent(), retryParam)
	fr := frontier.NewCrawlFrontier()

	rewriter := rewrite.NewDOMRewriter(metadataSink, httpClient)
	processor := pageprocessor.NewProcessor(metadataSink, &htmlFetcher, rewriter, pageprocessor.Config{UserAgent: cfg.UserAgent()})
	downloader := assets.NewLocalDownloader(metadataSink, nil, httpClient, cfg.UserAgent())

	stateManager := crawlstate.NewManager(nil)
	if cfg.StateFilePath() == "" {
		cfg = *cfg.WithStateFilePath(filepath.Join(cfg.OutputDir(), ".crawl-state.json"))
	}

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
		nil,
		rateLimiter,
		consoleSink{},
		consoleSink{},
		metadataSink,
		metadataSink,
	)

	result := engine.Run(ctx)
	fmt.Println()
	fmt.Printf("crawl finished: %d succeeded, %d failed\n", result.Succeeded, result.Failed)
	return nil
}

// Command returns the run command for embedding under another
// program's root command (cmd/archiverd's "archiverd run").
func Command() *cobra.Command {
	return rootCmd
}

// Execute runs this package standalone, as its own single-command
// binary. cmd/archiverd embeds Command() instead and never calls this.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Here you will define your flags and configuration settings.
	// Cobra supports persistent flags, which, if defined here,
	// will be available to all subcommands in the docs-crawler application.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (e.g., /home/myuser/config.json)")
	rootCmd.PersistentFlags().StringArrayVar(&seedURLs, "seed-url", []string{}, "one or more starting URLs (can be repeated)")
	rootCmd.PersistentFlags().IntVar(&maxDepth, "max-depth", 5, "maximum link depth from seed URL")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 3, "number of concurrent fetch workers")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "output", "root output directory for crawled content")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "print the resolved configuration and exit without crawling")
	rootCmd.PersistentFlags().IntVar(&maxPages, "max-pages", 0, "maximum number of pages to fetch (0 for unlimited)")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "user agent string for HTTP requests")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "timeout for HTTP requests")
	rootCmd.PersistentFlags().DurationVar(&baseDelay, "base-delay", 0, "base delay between HTTP requests to the same host")
	rootCmd.PersistentFlags().DurationVar(&jitter, "jitter", 0, "random jitter added to base delay")
	rootCmd.PersistentFlags().Int64Var(&randomSeed, "random-seed", 0, "seed for random number generation (0 for current time)")
	rootCmd.PersistentFlags().StringArrayVar(&allowedHosts, "allowed-host", []string{}, "hostname allowlist recorded in the config (defaults to seed host; not used to filter URLs)")
	rootCmd.PersistentFlags().StringArrayVar(&allowedPathPrefix, "allowed-path-prefix", []string{}, "path prefixes like `/docs` recorded in the config (not used to filter URLs)")
}

// InitConfig builds the Config from --config-file if set, otherwise from
// the CLI flag values, and exits the process on error.
// seedUrls is a mandatory parameter and must contain at least one valid URL.
func InitConfig(seedUrls []url.URL) config.Config {
	cfg, err := InitConfigWithError(seedUrls)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
	return cfg
}

// InitConfigWithError builds the Config from --config-file if set, otherwise
// from the CLI flag values, returning any errors. Environment variables are
// not read.
// seedUrls is a mandatory parameter and must contain at least one valid URL.
// This makes it easier to test error cases.
func InitConfigWithError(seedUrls []url.URL) (config.Config, error) {
	if len(seedUrls) == 0 {
		return config.Config{}, fmt.Errorf("%w: seedUrls cannot be empty", config.ErrInvalidConfig)
	}

	if cfgFile != "" {
		fmt.Printf("Initializing config from file: %s\n", cfgFile)
		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return cfg, fmt.Errorf("error initializing config from file: %w", err)
		}
		return cfg, nil
	}

	// Build config from CLI flags using the With... functions with method chaining
	fmt.Println("No config file specified. Using default and CLI flag values")

	// Start with default config using provided seed URLs and apply overrides using method chaining
	configBuilder := config.WithDefault(seedUrls)

	// Override with CLI flag values where provided
	if maxDepth > 0 {
		configBuilder = configBuilder.WithMaxDepth(maxDepth)
	}

	if concurrency > 0 {
		configBuilder = configBuilder.WithConcurrency(concurrency)
	}

	if outputDir != "" && outputDir != "output" {
		configBuilder = configBuilder.WithOutputDir(outputDir)
	}

	if dryRun {
		configBuilder = configBuilder.WithDryRun(dryRun)
	}

	if maxPages > 0 {
		configBuilder = configBuilder.WithMaxPages(maxPages)
	}

	if userAgent != "" {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}

	if timeout > 0 {
		configBuilder = configBuilder.WithTimeout(timeout)
	}

	if baseDelay > 0 {
		configBuilder = configBuilder.WithBaseDelay(baseDelay)
	}

	if jitter > 0 {
		configBuilder = configBuilder.WithJitter(jitter)
	}

	if randomSeed != 0 {
		configBuilder = configBuilder.WithRandomSeed(randomSeed)
	}

	if len(allowedHosts) > 0 {
		configBuilder = configBuilder.WithAllowedHosts(parseStringSliceToSet(allowedHosts))
	}

	if len(allowedPathPrefix) > 0 {
		configBuilder = configBuilder.WithAllowedPathPrefix(allowedPathPrefix)
	}

	cfg, err := configBuilder.Build()
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func ResetFlags() {
	cfgFile = ""
	seedURLs = []string{}
	maxDepth = 0
	concurrency = 0
	outputDir = ""
	dryRun = false
	maxPages = 0
	userAgent = ""
	timeout = 0
	baseDelay = 0
	jitter = 0
	randomSeed = 0
	allowedHosts = []string{}
	allowedPathPrefix = []string{}
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetSeedURLsForTest(urls []string) {
	seedURLs = urls
}

func SetMaxDepthForTest(depth int) {
	maxDepth = depth
}

func SetConcurrencyForTest(conc int) {
	concurrency = conc
}

func SetOutputDirForTest(dir string) {
	outputDir = dir
}

func SetDryRunForTest(dry bool) {
	dryRun = dry
}

func SetMaxPagesForTest(pages int) {
	maxPages = pages
}

func SetUserAgentForTest(agent string) {
	userAgent = agent
}

func SetTimeoutForTest(t time.Duration) {
	timeout = t
}

func SetBaseDelayForTest(delay time.Duration) {
	baseDelay = delay
}

func SetJitterForTest(j time.Duration) {
	jitter = j
}

func SetRandomSeedForTest(seed int64) {
	randomSeed = seed
}

func SetAllowedHostsForTest(hosts []string) {
	allowedHosts = hosts
}

func SetAllowedPathPrefixForTest(prefixes []string) {
	allowedPathPrefix = prefixes
}
