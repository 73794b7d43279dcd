package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"
)

type Config struct {
	//===============
	//  Crawl scope
	//===============
	// Initial pages to give to the crawler to begin discovering and traversing other pages.
	seedURLs []url.URL
	// Whitelisted hostnames. Build fills an empty set with the seed URLs'
	// hostnames. No crawl component filters URLs by this set; it is carried
	// in Config and printed by the run command.
	allowedHosts map[string]struct{}
	// Path prefixes recorded for the crawl. No crawl component filters URLs
	// by them; they are carried in Config and printed by the run command.
	allowedPathPrefix []string

	//===============
	// Limits
	//===============
	// Maximum number of hyperlink hops from a seed (root) URL
	maxDepth int
	// Maximum number of total documents are allowed to be fetched
	maxPages int

	//===============
	// Politeness
	//===============
	// Maximum number of crawl worker goroutines processing URLs concurrently;
	// it does not control OS threads or CPU parallelism.
	concurrency int
	// Minimum, fixed waiting time you enforce between two HTTP requests to the same host.
	baseDelay time.Duration
	// Randomized variation added on top of the base delay.
	// Intentional randomness applied to timing.
	jitter time.Duration
	// Controls the random number generator
	randomSeed int64
	// maximum attempt during retry
	maxAttempt int
	// initial delay for backoff
	backoffInitialDuration time.Duration
	// multiplier during exponential backoff
	backoffMultiplier float64
	// capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration

	//===============
	// Fetch
	//===============
	// Maximum time of a single fetch request
	timeout time.Duration
	// User agent that will be used in the request header. In raw string
	userAgent string

	//===============
	// Output
	//===============
	// Root directory in which to store the archived pages and assets
	outputDir string
	// Whether the program will simulates what it would do without
	// actually performing any irreversible or side-effecting actions
	dryRun bool

	//===============
	// Extraction
	//===============
	// BodySpecificityBias is the threshold for preferring a child container over <body>.
	// If a child node's score is >= BodySpecificityBias * bodyScore, the child is preferred.
	// Default: 0.75 (75%)
	bodySpecificityBias float64
	// LinkDensityThreshold is the maximum ratio of link text to total text before
	// applying a penalty. Higher values allow more link-heavy content.
	// Default: 0.80 (80%)
	linkDensityThreshold float64
	// ScoreMultiplierNonWhitespaceDivisor is the divisor for calculating text score.
	// Score gets +1 point per NonWhitespaceDivisor characters.
	// Default: 50.0
	scoreMultiplierNonWhitespaceDivisor float64
	// ScoreMultiplierParagraphs is the score multiplier for each paragraph element.
	// Default: 5.0
	scoreMultiplierParagraphs float64
	// ScoreMultiplierHeadings is the score multiplier for each heading element (h1-h3).
	// Default: 10.0
	scoreMultiplierHeadings float64
	// ScoreMultiplierCodeBlocks is the score multiplier for each code block.
	// Default: 15.0
	scoreMultiplierCodeBlocks float64
	// ScoreMultiplierListItems is the score multiplier for each list item.
	// Default: 2.0
	scoreMultiplierListItems float64
	// ThresholdMinNonWhitespace is the minimum number of non-whitespace characters
	// required for content to be considered meaningful.
	// Default: 50
	thresholdMinNonWhitespace int
	// ThresholdMinHeadings is the minimum number of headings required.
	// Headings are optional but valuable.
	// Default: 0
	thresholdMinHeadings int
	// ThresholdMinParagraphsOrCode is the minimum number of paragraphs OR code blocks
	// required for content to be considered meaningful.
	// Default: 1
	thresholdMinParagraphsOrCode int
	// ThresholdMaxLinkDensity is the maximum ratio of link text to total text before
	// content is considered navigation-only and rejected.
	// Default: 0.8 (80%)
	thresholdMaxLinkDensity float64

	//===============
	// Concurrency sizing (C7)
	//===============
	// MaxConcurrency is an operator-configured hard ceiling on
	// effectiveConcurrency, independent of what free memory would allow.
	maxConcurrency int
	// MBPerPage estimates the memory footprint of one concurrent page
	// fetch+rewrite, used to derive maxByMemory from free host memory.
	mbPerPage int
	// MBPerBrowser estimates one headless browser instance's footprint,
	// used to derive maxBrowsersByMemory.
	mbPerBrowser int
	// MemoryBufferGB is held back from freeGB before sizing, so the
	// crawler never plans to consume every last free byte on the host.
	memoryBufferGB float64
	// PagesPerBrowser is the target worker-to-browser ratio feeding
	// desiredBrowsers.
	pagesPerBrowser int
	// MaxBrowsersByMemory caps numBrowsers independent of CPU count.
	maxBrowsersByMemory int
	// DisableResourceChecks skips the CPU/memory-derived ceilings on
	// effectiveConcurrency and numBrowsers, leaving only the requested
	// value and the operator-configured hard ceilings in effect.
	disableResourceChecks bool
	// OverrideConcurrency, when positive, pins effectiveConcurrency
	// directly and bypasses every sizing formula for it.
	overrideConcurrency int
	// OverrideBrowsers, when positive, pins numBrowsers directly and
	// bypasses every sizing formula for it.
	overrideBrowsers int

	//===============
	// Link discovery
	//===============
	// SitemapOnly restricts the crawl to URLs discovered via C1; no
	// same-origin link scanning is performed after a page is processed.
	sitemapOnly bool
	// DiscoverLinks enables same-origin link scanning of each
	// successfully processed page, feeding newly found URLs back into
	// the frontier. Has no effect when SitemapOnly is true.
	discoverLinks bool

	//===============
	// Assets (C3)
	//===============
	// MaxAssetSize bounds a single downloaded asset, in bytes. 0 means
	// unlimited.
	maxAssetSize int64
	// AssetHashAlgo selects the content-addressing hash C3 dedups
	// downloaded assets by.
	assetHashAlgo string
	// AssetBlacklist is the set of host/path rules (see
	// internal/assets.Blacklist grammar) that are never downloaded
	// regardless of which site is being crawled.
	assetBlacklist []string
	// ExcludePatterns uses the same rule grammar as AssetBlacklist
	// (exact/prefix*/domain:) but gates page admission into the
	// frontier instead of asset downloads.
	excludePatterns []string

	//===============
	// Resume & completion
	//===============
	// StateFilePath is where the crawl's resumable progress is
	// persisted between runs. Empty disables state persistence.
	stateFilePath string
	// Resume skips URLs already recorded as succeeded in the state
	// file from a prior run of the same crawl.
	resume bool
	// RetryFailed restricts the crawl to URLs recorded as failed in
	// the state file from a prior run, ignoring seeds and sitemap
	// discovery.
	retryFailed bool
	// RedirectsCSVPath, if set, is parsed into the output config's
	// redirect rules.
	redirectsCSVPath string
	// StateFlushBatchSize bounds how many processed pages accumulate
	// between C6 state flushes. 0 falls back to the default of 20.
	stateFlushBatchSize int
}

type configDTO struct {
	SeedURLs               []url.URL           `json:"seedUrls"`
	AllowedHosts           map[string]struct{} `json:"allowedHosts,omitempty"`
	AllowedPathPrefix      []string            `json:"allowedPathPrefix,omitempty"`
	MaxDepth               int                 `json:"maxDepth,omitempty"`
	MaxPages               int                 `json:"maxPages,omitempty"`
	Concurrency            int                 `json:"concurrency,omitempty"`
	BaseDelay              time.Duration       `json:"baseDelay,omitempty"`
	Jitter                 time.Duration       `json:"jitter,omitempty"`
	RandomSeed             int64               `json:"randomSeed,omitempty"`
	MaxAttempt             int                 `json:"maxAttempt,omitempty"`
	BackoffInitialDuration time.Duration       `json:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64             `json:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     time.Duration       `json:"backoffMaxDuration,omitempty"`
	Timeout                time.Duration       `json:"timeout,omitempty"`
	UserAgent              string              `json:"userAgent,omitempty"`
	OutputDir              string              `json:"outputDir,omitempty"`
	DryRun                 bool                `json:"dryRun,omitempty"`
	// Extraction parameters
	BodySpecificityBias                 float64 `json:"bodySpecificityBias,omitempty"`
	LinkDensityThreshold                float64 `json:"linkDensityThreshold,omitempty"`
	ScoreMultiplierNonWhitespaceDivisor float64 `json:"scoreMultiplierNonWhitespaceDivisor,omitempty"`
	ScoreMultiplierParagraphs           float64 `json:"scoreMultiplierParagraphs,omitempty"`
	ScoreMultiplierHeadings             float64 `json:"scoreMultiplierHeadings,omitempty"`
	ScoreMultiplierCodeBlocks           float64 `json:"scoreMultiplierCodeBlocks,omitempty"`
	ScoreMultiplierListItems            float64 `json:"scoreMultiplierListItems,omitempty"`
	ThresholdMinNonWhitespace           int     `json:"thresholdMinNonWhitespace,omitempty"`
	ThresholdMinHeadings                int     `json:"thresholdMinHeadings,omitempty"`
	ThresholdMinParagraphsOrCode        int     `json:"thresholdMinParagraphsOrCode,omitempty"`
	ThresholdMaxLinkDensity             float64 `json:"thresholdMaxLinkDensity,omitempty"`
	MaxConcurrency                      int     `json:"maxConcurrency,omitempty"`
	MBPerPage                           int     `json:"mbPerPage,omitempty"`
	MBPerBrowser                        int     `json:"mbPerBrowser,omitempty"`
	MemoryBufferGB                      float64 `json:"memoryBufferGB,omitempty"`
	PagesPerBrowser                     int     `json:"pagesPerBrowser,omitempty"`
	MaxBrowsersByMemory                 int     `json:"maxBrowsersByMemory,omitempty"`
	DisableResourceChecks               bool    `json:"disableResourceChecks,omitempty"`
	OverrideConcurrency                 int     `json:"overrideConcurrency,omitempty"`
	OverrideBrowsers                    int     `json:"overrideBrowsers,omitempty"`
	SitemapOnly                         bool    `json:"sitemapOnly,omitempty"`
	DiscoverLinks                       bool    `json:"discoverLinks,omitempty"`
	MaxAssetSize                        int64    `json:"maxAssetSize,omitempty"`
	AssetHashAlgo                       string   `json:"assetHashAlgo,omitempty"`
	AssetBlacklist                      []string `json:"assetBlacklist,omitempty"`
	ExcludePatterns                     []string `json:"excludePatterns,omitempty"`
	StateFilePath                       string   `json:"stateFilePath,omitempty"`
	Resume                              bool     `json:"resume,omitempty"`
	RetryFailed                         bool     `json:"retryFailed,omitempty"`
	RedirectsCSVPath                    string   `json:"redirectsCsvPath,omitempty"`
	StateFlushBatchSize                 int      `json:"stateFlushBatchSize,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {

	// Start with default config
	cfg, err := WithDefault(dto.SeedURLs).Build()
	if err != nil {
		return Config{}, err
	}

	// AllowedHosts can be empty - if so, default to seed URLs hostnames
	if len(dto.AllowedHosts) > 0 {
		cfg.allowedHosts = dto.AllowedHosts
	}

	// AllowedPathPrefix can be empty - always use DTO values
	cfg.allowedPathPrefix = dto.AllowedPathPrefix

	// For other fields, only override if non-zero value is provided
	if dto.MaxDepth != 0 {
		cfg.maxDepth = dto.MaxDepth
	}
	if dto.MaxPages != 0 {
		cfg.maxPages = dto.MaxPages
	}
	if dto.Concurrency != 0 {
		cfg.concurrency = dto.Concurrency
	}
	if dto.BaseDelay != 0 {
		cfg.baseDelay = dto.BaseDelay
	}
	if dto.Jitter != 0 {
		cfg.jitter = dto.Jitter
	}
	if dto.RandomSeed != 0 {
		cfg.randomSeed = dto.RandomSeed
	}
	if dto.MaxAttempt != 0 {
		cfg.maxAttempt = dto.MaxAttempt
	}
	if dto.BackoffInitialDuration != 0 {
		cfg.backoffInitialDuration = dto.BackoffInitialDuration
	}
	if dto.BackoffMultiplier != 0 {
		cfg.backoffMultiplier = dto.BackoffMultiplier
	}
	if dto.BackoffMaxDuration != 0 {
		cfg.backoffMaxDuration = dto.BackoffMaxDuration
	}

	if dto.Timeout != 0 {
		cfg.timeout = dto.Timeout
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	if dto.OutputDir != "" {
		cfg.outputDir = dto.OutputDir
	}
	// DryRun is a boolean, check if explicitly set (we use the DTO value as-is since bool zero value is false)
	cfg.dryRun = dto.DryRun

	// Extraction parameters - only override if non-zero value is provided
	// For float64, we check if value is not 0 (which is also the zero value)
	if dto.BodySpecificityBias != 0 {
		cfg.bodySpecificityBias = dto.BodySpecificityBias
	}
	if dto.LinkDensityThreshold != 0 {
		cfg.linkDensityThreshold = dto.LinkDensityThreshold
	}
	if dto.ScoreMultiplierNonWhitespaceDivisor != 0 {
		cfg.scoreMultiplierNonWhitespaceDivisor = dto.ScoreMultiplierNonWhitespaceDivisor
	}
	if dto.ScoreMultiplierParagraphs != 0 {
		cfg.scoreMultiplierParagraphs = dto.ScoreMultiplierParagraphs
	}
	if dto.ScoreMultiplierHeadings != 0 {
		cfg.scoreMultiplierHeadings = dto.ScoreMultiplierHeadings
	}
	if dto.ScoreMultiplierCodeBlocks != 0 {
		cfg.scoreMultiplierCodeBlocks = dto.ScoreMultiplierCodeBlocks
	}
	if dto.ScoreMultiplierListItems != 0 {
		cfg.scoreMultiplierListItems = dto.ScoreMultiplierListItems
	}
	if dto.ThresholdMinNonWhitespace != 0 {
		cfg.thresholdMinNonWhitespace = dto.ThresholdMinNonWhitespace
	}
	// Note: ThresholdMinHeadings can be 0 (which is a valid value), so we don't check for non-zero
	cfg.thresholdMinHeadings = dto.ThresholdMinHeadings
	if dto.ThresholdMinParagraphsOrCode != 0 {
		cfg.thresholdMinParagraphsOrCode = dto.ThresholdMinParagraphsOrCode
	}
	if dto.ThresholdMaxLinkDensity != 0 {
		cfg.thresholdMaxLinkDensity = dto.ThresholdMaxLinkDensity
	}
	if dto.MaxConcurrency != 0 {
		cfg.maxConcurrency = dto.MaxConcurrency
	}
	if dto.MBPerPage != 0 {
		cfg.mbPerPage = dto.MBPerPage
	}
	if dto.MBPerBrowser != 0 {
		cfg.mbPerBrowser = dto.MBPerBrowser
	}
	if dto.MemoryBufferGB != 0 {
		cfg.memoryBufferGB = dto.MemoryBufferGB
	}
	if dto.PagesPerBrowser != 0 {
		cfg.pagesPerBrowser = dto.PagesPerBrowser
	}
	if dto.MaxBrowsersByMemory != 0 {
		cfg.maxBrowsersByMemory = dto.MaxBrowsersByMemory
	}
	cfg.disableResourceChecks = dto.DisableResourceChecks
	if dto.OverrideConcurrency != 0 {
		cfg.overrideConcurrency = dto.OverrideConcurrency
	}
	if dto.OverrideBrowsers != 0 {
		cfg.overrideBrowsers = dto.OverrideBrowsers
	}
	cfg.sitemapOnly = dto.SitemapOnly
	cfg.discoverLinks = dto.DiscoverLinks

	if dto.MaxAssetSize != 0 {
		cfg.maxAssetSize = dto.MaxAssetSize
	}
	if dto.AssetHashAlgo != "" {
		cfg.assetHashAlgo = dto.AssetHashAlgo
	}
	if len(dto.AssetBlacklist) > 0 {
		cfg.assetBlacklist = dto.AssetBlacklist
	}
	if len(dto.ExcludePatterns) > 0 {
		cfg.excludePatterns = dto.ExcludePatterns
	}
	if dto.StateFilePath != "" {
		cfg.stateFilePath = dto.StateFilePath
	}
	cfg.resume = dto.Resume
	cfg.retryFailed = dto.RetryFailed
	if dto.RedirectsCSVPath != "" {
		cfg.redirectsCSVPath = dto.RedirectsCSVPath
	}
	if dto.StateFlushBatchSize != 0 {
		cfg.stateFlushBatchSize = dto.StateFlushBatchSize
	}

	return cfg, nil
}

func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	cfgDTO := configDTO{}

	err = json.Unmarshal(configContent, &cfgDTO)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	cfg, err := newConfigFromDTO(cfgDTO)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WithDefault creates a new Config with the provided seed URLs and default values for all other fields.
// seedUrls is mandatory and must not be empty - Build returns an error if it is.
func WithDefault(seedUrls []url.URL) *Config {
	defaultConfig := Config{
		seedURLs:     seedUrls,
		allowedHosts: map[string]struct{}{},
		allowedPathPrefix: []string{
			"/",
		},
		maxDepth:               3,
		maxPages:               100,
		concurrency:            10,
		baseDelay:              time.Second,
		jitter:                 time.Millisecond * 500,
		randomSeed:             time.Now().UnixNano(),
		maxAttempt:             10,
		backoffInitialDuration: 100 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     10 * time.Second,
		timeout:                time.Second * 10,
		userAgent:              "docs-crawler/1.0",
		outputDir:              "output",
		dryRun:                 false,
		// Extraction defaults
		bodySpecificityBias:                 0.75,
		linkDensityThreshold:                0.80,
		scoreMultiplierNonWhitespaceDivisor: 50.0,
		scoreMultiplierParagraphs:           5.0,
		scoreMultiplierHeadings:             10.0,
		scoreMultiplierCodeBlocks:           15.0,
		scoreMultiplierListItems:            2.0,
		thresholdMinNonWhitespace:           50,
		thresholdMinHeadings:                0,
		thresholdMinParagraphsOrCode:        1,
		thresholdMaxLinkDensity:             0.8,
		maxConcurrency:                      16,
		mbPerPage:                           64,
		mbPerBrowser:                        512,
		memoryBufferGB:                      1.0,
		pagesPerBrowser:                     4,
		maxBrowsersByMemory:                 8,
		sitemapOnly:                         false,
		discoverLinks:                       true,
		maxAssetSize:                        20 * 1024 * 1024,
		assetHashAlgo:                       "sha256",
		stateFilePath:                       "",
		resume:                              false,
		retryFailed:                         false,
		redirectsCSVPath:                    "",
		stateFlushBatchSize:                 20,
	}
	return &defaultConfig
}

func (c *Config) WithSeedUrls(urls []url.URL) *Config {
	c.seedURLs = urls
	return c
}

func (c *Config) WithAllowedHosts(hosts map[string]struct{}) *Config {
	c.allowedHosts = hosts
	return c
}

func (c *Config) WithAllowedPathPrefix(prefixes []string) *Config {
	c.allowedPathPrefix = prefixes
	return c
}

func (c *Config) WithMaxDepth(depth int) *Config {
	c.maxDepth = depth
	return c
}

func (c *Config) WithMaxPages(pages int) *Config {
	c.maxPages = pages
	return c
}

func (c *Config) WithConcurrency(concurrency int) *Config {
	c.concurrency = concurrency
	return c
}

func (c *Config) WithBaseDelay(delay time.Duration) *Config {
	c.baseDelay = delay
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithOutputDir(outputDir string) *Config {
	c.outputDir = outputDir
	return c
}

func (c *Config) WithDryRun(dryRun bool) *Config {
	c.dryRun = dryRun
	return c
}

func (c *Config) WithBodySpecificityBias(bias float64) *Config {
	c.bodySpecificityBias = bias
	return c
}

func (c *Config) WithLinkDensityThreshold(threshold float64) *Config {
	c.linkDensityThreshold = threshold
	return c
}

func (c *Config) WithScoreMultiplierNonWhitespaceDivisor(divisor float64) *Config {
	c.scoreMultiplierNonWhitespaceDivisor = divisor
	return c
}

func (c *Config) WithScoreMultiplierParagraphs(multiplier float64) *Config {
	c.scoreMultiplierParagraphs = multiplier
	return c
}

func (c *Config) WithScoreMultiplierHeadings(multiplier float64) *Config {
	c.scoreMultiplierHeadings = multiplier
	return c
}

func (c *Config) WithScoreMultiplierCodeBlocks(multiplier float64) *Config {
	c.scoreMultiplierCodeBlocks = multiplier
	return c
}

func (c *Config) WithScoreMultiplierListItems(multiplier float64) *Config {
	c.scoreMultiplierListItems = multiplier
	return c
}

func (c *Config) WithThresholdMinNonWhitespace(min int) *Config {
	c.thresholdMinNonWhitespace = min
	return c
}

func (c *Config) WithThresholdMinHeadings(min int) *Config {
	c.thresholdMinHeadings = min
	return c
}

func (c *Config) WithThresholdMinParagraphsOrCode(min int) *Config {
	c.thresholdMinParagraphsOrCode = min
	return c
}

func (c *Config) WithThresholdMaxLinkDensity(max float64) *Config {
	c.thresholdMaxLinkDensity = max
	return c
}

func (c *Config) WithMaxConcurrency(max int) *Config {
	c.maxConcurrency = max
	return c
}

func (c *Config) WithMBPerPage(mb int) *Config {
	c.mbPerPage = mb
	return c
}

func (c *Config) WithMBPerBrowser(mb int) *Config {
	c.mbPerBrowser = mb
	return c
}

func (c *Config) WithMemoryBufferGB(gb float64) *Config {
	c.memoryBufferGB = gb
	return c
}

func (c *Config) WithPagesPerBrowser(n int) *Config {
	c.pagesPerBrowser = n
	return c
}

func (c *Config) WithMaxBrowsersByMemory(n int) *Config {
	c.maxBrowsersByMemory = n
	return c
}

func (c *Config) WithDisableResourceChecks(disable bool) *Config {
	c.disableResourceChecks = disable
	return c
}

func (c *Config) WithOverrideConcurrency(n int) *Config {
	c.overrideConcurrency = n
	return c
}

func (c *Config) WithOverrideBrowsers(n int) *Config {
	c.overrideBrowsers = n
	return c
}

func (c *Config) WithSitemapOnly(sitemapOnly bool) *Config {
	c.sitemapOnly = sitemapOnly
	return c
}

func (c *Config) WithDiscoverLinks(discoverLinks bool) *Config {
	c.discoverLinks = discoverLinks
	return c
}

func (c *Config) WithMaxAssetSize(maxAssetSize int64) *Config {
	c.maxAssetSize = maxAssetSize
	return c
}

func (c *Config) WithAssetHashAlgo(algo string) *Config {
	c.assetHashAlgo = algo
	return c
}

func (c *Config) WithAssetBlacklist(rules []string) *Config {
	c.assetBlacklist = rules
	return c
}

func (c *Config) WithExcludePatterns(rules []string) *Config {
	c.excludePatterns = rules
	return c
}

func (c *Config) WithStateFilePath(path string) *Config {
	c.stateFilePath = path
	return c
}

func (c *Config) WithResume(resume bool) *Config {
	c.resume = resume
	return c
}

func (c *Config) WithRetryFailed(retryFailed bool) *Config {
	c.retryFailed = retryFailed
	return c
}

func (c *Config) WithRedirectsCSVPath(path string) *Config {
	c.redirectsCSVPath = path
	return c
}

func (c *Config) WithStateFlushBatchSize(n int) *Config {
	c.stateFlushBatchSize = n
	return c
}

func (c *Config) Build() (Config, error) {
	if len(c.seedURLs) == 0 {
		return Config{}, fmt.Errorf("%w: seedUrls cannot be empty", ErrInvalidConfig)
	}

	// If allowedHosts is empty, default to seed URLs hostnames
	if len(c.allowedHosts) == 0 {
		c.allowedHosts = make(map[string]struct{})
		for _, u := range c.seedURLs {
			if u.Host != "" {
				c.allowedHosts[u.Host] = struct{}{}
			}
		}
	}

	return *c, nil
}

func (c Config) SeedURLs() []url.URL {
	urls := make([]url.URL, len(c.seedURLs))
	copy(urls, c.seedURLs)
	return urls
}

func (c Config) AllowedHosts() map[string]struct{} {
	hosts := make(map[string]struct{})
	for k, v := range c.allowedHosts {
		hosts[k] = v
	}
	return hosts
}

func (c Config) AllowedPathPrefix() []string {
	prefixes := make([]string, len(c.allowedPathPrefix))
	copy(prefixes, c.allowedPathPrefix)
	return prefixes
}

func (c Config) MaxDepth() int {
	return c.maxDepth
}

func (c Config) MaxPages() int {
	return c.maxPages
}

func (c Config) Concurrency() int {
	return c.concurrency
}

func (c Config) BaseDelay() time.Duration {
	return c.baseDelay
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) OutputDir() string {
	return c.outputDir
}

func (c Config) DryRun() bool {
	return c.dryRun
}

func (c Config) MaxAttempt() int {
	return c.maxAttempt
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}

func (c Config) BodySpecificityBias() float64 {
	return c.bodySpecificityBias
}

func (c Config) LinkDensityThreshold() float64 {
	return c.linkDensityThreshold
}

func (c Config) ScoreMultiplierNonWhitespaceDivisor() float64 {
	return c.scoreMultiplierNonWhitespaceDivisor
}

func (c Config) ScoreMultiplierParagraphs() float64 {
	return c.scoreMultiplierParagraphs
}

func (c Config) ScoreMultiplierHeadings() float64 {
	return c.scoreMultiplierHeadings
}

func (c Config) ScoreMultiplierCodeBlocks() float64 {
	return c.scoreMultiplierCodeBlocks
}

func (c Config) ScoreMultiplierListItems() float64 {
	return c.scoreMultiplierListItems
}

func (c Config) ThresholdMinNonWhitespace() int {
	return c.thresholdMinNonWhitespace
}

func (c Config) ThresholdMinHeadings() int {
	return c.thresholdMinHeadings
}

func (c Config) ThresholdMinParagraphsOrCode() int {
	return c.thresholdMinParagraphsOrCode
}

func (c Config) ThresholdMaxLinkDensity() float64 {
	return c.thresholdMaxLinkDensity
}

func (c Config) MaxConcurrency() int {
	return c.maxConcurrency
}

func (c Config) MBPerPage() int {
	return c.mbPerPage
}

func (c Config) MBPerBrowser() int {
	return c.mbPerBrowser
}

func (c Config) MemoryBufferGB() float64 {
	return c.memoryBufferGB
}

func (c Config) PagesPerBrowser() int {
	return c.pagesPerBrowser
}

func (c Config) MaxBrowsersByMemory() int {
	return c.maxBrowsersByMemory
}

func (c Config) DisableResourceChecks() bool {
	return c.disableResourceChecks
}

func (c Config) OverrideConcurrency() int {
	return c.overrideConcurrency
}

func (c Config) OverrideBrowsers() int {
	return c.overrideBrowsers
}

func (c Config) SitemapOnly() bool {
	return c.sitemapOnly
}

func (c Config) DiscoverLinks() bool {
	return c.discoverLinks
}

func (c Config) MaxAssetSize() int64 {
	return c.maxAssetSize
}

func (c Config) AssetHashAlgo() string {
	return c.assetHashAlgo
}

func (c Config) AssetBlacklist() []string {
	return c.assetBlacklist
}

func (c Config) ExcludePatterns() []string {
	return c.excludePatterns
}

func (c Config) StateFilePath() string {
	return c.stateFilePath
}

func (c Config) Resume() bool {
	return c.resume
}

func (c Config) RetryFailed() bool {
	return c.retryFailed
}

func (c Config) RedirectsCSVPath() string {
	return c.redirectsCSVPath
}

func (c Config) StateFlushBatchSize() int {
	if c.stateFlushBatchSize <= 0 {
		return 20
	}
	return c.stateFlushBatchSize
}
