package runtimeconfig

import (
	"os"
	"strconv"
	"time"
)

/*
Responsibilities
- Read the process-wide settings archiverd needs before any Site
  exists: where the database and working directories live, which
  Redis to dial, how many jobs to run at once
- Translate the crawl-tuning environment variables (spec.md §6
  EXTERNAL INTERFACES) into internal/config.Config defaults every
  per-site crawl config is built from

This is deliberately not a file-based config like internal/config's
configDTO: every name here is an env var a deployment sets once per
process, not a per-crawl knob a CLI flag overrides per invocation.
*/

// RuntimeConfig is the process-level configuration read once at
// startup from the environment.
type RuntimeConfig struct {
	RedisAddr   string
	DataDir     string
	StorageRoot string
	TempDir     string

	WorkerConcurrency int

	AssetCacheEnabled          bool
	MaxCrawlConcurrency        int
	CrawlMemoryBufferGB        float64
	CrawlMemoryMBPerPage       int
	CrawlMemoryMBPerBrowser    int
	CrawlOverrideConcurrency   int
	CrawlOverrideBrowsers      int
	CrawlDisableResourceChecks bool
	CrawlPagesPerBrowser       int
	CrawlStateFlushBatchSize   int
	CrawlPageMaxRetries        int
	CrawlPageRetryDelay        time.Duration
}

// Load reads RuntimeConfig from the environment, defaulting every
// value a fresh deployment can run without setting.
func Load() RuntimeConfig {
	return RuntimeConfig{
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		DataDir:     getEnv("DATA_DIR", "./data/db"),
		StorageRoot: getEnv("STORAGE_ROOT", "./data/archives"),
		TempDir:     getEnv("LOCAL_TEMP_PATH", "./data/tmp"),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 2),

		AssetCacheEnabled:          getEnvBool("ASSET_CACHE_ENABLED", true),
		MaxCrawlConcurrency:        getEnvInt("MAX_CRAWL_CONCURRENCY", 16),
		CrawlMemoryBufferGB:        getEnvFloat("CRAWL_MEMORY_BUFFER_GB", 1.0),
		CrawlMemoryMBPerPage:       getEnvInt("CRAWL_MEMORY_MB_PER_PAGE", 64),
		CrawlMemoryMBPerBrowser:    getEnvInt("CRAWL_MEMORY_MB_PER_BROWSER", 512),
		CrawlOverrideConcurrency:   getEnvInt("CRAWL_OVERRIDE_CONCURRENCY", 0),
		CrawlOverrideBrowsers:      getEnvInt("CRAWL_OVERRIDE_BROWSERS", 0),
		CrawlDisableResourceChecks: getEnvBool("CRAWL_DISABLE_RESOURCE_CHECKS", false),
		CrawlPagesPerBrowser:       getEnvInt("CRAWL_PAGES_PER_BROWSER", 4),
		CrawlStateFlushBatchSize:   getEnvInt("CRAWL_STATE_FLUSH_BATCH_SIZE", 20),
		CrawlPageMaxRetries:        getEnvInt("CRAWL_PAGE_MAX_RETRIES", 10),
		CrawlPageRetryDelay:        time.Duration(getEnvInt("CRAWL_PAGE_RETRY_DELAY_MS", 100)) * time.Millisecond,
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}
