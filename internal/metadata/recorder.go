package metadata

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"
)

/*
Metadata Collected
- Fetch timestamps
- HTTP status codes
- Content hashes
- Crawl depth
- Asset fetches and written artifacts
- Final, terminal crawl stats

Logging Goals
- Debuggable crawl behavior
- Post-run auditability
- Failure diagnostics

Structured logging is preferred: every Record* call is mirrored as one
structured log line through arbor, never assembled into free text first.

Allowed:
- Primitive values
- Timestamps
- URLs (as values, not objects with behavior)
- Hashes
- Status codes
- Durations
- Identifiers (page ID, crawl ID)

Recording is observational only: nothing in this package returns an error
or a decision that a caller could use to alter control flow. Callers that
need a control-flow decision (retry, abort, fail) must derive it from
pkg/failure.ClassifiedError, never from a Record* call.
*/

// MetadataSink is the narrow interface every crawl-pipeline component
// depends on to emit observability events. It is implemented by Recorder
// and by NoopSink (for tests that don't care about observability).
type MetadataSink interface {
	RecordFetch(fetchUrl string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int)
	RecordError(observedAt time.Time, packageName string, action string, cause ErrorCause, message string, attrs []Attribute)
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
	RecordAssetFetch(assetUrl string, httpStatus int, duration time.Duration, retryCount int)
}

// CrawlFinalizer records the one, terminal summary of a completed crawl.
// Kept as a separate interface from MetadataSink (rather than folded in)
// because it is called exactly once, by exactly one owner (the crawl
// engine), after all other recording for that crawl has stopped.
type CrawlFinalizer interface {
	RecordFinalCrawlStats(totalPages int, totalErrors int, totalAssets int, durationMs int64)
}

// Recorder is the production MetadataSink/CrawlFinalizer: every call is
// mirrored to the structured logger. Errors, artifacts and the final
// stats are also kept in memory and can be read back through Errors,
// Artifacts and FinalStats; the fetch and error counts have no accessor.
type Recorder struct {
	mu     sync.Mutex
	logger arbor.ILogger

	fetches     int
	assetFetch  int
	errors      int
	artifacts   []ArtifactRecord
	errorLog    []ErrorRecord
	finalStats  *CrawlStats
}

// NewRecorder constructs a Recorder that mirrors every event to logger.
// A nil logger is replaced with a fresh arbor logger so callers never
// need a nil check.
func NewRecorder(logger arbor.ILogger) *Recorder {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &Recorder{logger: logger}
}

var _ MetadataSink = (*Recorder)(nil)
var _ CrawlFinalizer = (*Recorder)(nil)

func (r *Recorder) RecordFetch(fetchUrl string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int) {
	r.mu.Lock()
	r.fetches++
	r.mu.Unlock()

	r.logger.Debug().
		Str("url", fetchUrl).
		Int("status", httpStatus).
		Int64("duration_ms", duration.Milliseconds()).
		Str("content_type", contentType).
		Int("retries", retryCount).
		Int("depth", crawlDepth).
		Msg("fetch")
}

func (r *Recorder) RecordError(observedAt time.Time, packageName string, action string, cause ErrorCause, message string, attrs []Attribute) {
	r.mu.Lock()
	r.errors++
	r.errorLog = append(r.errorLog, ErrorRecord{
		PackageName: packageName,
		Action:      action,
		Cause:       cause,
		ErrorString: message,
		ObservedAt:  observedAt,
		Attrs:       attrs,
	})
	r.mu.Unlock()

	event := r.logger.Warn().
		Str("package", packageName).
		Str("action", action).
		Str("cause", cause.String()).
		Str("message", message)
	for _, a := range attrs {
		event = event.Str(string(a.Key), a.Value)
	}
	event.Msg("error")
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	r.mu.Lock()
	r.artifacts = append(r.artifacts, ArtifactRecord{Kind: kind, Path: path, Attrs: attrs})
	r.mu.Unlock()

	event := r.logger.Debug().
		Str("kind", kind.String()).
		Str("path", path)
	for _, a := range attrs {
		event = event.Str(string(a.Key), a.Value)
	}
	event.Msg("artifact")
}

func (r *Recorder) RecordAssetFetch(assetUrl string, httpStatus int, duration time.Duration, retryCount int) {
	r.mu.Lock()
	r.assetFetch++
	r.mu.Unlock()

	r.logger.Debug().
		Str("asset_url", assetUrl).
		Int("status", httpStatus).
		Int64("duration_ms", duration.Milliseconds()).
		Int("retries", retryCount).
		Msg("asset_fetch")
}

func (r *Recorder) RecordFinalCrawlStats(totalPages int, totalErrors int, totalAssets int, durationMs int64) {
	r.mu.Lock()
	r.finalStats = &CrawlStats{
		TotalPages:  totalPages,
		TotalErrors: totalErrors,
		TotalAssets: totalAssets,
		DurationMs:  durationMs,
	}
	r.mu.Unlock()

	r.logger.Info().
		Int("total_pages", totalPages).
		Int("total_errors", totalErrors).
		Int("total_assets", totalAssets).
		Int64("duration_ms", durationMs).
		Msg("crawl_complete")
}

// Errors returns a snapshot of every error recorded so far.
func (r *Recorder) Errors() []ErrorRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ErrorRecord, len(r.errorLog))
	copy(out, r.errorLog)
	return out
}

// Artifacts returns a snapshot of every artifact recorded so far.
func (r *Recorder) Artifacts() []ArtifactRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ArtifactRecord, len(r.artifacts))
	copy(out, r.artifacts)
	return out
}

// FinalStats returns the terminal crawl summary, or nil if the crawl has
// not completed yet.
func (r *Recorder) FinalStats() *CrawlStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalStats
}

// NoopSink discards every event. Used by tests that exercise a component
// in isolation and don't want to assert on observability traffic.
type NoopSink struct{}

var _ MetadataSink = NoopSink{}
var _ CrawlFinalizer = NoopSink{}

func (NoopSink) RecordFetch(string, int, time.Duration, string, int, int)          {}
func (NoopSink) RecordError(time.Time, string, string, ErrorCause, string, []Attribute) {}
func (NoopSink) RecordArtifact(ArtifactKind, string, []Attribute)                   {}
func (NoopSink) RecordAssetFetch(string, int, time.Duration, int)                  {}
func (NoopSink) RecordFinalCrawlStats(int, int, int, int64)                        {}
