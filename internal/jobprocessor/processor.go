package jobprocessor

import (
	"context"
	"path/filepath"
	"time"

	"github.com/archivekit/webarchiver/internal/crawlengine"
	"github.com/archivekit/webarchiver/internal/storage"
	"github.com/archivekit/webarchiver/internal/store"
	"github.com/archivekit/webarchiver/pkg/failure"
	"github.com/ternarybob/arbor"
)

/*
Responsibilities
- Own the pending -> running -> uploading -> completed|failed|cancelled
  transitions for exactly the crawl it dequeued
- Fan C7's progress/log callbacks into CrawlLog rows and the
  crawl:<id> pub/sub channel
- Finalize a successful crawl: move its working tree into place,
  build its ZIP sibling, and apply per-site retention

Ownership
- A Crawl is owned end-to-end by the single processor instance that
  dequeued it. Cancellation is observed cooperatively: a background
  poll re-reads the Crawl row's status and cancels the run context,
  which C7's workers see through their shouldAbort check.
*/

// Crawler is the one method this package needs from C7. *crawlengine.Engine
// satisfies it without modification; tests substitute a fake.
type Crawler interface {
	Run(ctx context.Context) (crawlengine.CompletionStats, failure.ClassifiedError)
}

// EngineFactory builds the Crawler for one job, given the Site/Crawl
// pair and the output directory C7 should write into. The processor
// supplies progressSink/logSink; the factory wires them into
// crawlengine.NewEngine alongside whatever C1-C6 construction the
// caller needs. This is the seam between C9 (state machine,
// persistence, queue) and everything C7 depends on, which this
// package has no reason to know how to construct.
type EngineFactory func(
	ctx context.Context,
	site store.Site,
	crawl store.Crawl,
	outputDir string,
	progressSink crawlengine.ProgressSink,
	logSink crawlengine.LogSink,
) (Crawler, failure.ClassifiedError)

// Processor is C9: the queue consumer that drives one crawl at a time
// (per goroutine) from dequeue through to a terminal status.
type Processor struct {
	sites   *store.SiteStore
	crawls  *store.CrawlStore
	logs    *store.CrawlLogStore
	sink    storage.Sink
	queue   *Queue
	pub     *Publisher
	engines EngineFactory
	workDir string
	logger  arbor.ILogger
}

func NewProcessor(
	sites *store.SiteStore,
	crawls *store.CrawlStore,
	logs *store.CrawlLogStore,
	sink storage.Sink,
	queue *Queue,
	pub *Publisher,
	engines EngineFactory,
	workDir string,
	logger arbor.ILogger,
) *Processor {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &Processor{
		sites:   sites,
		crawls:  crawls,
		logs:    logs,
		sink:    sink,
		queue:   queue,
		pub:     pub,
		engines: engines,
		workDir: workDir,
		logger:  logger,
	}
}

// Run blocks, dequeuing and processing one job at a time, until ctx is
// cancelled. A caller wanting N concurrent jobs runs N processors
// sharing the same Queue: BLPOP's fairness distributes work across
// them without any coordination this package needs to provide.
func (p *Processor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		envelope, ok, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Warn().Err(err).Msg("dequeue failed, retrying")
			continue
		}
		if !ok {
			continue
		}

		if err := p.processJob(ctx, envelope); err != nil {
			p.logger.Warn().Err(err).Str("crawlId", envelope.CrawlID).Msg("job processing failed")
		}
	}
}

// processJob runs the full per-job sequence for one dequeued envelope.
func (p *Processor) processJob(ctx context.Context, envelope JobEnvelope) error {
	site, err := p.sites.Get(envelope.SiteID)
	if err != nil {
		return wrapf(ErrCauseSiteNotFound, "%v", err)
	}

	crawl, err := p.crawls.Get(envelope.CrawlID)
	if err != nil {
		return wrapf(ErrCauseCrawlNotFound, "%v", err)
	}

	// Step 1: a crawl already moved past pending (e.g. cancelled while
	// queued) is acked and dropped without re-running it.
	if crawl.Status != store.CrawlStatusPending {
		return nil
	}

	// Step 2: transition to running, set startedAt, create the
	// crawl's temp working directory.
	crawl.Status = store.CrawlStatusRunning
	crawl.StartedAt = time.Now()
	if err := p.crawls.Update(crawl); err != nil {
		return wrapf(ErrCauseEngineFailure, "transition to running: %v", err)
	}

	tempDir, storeErr := p.sink.CreateTempDir(p.workDir)
	if storeErr != nil {
		return p.fail(crawl, wrapf(ErrCauseEngineFailure, "create temp dir: %v", storeErr))
	}

	// Step 3: run the crawl. Cancellation is cooperative and
	// DB-observable: a background poll watches this crawl's own row
	// for a status flip away from running and cancels runCtx, which
	// C7's worker pool sees via ctx.Err() on its next loop iteration.
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	go p.watchForCancellation(runCtx, cancelRun, crawl.ID)

	sinks := newEngineSinks(runCtx, crawl.ID, p.logs, p.pub, p.logger)
	engine, engineErr := p.engines(runCtx, site, crawl, tempDir, sinks, sinks)
	if engineErr != nil {
		return p.fail(crawl, wrapf(ErrCauseEngineFailure, "build engine: %v", engineErr))
	}

	stats, runErr := engine.Run(runCtx)
	if runErr != nil {
		if runErr.Severity() == failure.SeverityAbort {
			return p.cancel(crawl)
		}
		return p.fail(crawl, wrapf(ErrCauseEngineFailure, "%v", runErr))
	}

	crawl.TotalPages = stats.Total
	crawl.SucceededPages = stats.Succeeded
	crawl.FailedPages = stats.Failed

	// Step 4: transition to uploading, relocate the working tree,
	// build its ZIP sibling.
	crawl.Status = store.CrawlStatusUploading
	if err := p.crawls.Update(crawl); err != nil {
		return p.fail(crawl, wrapf(ErrCauseUploadFailure, "transition to uploading: %v", err))
	}

	finalDir := filepath.Join(site.StoragePath, crawl.ID)
	moveErr := p.sink.MoveToFinal(tempDir, finalDir, func(progress storage.TransferProgress) {
		p.reportUploadProgress(&crawl, progress)
	})
	if moveErr != nil {
		return p.fail(crawl, wrapf(ErrCauseUploadFailure, "move to final: %v", moveErr))
	}

	zipPath := finalDir + ".zip"
	zipSize, zipErr := buildZip(p.sink, finalDir, zipPath, func(progress storage.TransferProgress) {
		p.reportUploadProgress(&crawl, progress)
	})
	if zipErr != nil {
		return p.fail(crawl, wrapf(ErrCauseZipBuildFailed, "%v", zipErr))
	}

	outputSize, sizeErr := p.sink.GetSize(finalDir)
	if sizeErr != nil {
		outputSize = 0
	}

	// Step 5: transition to completed.
	now := time.Now()
	crawl.Status = store.CrawlStatusCompleted
	crawl.OutputPath = finalDir
	crawl.OutputSizeBytes = outputSize + zipSize
	crawl.CompletedAt = now
	if err := p.crawls.Update(crawl); err != nil {
		return wrapf(ErrCauseUploadFailure, "transition to completed: %v", err)
	}

	// Step 6: retention.
	if err := applyRetention(p.crawls, p.sink, site); err != nil {
		p.logger.Warn().Err(err).Str("siteId", site.ID).Msg("retention sweep failed")
	}

	return nil
}

// watchForCancellation polls crawlID's own row every tick until runCtx
// is done, cancelling runCtx itself the moment the row's status has
// moved away from running (the external cancel endpoint sets it to
// cancelled directly). Polling rather than pub/sub keeps this
// independent of whatever's subscribed to crawl:<id>.
func (p *Processor) watchForCancellation(runCtx context.Context, cancelRun context.CancelFunc, crawlID string) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-runCtx.Done():
			return
		case <-ticker.C:
			crawl, err := p.crawls.Get(crawlID)
			if err != nil {
				continue
			}
			if crawl.Status != store.CrawlStatusRunning {
				cancelRun()
				return
			}
		}
	}
}

func (p *Processor) reportUploadProgress(crawl *store.Crawl, progress storage.TransferProgress) {
	crawl.UploadTotalBytes = progress.TotalBytes
	crawl.UploadUploadedBytes = progress.UploadedBytes
	crawl.UploadFilesTotal = progress.FilesTotal
	crawl.UploadFilesUploaded = progress.FilesUploaded
	crawl.UploadCurrentFile = progress.CurrentFile
	if err := p.crawls.Update(*crawl); err != nil {
		p.logger.Warn().Err(err).Str("crawlId", crawl.ID).Msg("upload progress update failed")
	}
}

// fail marks crawl failed with err's message, per the taxonomy's "job
// failure" category: any uncaught error outside the per-URL scope.
func (p *Processor) fail(crawl store.Crawl, err failure.ClassifiedError) error {
	crawl.Status = store.CrawlStatusFailed
	crawl.ErrorMessage = err.Error()
	crawl.CompletedAt = time.Now()
	if updateErr := p.crawls.Update(crawl); updateErr != nil {
		p.logger.Warn().Err(updateErr).Str("crawlId", crawl.ID).Msg("failed to persist failed status")
	}
	return err
}

// cancel marks crawl cancelled, observed when the engine returns a
// SeverityAbort error raised by cooperative cancellation mid-run.
func (p *Processor) cancel(crawl store.Crawl) error {
	crawl.Status = store.CrawlStatusCancelled
	crawl.CompletedAt = time.Now()
	crawl.ErrorMessage = "Cancelled by user"
	if err := p.crawls.Update(crawl); err != nil {
		p.logger.Warn().Err(err).Str("crawlId", crawl.ID).Msg("failed to persist cancelled status")
	}
	return nil
}

// Cancel implements the external cancel operation: remove the job from
// the queue if it is still pending, otherwise rely on the running
// job's watchForCancellation poll to notice the status flip and
// cancel its run.
func (p *Processor) Cancel(ctx context.Context, crawlID string) error {
	crawl, err := p.crawls.Get(crawlID)
	if err != nil {
		return wrapf(ErrCauseCrawlNotFound, "%v", err)
	}

	if crawl.Status == store.CrawlStatusPending {
		if _, err := p.queue.RemovePending(ctx, crawlID); err != nil {
			p.logger.Warn().Err(err).Str("crawlId", crawlID).Msg("remove pending job failed")
		}
	}

	crawl.Status = store.CrawlStatusCancelled
	crawl.CompletedAt = time.Now()
	crawl.ErrorMessage = "Cancelled by user"
	return p.crawls.Update(crawl)
}
