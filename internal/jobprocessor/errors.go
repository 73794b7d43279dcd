package jobprocessor

import (
	"fmt"

	"github.com/archivekit/webarchiver/pkg/failure"
)

type JobErrorCause string

const (
	ErrCauseSiteNotFound   JobErrorCause = "site not found"
	ErrCauseCrawlNotFound  JobErrorCause = "crawl not found"
	ErrCauseNotPending     JobErrorCause = "crawl not pending"
	ErrCauseEngineFailure  JobErrorCause = "crawl engine failed"
	ErrCauseUploadFailure  JobErrorCause = "upload failed"
	ErrCauseZipBuildFailed JobErrorCause = "zip build failed"
	ErrCauseEnqueueFailed  JobErrorCause = "enqueue failed"
)

// JobError is the failure.ClassifiedError every job-processor
// operation returns. Per the taxonomy's "job failure" category, every
// cause here is fatal to the job that raised it — none are retried
// within the same job run.
type JobError struct {
	Message string
	Cause   JobErrorCause
}

func (e *JobError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("job error: %s: %s", e.Cause, e.Message)
	}
	return fmt.Sprintf("job error: %s", e.Cause)
}

func (e *JobError) Severity() failure.Severity {
	return failure.SeverityFatal
}

func wrapf(cause JobErrorCause, format string, args ...any) *JobError {
	return &JobError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

var _ failure.ClassifiedError = (*JobError)(nil)
