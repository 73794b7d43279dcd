package pageprocessor

import (
	"fmt"

	"github.com/archivekit/webarchiver/internal/metadata"
	"github.com/archivekit/webarchiver/pkg/failure"
)

type ProcessErrorCause string

const (
	ErrCauseAborted        ProcessErrorCause = "aborted"
	ErrCauseNavigation     ProcessErrorCause = "navigation failure"
	ErrCauseBrowserClosed  ProcessErrorCause = "browser closed"
	ErrCauseRewriteFailure ProcessErrorCause = "rewrite failure"
	ErrCauseWriteFailure   ProcessErrorCause = "write failure"
)

// abortMessage is the error text raised when shouldAbort trips
// mid-page. The error carries ErrCauseAborted, so its Severity() is
// SeverityAbort; callers tell cancellation apart by that severity,
// not by comparing this string.
const abortMessage = "Crawl cancelled by request."

type ProcessError struct {
	Message   string
	Retryable bool
	Cause     ProcessErrorCause
}

func (e *ProcessError) Error() string {
	return e.Message
}

func (e *ProcessError) Severity() failure.Severity {
	if e.Cause == ErrCauseAborted {
		return failure.SeverityAbort
	}
	if e.Retryable {
		return failure.SeverityTransient
	}
	return failure.SeverityRecoverable
}

func (e *ProcessError) IsRetryable() bool {
	return e.Retryable
}

func newAbortError() *ProcessError {
	return &ProcessError{Message: abortMessage, Retryable: false, Cause: ErrCauseAborted}
}

func mapProcessErrorToMetadataCause(err *ProcessError) metadata.ErrorCause {
	if err == nil {
		return metadata.CauseUnknown
	}
	switch err.Cause {
	case ErrCauseAborted:
		return metadata.CauseInvariantViolation
	case ErrCauseNavigation, ErrCauseBrowserClosed:
		return metadata.CauseNetworkFailure
	case ErrCauseWriteFailure:
		return metadata.CauseStorageFailure
	default:
		return metadata.CauseUnknown
	}
}

var _ failure.ClassifiedError = (*ProcessError)(nil)

func wrapf(cause ProcessErrorCause, retryable bool, format string, args ...any) *ProcessError {
	return &ProcessError{Message: fmt.Sprintf(format, args...), Retryable: retryable, Cause: cause}
}
