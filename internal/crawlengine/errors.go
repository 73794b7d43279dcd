package crawlengine

import (
	"fmt"

	"github.com/archivekit/webarchiver/pkg/failure"
)

type EngineErrorCause string

const (
	ErrCauseNoSeeds       EngineErrorCause = "no seeds discovered"
	ErrCauseAborted       EngineErrorCause = "aborted"
	ErrCauseStateFlush    EngineErrorCause = "state flush failure"
	ErrCauseOutputConfig  EngineErrorCause = "output config write failure"
	ErrCauseCacheEviction EngineErrorCause = "asset cache eviction failure"
)

// abortMessage is the text of the SeverityAbort error raised when a
// crawl is cancelled. The worker pool and the job processor recognise
// a deliberate stop by that severity, not by this text. Page-level
// cancellation and engine-level cancellation share this same text.
const abortMessage = "Crawl cancelled by request."

type EngineError struct {
	Message   string
	Retryable bool
	Cause     EngineErrorCause
}

func (e *EngineError) Error() string {
	return e.Message
}

func (e *EngineError) Severity() failure.Severity {
	if e.Cause == ErrCauseAborted {
		return failure.SeverityAbort
	}
	if e.Retryable {
		return failure.SeverityTransient
	}
	return failure.SeverityFatal
}

func (e *EngineError) IsRetryable() bool {
	return e.Retryable
}

var _ failure.ClassifiedError = (*EngineError)(nil)

func wrapf(cause EngineErrorCause, retryable bool, format string, args ...any) *EngineError {
	return &EngineError{Message: fmt.Sprintf(format, args...), Retryable: retryable, Cause: cause}
}

func newAbortError() *EngineError {
	return &EngineError{Message: abortMessage, Retryable: false, Cause: ErrCauseAborted}
}
