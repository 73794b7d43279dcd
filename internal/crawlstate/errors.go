package crawlstate

import (
	"fmt"

	"github.com/archivekit/webarchiver/pkg/failure"
)

type StateErrorCause string

const (
	ErrCauseReadFailure      StateErrorCause = "read failure"
	ErrCauseWriteFailure     StateErrorCause = "write failure"
	ErrCauseDecodeFailure    StateErrorCause = "decode failure"
	ErrCauseEncodeFailure    StateErrorCause = "encode failure"
)

type StateError struct {
	Message   string
	Retryable bool
	Cause     StateErrorCause
}

func (e *StateError) Error() string {
	return fmt.Sprintf("crawlstate error: %s: %s", e.Cause, e.Message)
}

func (e *StateError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityTransient
	}
	return failure.SeverityRecoverable
}

func (e *StateError) IsRetryable() bool {
	return e.Retryable
}

var _ failure.ClassifiedError = (*StateError)(nil)
