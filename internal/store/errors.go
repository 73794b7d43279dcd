package store

import (
	"fmt"

	"github.com/archivekit/webarchiver/pkg/failure"
)

type StoreErrorCause string

const (
	ErrCauseNotFound       StoreErrorCause = "record not found"
	ErrCauseAlreadyExists  StoreErrorCause = "record already exists"
	ErrCauseActiveCrawl    StoreErrorCause = "site already has an active crawl"
	ErrCauseQueryFailure   StoreErrorCause = "query failed"
	ErrCauseWriteFailure   StoreErrorCause = "write failed"
	ErrCauseSerialization  StoreErrorCause = "serialization failed"
)

// StoreError is the failure.ClassifiedError every internal/store
// operation returns. ErrCauseActiveCrawl is never retryable: the
// caller's job (re-enqueue later, or reject the request) is decided by
// the job processor, not by the retry layer.
type StoreError struct {
	Message   string
	Retryable bool
	Cause     StoreErrorCause
}

func (e *StoreError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("store error: %s: %s", e.Cause, e.Message)
	}
	return fmt.Sprintf("store error: %s", e.Cause)
}

func (e *StoreError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityTransient
	}
	return failure.SeverityFatal
}

func (e *StoreError) IsRetryable() bool {
	return e.Retryable
}

func newError(cause StoreErrorCause, retryable bool, format string, args ...any) *StoreError {
	return &StoreError{
		Message:   fmt.Sprintf(format, args...),
		Retryable: retryable,
		Cause:     cause,
	}
}
