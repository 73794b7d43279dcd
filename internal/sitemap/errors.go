package sitemap

import (
	"fmt"

	"github.com/archivekit/webarchiver/internal/metadata"
	"github.com/archivekit/webarchiver/pkg/failure"
)

type ResolveErrorCause string

const (
	ErrCauseFetchFailure ResolveErrorCause = "fetch failure"
	ErrCauseParseFailure ResolveErrorCause = "parse failure"
)

// ResolveError is recorded via the metadata sink and then swallowed:
// Resolve never returns one to its caller. A single unreachable or
// malformed sitemap must not stop discovery of every other page on
// the site.
type ResolveError struct {
	Message   string
	Retryable bool
	Cause     ResolveErrorCause
}

func (e *ResolveError) Error() string {
	return e.Message
}

func (e *ResolveError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityTransient
	}
	return failure.SeverityRecoverable
}

func (e *ResolveError) IsRetryable() bool {
	return e.Retryable
}

var _ failure.ClassifiedError = (*ResolveError)(nil)

func wrapf(cause ResolveErrorCause, retryable bool, format string, args ...any) *ResolveError {
	return &ResolveError{Message: fmt.Sprintf(format, args...), Retryable: retryable, Cause: cause}
}

func mapResolveErrorToMetadataCause(err *ResolveError) metadata.ErrorCause {
	if err == nil {
		return metadata.CauseUnknown
	}
	switch err.Cause {
	case ErrCauseFetchFailure:
		return metadata.CauseNetworkFailure
	case ErrCauseParseFailure:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
