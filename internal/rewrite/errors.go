package rewrite

import (
	"fmt"

	"github.com/archivekit/webarchiver/pkg/failure"
)

type RewriteErrorCause string

const (
	ErrCauseParseFailure     RewriteErrorCause = "failed to parse HTML document"
	ErrCauseSerializeFailure RewriteErrorCause = "failed to serialize rewritten document"
)

// RewriteError is C4's failure type. Asset-level failures (a missing
// image, a blacklisted script) are never fatal here — they are
// reported by C3 and the original reference is left in place. This
// error only fires when the document itself cannot be parsed or
// re-serialized.
type RewriteError struct {
	Message string
	Cause   RewriteErrorCause
}

func (e *RewriteError) Error() string {
	return fmt.Sprintf("rewrite error: %s: %s", e.Cause, e.Message)
}

func (e *RewriteError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

func (e *RewriteError) IsRetryable() bool {
	return false
}
