package failure

// Severity classifies how a ClassifiedError should affect crawl control
// flow. It is consulted by the worker pool and the job processor; it is
// never inferred from error message text.
type Severity int

const (
	// SeverityAbort means cancellation was observed mid-work. It
	// propagates unchanged and short-circuits retry and the pool.
	SeverityAbort Severity = iota
	// SeverityTransient means the error is retryable (timeout, 429/5xx,
	// connection reset, browser "closed" signature). On exhaustion it is
	// demoted to SeverityRecoverable by the retry handler.
	SeverityTransient
	// SeverityRecoverable means a per-URL or per-asset failure: recorded,
	// logged, and does not fail the crawl.
	SeverityRecoverable
	// SeverityFatal means the crawl itself cannot continue; the owning
	// Crawl row transitions to failed.
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityAbort:
		return "abort"
	case SeverityTransient:
		return "transient"
	case SeverityRecoverable:
		return "recoverable"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

type ClassifiedError interface {
	error
	Severity() Severity
}

// IsRetryable reports whether err should be retried by pkg/retry. Only
// SeverityTransient errors are retryable; everything else is either
// terminal for the current unit of work or must propagate immediately.
func IsRetryable(err error) bool {
	var ce ClassifiedError
	if !As(err, &ce) {
		return false
	}
	return ce.Severity() == SeverityTransient
}

// As is a tiny indirection over errors.As kept local to avoid importing
// the standard errors package in call sites that only need this check.
func As(err error, target *ClassifiedError) bool {
	for err != nil {
		if ce, ok := err.(ClassifiedError); ok {
			*target = ce
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
