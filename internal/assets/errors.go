package assets

import (
	"fmt"

	"github.com/archivekit/webarchiver/internal/metadata"
	"github.com/archivekit/webarchiver/pkg/failure"
)

type AssetsErrorCause string

const (
	ErrCauseImageDownloadFailure  = "failed to download image"
	ErrCauseNetworkFailure        = "network failure"
	ErrCauseHashError             = "hash computation failed"
	ErrCauseWriteFailure          = "failed to write asset"
	ErrCauseDiskFull              = "disk full"
	ErrCausePathError             = "invalid asset path"
	ErrCauseBlacklisted           = "blacklisted"
	ErrCauseSizeExceeded          = "asset exceeds max size"
	ErrCauseRequest5xx            = "server error"
	ErrCauseRequestTooMany        = "rate limited"
	ErrCauseRequestForbidden      = "request forbidden"
	ErrCauseRedirectLimitExceeded = "redirect limit exceeded"
	ErrCauseReadResponseBodyError = "failed to read response body"
)

// AssetsError reports an asset-fetch/write failure. Per spec, asset
// failures never fail a page: the original URL is kept in the HTML and
// the failure is only logged. Retryable controls whether pkg/retry
// re-attempts the fetch before the caller gives up on this one asset.
type AssetsError struct {
	Message   string
	Retryable bool
	Cause     AssetsErrorCause
}

func (e *AssetsError) Error() string {
	return fmt.Sprintf("assets error: %s: %s", e.Cause, e.Message)
}

func (e *AssetsError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityTransient
	}
	return failure.SeverityRecoverable
}

func (e *AssetsError) IsRetryable() bool {
	return e.Retryable
}

// mapAssetsErrorToMetadataCause maps assets-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapAssetsErrorToMetadataCause(err AssetsError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseImageDownloadFailure, ErrCauseNetworkFailure:
		return metadata.CauseNetworkFailure
	case ErrCauseWriteFailure, ErrCauseDiskFull, ErrCausePathError, ErrCauseHashError:
		return metadata.CauseStorageFailure
	case ErrCauseBlacklisted, ErrCauseSizeExceeded:
		return metadata.CausePolicyDisallow
	default:
		return metadata.CauseUnknown
	}
}
