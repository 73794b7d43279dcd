package crawlstate

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/archivekit/webarchiver/internal/frontier"
	"github.com/archivekit/webarchiver/pkg/failure"
	"github.com/archivekit/webarchiver/pkg/fileutil"
)

/*
Responsibilities
- Persist crawl progress across restarts
- Compute the resume frontier for a re-run of a crawl
- Batch incremental progress into whole-file, crash-safe writes

Durability Characteristics
- save replaces the file wholesale: no partial-state interleaving
- a retried URL that later succeeds supersedes its earlier failure
- load never panics on a missing or partially-written file
*/

// Mirror lets a caller keep a second, queryable copy of crawl progress
// (store.CrawlMirror keeps the Crawl row's page counters) in lockstep with every flush,
// without C6 depending on the storage backend that implements it. A
// nil Mirror is a valid, no-op choice for callers that don't need one
// (e.g. a one-off crawl run outside the job processor).
type Mirror interface {
	MirrorProgress(crawlID string, state *State)
}

// Manager is C6: the state manager.
type Manager struct {
	mirror Mirror
}

func NewManager(mirror Mirror) *Manager {
	return &Manager{mirror: mirror}
}

// Load reads the state file at path. A missing file is not an error:
// it returns (nil, nil), matching the "State | null" contract for a
// crawl that has never been saved before.
func (m *Manager) Load(path string) (*State, failure.ClassifiedError) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &StateError{Message: err.Error(), Retryable: false, Cause: ErrCauseReadFailure}
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, &StateError{Message: err.Error(), Retryable: false, Cause: ErrCauseDecodeFailure}
	}
	if state.Succeeded == nil {
		state.Succeeded = frontier.NewSet[string]()
	}
	if state.Failed == nil {
		state.Failed = frontier.NewSet[string]()
	}
	return &state, nil
}

// Save refreshes state.LastUpdated and writes it to path as a single
// atomic replacement: encode to a sibling temp file, then rename over
// the destination, so a crash mid-write never leaves a corrupt or
// half-written state file behind (same idiom as storage/sink.go's
// disk-full-aware writes, generalized to a rename-based swap since this
// file is rewritten wholesale on every flush rather than written once).
func (m *Manager) Save(path string, state *State) failure.ClassifiedError {
	state.LastUpdated = time.Now()

	if err := fileutil.EnsureDir(filepath.Dir(path)); err != nil {
		return &StateError{Message: err.Error(), Retryable: false, Cause: ErrCauseWriteFailure}
	}

	encoded, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return &StateError{Message: err.Error(), Retryable: false, Cause: ErrCauseEncodeFailure}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, encoded, 0644); err != nil {
		cause := ErrCauseWriteFailure
		retryable := errors.Is(err, syscall.ENOSPC)
		return &StateError{Message: err.Error(), Retryable: retryable, Cause: cause}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &StateError{Message: err.Error(), Retryable: false, Cause: ErrCauseWriteFailure}
	}
	return nil
}

// UpdateProgress unions succeededBatch and failedBatch into state's
// sets, then removes any URL from failed that now appears in succeeded
// — a retry that eventually succeeds supersedes its earlier failure
// record. The crawlID, when non-empty, is forwarded to the configured
// Mirror after the union (not before), so the mirror always observes
// the post-supersession view.
func (m *Manager) UpdateProgress(crawlID string, state *State, succeededBatch []string, failedBatch []string) *State {
	for _, url := range succeededBatch {
		state.Succeeded.Add(url)
	}
	for _, url := range failedBatch {
		state.Failed.Add(url)
	}
	for url := range state.Succeeded {
		state.Failed.Remove(url)
	}

	if m.mirror != nil && crawlID != "" {
		m.mirror.MirrorProgress(crawlID, state)
	}
	return state
}

// FilterForResume computes the frontier a crawl should start from. A
// nil state (no prior run) always yields allUrls unchanged, regardless
// of resume/retryFailed, since there is nothing to resume from.
func FilterForResume(allUrls []string, state *State, resume bool, retryFailed bool) []string {
	if state == nil {
		return allUrls
	}

	if retryFailed {
		out := make([]string, 0, state.Failed.Size())
		for url := range state.Failed {
			out = append(out, url)
		}
		return out
	}

	if resume {
		out := make([]string, 0, len(allUrls))
		for _, url := range allUrls {
			if !state.Succeeded.Contains(url) {
				out = append(out, url)
			}
		}
		return out
	}

	return allUrls
}
