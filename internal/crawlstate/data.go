package crawlstate

import (
	"time"

	"github.com/archivekit/webarchiver/internal/frontier"
)

// State is the durable record of a crawl's progress: every URL that has
// ever succeeded or failed, keyed by its canonical string form so a
// resumed crawl's dedup logic lines up with the frontier's own (see
// internal/frontier.CrawlFrontier, which keys the same way).
type State struct {
	Succeeded       frontier.Set[string] `json:"succeeded"`
	Failed          frontier.Set[string] `json:"failed"`
	TotalDiscovered int                  `json:"totalDiscovered"`
	LastUpdated     time.Time            `json:"lastUpdated"`
}

// NewState returns an empty State ready for a crawl that has not
// produced a single result yet.
func NewState() *State {
	return &State{
		Succeeded: frontier.NewSet[string](),
		Failed:    frontier.NewSet[string](),
	}
}
