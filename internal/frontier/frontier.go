package frontier

import (
	"sync"

	"github.com/archivekit/webarchiver/internal/config"
	"github.com/archivekit/webarchiver/pkg/urlutil"
)

/*
Frontier Responsibilities
- Maintain BFS ordering
- Deduplicate URLs
- Track crawl depth
- Prevent infinite traversal
- Knows nothing about:
	- fetching
	- extraction
	- rewriting
	- storage

It is a data structure + policy module, not a pipeline executor.
*/

// Frontier is C6's URL queue: a depth-bucketed FIFO that enforces BFS
// ordering, URL dedup, and the per-crawl depth/page-count limits.
type Frontier interface {
	Init(cfg config.Config)
	Submit(candidate CrawlAdmissionCandidate)
	Dequeue() (CrawlToken, bool)
	IsDepthExhausted(depth int) bool
	CurrentMinDepth() int
	VisitedCount() int
}

// CrawlFrontier is the Frontier implementation. One queue per depth
// level keeps BFS ordering explicit: Dequeue always drains the
// lowest non-empty depth, so a depth-2 URL can never surface before
// every depth-1 URL has been dequeued, regardless of submission order
// or gaps in the depth sequence.
type CrawlFrontier struct {
	mu sync.Mutex

	cfg           config.Config
	queuesByDepth map[int]*FIFOQueue[CrawlToken]
	visited       Set[string]
}

func NewCrawlFrontier() *CrawlFrontier {
	return &CrawlFrontier{
		queuesByDepth: make(map[int]*FIFOQueue[CrawlToken]),
		visited:       NewSet[string](),
	}
}

func (f *CrawlFrontier) Init(cfg config.Config) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = cfg
}

// Submit admits candidate into the frontier, unless it exceeds the
// configured max depth, has already been visited (by canonical form),
// or the crawl has already reached its max page count. A 0-valued
// MaxDepth/MaxPages means unlimited, per config's zero-value contract.
func (f *CrawlFrontier) Submit(candidate CrawlAdmissionCandidate) {
	f.mu.Lock()
	defer f.mu.Unlock()

	depth := candidate.DiscoveryMetadata().Depth()
	if maxDepth := f.cfg.MaxDepth(); maxDepth > 0 && depth > maxDepth {
		return
	}

	key := urlutil.Canonicalize(candidate.TargetURL()).String()
	if f.visited.Contains(key) {
		return
	}
	if maxPages := f.cfg.MaxPages(); maxPages > 0 && f.visited.Size() >= maxPages {
		return
	}

	f.visited.Add(key)

	q, ok := f.queuesByDepth[depth]
	if !ok {
		q = NewFIFOQueue[CrawlToken]()
		f.queuesByDepth[depth] = q
	}
	q.Enqueue(NewCrawlToken(candidate.TargetURL(), depth))
}

// Dequeue returns the next token in BFS order: the lowest depth with a
// non-empty queue. It never dereferences a queue that was never
// created or has since been drained — currentMinDepthLocked only
// considers depths that currently hold pending tokens.
func (f *CrawlFrontier) Dequeue() (CrawlToken, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	depth := f.currentMinDepthLocked()
	if depth == -1 {
		return CrawlToken{}, false
	}
	return f.queuesByDepth[depth].Dequeue()
}

// IsDepthExhausted reports whether depth has no pending tokens left —
// true for a depth that was never submitted to as well as one that has
// been fully drained.
func (f *CrawlFrontier) IsDepthExhausted(depth int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	q, ok := f.queuesByDepth[depth]
	if !ok {
		return true
	}
	return q.Size() == 0
}

// CurrentMinDepth returns the lowest depth with pending tokens, or -1
// if the frontier is empty. Callers use this to detect when an entire
// BFS level has been exhausted.
func (f *CrawlFrontier) CurrentMinDepth() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currentMinDepthLocked()
}

func (f *CrawlFrontier) currentMinDepthLocked() int {
	min := -1
	for depth, q := range f.queuesByDepth {
		if q.Size() == 0 {
			continue
		}
		if min == -1 || depth < min {
			min = depth
		}
	}
	return min
}

// VisitedCount reports the number of unique, canonicalized URLs ever
// admitted by Submit. The visited set is append-only: it does not
// shrink as tokens are dequeued, since its purpose is dedup, not queue
// accounting.
func (f *CrawlFrontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited.Size()
}

var _ Frontier = (*CrawlFrontier)(nil)
