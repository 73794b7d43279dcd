package jobprocessor

import "time"

// JobEnvelope is the queue payload. The job id dedup/removal keys on
// is CrawlID itself, not a separately generated id.
type JobEnvelope struct {
	SiteID  string `json:"siteId"`
	CrawlID string `json:"crawlId"`
}

// EventKind distinguishes the two shapes multiplexed onto one
// crawl:<id> pub/sub channel.
type EventKind string

const (
	EventKindProgress EventKind = "progress"
	EventKindLog      EventKind = "log"
)

// Event is the JSON body published on crawl:<crawlId>. Exactly one of
// Progress/Log is populated, selected by Kind.
type Event struct {
	Kind      EventKind      `json:"kind"`
	CrawlID   string         `json:"crawlId"`
	At        time.Time      `json:"at"`
	Progress  *ProgressEvent `json:"progress,omitempty"`
	Log       *LogEvent      `json:"log,omitempty"`
}

type ProgressEvent struct {
	Total      int    `json:"total"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
	CurrentURL string `json:"currentUrl"`
}

type LogEvent struct {
	Level   string            `json:"level"`
	Message string            `json:"message"`
	URL     string            `json:"url,omitempty"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}
