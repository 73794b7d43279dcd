package store

import "time"

// CrawlStatus is a Crawl's lifecycle stage.
type CrawlStatus string

const (
	CrawlStatusPending   CrawlStatus = "pending"
	CrawlStatusRunning   CrawlStatus = "running"
	CrawlStatusUploading CrawlStatus = "uploading"
	CrawlStatusCompleted CrawlStatus = "completed"
	CrawlStatusFailed    CrawlStatus = "failed"
	CrawlStatusCancelled CrawlStatus = "cancelled"
)

// activeCrawlStatuses are the statuses that count against the
// one-active-crawl-per-site invariant.
var activeCrawlStatuses = []CrawlStatus{CrawlStatusPending, CrawlStatusRunning, CrawlStatusUploading}

// IsTerminal reports whether a Crawl in this status will never
// transition again.
func (s CrawlStatus) IsTerminal() bool {
	switch s {
	case CrawlStatusCompleted, CrawlStatusFailed, CrawlStatusCancelled:
		return true
	default:
		return false
	}
}

// Site is the configuration for one archivable origin.
type Site struct {
	ID                 string `badgerholdKey:"ID"`
	Name               string
	BaseURL            string
	Concurrency        int
	MaxPages           int
	ExcludePatterns    []string
	DownloadBlacklist  []string
	RemoveWebflowBadge bool
	MaxArchivesToKeep  int
	RedirectsCSV       string
	ScheduleEnabled    bool      `badgerholdIndex:"ScheduleEnabled"`
	ScheduleCron       string
	NextScheduledAt    time.Time `badgerholdIndex:"NextScheduledAt"`
	StorageType        string
	StoragePath        string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Crawl is one execution of one Site.
type Crawl struct {
	ID         string `badgerholdKey:"ID"`
	SiteID     string `badgerholdIndex:"SiteID"`
	Status     CrawlStatus `badgerholdIndex:"Status"`
	StartedAt  time.Time
	CompletedAt time.Time

	TotalPages     int
	SucceededPages int
	FailedPages    int

	UploadTotalBytes    int64
	UploadUploadedBytes int64
	UploadFilesTotal    int
	UploadFilesUploaded int
	UploadCurrentFile   string

	OutputPath     string
	OutputSizeBytes int64
	ErrorMessage   string

	CreatedAt time.Time
}

// CrawlLog is one append-only entry in a Crawl's trail.
type CrawlLog struct {
	ID        uint64 `badgerholdKey:"ID"`
	CrawlID   string `badgerholdIndex:"CrawlID"`
	Level     string
	Message   string
	URL       string
	CreatedAt time.Time
}

// Settings is the single global key->JSON-blob row this package
// persists. There is exactly one Settings row, keyed "global".
type Settings struct {
	Key   string `badgerholdKey:"Key"`
	Value []byte
}

const settingsGlobalKey = "global"

// GlobalDownloadBlacklistKey is the only Settings field this system
// consumes: a list of URL/prefix rules applied to every crawl on top
// of its Site's own rules.
const GlobalDownloadBlacklistKey = "globalDownloadBlacklist"
