package storage

// Persistence

type WriteResult struct {
	urlHash     string // identity (filename without extension)
	path        string
	contentHash string
}

func NewWriteResult(
	urlHash string,
	path string,
	contentHash string,
) WriteResult {
	return WriteResult{
		urlHash:     urlHash,
		path:        path,
		contentHash: contentHash,
	}
}
func (w *WriteResult) URLHash() string {
	return w.urlHash
}

func (w *WriteResult) Path() string {
	return w.path
}

func (w *WriteResult) ContentHash() string {
	return w.contentHash
}

// TransferProgress is reported while MoveToFinal relocates a crawl's
// working tree into its final archive location, and reused by the job
// processor's ZIP build step for the same {total, done, current} shape.
type TransferProgress struct {
	TotalBytes    int64
	UploadedBytes int64
	FilesTotal    int
	FilesUploaded int
	CurrentFile   string
}
