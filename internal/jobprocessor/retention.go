package jobprocessor

import (
	"github.com/archivekit/webarchiver/internal/storage"
	"github.com/archivekit/webarchiver/internal/store"
)

// applyRetention keeps the newest keep completed crawls for site and
// deletes the rest's outputPath and its .zip sibling. A keep <= 0
// means "keep everything" — retention is opt-in per site.
func applyRetention(crawls *store.CrawlStore, sink storage.Sink, site store.Site) error {
	if site.MaxArchivesToKeep <= 0 {
		return nil
	}

	completed, err := crawls.ListCompletedBySite(site.ID)
	if err != nil {
		return err
	}
	if len(completed) <= site.MaxArchivesToKeep {
		return nil
	}

	for _, retired := range completed[site.MaxArchivesToKeep:] {
		if retired.OutputPath == "" {
			continue
		}
		if err := sink.DeleteDir(retired.OutputPath); err != nil {
			return wrapf(ErrCauseUploadFailure, "delete retired archive %s: %v", retired.OutputPath, err)
		}
		if err := sink.DeleteDir(retired.OutputPath + ".zip"); err != nil {
			return wrapf(ErrCauseUploadFailure, "delete retired archive zip %s: %v", retired.OutputPath+".zip", err)
		}
	}
	return nil
}
