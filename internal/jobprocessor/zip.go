package jobprocessor

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/archivekit/webarchiver/internal/storage"
)

// buildZip streams every file under sourceDir into a ZIP at zipPath,
// alongside the archive (same prefix, .zip suffix), reporting
// incremental progress through the same {total, done, current} shape
// moveToFinal uses. Reads go through sink.ReadStream so retention and
// the ZIP step share one notion of "what's in this archive"; the ZIP
// itself is written directly to the local filesystem because
// storage.Sink's WriteFile takes a fully materialized []byte and a
// multi-gigabyte archive tree should never be buffered whole in memory.
func buildZip(sink storage.Sink, sourceDir string, zipPath string, onProgress func(storage.TransferProgress)) (int64, error) {
	files, err := sink.ListFiles(sourceDir)
	if err != nil {
		return 0, fmt.Errorf("list files under %s: %w", sourceDir, err)
	}

	var totalBytes int64
	sizes := make(map[string]int64, len(files))
	for _, f := range files {
		size, err := sink.GetSize(f)
		if err != nil {
			return 0, fmt.Errorf("size %s: %w", f, err)
		}
		sizes[f] = size
		totalBytes += size
	}

	if err := os.MkdirAll(filepath.Dir(zipPath), 0o755); err != nil {
		return 0, fmt.Errorf("create zip parent dir: %w", err)
	}
	zipFile, err := os.Create(zipPath)
	if err != nil {
		return 0, fmt.Errorf("create zip file: %w", err)
	}
	defer zipFile.Close()

	writer := zip.NewWriter(zipFile)

	var uploadedBytes int64
	for i, f := range files {
		rel, err := filepath.Rel(sourceDir, f)
		if err != nil {
			rel = filepath.Base(f)
		}
		rel = filepath.ToSlash(rel)

		entry, err := writer.Create(rel)
		if err != nil {
			writer.Close()
			return 0, fmt.Errorf("create zip entry %s: %w", rel, err)
		}

		reader, err := sink.ReadStream(f)
		if err != nil {
			writer.Close()
			return 0, fmt.Errorf("read %s: %w", f, err)
		}
		written, copyErr := io.Copy(entry, reader)
		reader.Close()
		if copyErr != nil {
			writer.Close()
			return 0, fmt.Errorf("write zip entry %s: %w", rel, copyErr)
		}

		uploadedBytes += written
		if onProgress != nil {
			onProgress(storage.TransferProgress{
				TotalBytes:    totalBytes,
				UploadedBytes: uploadedBytes,
				FilesTotal:    len(files),
				FilesUploaded: i + 1,
				CurrentFile:   rel,
			})
		}
	}

	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("finalize zip: %w", err)
	}

	info, err := zipFile.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat finished zip: %w", err)
	}
	return info.Size(), nil
}
