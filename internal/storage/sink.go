package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/archivekit/webarchiver/internal/metadata"
	"github.com/archivekit/webarchiver/pkg/failure"
	"github.com/archivekit/webarchiver/pkg/fileutil"
	"github.com/archivekit/webarchiver/pkg/hashutil"
)

/*
Responsibilities
- Persist a crawl's output tree (HTML pages, rewritten assets, config)
- Read back what was written, for the ZIP build and retention sweeps
- Relocate a crawl's working tree into its final archive location
  atomically, replacing whatever (if anything) was there before

Output Characteristics
- Stable directory layout
- Idempotent writes
- Overwrite-safe reruns

The local filesystem is the only backend wired here. An object-store
implementation of the same interface is a natural extension point but
is intentionally left unwired: see DESIGN.md.
*/

// Sink is the full storage surface a crawl's output and a completed
// archive's lifecycle need: direct writes during the crawl, read/list
// for building a ZIP, and the create-temp/move-to-final/delete sequence
// that brackets a crawl's on-disk life.
type Sink interface {
	WriteFile(path string, content []byte) (WriteResult, failure.ClassifiedError)
	ReadStream(path string) (io.ReadCloser, failure.ClassifiedError)
	ListFiles(dir string) ([]string, failure.ClassifiedError)
	Exists(path string) bool
	CreateTempDir(parent string) (string, failure.ClassifiedError)
	MoveToFinal(tempDir string, finalDir string, onProgress func(TransferProgress)) failure.ClassifiedError
	GetSize(path string) (int64, failure.ClassifiedError)
	DeleteDir(path string) failure.ClassifiedError
}

type LocalSink struct {
	metadataSink metadata.MetadataSink
	hashAlgo     hashutil.HashAlgo
}

func NewLocalSink(
	metadataSink metadata.MetadataSink,
	hashAlgo hashutil.HashAlgo,
) *LocalSink {
	return &LocalSink{
		metadataSink: metadataSink,
		hashAlgo:     hashAlgo,
	}
}

// WriteFile writes content to path, creating any missing parent
// directories, and reports an artifact keyed by a hash of the content
// so repeat writes to the same location are recognizable as the same
// artifact across runs.
func (s *LocalSink) WriteFile(path string, content []byte) (WriteResult, failure.ClassifiedError) {
	result, err := writeFile(path, content, s.hashAlgo)
	if err != nil {
		s.recordError("LocalSink.WriteFile", path, err)
		return WriteResult{}, err
	}
	s.metadataSink.RecordArtifact(
		artifactKindFor(path),
		result.Path(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrWritePath, result.Path()),
			metadata.NewAttr(metadata.AttrField, result.ContentHash()),
		},
	)
	return result, nil
}

func (s *LocalSink) ReadStream(path string) (io.ReadCloser, failure.ClassifiedError) {
	f, err := os.Open(path)
	if err != nil {
		storageErr := &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     causeForOpenErr(err),
			Path:      path,
		}
		s.recordError("LocalSink.ReadStream", path, storageErr)
		return nil, storageErr
	}
	return f, nil
}

// ListFiles walks dir and returns every regular file's absolute path.
func (s *LocalSink) ListFiles(dir string) ([]string, failure.ClassifiedError) {
	files, _, err := inventory(dir)
	if err != nil {
		storageErr := &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseListFailure,
			Path:      dir,
		}
		s.recordError("LocalSink.ListFiles", dir, storageErr)
		return nil, storageErr
	}
	return files, nil
}

func (s *LocalSink) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CreateTempDir creates a fresh working directory under parent for one
// crawl's in-progress output, so a crash mid-crawl never leaves a
// partially-written tree at the crawl's final path.
func (s *LocalSink) CreateTempDir(parent string) (string, failure.ClassifiedError) {
	if err := fileutil.EnsureDir(parent); err != nil {
		storageErr := &StorageError{Message: err.Error(), Retryable: false, Cause: ErrCausePathError, Path: parent}
		s.recordError("LocalSink.CreateTempDir", parent, storageErr)
		return "", storageErr
	}
	dir, err := os.MkdirTemp(parent, "crawl-*")
	if err != nil {
		storageErr := &StorageError{Message: err.Error(), Retryable: false, Cause: ErrCauseWriteFailure, Path: parent}
		s.recordError("LocalSink.CreateTempDir", parent, storageErr)
		return "", storageErr
	}
	return dir, nil
}

// MoveToFinal replaces finalDir's contents with tempDir's, atomically
// when both live on the same filesystem (the common case: both are
// subdirectories of one configured output root). Progress is reported
// once per file so callers building a ZIP upload can surface the same
// {totalBytes, uploadedBytes, filesTotal, filesUploaded, currentFile}
// shape.
func (s *LocalSink) MoveToFinal(tempDir string, finalDir string, onProgress func(TransferProgress)) failure.ClassifiedError {
	files, totalBytes, err := inventory(tempDir)
	if err != nil {
		storageErr := &StorageError{Message: err.Error(), Retryable: false, Cause: ErrCauseListFailure, Path: tempDir}
		s.recordError("LocalSink.MoveToFinal", tempDir, storageErr)
		return storageErr
	}

	if s.Exists(finalDir) {
		if rmErr := os.RemoveAll(finalDir); rmErr != nil {
			storageErr := &StorageError{Message: rmErr.Error(), Retryable: false, Cause: ErrCauseDeleteFailure, Path: finalDir}
			s.recordError("LocalSink.MoveToFinal", finalDir, storageErr)
			return storageErr
		}
	}

	if renameErr := os.Rename(tempDir, finalDir); renameErr == nil {
		if onProgress != nil {
			onProgress(TransferProgress{
				TotalBytes:    totalBytes,
				UploadedBytes: totalBytes,
				FilesTotal:    len(files),
				FilesUploaded: len(files),
			})
		}
		return nil
	}

	// Cross-device rename: fall back to a per-file copy so progress is
	// still incremental rather than one opaque jump to 100%.
	if err := fileutil.EnsureDir(finalDir); err != nil {
		storageErr := &StorageError{Message: err.Error(), Retryable: false, Cause: ErrCauseMoveFailure, Path: finalDir}
		s.recordError("LocalSink.MoveToFinal", finalDir, storageErr)
		return storageErr
	}

	var uploadedBytes int64
	for i, src := range files {
		rel, relErr := filepath.Rel(tempDir, src)
		if relErr != nil {
			continue
		}
		dst := filepath.Join(finalDir, rel)
		if mkErr := fileutil.EnsureDir(filepath.Dir(dst)); mkErr != nil {
			storageErr := &StorageError{Message: mkErr.Error(), Retryable: false, Cause: ErrCauseMoveFailure, Path: dst}
			s.recordError("LocalSink.MoveToFinal", dst, storageErr)
			return storageErr
		}
		data, readErr := os.ReadFile(src)
		if readErr != nil {
			storageErr := &StorageError{Message: readErr.Error(), Retryable: false, Cause: ErrCauseReadFailure, Path: src}
			s.recordError("LocalSink.MoveToFinal", src, storageErr)
			return storageErr
		}
		if writeErr := os.WriteFile(dst, data, 0o644); writeErr != nil {
			storageErr := &StorageError{Message: writeErr.Error(), Retryable: isDiskFull(writeErr), Cause: ErrCauseMoveFailure, Path: dst}
			s.recordError("LocalSink.MoveToFinal", dst, storageErr)
			return storageErr
		}
		uploadedBytes += int64(len(data))
		if onProgress != nil {
			onProgress(TransferProgress{
				TotalBytes:    totalBytes,
				UploadedBytes: uploadedBytes,
				FilesTotal:    len(files),
				FilesUploaded: i + 1,
				CurrentFile:   rel,
			})
		}
	}
	_ = os.RemoveAll(tempDir)
	return nil
}

// GetSize returns a file's size, or a directory's total recursive size.
func (s *LocalSink) GetSize(path string) (int64, failure.ClassifiedError) {
	info, err := os.Stat(path)
	if err != nil {
		storageErr := &StorageError{Message: err.Error(), Retryable: false, Cause: causeForOpenErr(err), Path: path}
		s.recordError("LocalSink.GetSize", path, storageErr)
		return 0, storageErr
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	_, total, walkErr := inventory(path)
	if walkErr != nil {
		storageErr := &StorageError{Message: walkErr.Error(), Retryable: false, Cause: ErrCauseListFailure, Path: path}
		s.recordError("LocalSink.GetSize", path, storageErr)
		return 0, storageErr
	}
	return total, nil
}

func (s *LocalSink) DeleteDir(path string) failure.ClassifiedError {
	if err := os.RemoveAll(path); err != nil {
		storageErr := &StorageError{Message: err.Error(), Retryable: false, Cause: ErrCauseDeleteFailure, Path: path}
		s.recordError("LocalSink.DeleteDir", path, storageErr)
		return storageErr
	}
	return nil
}

func (s *LocalSink) recordError(action string, path string, err failure.ClassifiedError) {
	var storageError *StorageError
	errors.As(err, &storageError)
	s.metadataSink.RecordError(
		time.Now(),
		"storage",
		action,
		mapStorageErrorToMetadataCause(storageError),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrWritePath, path),
		},
	)
}

func writeFile(path string, content []byte, hashAlgo hashutil.HashAlgo) (WriteResult, failure.ClassifiedError) {
	if err := fileutil.EnsureDir(filepath.Dir(path)); err != nil {
		var fileErr *fileutil.FileError
		if errors.As(err, &fileErr) {
			cause := ErrCauseWriteFailure
			retryable := false
			if fileErr.Cause == fileutil.ErrCausePathError {
				cause = ErrCausePathError
				retryable = true
			}
			return WriteResult{}, &StorageError{Message: err.Error(), Retryable: retryable, Cause: cause, Path: path}
		}
		return WriteResult{}, &StorageError{Message: err.Error(), Retryable: false, Cause: ErrCauseWriteFailure, Path: path}
	}

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: isDiskFull(err),
			Cause:     causeForWriteErr(err),
			Path:      path,
		}
	}

	contentHashFull, err := hashutil.HashBytes(content, hashAlgo)
	if err != nil {
		return WriteResult{}, &StorageError{Message: err.Error(), Retryable: false, Cause: ErrCauseHashComputationFailed, Path: path}
	}
	pathHashFull, err := hashutil.HashBytes([]byte(path), hashAlgo)
	if err != nil {
		return WriteResult{}, &StorageError{Message: err.Error(), Retryable: false, Cause: ErrCauseHashComputationFailed, Path: path}
	}

	return NewWriteResult(pathHashFull[:12], path, contentHashFull), nil
}

func inventory(dir string) ([]string, int64, error) {
	var files []string
	var total int64
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, statErr := d.Info()
		if statErr != nil {
			return statErr
		}
		files = append(files, path)
		total += info.Size()
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return files, total, nil
}

func isDiskFull(err error) bool {
	return errors.Is(err, syscall.ENOSPC)
}

func causeForWriteErr(err error) StorageErrorCause {
	if isDiskFull(err) {
		return ErrCauseDiskFull
	}
	return ErrCauseWriteFailure
}

func causeForOpenErr(err error) StorageErrorCause {
	if os.IsNotExist(err) {
		return ErrCauseNotFound
	}
	return ErrCauseReadFailure
}

func artifactKindFor(path string) metadata.ArtifactKind {
	switch filepath.Ext(path) {
	case ".md":
		return metadata.ArtifactMarkdown
	case ".html", ".htm":
		return metadata.ArtifactHTML
	case ".zip":
		return metadata.ArtifactZip
	case ".json":
		return metadata.ArtifactConfig
	default:
		return metadata.ArtifactAsset
	}
}
