package assets

import (
	"net/url"
	"time"

	"github.com/archivekit/webarchiver/pkg/hashutil"
)

type AssetFetchResult struct {
	fetchUrl    url.URL
	httpStatus  int
	duration    time.Duration
	contentType string
	data        []byte
}

func NewAssetFetchResult(
	fetchUrl url.URL,
	httpStatus int,
	duration time.Duration,
	data []byte,
) AssetFetchResult {
	return AssetFetchResult{
		fetchUrl:   fetchUrl,
		httpStatus: httpStatus,
		duration:   duration,
		data:       data,
	}
}

func (a *AssetFetchResult) URL() url.URL {
	return a.fetchUrl
}

func (a *AssetFetchResult) Data() []byte {
	return a.data
}

func (a *AssetFetchResult) Status() int {
	return a.httpStatus
}

func (a *AssetFetchResult) Duration() time.Duration {
	return a.duration
}

func (a *AssetFetchResult) ContentType() string {
	return a.contentType
}

// DownloadParam carries the per-crawl settings C3 needs to resolve and
// write assets: the archive output root, the per-asset size ceiling,
// the content-hash algorithm used for cross-URL dedup, and the merged
// download blacklist.
type DownloadParam struct {
	outputDir    string
	maxAssetSize int64
	hashAlgo     hashutil.HashAlgo
	blacklist    *Blacklist
}

func NewDownloadParam(outputDir string, maxAssetSize int64, hashAlgo hashutil.HashAlgo, blacklist *Blacklist) DownloadParam {
	if blacklist == nil {
		blacklist = NewBlacklist(nil, nil)
	}
	return DownloadParam{
		outputDir:    outputDir,
		maxAssetSize: maxAssetSize,
		hashAlgo:     hashAlgo,
		blacklist:    blacklist,
	}
}

func (r DownloadParam) OutputDir() string {
	return r.outputDir
}

func (r DownloadParam) MaxAssetSize() int64 {
	return r.maxAssetSize
}

func (r DownloadParam) HashAlgo() hashutil.HashAlgo {
	return r.hashAlgo
}

func (r DownloadParam) Blacklist() *Blacklist {
	return r.blacklist
}
