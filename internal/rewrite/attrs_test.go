package rewrite

import (
	"net/url"
	"testing"

	"github.com/archivekit/webarchiver/internal/assets"
	"github.com/stretchr/testify/assert"
)

func stubDownload() (assets.DownloadFunc, *[]string) {
	var calls []string
	return func(u url.URL, category assets.Category) (string, bool) {
		calls = append(calls, u.String())
		return "local/" + category.Dir() + "/" + u.Path[1:], true
	}, &calls
}

func TestRewriteURLAttr_SkipsFragmentAndSchemeLinks(t *testing.T) {
	download, calls := stubDownload()
	base := mustURL(t, "https://example.com/page")

	for _, raw := range []string{"#section", "javascript:void(0)", "mailto:a@b.com", "tel:+15551234567", "data:image/png;base64,AAAA"} {
		_, ok := rewriteURLAttr(raw, base, download)
		assert.False(t, ok, raw)
	}
	assert.Empty(t, *calls)
}

func TestRewriteURLAttr_RewritesRecognizedAssetExtension(t *testing.T) {
	download, _ := stubDownload()
	base := mustURL(t, "https://example.com/page")

	local, ok := rewriteURLAttr("/fonts/brand.woff2", base, download)
	assert.True(t, ok)
	assert.Equal(t, "local/fonts/fonts/brand.woff2", local)
}

func TestRewriteURLAttr_LeavesUnrecognizedExtensionAlone(t *testing.T) {
	download, calls := stubDownload()
	base := mustURL(t, "https://example.com/page")

	_, ok := rewriteURLAttr("/api/submit", base, download)
	assert.False(t, ok)
	assert.Empty(t, *calls)
}

func TestRewriteSrcset_SkipsUnrewritableEntryButKeepsOthers(t *testing.T) {
	download, _ := stubDownload()
	base := mustURL(t, "https://example.com/page")

	out := rewriteSrcset("/images/a.png 1x, /api/endpoint 2x", base, download)
	assert.Contains(t, out, "local/images/images/a.png 1x")
	assert.Contains(t, out, "/api/endpoint 2x")
}
