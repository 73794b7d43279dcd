package rewrite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/archivekit/webarchiver/internal/assets"
	"github.com/archivekit/webarchiver/internal/metadata"
)

// codeIslandLoader models the part of a <code-island data-loader="…">
// attribute this rewriter needs: the URL of the module federation
// manifest describing the remote's exposed modules.
type codeIslandLoader struct {
	Val struct {
		ClientModuleURL string `json:"clientModuleUrl"`
	} `json:"val"`
}

// federationManifest models the fields of an mf-manifest.json this
// rewriter rewrites: the remote's public path, its entry script, and
// the JS/CSS assets each exposed module pulls in. Fields this rewriter
// does not touch (shared scope, build metadata, types) round-trip
// through json.RawMessage-free struct tags and are simply dropped from
// the mirrored copy — the mirror exists to make the exposed graph
// locally loadable, not to byte-mirror the original file.
type federationManifest struct {
	MetaData struct {
		Name        string `json:"name"`
		PublicPath  string `json:"publicPath"`
		RemoteEntry struct {
			Name string `json:"name"`
			Path string `json:"path"`
		} `json:"remoteEntry"`
	} `json:"metaData"`
	Exposes []struct {
		Path   string `json:"path"`
		Assets struct {
			JS  assetBucket `json:"js"`
			CSS assetBucket `json:"css"`
		} `json:"assets"`
	} `json:"exposes"`
}

type assetBucket struct {
	Sync  []string `json:"sync"`
	Async []string `json:"async"`
}

// mirrorFederationManifests finds every <code-island data-loader> in
// doc, fetches its mf-manifest.json, mirrors the manifest tree into
// code-components/<host>/<path>/, downloads every exposed JS/CSS asset
// via download, and rewrites the data-loader attribute to point at the
// mirrored manifest. A manifest that fails to fetch or parse is left
// untouched — the code island keeps its original absolute URL.
func (r *DOMRewriter) mirrorFederationManifests(ctx context.Context, doc *goquery.Document, pageURL url.URL, outputDir string, download assets.DownloadFunc) {
	doc.Find("code-island[data-loader]").Each(func(_ int, s *goquery.Selection) {
		raw, _ := s.Attr("data-loader")
		var loader codeIslandLoader
		if err := json.Unmarshal([]byte(raw), &loader); err != nil || loader.Val.ClientModuleURL == "" {
			return
		}
		manifestURL, err := url.Parse(loader.Val.ClientModuleURL)
		if err != nil {
			return
		}
		resolved := *pageURL.ResolveReference(manifestURL)

		localManifestPath, ok := r.mirrorOneManifest(ctx, resolved, outputDir, download)
		if !ok {
			return
		}
		loader.Val.ClientModuleURL = localManifestPath
		rewritten, err := json.Marshal(loader)
		if err != nil {
			return
		}
		s.SetAttr("data-loader", string(rewritten))
	})
}

func (r *DOMRewriter) mirrorOneManifest(ctx context.Context, manifestURL url.URL, outputDir string, download assets.DownloadFunc) (string, bool) {
	body, err := r.fetchRaw(ctx, manifestURL)
	if err != nil {
		r.metadataSink.RecordError(time.Now(), "rewrite", "mirrorOneManifest", metadata.CauseNetworkFailure, err.Error(),
			[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, manifestURL.String())})
		return "", false
	}

	var manifest federationManifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		return "", false
	}

	localDir := filepath.Join("code-components", manifestURL.Hostname(), slugifyManifestPath(manifestURL.Path))
	if err := os.MkdirAll(filepath.Join(outputDir, localDir), 0o755); err != nil {
		r.metadataSink.RecordError(time.Now(), "rewrite", "mirrorOneManifest", metadata.CauseStorageFailure, err.Error(), nil)
		return "", false
	}

	base := manifestURL
	if manifest.MetaData.PublicPath != "" && manifest.MetaData.PublicPath != "auto" {
		if publicPathURL, err := url.Parse(manifest.MetaData.PublicPath); err == nil {
			base = *manifestURL.ResolveReference(publicPathURL)
		}
	}

	mirrorBucket := func(urls []string, category assets.Category) []string {
		out := make([]string, 0, len(urls))
		for _, assetPath := range urls {
			parsed, err := url.Parse(assetPath)
			if err != nil {
				out = append(out, assetPath)
				continue
			}
			resolved := *base.ResolveReference(parsed)
			local, ok := download(resolved, category)
			if !ok {
				out = append(out, assetPath)
				continue
			}
			out = append(out, local)
		}
		return out
	}

	for i := range manifest.Exposes {
		manifest.Exposes[i].Assets.JS.Sync = mirrorBucket(manifest.Exposes[i].Assets.JS.Sync, assets.CategoryJS)
		manifest.Exposes[i].Assets.JS.Async = mirrorBucket(manifest.Exposes[i].Assets.JS.Async, assets.CategoryJS)
		manifest.Exposes[i].Assets.CSS.Sync = mirrorBucket(manifest.Exposes[i].Assets.CSS.Sync, assets.CategoryCSS)
		manifest.Exposes[i].Assets.CSS.Async = mirrorBucket(manifest.Exposes[i].Assets.CSS.Async, assets.CategoryCSS)
	}

	if manifest.MetaData.RemoteEntry.Name != "" {
		entryPath := manifest.MetaData.RemoteEntry.Path + manifest.MetaData.RemoteEntry.Name
		if entryURL, err := url.Parse(entryPath); err == nil {
			resolved := *base.ResolveReference(entryURL)
			if local, ok := download(resolved, assets.CategoryJS); ok {
				manifest.MetaData.RemoteEntry.Path = ""
				manifest.MetaData.RemoteEntry.Name = local
			}
		}
	}
	manifest.MetaData.PublicPath = "./"

	rewrittenBody, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", false
	}
	manifestLocalPath := filepath.Join(localDir, "mf-manifest.json")
	if err := os.WriteFile(filepath.Join(outputDir, manifestLocalPath), rewrittenBody, 0o644); err != nil {
		r.metadataSink.RecordError(time.Now(), "rewrite", "mirrorOneManifest", metadata.CauseStorageFailure, err.Error(), nil)
		return "", false
	}
	r.metadataSink.RecordArtifact(metadata.ArtifactConfig, manifestLocalPath,
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrWritePath, manifestLocalPath)})
	return manifestLocalPath, true
}

func (r *DOMRewriter) fetchRaw(ctx context.Context, u url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mf-manifest fetch: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 10<<20))
}

func slugifyManifestPath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return "root"
	}
	return strings.ReplaceAll(p, "/", "-")
}
