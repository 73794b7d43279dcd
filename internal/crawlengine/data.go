package crawlengine

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
)

// CompletionStats is returned once a crawl's worker pool has drained.
type CompletionStats struct {
	Total        int
	Succeeded    int
	Failed       int
	DurationMs   int64
	StaticPages  int
	CacheHitRate float64
}

// Redirect is one row of the site's redirects CSV: a source path that
// should permanently redirect to destination.
type Redirect struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Permanent   bool   `json:"permanent"`
}

// outputConfig mirrors Vercel's routing config shape closely enough
// that the archived tree can be served by anything that speaks it.
type outputConfig struct {
	CleanUrls     bool       `json:"cleanUrls"`
	TrailingSlash bool       `json:"trailingSlash"`
	Redirects     []Redirect `json:"redirects,omitempty"`
}

// loadRedirectsCSV reads a two-column (source,destination) CSV of
// redirect rules. A missing file is not an error — most sites have no
// redirects — it simply yields an empty rule set.
func loadRedirectsCSV(path string) ([]Redirect, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var redirects []Redirect
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < 2 {
			continue
		}
		redirects = append(redirects, Redirect{
			Source:      record[0],
			Destination: record[1],
			Permanent:   true,
		})
	}
	return redirects, nil
}

// writeOutputConfig writes a vercel.json-style routing config into
// outputDir, combining any redirects parsed from redirectsCSVPath.
func writeOutputConfig(outputDir string, redirectsCSVPath string) error {
	redirects, err := loadRedirectsCSV(redirectsCSVPath)
	if err != nil {
		return err
	}

	cfg := outputConfig{
		CleanUrls:     true,
		TrailingSlash: false,
		Redirects:     redirects,
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(outputDir, "vercel.json"), data, 0o644)
}
