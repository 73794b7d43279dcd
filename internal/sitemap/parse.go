package sitemap

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// parseXML reads a sitemap or sitemap index document, matching element
// names by local name only so that the usual sitemaps.org namespace
// (or its absence) never matters. isIndex reports whether the root
// element was a <sitemapindex>; locs carries every <loc> value found,
// in document order.
func parseXML(body []byte) (isIndex bool, locs []string, err error) {
	dec := xml.NewDecoder(bytes.NewReader(body))

	var inLoc bool
	var cur strings.Builder

	for {
		tok, tokErr := dec.Token()
		if tokErr == io.EOF {
			break
		}
		if tokErr != nil {
			return isIndex, locs, tokErr
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch localName(t.Name) {
			case "sitemapindex":
				isIndex = true
			case "loc":
				inLoc = true
				cur.Reset()
			}
		case xml.CharData:
			if inLoc {
				cur.Write(t)
			}
		case xml.EndElement:
			if localName(t.Name) == "loc" {
				inLoc = false
				if v := strings.TrimSpace(cur.String()); v != "" {
					locs = append(locs, v)
				}
			}
		}
	}

	return isIndex, locs, nil
}

func localName(name xml.Name) string {
	return strings.ToLower(name.Local)
}

// utf8BOM is the byte sequence some servers prefix XML (and plain
// text) documents with; it must be stripped before sniffing the
// first real character.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// looksLikeXML reports whether body appears to be an XML document,
// independent of any Content-Type header the server may have sent.
func looksLikeXML(body []byte) bool {
	trimmed := bytes.TrimPrefix(body, utf8BOM)
	trimmed = bytes.TrimLeft(trimmed, " \t\r\n")
	return bytes.HasPrefix(trimmed, []byte("<"))
}

// parsePlainText reads a plain-text sitemap: one URL per line, blank
// lines ignored. Lines that look like they point at another sitemap
// document (by extension or by containing the word "sitemap") are
// returned separately so the caller can recurse into them instead of
// treating them as page URLs.
func parsePlainText(body []byte) (childSitemaps []string, pages []string) {
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if looksLikeChildSitemap(line) {
			childSitemaps = append(childSitemaps, line)
		} else {
			pages = append(pages, line)
		}
	}
	return childSitemaps, pages
}

func looksLikeChildSitemap(line string) bool {
	lower := strings.ToLower(line)
	if strings.HasSuffix(lower, ".xml") || strings.HasSuffix(lower, ".xml.gz") {
		return true
	}
	return strings.Contains(lower, "sitemap")
}
