package assets

import (
	"net/url"
	"strings"
	"sync"

	"github.com/archivekit/webarchiver/pkg/urlutil"
)

// hostileDomains is a hardcoded analytics/tracking blocklist (spec:
// "A hardcoded hostile-domain list (analytics/tracking) blocks
// downloads unless the host matches an allow-list").
var hostileDomains = []string{
	"google-analytics.com",
	"googletagmanager.com",
	"doubleclick.net",
	"facebook.com",
	"facebook.net",
	"hotjar.com",
	"segment.com",
	"segment.io",
	"mixpanel.com",
	"sentry.io",
	"clarity.ms",
	"amplitude.com",
}

// cdnAllowList narrows the Open Question's unchecked allow-list to a
// fixed, closed set: Webflow's CDN plus Google Fonts. Same-origin is
// checked separately by isAllowed.
var cdnAllowList = []string{
	"assets-global.website-files.com",
	"webflow.com",
	"fonts.googleapis.com",
	"fonts.gstatic.com",
}

func isHostile(host string) bool {
	for _, d := range hostileDomains {
		if urlutil.SameOrHostSuffix(host, d) {
			return true
		}
	}
	return false
}

func isAllowListed(host string) bool {
	for _, d := range cdnAllowList {
		if urlutil.SameOrHostSuffix(host, d) {
			return true
		}
	}
	return false
}

// isAllowed reports whether assetHost may be downloaded from, given
// pageHost is the origin of the page/script referencing it. Same-origin
// is always permitted; a hostile-listed host is blocked unless it is
// also on the CDN allow-list.
func isAllowed(assetHost, pageHost string) bool {
	assetHost = strings.ToLower(assetHost)
	pageHost = strings.ToLower(pageHost)
	if assetHost == pageHost {
		return true
	}
	if isHostile(assetHost) {
		return isAllowListed(assetHost)
	}
	return true
}

// BlacklistRule is one entry of the merged per-site ∪ global download
// blacklist (spec: "Blacklist rule grammar").
type BlacklistRule struct {
	Raw string
}

// matches reports whether u is blocked by the rule. exactKey is u with
// fragment and query stripped (compared against exact rules); prefixKey
// is u with its fragment stripped but query preserved (prefix rules
// match with the query intact per spec).
func (r BlacklistRule) matches(u url.URL, exactKey string, prefixKey string) bool {
	switch {
	case strings.HasPrefix(r.Raw, "domain:"):
		return urlutil.SameOrHostSuffix(u.Hostname(), strings.TrimPrefix(r.Raw, "domain:"))
	case strings.HasSuffix(r.Raw, "*"):
		return strings.HasPrefix(prefixKey, strings.TrimSuffix(r.Raw, "*"))
	default:
		return exactKey == r.Raw
	}
}

// Blacklist merges per-site and global download-block rules and
// deduplicates the "blocked" log line so repeated hits on the same
// (rule, url) pair are only logged once per Blacklist instance.
type Blacklist struct {
	mu     sync.Mutex
	rules  []BlacklistRule
	logged map[string]bool
}

// NewBlacklist builds a Blacklist from the union of site-scoped and
// global rule strings.
func NewBlacklist(siteRules, globalRules []string) *Blacklist {
	rules := make([]BlacklistRule, 0, len(siteRules)+len(globalRules))
	for _, r := range siteRules {
		rules = append(rules, BlacklistRule{Raw: r})
	}
	for _, r := range globalRules {
		rules = append(rules, BlacklistRule{Raw: r})
	}
	return &Blacklist{rules: rules, logged: make(map[string]bool)}
}

// Check reports whether u matches any rule, returning the first
// matching rule's raw text and whether this (rule, url) pair should be
// logged now (true only the first time it is observed).
func (b *Blacklist) Check(u url.URL) (blocked bool, rule string, shouldLog bool) {
	fragmentless := u
	fragmentless.Fragment = ""
	fragmentless.RawFragment = ""

	exact := fragmentless
	exact.RawQuery = ""
	exact.ForceQuery = false
	exactKey := exact.String()
	prefixKey := fragmentless.String()

	for _, r := range b.rules {
		if r.matches(fragmentless, exactKey, prefixKey) {
			dedupKey := r.Raw + "\x00" + prefixKey
			b.mu.Lock()
			first := !b.logged[dedupKey]
			b.logged[dedupKey] = true
			b.mu.Unlock()
			return true, r.Raw, first
		}
	}
	return false, "", false
}
