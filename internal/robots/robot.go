package robots

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/archivekit/webarchiver/internal/metadata"
	"github.com/archivekit/webarchiver/internal/robots/cache"
)

/*
Responsibilities

- Fetch robots.txt per host
- Cache rules for crawl duration
- Enforce allow/disallow rules before enqueue

Robots checks occur before a URL enters the frontier.
*/

// Robot is the scheduler-facing port: decide whether a URL may be
// crawled, under whichever user agent Init/InitWithCache configured.
type Robot interface {
	Init(userAgent string)
	InitWithCache(userAgent string, c cache.Cache)
	Decide(targetURL url.URL) (Decision, *RobotsError)
}

// CachedRobot is the Robot implementation backed by RobotsFetcher. The
// fetched-and-parsed robots.txt per host is cached for the crawl's
// duration via the injected cache.Cache, so once a fetch has succeeded
// (a 4xx counts, as an empty rule set) later Decide calls against the
// same host reuse it. A failed fetch is not cached and is tried again
// on the next Decide.
type CachedRobot struct {
	metadataSink metadata.MetadataSink
	userAgent    string
	cache        cache.Cache
	fetcher      *RobotsFetcher
}

// NewCachedRobot returns a CachedRobot that has not yet been
// initialized; callers must call Init or InitWithCache before Decide.
func NewCachedRobot(metadataSink metadata.MetadataSink) CachedRobot {
	return CachedRobot{metadataSink: metadataSink}
}

// Init configures the user agent and installs a fresh, crawl-scoped
// in-memory cache.
func (r *CachedRobot) Init(userAgent string) {
	r.InitWithCache(userAgent, cache.NewMemoryCache())
}

// InitWithCache configures the user agent and installs the given
// cache implementation, letting callers share or seed the robots.txt
// cache across Robot instances.
func (r *CachedRobot) InitWithCache(userAgent string, c cache.Cache) {
	r.userAgent = userAgent
	r.cache = c
	r.fetcher = NewRobotsFetcher(r.metadataSink, userAgent, c)
}

// Decide fetches (or reuses the cached) robots.txt for targetURL's
// host and reports whether the configured user agent may crawl it.
func (r *CachedRobot) Decide(targetURL url.URL) (Decision, *RobotsError) {
	scheme := targetURL.Scheme
	if scheme == "" {
		scheme = "https"
	}

	result, err := r.fetcher.Fetch(context.Background(), scheme, targetURL.Host)
	if err != nil {
		r.metadataSink.RecordError(
			time.Now(),
			"robots",
			"CachedRobot.Decide",
			mapRobotsErrorToMetadataCause(err),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, targetURL.String()),
				metadata.NewAttr(metadata.AttrHost, targetURL.Host),
			},
		)
		return Decision{}, err
	}

	rs := MapResponseToRuleSet(result.Response, r.userAgent, result.FetchedAt)
	return decideFromRuleSet(rs, targetURL), nil
}

var _ Robot = (*CachedRobot)(nil)

// decideFromRuleSet applies the standard robots.txt precedence rule:
// among every allow/disallow pattern matching the URL's path, the
// longest pattern wins; a tie favors Allow. No matching group at all,
// or a robots.txt with no groups/rules whatsoever, both mean "allowed".
func decideFromRuleSet(rs ruleSet, targetURL url.URL) Decision {
	crawlDelay := time.Duration(0)
	if rs.crawlDelay != nil {
		crawlDelay = *rs.crawlDelay
	}

	if !rs.hasGroups {
		return Decision{Url: targetURL, Allowed: true, Reason: EmptyRuleSet, CrawlDelay: crawlDelay}
	}
	if !rs.matchedGroup {
		return Decision{Url: targetURL, Allowed: true, Reason: UserAgentNotMatched, CrawlDelay: crawlDelay}
	}

	path := targetURL.Path
	if path == "" {
		path = "/"
	}

	bestLen := -1
	bestAllow := true
	matched := false

	for _, rule := range rs.allowRules {
		if matchPath(rule.prefix, path) && len(rule.prefix) > bestLen {
			bestLen = len(rule.prefix)
			bestAllow = true
			matched = true
		}
	}
	for _, rule := range rs.disallowRules {
		if matchPath(rule.prefix, path) && len(rule.prefix) > bestLen {
			bestLen = len(rule.prefix)
			bestAllow = false
			matched = true
		}
	}

	if !matched {
		return Decision{Url: targetURL, Allowed: true, Reason: NoMatchingRules, CrawlDelay: crawlDelay}
	}
	if bestAllow {
		return Decision{Url: targetURL, Allowed: true, Reason: AllowedByRobots, CrawlDelay: crawlDelay}
	}
	return Decision{Url: targetURL, Allowed: false, Reason: DisallowedByRobots, CrawlDelay: crawlDelay}
}

// matchPath reports whether path satisfies pattern, using robots.txt's
// glob grammar: "*" matches any run of characters, and a trailing "$"
// anchors the match to the end of path. Everything else matches as a
// literal prefix.
func matchPath(pattern string, path string) bool {
	re, err := regexp.Compile("^" + wildcardToRegex(pattern))
	if err != nil {
		return false
	}
	return re.MatchString(path)
}

func wildcardToRegex(pattern string) string {
	var sb strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '*':
			sb.WriteString(".*")
		case c == '$' && i == len(pattern)-1:
			sb.WriteString("$")
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return sb.String()
}
