package pageprocessor

import "time"

// Config holds the Page Processor's own tunables, kept separate from
// internal/config.Config (the crawl-scope/politeness/extraction
// settings) since these govern a single page's fetch-or-render decision
// rather than crawl-wide traversal policy.
type Config struct {
	// DynamicMarkers lists the substrings/selectors that mark a static
	// fetch as a client-rendered shell needing the browser path.
	// Defaults to DefaultDynamicMarkers when left empty, so new
	// frameworks are recognized by widening this slice rather than a
	// code change (Open Question: dynamic-detection markers are
	// configurable).
	DynamicMarkers []string
	// NavigationTimeout bounds a single dynamic-path page navigation.
	NavigationTimeout time.Duration
	// NetworkIdleWindow is the quiescence window polled for after
	// navigation before the DOM is considered settled.
	NetworkIdleWindow time.Duration
	UserAgent         string
	RemoveWebflowBadge bool
}

func (c Config) markers() []string {
	if len(c.DynamicMarkers) > 0 {
		return c.DynamicMarkers
	}
	return DefaultDynamicMarkers
}

func (c Config) navigationTimeout() time.Duration {
	if c.NavigationTimeout > 0 {
		return c.NavigationTimeout
	}
	return 30 * time.Second
}

func (c Config) networkIdleWindow() time.Duration {
	if c.NetworkIdleWindow > 0 {
		return c.NetworkIdleWindow
	}
	return 500 * time.Millisecond
}
