package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlacklist_ExactMatch_QueryAndFragmentStripped(t *testing.T) {
	b := NewBlacklist([]string{"https://example.com/tracker.js"}, nil)
	blocked, rule, logged := b.Check(mustURL(t, "https://example.com/tracker.js?v=2#x"))
	assert.True(t, blocked)
	assert.Equal(t, "https://example.com/tracker.js", rule)
	assert.True(t, logged)
}

func TestBlacklist_PrefixMatch_PreservesQuery(t *testing.T) {
	b := NewBlacklist(nil, []string{"https://cdn.example.com/ads/*"})
	blocked, _, _ := b.Check(mustURL(t, "https://cdn.example.com/ads/banner.js?slot=1"))
	assert.True(t, blocked)

	blocked2, _, _ := b.Check(mustURL(t, "https://cdn.example.com/other/banner.js"))
	assert.False(t, blocked2)
}

func TestBlacklist_DomainRule_HostSuffix(t *testing.T) {
	b := NewBlacklist(nil, []string{"domain:tracking.io"})
	blocked, _, _ := b.Check(mustURL(t, "https://beacon.tracking.io/px.gif"))
	assert.True(t, blocked)

	blocked2, _, _ := b.Check(mustURL(t, "https://nottracking.io/px.gif"))
	assert.False(t, blocked2)
}

func TestBlacklist_LogsOncePerRuleURLPair(t *testing.T) {
	b := NewBlacklist([]string{"https://example.com/tracker.js"}, nil)
	_, _, first := b.Check(mustURL(t, "https://example.com/tracker.js"))
	_, _, second := b.Check(mustURL(t, "https://example.com/tracker.js"))
	assert.True(t, first)
	assert.False(t, second)
}

func TestIsAllowed_SameOriginAlwaysAllowed(t *testing.T) {
	assert.True(t, isAllowed("example.com", "example.com"))
}

func TestIsAllowed_HostileBlockedUnlessCDNAllowListed(t *testing.T) {
	assert.False(t, isAllowed("www.google-analytics.com", "example.com"))
	assert.True(t, isAllowed("assets-global.website-files.com", "example.com"))
	assert.True(t, isAllowed("fonts.gstatic.com", "example.com"))
}

func TestIsAllowed_UnlistedThirdPartyAllowed(t *testing.T) {
	assert.True(t, isAllowed("images.unsplash.com", "example.com"))
}
