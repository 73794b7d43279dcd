package rewrite

import "github.com/PuerkitoBio/goquery"

// webflowBadgeSelector matches Webflow's published-site badge across
// its known markup variants: the modern wrapper id, the legacy anchor
// class, and a direct link-to-webflow.com fallback.
const webflowBadgeSelector = `#wf-badge, a.w-webflow-badge, a[href*="webflow.com?utm_campaign=brandjs"]`

func removeWebflowBadgeFrom(doc *goquery.Document) {
	doc.Find(webflowBadgeSelector).Remove()
}
