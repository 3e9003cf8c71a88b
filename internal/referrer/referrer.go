// Package referrer classifies HTTP referrers into coarse traffic sources.
//
// Classification results are persisted with every page view and compared across
// time, so the table order and category names must not change.
package referrer

import "strings"

// Source is a traffic source category
type Source string

const (
	Direct  Source = "direct"
	Unknown Source = "unknown"
)

type rule struct {
	needles []string
	source  Source
}

// rules is matched in order; the first rule with a matching substring wins
var rules = []rule{
	{[]string{"facebook.com", "fb.com", "fb.me", "fbcdn.net"}, "facebook"},
	{[]string{"twitter.com", "x.com", "t.co"}, "twitter"},
	{[]string{"instagram.com", "ig.me"}, "instagram"},
	{[]string{"linkedin.com", "lnkd.in"}, "linkedin"},
	{[]string{"reddit.com", "redd.it"}, "reddit"},
	{[]string{"tiktok.com"}, "tiktok"},
	{[]string{"pinterest.com", "pin.it"}, "pinterest"},
	{[]string{"youtube.com", "youtu.be"}, "youtube"},
	{[]string{"whatsapp.com", "wa.me"}, "whatsapp"},
	{[]string{"telegram.org", "t.me"}, "telegram"},
	{[]string{"discord.com", "discord.gg"}, "discord"},
	{[]string{"mastodon"}, "mastodon"},
	{[]string{"bluesky.social", "bsky.app"}, "bluesky"},
	{[]string{"google."}, "google"},
	{[]string{"bing.com", "bing."}, "bing"},
	{[]string{"yahoo.com", "yahoo."}, "yahoo"},
	{[]string{"duckduckgo.com"}, "duckduckgo"},
	{[]string{"yandex.com", "yandex.ru", "yandex."}, "yandex"},
	{[]string{"slack.com"}, "slack"},
	{[]string{"teams.microsoft.com"}, "teams"},
	{[]string{"github.com"}, "github"},
	{[]string{"gitlab.com"}, "gitlab"},
	{[]string{"medium.com"}, "medium"},
	{[]string{"substack.com"}, "substack"},
}

// Classifier maps raw referrers to sources. The zero value classifies without
// same-origin detection.
type Classifier struct {
	baseURL string
}

// NewClassifier creates a classifier treating referrers from baseURL as direct traffic
func NewClassifier(baseURL string) *Classifier {
	return &Classifier{baseURL: strings.ToLower(strings.TrimSpace(baseURL))}
}

// Classify returns the source for a referrer. Blank and same-origin referrers are
// Direct; referrers matching no rule are Unknown.
func (c *Classifier) Classify(ref string) Source {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return Direct
	}

	// An empty base URL would match everything
	if c != nil && c.baseURL != "" && strings.Contains(ref, c.baseURL) {
		return Direct
	}

	for _, r := range rules {
		for _, needle := range r.needles {
			if strings.Contains(ref, needle) {
				return r.source
			}
		}
	}
	return Unknown
}

// ClassifyPtr classifies an optional referrer
func (c *Classifier) ClassifyPtr(ref *string) Source {
	if ref == nil {
		return Direct
	}
	return c.Classify(*ref)
}

// Sources lists every category Classify can return, in table order
func Sources() []Source {
	out := []Source{Direct}
	for _, r := range rules {
		out = append(out, r.source)
	}
	return append(out, Unknown)
}
