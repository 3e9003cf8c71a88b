package referrer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var labels = map[Source]string{
	Direct:       "Direct",
	Unknown:      "Unknown",
	"twitter":    "Twitter/X",
	"linkedin":   "LinkedIn",
	"tiktok":     "TikTok",
	"youtube":    "YouTube",
	"whatsapp":   "WhatsApp",
	"duckduckgo": "DuckDuckGo",
	"teams":      "Microsoft Teams",
	"github":     "GitHub",
	"gitlab":     "GitLab",
}

// Label returns the display name for a source. Sources without a special case
// are capitalized.
func Label(s Source) string {
	if label, ok := labels[s]; ok {
		return label
	}
	str := strings.TrimSpace(string(s))
	if str == "" {
		return labels[Direct]
	}
	r, size := utf8.DecodeRuneInString(str)
	return string(unicode.ToUpper(r)) + str[size:]
}
