package cache

import "strings"

// Key builders. Keys are deterministic and versionless so that every mutation path
// can name exactly the entries it invalidates.

// CacheKey joins a prefix and values with ':'
func CacheKey(prefix string, values ...string) string {
	return strings.Join(append([]string{prefix}, values...), ":")
}

// AnalyticsKey is the owner's analytics dashboard payload
func AnalyticsKey(userID string) string {
	return CacheKey("analytics", userID)
}

// ReferrersKey is the owner's per-source page view breakdown
func ReferrersKey(userID string) string {
	return CacheKey("analytics", userID, "referrers")
}

// LinksKey is the owner's link list
func LinksKey(userID string) string {
	return CacheKey("links", userID)
}

// IconsKey is the owner's social icon list
func IconsKey(userID string) string {
	return CacheKey("icons", userID)
}

// UserKey is the owner's full user record
func UserKey(userID string) string {
	return CacheKey("user", userID)
}

// ProfileKey is the public profile page payload, keyed by slug
func ProfileKey(slug string) string {
	return CacheKey("profile", strings.ToLower(slug))
}

// AnalyticsKeys returns every analytics key for a user
func AnalyticsKeys(userID string) []string {
	return []string{AnalyticsKey(userID), ReferrersKey(userID)}
}
