package models

import (
	"sort"
	"time"

	"gorm.io/gorm"
)

// Icon is a social platform icon on the profile page. A user has at most one
// icon per platform. Logo is derived from Platform on creation and never changes.
type Icon struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID     string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_icons_user_platform" json:"userId"`
	URL        string    `gorm:"not null" json:"url"`
	Platform   string    `gorm:"size:32;not null;uniqueIndex:idx_icons_user_platform" json:"platform"`
	Logo       string    `gorm:"size:64;not null" json:"logo"`
	Order      int       `gorm:"column:position;not null;default:0" json:"order"`
	ClickCount int       `gorm:"not null;default:0" json:"clickCount"`
	IsVisible  bool      `gorm:"not null" json:"isVisible"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (Icon) TableName() string {
	return "user_icons"
}

func (i *Icon) BeforeCreate(tx *gorm.DB) error {
	newID(&i.ID)
	return nil
}

// platformLogos maps supported platforms to their icon identifiers
var platformLogos = map[string]string{
	"bluesky":   "simple-icons:bluesky",
	"discord":   "simple-icons:discord",
	"email":     "lucide:mail",
	"facebook":  "simple-icons:facebook",
	"github":    "simple-icons:github",
	"gitlab":    "simple-icons:gitlab",
	"instagram": "simple-icons:instagram",
	"linkedin":  "simple-icons:linkedin",
	"mastodon":  "simple-icons:mastodon",
	"medium":    "simple-icons:medium",
	"pinterest": "simple-icons:pinterest",
	"reddit":    "simple-icons:reddit",
	"spotify":   "simple-icons:spotify",
	"substack":  "simple-icons:substack",
	"telegram":  "simple-icons:telegram",
	"threads":   "simple-icons:threads",
	"tiktok":    "simple-icons:tiktok",
	"twitch":    "simple-icons:twitch",
	"twitter":   "simple-icons:x",
	"website":   "lucide:globe",
	"whatsapp":  "simple-icons:whatsapp",
	"youtube":   "simple-icons:youtube",
}

// PlatformLogo returns the logo for a platform and whether the platform is supported
func PlatformLogo(platform string) (string, bool) {
	logo, ok := platformLogos[platform]
	return logo, ok
}

// Platforms returns the supported platform names, sorted
func Platforms() []string {
	names := make([]string, 0, len(platformLogos))
	for name := range platformLogos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
