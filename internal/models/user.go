package models

import (
	"time"

	"gorm.io/gorm"
)

// User owns a public profile page addressed by Slug
type User struct {
	ID          string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email       string `gorm:"index" json:"email,omitempty"`
	Name        string `gorm:"size:50" json:"name"`
	Slug        string `gorm:"uniqueIndex;size:30;not null" json:"slug"`
	Description string `gorm:"size:300" json:"description"`
	Image       string `json:"image"` // avatar URL

	Preferences *Preferences `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"preferences,omitempty"`
	Links       []Link       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"links,omitempty"`
	Icons       []Icon       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"icons,omitempty"`
	Comments    []Comment    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
	Views       []PageView   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"views,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	newID(&u.ID)
	return nil
}

// Preferences holds per-user feature toggles
type Preferences struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID          string    `gorm:"uniqueIndex;type:varchar(36);not null" json:"userId"`
	EnableGuestbook bool      `gorm:"not null;default:false" json:"enableGuestbook"`
	ShowClickCounts bool      `gorm:"not null;default:false" json:"showClickCounts"`
	ShowSocialIcons bool      `gorm:"not null" json:"showSocialIcons"`
	Theme           string    `gorm:"size:20;not null;default:'system'" json:"theme"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (Preferences) TableName() string {
	return "user_preferences"
}

func (p *Preferences) BeforeCreate(tx *gorm.DB) error {
	newID(&p.ID)
	return nil
}

// DefaultPreferences returns the preferences a new user starts with
func DefaultPreferences(userID string) *Preferences {
	return &Preferences{
		UserID:          userID,
		EnableGuestbook: false,
		ShowClickCounts: false,
		ShowSocialIcons: true,
		Theme:           "system",
	}
}

// Themes accepted for Preferences.Theme
var Themes = []string{"system", "light", "dark"}

// PublicProfile is the profile page payload for anonymous visitors
type PublicProfile struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Slug        string       `json:"slug"`
	Description string       `json:"description"`
	Image       string       `json:"image"`
	Links       []Link       `json:"links"`
	Icons       []Icon       `json:"icons"`
	Preferences *Preferences `json:"preferences"`
}

// ToPublicProfile drops private fields (email) from a fully loaded user
func ToPublicProfile(u *User) *PublicProfile {
	if u == nil {
		return nil
	}
	links := u.Links
	if links == nil {
		links = []Link{}
	}
	icons := u.Icons
	if icons == nil {
		icons = []Icon{}
	}
	return &PublicProfile{
		ID:          u.ID,
		Name:        u.Name,
		Slug:        u.Slug,
		Description: u.Description,
		Image:       u.Image,
		Links:       links,
		Icons:       icons,
		Preferences: u.Preferences,
	}
}
