package client

import (
	"time"

	"github.com/zfogg/biolink/internal/models"
)

// Analytics is the owner's dashboard data
type Analytics struct {
	PageViews  []models.PageView  `json:"pageViews"`
	LinkClicks []models.LinkClick `json:"linkClicks"`
	IconClicks []models.IconClick `json:"iconClicks"`
}

// ReferrerEntry is one row of the traffic source breakdown
type ReferrerEntry struct {
	Source string `json:"source"`
	Label  string `json:"label"`
	Count  int64  `json:"count"`
}

// Result is the body of delete and archive responses
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CommentInput is a guestbook submission
type CommentInput struct {
	UserID  string `json:"userId"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Message string `json:"message"`
}

// DeleteOptions narrows an analytics archive-and-delete run
type DeleteOptions struct {
	Type     string // "pageView", "linkClick", "iconClick" or empty for all
	DateFrom *time.Time
	DateTo   *time.Time
}

// LinkInput creates a link
type LinkInput struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// LinkUpdate changes any subset of a link's fields
type LinkUpdate struct {
	URL       *string `json:"url,omitempty"`
	Title     *string `json:"title,omitempty"`
	Order     *int    `json:"order,omitempty"`
	IsVisible *bool   `json:"isVisible,omitempty"`
}

// IconInput creates a social icon
type IconInput struct {
	URL      string `json:"url"`
	Platform string `json:"platform"`
}

// IconUpdate changes an icon's position or visibility
type IconUpdate struct {
	Order     *int  `json:"order,omitempty"`
	IsVisible *bool `json:"isVisible,omitempty"`
}

// UserUpdate changes any subset of the profile fields
type UserUpdate struct {
	Name        *string `json:"name,omitempty"`
	Slug        *string `json:"slug,omitempty"`
	Description *string `json:"description,omitempty"`
}

// PreferencesUpdate changes any subset of the preferences
type PreferencesUpdate struct {
	EnableGuestbook *bool   `json:"enableGuestbook,omitempty"`
	ShowClickCounts *bool   `json:"showClickCounts,omitempty"`
	ShowSocialIcons *bool   `json:"showSocialIcons,omitempty"`
	Theme           *string `json:"theme,omitempty"`
}
