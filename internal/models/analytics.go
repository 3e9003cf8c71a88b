package models

import (
	"time"

	"gorm.io/gorm"
)

// PageView is an immutable profile view event
type PageView struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"type:varchar(36);not null;index:idx_page_views_user_created" json:"userId"`
	Referrer  *string   `json:"referrer"`
	Source    *string   `gorm:"size:32;index" json:"source"`
	CreatedAt time.Time `gorm:"index:idx_page_views_user_created" json:"createdAt"`
}

func (PageView) TableName() string {
	return "page_views"
}

func (p *PageView) BeforeCreate(tx *gorm.DB) error {
	newID(&p.ID)
	return nil
}

// LinkClick is an immutable click on a Link
type LinkClick struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserLinkID string    `gorm:"type:varchar(36);not null;index:idx_link_clicks_link_created" json:"userLinkId"`
	UserLink   *Link     `gorm:"foreignKey:UserLinkID;constraint:OnDelete:CASCADE" json:"userLink,omitempty"`
	CreatedAt  time.Time `gorm:"index:idx_link_clicks_link_created" json:"createdAt"`
}

func (LinkClick) TableName() string {
	return "link_clicks"
}

func (c *LinkClick) BeforeCreate(tx *gorm.DB) error {
	newID(&c.ID)
	return nil
}

// IconClick is an immutable click on an Icon
type IconClick struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserIconID string    `gorm:"type:varchar(36);not null;index:idx_icon_clicks_icon_created" json:"userIconId"`
	UserIcon   *Icon     `gorm:"foreignKey:UserIconID;constraint:OnDelete:CASCADE" json:"userIcon,omitempty"`
	CreatedAt  time.Time `gorm:"index:idx_icon_clicks_icon_created" json:"createdAt"`
}

func (IconClick) TableName() string {
	return "icon_clicks"
}

func (c *IconClick) BeforeCreate(tx *gorm.DB) error {
	newID(&c.ID)
	return nil
}
