package models

import (
	"time"

	"gorm.io/gorm"
)

// Link is a profile link. ClickCount mirrors the number of LinkClick rows
// referencing it and is only changed inside the same transaction as those rows.
type Link struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID     string    `gorm:"type:varchar(36);not null;index:idx_links_user_order" json:"userId"`
	URL        string    `gorm:"not null" json:"url"`
	Title      string    `gorm:"size:100;not null" json:"title"`
	Order      int       `gorm:"column:position;not null;default:0;index:idx_links_user_order" json:"order"`
	ClickCount int       `gorm:"not null;default:0" json:"clickCount"`
	IsVisible  bool      `gorm:"not null" json:"isVisible"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (Link) TableName() string {
	return "user_links"
}

func (l *Link) BeforeCreate(tx *gorm.DB) error {
	newID(&l.ID)
	return nil
}
