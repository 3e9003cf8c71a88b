package repository

import (
	"context"
	"errors"

	"github.com/zfogg/biolink/internal/models"
	"gorm.io/gorm"
)

// LinkUpdate holds optional link fields; nil means unchanged
type LinkUpdate struct {
	URL       *string
	Title     *string
	Order     *int
	IsVisible *bool
}

// LinkRepository handles database operations for profile links
type LinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository creates a new link repository
func NewLinkRepository(db *gorm.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// ListByUser returns a user's links in display order
func (r *LinkRepository) ListByUser(ctx context.Context, userID string) ([]models.Link, error) {
	links := []models.Link{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("position ASC").
		Order("created_at ASC").
		Find(&links).Error
	return links, err
}

// Get returns a link by id
func (r *LinkRepository) Get(ctx context.Context, linkID string) (*models.Link, error) {
	var link models.Link
	err := r.db.WithContext(ctx).Where("id = ?", linkID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// Create appends a link after the user's current last link
func (r *LinkRepository) Create(ctx context.Context, link *models.Link) error {
	if link == nil || link.UserID == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next, err := nextPosition(tx, &models.Link{}, link.UserID)
		if err != nil {
			return err
		}
		link.Order = next
		link.ClickCount = 0
		return tx.Create(link).Error
	})
}

// Update applies non-nil fields to a link
func (r *LinkRepository) Update(ctx context.Context, linkID string, upd LinkUpdate) (*models.Link, error) {
	updates := map[string]interface{}{}
	if upd.URL != nil {
		updates["url"] = *upd.URL
	}
	if upd.Title != nil {
		updates["title"] = *upd.Title
	}
	if upd.Order != nil {
		updates["position"] = *upd.Order
	}
	if upd.IsVisible != nil {
		updates["is_visible"] = *upd.IsVisible
	}

	if len(updates) > 0 {
		res := r.db.WithContext(ctx).Model(&models.Link{}).Where("id = ?", linkID).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrLinkNotFound
		}
	}
	return r.Get(ctx, linkID)
}

// Delete removes a link and its click events
func (r *LinkRepository) Delete(ctx context.Context, linkID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_link_id = ?", linkID).Delete(&models.LinkClick{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", linkID).Delete(&models.Link{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrLinkNotFound
		}
		return nil
	})
}

// nextPosition returns max(position)+1 for the user's rows of model, or 0 when there are none
func nextPosition(tx *gorm.DB, model interface{}, userID string) (int, error) {
	var maxPos *int
	err := tx.Model(model).
		Where("user_id = ?", userID).
		Select("MAX(position)").
		Scan(&maxPos).Error
	if err != nil {
		return 0, err
	}
	if maxPos == nil {
		return 0, nil
	}
	return *maxPos + 1, nil
}
