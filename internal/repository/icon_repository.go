package repository

import (
	"context"
	"errors"

	"github.com/zfogg/biolink/internal/models"
	"github.com/zfogg/biolink/internal/util"
	"gorm.io/gorm"
)

// IconUpdate holds the mutable icon fields; nil means unchanged.
// URL, platform and logo are fixed at creation.
type IconUpdate struct {
	Order     *int
	IsVisible *bool
}

// IconRepository handles database operations for social icons
type IconRepository struct {
	db *gorm.DB
}

// NewIconRepository creates a new icon repository
func NewIconRepository(db *gorm.DB) *IconRepository {
	return &IconRepository{db: db}
}

// ListByUser returns a user's icons in display order
func (r *IconRepository) ListByUser(ctx context.Context, userID string) ([]models.Icon, error) {
	icons := []models.Icon{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("position ASC").
		Order("created_at ASC").
		Find(&icons).Error
	return icons, err
}

// Get returns an icon by id
func (r *IconRepository) Get(ctx context.Context, iconID string) (*models.Icon, error) {
	var icon models.Icon
	err := r.db.WithContext(ctx).Where("id = ?", iconID).First(&icon).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrIconNotFound
	}
	if err != nil {
		return nil, err
	}
	return &icon, nil
}

// Create appends an icon. The logo is derived from the platform here and
// ErrPlatformTaken is returned if the user already has an icon for it.
func (r *IconRepository) Create(ctx context.Context, icon *models.Icon) error {
	if icon == nil || icon.UserID == "" {
		return ErrInvalidInput
	}
	logo, ok := models.PlatformLogo(icon.Platform)
	if !ok {
		return ErrInvalidInput
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Icon{}).
			Where("user_id = ? AND platform = ?", icon.UserID, icon.Platform).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrPlatformTaken
		}

		next, err := nextPosition(tx, &models.Icon{}, icon.UserID)
		if err != nil {
			return err
		}
		icon.Order = next
		icon.Logo = logo
		icon.ClickCount = 0

		if err := tx.Create(icon).Error; err != nil {
			// Lost a race with a concurrent create for the same platform
			if util.IsUniqueViolation(err) {
				return ErrPlatformTaken
			}
			return err
		}
		return nil
	})
}

// Update applies order/visibility changes
func (r *IconRepository) Update(ctx context.Context, iconID string, upd IconUpdate) (*models.Icon, error) {
	updates := map[string]interface{}{}
	if upd.Order != nil {
		updates["position"] = *upd.Order
	}
	if upd.IsVisible != nil {
		updates["is_visible"] = *upd.IsVisible
	}

	if len(updates) > 0 {
		res := r.db.WithContext(ctx).Model(&models.Icon{}).Where("id = ?", iconID).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrIconNotFound
		}
	}
	return r.Get(ctx, iconID)
}

// Delete removes an icon and its click events
func (r *IconRepository) Delete(ctx context.Context, iconID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_icon_id = ?", iconID).Delete(&models.IconClick{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", iconID).Delete(&models.Icon{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrIconNotFound
		}
		return nil
	})
}
