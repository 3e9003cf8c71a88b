package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/zfogg/biolink/internal/models"
	"github.com/zfogg/biolink/internal/util"
	"gorm.io/gorm"
)

// MaxEventRows caps every analytics query
const MaxEventRows = 50000

// UserUpdate holds optional user fields; nil means unchanged
type UserUpdate struct {
	Name        *string
	Slug        *string
	Description *string
}

// PreferencesUpdate holds optional preference fields; nil means unchanged
type PreferencesUpdate struct {
	EnableGuestbook *bool
	ShowClickCounts *bool
	ShowSocialIcons *bool
	Theme           *string
}

// UserRepository handles all database operations for users and their preferences
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user together with default preferences
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user == nil || user.Slug == "" {
		return ErrInvalidInput
	}
	user.Slug = strings.ToLower(user.Slug)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prefs := user.Preferences
		user.Preferences = nil
		if err := tx.Create(user).Error; err != nil {
			if util.IsUniqueViolation(err) {
				return ErrSlugTaken
			}
			return err
		}
		if prefs == nil {
			prefs = models.DefaultPreferences(user.ID)
		}
		prefs.UserID = user.ID
		if err := tx.Create(prefs).Error; err != nil {
			return err
		}
		user.Preferences = prefs
		return nil
	})
}

// GetByID returns the bare user row
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Exists reports whether a user id is present
func (r *UserRepository) Exists(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error
	return count > 0, err
}

// GetWithDetails returns the owner's user record with preferences, guestbook
// comments and page views (newest first, capped)
func (r *UserRepository) GetWithDetails(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Preferences").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Preload("Views", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Limit(MaxEventRows)
		}).
		Where("id = ?", userID).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetProfileBySlug returns a user with links and icons in display order and preferences
func (r *UserRepository) GetProfileBySlug(ctx context.Context, slug string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Preferences").
		Preload("Links", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("created_at ASC")
		}).
		Preload("Icons", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("created_at ASC")
		}).
		Where("LOWER(slug) = ?", strings.ToLower(slug)).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update applies non-nil fields and returns the updated user and its previous slug.
// A slug owned by another user yields ErrSlugTaken.
func (r *UserRepository) Update(ctx context.Context, userID string, upd UserUpdate) (*models.User, string, error) {
	var user models.User
	var oldSlug string

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		oldSlug = user.Slug

		updates := map[string]interface{}{}
		if upd.Name != nil {
			updates["name"] = *upd.Name
		}
		if upd.Description != nil {
			updates["description"] = *upd.Description
		}
		if upd.Slug != nil && !strings.EqualFold(*upd.Slug, user.Slug) {
			slug := strings.ToLower(*upd.Slug)
			var taken int64
			if err := tx.Model(&models.User{}).
				Where("LOWER(slug) = ? AND id <> ?", slug, userID).
				Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				return ErrSlugTaken
			}
			updates["slug"] = slug
		}
		if len(updates) == 0 {
			return nil
		}

		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			if util.IsUniqueViolation(err) {
				return ErrSlugTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return &user, oldSlug, nil
}

// SetImage replaces the avatar URL and returns the previous one
func (r *UserRepository) SetImage(ctx context.Context, userID, imageURL string) (*models.User, string, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	previous := user.Image
	if err := r.db.WithContext(ctx).Model(user).Update("image", imageURL).Error; err != nil {
		return nil, "", err
	}
	return user, previous, nil
}

// Delete removes the user and everything it owns in one transaction.
// Children are deleted explicitly so the result does not depend on the driver
// enforcing ON DELETE CASCADE.
func (r *UserRepository) Delete(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		linkIDs := tx.Model(&models.Link{}).Select("id").Where("user_id = ?", userID)
		iconIDs := tx.Model(&models.Icon{}).Select("id").Where("user_id = ?", userID)

		steps := []func() error{
			func() error { return tx.Where("user_link_id IN (?)", linkIDs).Delete(&models.LinkClick{}).Error },
			func() error { return tx.Where("user_icon_id IN (?)", iconIDs).Delete(&models.IconClick{}).Error },
			func() error { return tx.Where("user_id = ?", userID).Delete(&models.Link{}).Error },
			func() error { return tx.Where("user_id = ?", userID).Delete(&models.Icon{}).Error },
			func() error { return tx.Where("user_id = ?", userID).Delete(&models.PageView{}).Error },
			func() error { return tx.Where("user_id = ?", userID).Delete(&models.Comment{}).Error },
			func() error { return tx.Where("user_id = ?", userID).Delete(&models.Preferences{}).Error },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}

		res := tx.Where("id = ?", userID).Delete(&models.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

// GetPreferences returns a user's preferences, creating defaults for users that predate them
func (r *UserRepository) GetPreferences(ctx context.Context, userID string) (*models.Preferences, error) {
	var prefs models.Preferences
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&prefs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultPreferences(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

// UpdatePreferences applies non-nil fields, creating the row if it does not exist yet
func (r *UserRepository) UpdatePreferences(ctx context.Context, userID string, upd PreferencesUpdate) (*models.Preferences, error) {
	var prefs models.Preferences

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", userID).First(&prefs).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			prefs = *models.DefaultPreferences(userID)
			applyPreferences(&prefs, upd)
			return tx.Create(&prefs).Error
		}
		if err != nil {
			return err
		}

		applyPreferences(&prefs, upd)
		// Select("*") so false values are written
		return tx.Model(&prefs).Select("*").Updates(&prefs).Error
	})
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

func applyPreferences(p *models.Preferences, upd PreferencesUpdate) {
	if upd.EnableGuestbook != nil {
		p.EnableGuestbook = *upd.EnableGuestbook
	}
	if upd.ShowClickCounts != nil {
		p.ShowClickCounts = *upd.ShowClickCounts
	}
	if upd.ShowSocialIcons != nil {
		p.ShowSocialIcons = *upd.ShowSocialIcons
	}
	if upd.Theme != nil {
		p.Theme = *upd.Theme
	}
}
