package repository

import (
	"context"

	"github.com/zfogg/biolink/internal/models"
	"gorm.io/gorm"
)

// CommentRepository handles guestbook comments
type CommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts a comment
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment == nil || comment.UserID == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(comment).Error
}

// CountByUser returns the number of comments on a user's guestbook
func (r *CommentRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
