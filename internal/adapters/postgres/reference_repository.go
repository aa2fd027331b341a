package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/viralforge/interaction-service/internal/ports"
)

// referenceRepository reads the posts and users tables owned by the content
// and identity services. Existence checks only; this service never writes
// them.
type referenceRepository struct {
	db *gorm.DB
}

func (r *referenceRepository) PostExists(ctx context.Context, postID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("posts").
		Where("post_id = ? AND deleted_at IS NULL", postID).
		Count(&count).Error
	return count > 0, err
}

func (r *referenceRepository) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("users").
		Where("user_id = ? AND deleted_at IS NULL", userID).
		Count(&count).Error
	return count > 0, err
}

var _ ports.ReferenceRepository = (*referenceRepository)(nil)
