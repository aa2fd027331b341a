package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/viralforge/interaction-service/internal/domain"
	"github.com/viralforge/interaction-service/internal/ports"
)

type bookmarkRepository struct {
	db *gorm.DB
}

func (r *bookmarkRepository) Exists(ctx context.Context, postID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&bookmarkModel{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *bookmarkRepository) Create(ctx context.Context, row domain.Bookmark) error {
	rec := bookmarkModel{BookmarkID: row.BookmarkID, PostID: row.PostID, UserID: row.UserID, CreatedAt: row.CreatedAt}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *bookmarkRepository) Delete(ctx context.Context, postID, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&bookmarkModel{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *bookmarkRepository) CountByPost(ctx context.Context, postID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&bookmarkModel{}).
		Where("post_id = ?", postID).
		Count(&count).Error
	return count, err
}

var _ ports.BookmarkRepository = (*bookmarkRepository)(nil)
