package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/viralforge/interaction-service/internal/domain"
	"github.com/viralforge/interaction-service/internal/ports"
)

type commentRepository struct {
	db *gorm.DB
}

func (r *commentRepository) Create(ctx context.Context, row domain.Comment) error {
	rec := commentModel{
		CommentID:       row.CommentID,
		PostID:          row.PostID,
		UserID:          row.UserID,
		Username:        row.Username,
		Content:         row.Content,
		ParentCommentID: row.ParentCommentID,
		PostTitle:       row.PostTitle,
		PostAuthorID:    row.PostAuthorID,
		CreatedAt:       row.CreatedAt,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rec).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *commentRepository) CountByPost(ctx context.Context, postID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&commentModel{}).
		Where("post_id = ?", postID).
		Count(&count).Error
	return count, err
}

var _ ports.CommentRepository = (*commentRepository)(nil)
