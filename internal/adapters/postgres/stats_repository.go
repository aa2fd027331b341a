package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/viralforge/interaction-service/internal/domain"
	"github.com/viralforge/interaction-service/internal/ports"
)

type statsRepository struct {
	db *gorm.DB
}

// ApplyDelta claims the dedup mark and upserts the stat row in one
// transaction, so a redelivery after a partial failure can never add the
// same delta twice. Concurrent deltas for the same (post, category) are
// serialized by the store, never read-modify-written by application code.
func (r *statsRepository) ApplyDelta(ctx context.Context, postID uuid.UUID, category string, delta int64, at time.Time, mark ports.DedupMark) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := eventDedupModel{
			MessageID:   mark.MessageID,
			EventKind:   mark.EventKind,
			ProcessedAt: at,
			ExpiresAt:   mark.ExpiresAt,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}},
			DoNothing: true,
		}).Create(&claim)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Mark already present: the delta was committed on a prior delivery.
			return nil
		}
		rec := postStatModel{PostID: postID, StatsCategory: category, Count: delta, LastUpdatedAt: at}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "post_id"}, {Name: "stats_category"}},
			DoUpdates: clause.Assignments(map[string]any{
				"count":           gorm.Expr("post_stats.count + ?", delta),
				"last_updated_at": at,
			}),
		}).Create(&rec).Error; err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}

func (r *statsRepository) Get(ctx context.Context, postID uuid.UUID, category string) (domain.PostStat, error) {
	var rec postStatModel
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND stats_category = ?", postID, category).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.PostStat{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.PostStat{}, err
	}
	return domain.PostStat{PostID: rec.PostID, Category: rec.StatsCategory, Count: rec.Count, LastUpdatedAt: rec.LastUpdatedAt}, nil
}

var _ ports.StatsRepository = (*statsRepository)(nil)
