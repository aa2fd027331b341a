package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/viralforge/interaction-service/internal/ports"
)

type eventDedupRepository struct {
	db *gorm.DB
}

func (r *eventDedupRepository) IsDuplicate(ctx context.Context, messageID string, now time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&eventDedupModel{}).
		Where("message_id = ? AND expires_at > ?", messageID, now).
		Count(&count).Error
	return count > 0, err
}

func (r *eventDedupRepository) MarkProcessed(ctx context.Context, messageID, eventKind string, expiresAt time.Time) error {
	rec := eventDedupModel{
		MessageID:   messageID,
		EventKind:   eventKind,
		ProcessedAt: time.Now().UTC(),
		ExpiresAt:   expiresAt,
	}
	return r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Assign(map[string]any{
			"event_kind":   eventKind,
			"processed_at": rec.ProcessedAt,
			"expires_at":   expiresAt,
		}).
		FirstOrCreate(&rec).Error
}

var _ ports.EventDedupRepository = (*eventDedupRepository)(nil)
