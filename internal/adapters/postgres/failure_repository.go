package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/viralforge/interaction-service/internal/domain"
	"github.com/viralforge/interaction-service/internal/ports"
)

type failureRepository struct {
	db *gorm.DB
}

func (r *failureRepository) Create(ctx context.Context, row domain.FailureRecord) error {
	rec := failureModel{
		MessageID:       row.MessageID,
		EventKind:       string(row.EventKind),
		TargetPostID:    row.TargetPostID,
		Envelope:        string(row.Envelope),
		FailureReason:   row.FailureReason,
		FinalRetryCount: row.FinalRetryCount,
		FailedAt:        row.FailedAt,
	}
	err := r.db.WithContext(ctx).Create(&rec).Error
	if isUniqueViolation(err) {
		// same envelope dead-lettered twice; the first record wins
		return nil
	}
	return err
}

func (r *failureRepository) GetByMessageID(ctx context.Context, messageID string) (domain.FailureRecord, error) {
	var rec failureModel
	err := r.db.WithContext(ctx).Where("message_id = ?", messageID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.FailureRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.FailureRecord{}, err
	}
	return toFailureRecord(rec), nil
}

func (r *failureRepository) List(ctx context.Context, filter domain.FailureFilter) ([]domain.FailureRecord, error) {
	q := r.db.WithContext(ctx).Model(&failureModel{})
	if filter.EventKind != "" {
		q = q.Where("event_kind = ?", string(filter.EventKind))
	}
	if filter.PostID != nil {
		q = q.Where("target_post_id = ?", *filter.PostID)
	}
	if filter.From != nil {
		q = q.Where("failed_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("failed_at < ?", *filter.To)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	var rows []failureModel
	if err := q.Order("failed_at desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.FailureRecord, 0, len(rows))
	for _, rec := range rows {
		out = append(out, toFailureRecord(rec))
	}
	return out, nil
}

func (r *failureRepository) Delete(ctx context.Context, messageID string) error {
	return r.db.WithContext(ctx).Where("message_id = ?", messageID).Delete(&failureModel{}).Error
}

func (r *failureRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("failed_at < ?", cutoff).Delete(&failureModel{})
	return res.RowsAffected, res.Error
}

func toFailureRecord(rec failureModel) domain.FailureRecord {
	return domain.FailureRecord{
		MessageID:       rec.MessageID,
		EventKind:       domain.EventKind(rec.EventKind),
		TargetPostID:    rec.TargetPostID,
		Envelope:        []byte(rec.Envelope),
		FailureReason:   rec.FailureReason,
		FinalRetryCount: rec.FinalRetryCount,
		FailedAt:        rec.FailedAt,
	}
}

var _ ports.FailureRepository = (*failureRepository)(nil)
