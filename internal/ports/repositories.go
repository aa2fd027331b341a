package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/viralforge/interaction-service/internal/domain"
)

// LikeRepository and BookmarkRepository are the authoritative relation
// stores. Create maps a duplicate row onto domain.ErrConflict; Delete
// reports whether a row was actually removed so the caller knows if the
// derived counter must move.
type LikeRepository interface {
	Exists(ctx context.Context, postID, userID uuid.UUID) (bool, error)
	Create(ctx context.Context, row domain.Like) error
	Delete(ctx context.Context, postID, userID uuid.UUID) (bool, error)
	CountByPost(ctx context.Context, postID uuid.UUID) (int64, error)
}

type BookmarkRepository interface {
	Exists(ctx context.Context, postID, userID uuid.UUID) (bool, error)
	Create(ctx context.Context, row domain.Bookmark) error
	Delete(ctx context.Context, postID, userID uuid.UUID) (bool, error)
	CountByPost(ctx context.Context, postID uuid.UUID) (int64, error)
}

type CommentRepository interface {
	Create(ctx context.Context, row domain.Comment) error
	CountByPost(ctx context.Context, postID uuid.UUID) (int64, error)
}

// ReferenceRepository answers existence checks against entities owned by the
// content and identity services. Read-only at this boundary.
type ReferenceRepository interface {
	PostExists(ctx context.Context, postID uuid.UUID) (bool, error)
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)
}

// DedupMark is the processed-message record written alongside a mutation
// that has no natural idempotence of its own.
type DedupMark struct {
	MessageID string
	EventKind string
	ExpiresAt time.Time
}

// StatsRepository owns the per-post stat rows. ApplyDelta commits the delta
// and the dedup mark in one transaction; a redelivered message id reports
// applied=false and leaves the row untouched. Stats deltas are not naturally
// idempotent, so the mark and the mutation must share a commit.
type StatsRepository interface {
	ApplyDelta(ctx context.Context, postID uuid.UUID, category string, delta int64, at time.Time, mark DedupMark) (applied bool, err error)
	Get(ctx context.Context, postID uuid.UUID, category string) (domain.PostStat, error)
}

type FailureRepository interface {
	Create(ctx context.Context, row domain.FailureRecord) error
	GetByMessageID(ctx context.Context, messageID string) (domain.FailureRecord, error)
	List(ctx context.Context, filter domain.FailureFilter) ([]domain.FailureRecord, error)
	Delete(ctx context.Context, messageID string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type EventDedupRepository interface {
	IsDuplicate(ctx context.Context, messageID string, now time.Time) (bool, error)
	MarkProcessed(ctx context.Context, messageID, eventKind string, expiresAt time.Time) error
}
