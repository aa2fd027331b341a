package postgres

import (
	"time"

	"github.com/google/uuid"
)

type likeModel struct {
	LikeID    uuid.UUID `gorm:"column:like_id;type:uuid;default:gen_random_uuid();primaryKey"`
	PostID    uuid.UUID `gorm:"column:post_id"`
	UserID    uuid.UUID `gorm:"column:user_id"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (likeModel) TableName() string { return "likes" }

type bookmarkModel struct {
	BookmarkID uuid.UUID `gorm:"column:bookmark_id;type:uuid;default:gen_random_uuid();primaryKey"`
	PostID     uuid.UUID `gorm:"column:post_id"`
	UserID     uuid.UUID `gorm:"column:user_id"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (bookmarkModel) TableName() string { return "bookmarks" }

type commentModel struct {
	CommentID       uuid.UUID  `gorm:"column:comment_id;type:uuid;primaryKey"`
	PostID          uuid.UUID  `gorm:"column:post_id"`
	UserID          uuid.UUID  `gorm:"column:user_id"`
	Username        string     `gorm:"column:username"`
	Content         string     `gorm:"column:content"`
	ParentCommentID *uuid.UUID `gorm:"column:parent_comment_id"`
	PostTitle       string     `gorm:"column:post_title"`
	PostAuthorID    *uuid.UUID `gorm:"column:post_author_id"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
}

func (commentModel) TableName() string { return "comments" }

type postStatModel struct {
	PostID        uuid.UUID `gorm:"column:post_id;primaryKey"`
	StatsCategory string    `gorm:"column:stats_category;primaryKey"`
	Count         int64     `gorm:"column:count"`
	LastUpdatedAt time.Time `gorm:"column:last_updated_at"`
}

func (postStatModel) TableName() string { return "post_stats" }

type eventDedupModel struct {
	MessageID   string    `gorm:"column:message_id;primaryKey"`
	EventKind   string    `gorm:"column:event_kind"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (eventDedupModel) TableName() string { return "interaction_event_dedup" }

type failureModel struct {
	MessageID       string    `gorm:"column:message_id;primaryKey"`
	EventKind       string    `gorm:"column:event_kind"`
	TargetPostID    uuid.UUID `gorm:"column:target_post_id"`
	Envelope        string    `gorm:"column:envelope"`
	FailureReason   string    `gorm:"column:failure_reason"`
	FinalRetryCount int       `gorm:"column:final_retry_count"`
	FailedAt        time.Time `gorm:"column:failed_at"`
}

func (failureModel) TableName() string { return "interaction_failures" }
