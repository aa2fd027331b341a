package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventKindLike        EventKind = "LIKE"
	EventKindBookmark    EventKind = "BOOKMARK"
	EventKindComment     EventKind = "COMMENT"
	EventKindStatsUpdate EventKind = "STATS_UPDATE"
)

func (k EventKind) Valid() bool {
	switch k {
	case EventKindLike, EventKindBookmark, EventKindComment, EventKindStatsUpdate:
		return true
	default:
		return false
	}
}

// EventKinds lists every kind the pipeline routes; the worker runtime starts
// one consumer group per entry.
func EventKinds() []EventKind {
	return []EventKind{EventKindLike, EventKindBookmark, EventKindComment, EventKindStatsUpdate}
}

type CounterKind string

const (
	CounterKindLike     CounterKind = "like"
	CounterKindBookmark CounterKind = "bookmark"
	CounterKindComment  CounterKind = "comment"
)

type Like struct {
	LikeID    uuid.UUID
	PostID    uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
}

type Bookmark struct {
	BookmarkID uuid.UUID
	PostID     uuid.UUID
	UserID     uuid.UUID
	CreatedAt  time.Time
}

type Comment struct {
	CommentID       uuid.UUID
	PostID          uuid.UUID
	UserID          uuid.UUID
	Username        string
	Content         string
	ParentCommentID *uuid.UUID
	PostTitle       string
	PostAuthorID    *uuid.UUID
	CreatedAt       time.Time
}

type PostStat struct {
	PostID        uuid.UUID
	Category      string
	Count         int64
	LastUpdatedAt time.Time
}

type PostCounters struct {
	PostID    uuid.UUID
	Likes     int64
	Bookmarks int64
	Comments  int64
}

// FailureRecord is a permanently-failed envelope persisted for operator
// review. Deleted only by explicit replay/discard or the retention sweep.
type FailureRecord struct {
	MessageID       string
	EventKind       EventKind
	TargetPostID    uuid.UUID
	Envelope        []byte
	FailureReason   string
	FinalRetryCount int
	FailedAt        time.Time
}

type FailureFilter struct {
	EventKind EventKind
	PostID    *uuid.UUID
	From      *time.Time
	To        *time.Time
	Limit     int
}
