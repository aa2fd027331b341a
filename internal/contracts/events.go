package contracts

import (
	"encoding/json"
	"time"
)

// EventEnvelope is the wire form of a single interaction event. It is
// immutable once published except for retry_count, which the retry and
// dead-letter tiers increment on redelivery. New fields must be optional;
// in-flight and dead-lettered envelopes may be decoded by newer consumers.
type EventEnvelope struct {
	MessageID     string          `json:"message_id"`
	EventKind     string          `json:"event_kind"`
	ActorUserID   string          `json:"actor_user_id"`
	ActorUsername string          `json:"actor_username"`
	TargetPostID  string          `json:"target_post_id"`
	Payload       json.RawMessage `json:"payload"`
	RetryCount    int             `json:"retry_count"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TogglePayload is carried by LIKE and BOOKMARK envelopes.
// Apply=true adds the relation, Apply=false removes it.
type TogglePayload struct {
	Apply bool `json:"apply"`
}

// CommentPayload carries the comment body plus denormalized post fields so
// downstream consumers can notify without re-fetching the post.
type CommentPayload struct {
	Content         string `json:"content"`
	ParentCommentID string `json:"parent_comment_id,omitempty"`
	PostTitle       string `json:"post_title,omitempty"`
	PostAuthorID    string `json:"post_author_id,omitempty"`
}

type StatsUpdatePayload struct {
	OperationType string `json:"operation_type"`
	CountDelta    int64  `json:"count_delta"`
	StatsCategory string `json:"stats_category"`
}

// DeadLetterMessage wraps an envelope that exhausted its consumer-local
// retry budget or failed permanently.
type DeadLetterMessage struct {
	Envelope      EventEnvelope `json:"envelope"`
	FailureClass  string        `json:"failure_class"`
	FailureReason string        `json:"failure_reason"`
	SourceTopic   string        `json:"source_topic,omitempty"`
	FailedAt      time.Time     `json:"failed_at"`
}
