package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/viralforge/interaction-service/internal/contracts"
	"github.com/viralforge/interaction-service/internal/domain"
)

// PublishLike enqueues a LIKE envelope. The consumer is the sole writer of
// the like row; this path only validates and publishes. A broker failure is
// returned as domain.ErrBrokerUnavailable so the transport layer can log it
// without failing the user-visible request.
func (s *Service) PublishLike(ctx context.Context, actor Actor, in ToggleInput) (contracts.EventEnvelope, error) {
	return s.publishToggle(ctx, actor, domain.EventKindLike, in)
}

func (s *Service) PublishBookmark(ctx context.Context, actor Actor, in ToggleInput) (contracts.EventEnvelope, error) {
	return s.publishToggle(ctx, actor, domain.EventKindBookmark, in)
}

func (s *Service) publishToggle(ctx context.Context, actor Actor, kind domain.EventKind, in ToggleInput) (contracts.EventEnvelope, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return contracts.EventEnvelope{}, domain.ErrUnauthorized
	}
	if _, err := uuid.Parse(strings.TrimSpace(in.PostID)); err != nil {
		return contracts.EventEnvelope{}, fmt.Errorf("%w: post_id", domain.ErrInvalidInput)
	}
	payload, _ := json.Marshal(contracts.TogglePayload{Apply: in.Apply})
	env := s.buildEnvelope(actor, kind, in.PostID, in.MessageID, payload)
	return env, s.publishEnvelope(ctx, env)
}

func (s *Service) PublishComment(ctx context.Context, actor Actor, in CommentInput) (contracts.EventEnvelope, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return contracts.EventEnvelope{}, domain.ErrUnauthorized
	}
	if _, err := uuid.Parse(strings.TrimSpace(in.PostID)); err != nil {
		return contracts.EventEnvelope{}, fmt.Errorf("%w: post_id", domain.ErrInvalidInput)
	}
	if err := domain.ValidateCommentContent(in.Content); err != nil {
		return contracts.EventEnvelope{}, fmt.Errorf("%w: content", err)
	}
	if in.ParentCommentID != "" {
		if _, err := uuid.Parse(in.ParentCommentID); err != nil {
			return contracts.EventEnvelope{}, fmt.Errorf("%w: parent_comment_id", domain.ErrInvalidInput)
		}
	}
	payload, _ := json.Marshal(contracts.CommentPayload{
		Content:         strings.TrimSpace(in.Content),
		ParentCommentID: in.ParentCommentID,
		PostTitle:       strings.TrimSpace(in.PostTitle),
		PostAuthorID:    strings.TrimSpace(in.PostAuthorID),
	})
	env := s.buildEnvelope(actor, domain.EventKindComment, in.PostID, in.MessageID, payload)
	return env, s.publishEnvelope(ctx, env)
}

func (s *Service) PublishStatsUpdate(ctx context.Context, actor Actor, in StatsUpdateInput) (contracts.EventEnvelope, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return contracts.EventEnvelope{}, domain.ErrUnauthorized
	}
	if _, err := uuid.Parse(strings.TrimSpace(in.PostID)); err != nil {
		return contracts.EventEnvelope{}, fmt.Errorf("%w: post_id", domain.ErrInvalidInput)
	}
	if err := domain.ValidateStatsUpdate(in.OperationType, in.StatsCategory, in.CountDelta); err != nil {
		return contracts.EventEnvelope{}, fmt.Errorf("%w: stats update", err)
	}
	payload, _ := json.Marshal(contracts.StatsUpdatePayload{
		OperationType: in.OperationType,
		CountDelta:    in.CountDelta,
		StatsCategory: in.StatsCategory,
	})
	env := s.buildEnvelope(actor, domain.EventKindStatsUpdate, in.PostID, in.MessageID, payload)
	return env, s.publishEnvelope(ctx, env)
}

func (s *Service) buildEnvelope(actor Actor, kind domain.EventKind, postID, messageID string, payload json.RawMessage) contracts.EventEnvelope {
	id := strings.TrimSpace(messageID)
	if id == "" {
		id = uuid.NewString()
	}
	return contracts.EventEnvelope{
		MessageID:     id,
		EventKind:     string(kind),
		ActorUserID:   actor.SubjectID,
		ActorUsername: actor.Username,
		TargetPostID:  strings.TrimSpace(postID),
		Payload:       payload,
		RetryCount:    0,
		CreatedAt:     s.nowFn(),
	}
}

func (s *Service) publishEnvelope(ctx context.Context, env contracts.EventEnvelope) error {
	if err := s.publisher.Publish(ctx, env); err != nil {
		s.logger.WarnContext(ctx, "envelope publish failed",
			"module", "application.publish",
			"layer", "application",
			"operation", "publish",
			"outcome", "broker_unavailable",
			"message_id", env.MessageID,
			"event_kind", env.EventKind,
			"error", err,
		)
		return fmt.Errorf("%w: %v", domain.ErrBrokerUnavailable, err)
	}
	s.logger.InfoContext(ctx, "envelope published",
		"module", "application.publish",
		"layer", "application",
		"operation", "publish",
		"outcome", "success",
		"message_id", env.MessageID,
		"event_kind", env.EventKind,
		"retry_count", env.RetryCount,
	)
	return nil
}
