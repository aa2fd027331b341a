package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/viralforge/interaction-service/internal/contracts"
	"github.com/viralforge/interaction-service/internal/domain"
	"github.com/viralforge/interaction-service/internal/ports"
)

// HandleEnvelope applies one delivered envelope: validate, dedup-check,
// mutate the authoritative store, adjust derived counters, then mark the
// message id processed. Any error before the dedup mark leaves the envelope
// eligible for redelivery; errors are classified by the caller via
// domain.Classify.
func (s *Service) HandleEnvelope(ctx context.Context, env contracts.EventEnvelope) error {
	if err := validateEnvelope(env); err != nil {
		return err
	}
	dup, err := s.dedup.IsDuplicate(ctx, env.MessageID, s.nowFn())
	if err != nil {
		return fmt.Errorf("dedup check: %w", err)
	}
	if dup {
		s.logger.InfoContext(ctx, "duplicate envelope skipped",
			"module", "application.consume",
			"layer", "application",
			"operation", "dedup_check",
			"outcome", "duplicate",
			"message_id", env.MessageID,
			"event_kind", env.EventKind,
		)
		return nil
	}

	postID := uuid.MustParse(env.TargetPostID)
	actorID := uuid.MustParse(env.ActorUserID)

	switch domain.EventKind(env.EventKind) {
	case domain.EventKindLike:
		err = s.applyToggle(ctx, env, domain.CounterKindLike, postID, actorID)
	case domain.EventKindBookmark:
		err = s.applyToggle(ctx, env, domain.CounterKindBookmark, postID, actorID)
	case domain.EventKindComment:
		err = s.applyComment(ctx, env, postID, actorID)
	case domain.EventKindStatsUpdate:
		err = s.applyStatsUpdate(ctx, env, postID, actorID)
	default:
		// validateEnvelope already rejected unknown kinds.
		return domain.ErrUnsupportedEventKind
	}
	if err != nil {
		return err
	}

	if err := s.dedup.MarkProcessed(ctx, env.MessageID, env.EventKind, s.nowFn().Add(s.cfg.DedupTTL)); err != nil {
		return fmt.Errorf("dedup mark: %w", err)
	}
	s.bumpRollups(ctx, env)
	return nil
}

func (s *Service) applyToggle(ctx context.Context, env contracts.EventEnvelope, kind domain.CounterKind, postID, actorID uuid.UUID) error {
	var payload contracts.TogglePayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("%w: payload: %v", domain.ErrInvalidEnvelope, err)
	}
	if err := s.checkReferences(ctx, postID, actorID); err != nil {
		return err
	}

	var changed bool
	var err error
	switch kind {
	case domain.CounterKindLike:
		changed, err = s.toggleLike(ctx, postID, actorID, payload.Apply)
	default:
		changed, err = s.toggleBookmark(ctx, postID, actorID, payload.Apply)
	}
	if err != nil {
		return err
	}
	return s.settleCounter(ctx, env, kind, postID, payload.Apply, changed)
}

func (s *Service) toggleLike(ctx context.Context, postID, actorID uuid.UUID, apply bool) (bool, error) {
	if apply {
		exists, err := s.likes.Exists(ctx, postID, actorID)
		if err != nil {
			return false, fmt.Errorf("like exists: %w", err)
		}
		if exists {
			return false, nil
		}
		err = s.likes.Create(ctx, domain.Like{LikeID: uuid.New(), PostID: postID, UserID: actorID, CreatedAt: s.nowFn()})
		if errors.Is(err, domain.ErrConflict) {
			// concurrent duplicate, already applied
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("like create: %w", err)
		}
		return true, nil
	}
	removed, err := s.likes.Delete(ctx, postID, actorID)
	if err != nil {
		return false, fmt.Errorf("like delete: %w", err)
	}
	return removed, nil
}

func (s *Service) toggleBookmark(ctx context.Context, postID, actorID uuid.UUID, apply bool) (bool, error) {
	if apply {
		exists, err := s.bookmarks.Exists(ctx, postID, actorID)
		if err != nil {
			return false, fmt.Errorf("bookmark exists: %w", err)
		}
		if exists {
			return false, nil
		}
		err = s.bookmarks.Create(ctx, domain.Bookmark{BookmarkID: uuid.New(), PostID: postID, UserID: actorID, CreatedAt: s.nowFn()})
		if errors.Is(err, domain.ErrConflict) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("bookmark create: %w", err)
		}
		return true, nil
	}
	removed, err := s.bookmarks.Delete(ctx, postID, actorID)
	if err != nil {
		return false, fmt.Errorf("bookmark delete: %w", err)
	}
	return removed, nil
}

// settleCounter moves the derived counter when the apply step changed state.
// An idempotent no-op instead invalidates the cached counter: the envelope
// may be a redelivery whose first attempt applied the row but lost the
// counter update, so the next read rebuilds from the authoritative store.
func (s *Service) settleCounter(ctx context.Context, env contracts.EventEnvelope, kind domain.CounterKind, postID uuid.UUID, apply, changed bool) error {
	if !changed {
		if err := s.counters.Delete(ctx, counterKey(kind, postID)); err != nil {
			s.logger.WarnContext(ctx, "counter invalidation failed",
				"module", "application.consume",
				"layer", "application",
				"operation", "invalidate_counter",
				"outcome", "failure",
				"message_id", env.MessageID,
				"error", err,
			)
		}
		return nil
	}
	delta := int64(1)
	if !apply {
		delta = -1
	}
	if _, err := s.AdjustCounter(ctx, postID, kind, delta); err != nil {
		return err
	}
	return nil
}

func (s *Service) applyComment(ctx context.Context, env contracts.EventEnvelope, postID, actorID uuid.UUID) error {
	var payload contracts.CommentPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("%w: payload: %v", domain.ErrInvalidEnvelope, err)
	}
	if err := domain.ValidateCommentContent(payload.Content); err != nil {
		return fmt.Errorf("%w: comment content", domain.ErrInvalidEnvelope)
	}
	if err := s.checkReferences(ctx, postID, actorID); err != nil {
		return err
	}
	row := domain.Comment{
		// message_id doubles as the comment key, making the insert naturally
		// idempotent under redelivery.
		CommentID: uuid.MustParse(env.MessageID),
		PostID:    postID,
		UserID:    actorID,
		Username:  env.ActorUsername,
		Content:   strings.TrimSpace(payload.Content),
		PostTitle: payload.PostTitle,
		CreatedAt: env.CreatedAt,
	}
	if payload.ParentCommentID != "" {
		parent, err := uuid.Parse(payload.ParentCommentID)
		if err != nil {
			return fmt.Errorf("%w: parent_comment_id", domain.ErrInvalidEnvelope)
		}
		row.ParentCommentID = &parent
	}
	if payload.PostAuthorID != "" {
		author, err := uuid.Parse(payload.PostAuthorID)
		if err != nil {
			return fmt.Errorf("%w: post_author_id", domain.ErrInvalidEnvelope)
		}
		row.PostAuthorID = &author
	}
	err := s.comments.Create(ctx, row)
	if errors.Is(err, domain.ErrConflict) {
		return s.settleCounter(ctx, env, domain.CounterKindComment, postID, true, false)
	}
	if err != nil {
		return fmt.Errorf("comment create: %w", err)
	}
	return s.settleCounter(ctx, env, domain.CounterKindComment, postID, true, true)
}

func (s *Service) applyStatsUpdate(ctx context.Context, env contracts.EventEnvelope, postID, actorID uuid.UUID) error {
	var payload contracts.StatsUpdatePayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("%w: payload: %v", domain.ErrInvalidEnvelope, err)
	}
	if err := domain.ValidateStatsUpdate(payload.OperationType, payload.StatsCategory, payload.CountDelta); err != nil {
		return fmt.Errorf("%w: stats payload", domain.ErrInvalidEnvelope)
	}
	if err := s.checkReferences(ctx, postID, actorID); err != nil {
		return err
	}
	mark := ports.DedupMark{
		MessageID: env.MessageID,
		EventKind: env.EventKind,
		ExpiresAt: s.nowFn().Add(s.cfg.DedupTTL),
	}
	applied, err := s.stats.ApplyDelta(ctx, postID, payload.StatsCategory, payload.CountDelta, s.nowFn(), mark)
	if err != nil {
		return fmt.Errorf("stats apply: %w", err)
	}
	if !applied {
		// The delta and its mark committed on an earlier delivery that failed
		// after the transaction; only the outer bookkeeping is rerun.
		s.logger.InfoContext(ctx, "stats delta already committed",
			"module", "application.consume",
			"layer", "application",
			"operation", "apply_stats",
			"outcome", "duplicate",
			"message_id", env.MessageID,
		)
	}
	return nil
}

func (s *Service) checkReferences(ctx context.Context, postID, actorID uuid.UUID) error {
	ok, err := s.refs.PostExists(ctx, postID)
	if err != nil {
		return fmt.Errorf("post lookup: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: post %s", domain.ErrNotFound, postID)
	}
	ok, err = s.refs.UserExists(ctx, actorID)
	if err != nil {
		return fmt.Errorf("user lookup: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, actorID)
	}
	return nil
}

func validateEnvelope(env contracts.EventEnvelope) error {
	if strings.TrimSpace(env.MessageID) == "" {
		return fmt.Errorf("%w: missing message_id", domain.ErrInvalidEnvelope)
	}
	if !domain.EventKind(env.EventKind).Valid() {
		return fmt.Errorf("%w: kind %q", domain.ErrUnsupportedEventKind, env.EventKind)
	}
	if _, err := uuid.Parse(env.ActorUserID); err != nil {
		return fmt.Errorf("%w: actor_user_id", domain.ErrInvalidEnvelope)
	}
	if _, err := uuid.Parse(env.TargetPostID); err != nil {
		return fmt.Errorf("%w: target_post_id", domain.ErrInvalidEnvelope)
	}
	if len(env.Payload) == 0 {
		return fmt.Errorf("%w: missing payload", domain.ErrInvalidEnvelope)
	}
	if env.RetryCount < 0 {
		return fmt.Errorf("%w: negative retry_count", domain.ErrInvalidEnvelope)
	}
	if env.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing created_at", domain.ErrInvalidEnvelope)
	}
	if domain.EventKind(env.EventKind) == domain.EventKindComment {
		// comment ids derive from the message id, so it must parse
		if _, err := uuid.Parse(env.MessageID); err != nil {
			return fmt.Errorf("%w: message_id", domain.ErrInvalidEnvelope)
		}
	}
	return nil
}
