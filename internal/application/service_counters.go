package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/viralforge/interaction-service/internal/contracts"
	"github.com/viralforge/interaction-service/internal/domain"
)

func counterKey(kind domain.CounterKind, postID uuid.UUID) string {
	return "interaction:count:" + string(kind) + ":" + postID.String()
}

// AdjustCounter applies a single atomic increment to the derived counter and
// clamps the result at zero. A negative result means a duplicate removal or
// a missed add slipped through; the clamp is corrective and the anomaly is
// logged. A concurrent increment between the clamp's read and write can only
// raise the value, and the TTL-bounded rebuild reconciles any drift.
func (s *Service) AdjustCounter(ctx context.Context, postID uuid.UUID, kind domain.CounterKind, delta int64) (int64, error) {
	key := counterKey(kind, postID)
	value, err := s.counters.Increment(ctx, key, delta)
	if err != nil {
		return 0, fmt.Errorf("%w: counter adjust: %v", domain.ErrCacheUnavailable, err)
	}
	if value < 0 {
		s.logger.WarnContext(ctx, "counter clamped at zero",
			"module", "application.counters",
			"layer", "application",
			"operation", "adjust",
			"outcome", "anomaly",
			"post_id", postID.String(),
			"counter_kind", string(kind),
			"value", value,
		)
		if err := s.counters.SetWithTTL(ctx, key, 0, s.cfg.CounterTTL); err != nil {
			return 0, fmt.Errorf("%w: counter clamp: %v", domain.ErrCacheUnavailable, err)
		}
		return 0, nil
	}
	return value, nil
}

// PostCounters reads the derived counters through the cache, falling back to
// the authoritative store on a miss and repopulating with a TTL.
func (s *Service) PostCounters(ctx context.Context, postID uuid.UUID) (domain.PostCounters, error) {
	out := domain.PostCounters{PostID: postID}
	var err error
	if out.Likes, err = s.readCounter(ctx, postID, domain.CounterKindLike, s.likes.CountByPost); err != nil {
		return domain.PostCounters{}, err
	}
	if out.Bookmarks, err = s.readCounter(ctx, postID, domain.CounterKindBookmark, s.bookmarks.CountByPost); err != nil {
		return domain.PostCounters{}, err
	}
	if out.Comments, err = s.readCounter(ctx, postID, domain.CounterKindComment, s.comments.CountByPost); err != nil {
		return domain.PostCounters{}, err
	}
	return out, nil
}

func (s *Service) readCounter(ctx context.Context, postID uuid.UUID, kind domain.CounterKind, countFn func(context.Context, uuid.UUID) (int64, error)) (int64, error) {
	key := counterKey(kind, postID)
	value, ok, err := s.counters.Get(ctx, key)
	if err == nil && ok {
		return value, nil
	}
	if err != nil {
		s.logger.WarnContext(ctx, "counter read fell back to store",
			"module", "application.counters",
			"layer", "application",
			"operation", "read",
			"outcome", "cache_miss",
			"post_id", postID.String(),
			"counter_kind", string(kind),
			"error", err,
		)
	}
	value, err = countFn(ctx, postID)
	if err != nil {
		return 0, fmt.Errorf("authoritative count: %w", err)
	}
	if setErr := s.counters.SetWithTTL(ctx, key, value, s.cfg.CounterTTL); setErr != nil {
		s.logger.WarnContext(ctx, "counter repopulate failed",
			"module", "application.counters",
			"layer", "application",
			"operation", "repopulate",
			"outcome", "failure",
			"post_id", postID.String(),
			"counter_kind", string(kind),
			"error", setErr,
		)
	}
	return value, nil
}

// bumpRollups maintains the per-user daily activity and per-day global
// aggregates. Best effort: failures are logged and never escalate to retry.
func (s *Service) bumpRollups(ctx context.Context, env contracts.EventEnvelope) {
	if s.rollups == nil {
		return
	}
	day := s.nowFn().Format("2006-01-02")
	kind := string(domain.EventKind(env.EventKind))
	if err := s.rollups.BumpUserDaily(ctx, env.ActorUserID, day, kind); err != nil {
		s.logger.WarnContext(ctx, "user rollup failed",
			"module", "application.counters",
			"layer", "application",
			"operation", "rollup_user",
			"outcome", "failure",
			"message_id", env.MessageID,
			"error", err,
		)
	}
	if err := s.rollups.BumpGlobalDaily(ctx, day, kind); err != nil {
		s.logger.WarnContext(ctx, "global rollup failed",
			"module", "application.counters",
			"layer", "application",
			"operation", "rollup_global",
			"outcome", "failure",
			"message_id", env.MessageID,
			"error", err,
		)
	}
}
