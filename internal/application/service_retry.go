package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/viralforge/interaction-service/internal/contracts"
	"github.com/viralforge/interaction-service/internal/domain"
)

// RetryDelay returns the backoff before the next redelivery:
// base * 2^retryCount, capped at the configured maximum.
func (s *Service) RetryDelay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	delay := s.cfg.BaseRetryDelay
	for i := 0; i < retryCount; i++ {
		delay *= 2
		if delay >= s.cfg.MaxRetryDelay {
			return s.cfg.MaxRetryDelay
		}
	}
	if delay > s.cfg.MaxRetryDelay {
		return s.cfg.MaxRetryDelay
	}
	return delay
}

// DisposeFailure routes a failed consumer invocation per its class:
// validation errors are logged and dropped, transient errors are scheduled
// for redelivery until the local attempt cap, permanent errors and exhausted
// envelopes go to the dead-letter topic. Every envelope ends in exactly one
// of applied / dropped-as-invalid / dead-lettered.
func (s *Service) DisposeFailure(ctx context.Context, env contracts.EventEnvelope, cause error) error {
	class := domain.Classify(cause)
	switch class {
	case domain.FailureClassValidation:
		s.logger.ErrorContext(ctx, "invalid envelope dropped",
			"module", "application.retry",
			"layer", "application",
			"operation", "dispose",
			"outcome", "dropped_invalid",
			"message_id", env.MessageID,
			"event_kind", env.EventKind,
			"retry_count", env.RetryCount,
			"error", cause,
		)
		return nil
	case domain.FailureClassTransient:
		if env.RetryCount < s.cfg.MaxAttempts {
			delay := s.RetryDelay(env.RetryCount)
			env.RetryCount++
			if err := s.scheduler.Schedule(ctx, env, delay); err != nil {
				return fmt.Errorf("schedule retry: %w", err)
			}
			s.logger.WarnContext(ctx, "envelope scheduled for retry",
				"module", "application.retry",
				"layer", "application",
				"operation", "dispose",
				"outcome", "retry_scheduled",
				"message_id", env.MessageID,
				"event_kind", env.EventKind,
				"retry_count", env.RetryCount,
				"delay_ms", delay.Milliseconds(),
				"error", cause,
			)
			return nil
		}
	case domain.FailureClassPermanent:
	}
	return s.publishDeadLetter(ctx, env, class, cause)
}

func (s *Service) publishDeadLetter(ctx context.Context, env contracts.EventEnvelope, class domain.FailureClass, cause error) error {
	msg := contracts.DeadLetterMessage{
		Envelope:      env,
		FailureClass:  string(class),
		FailureReason: cause.Error(),
		FailedAt:      s.nowFn(),
	}
	if err := s.deadLetter.PublishDeadLetter(ctx, msg); err != nil {
		return fmt.Errorf("publish dead letter: %w", err)
	}
	s.logger.ErrorContext(ctx, "envelope dead-lettered",
		"module", "application.retry",
		"layer", "application",
		"operation", "dispose",
		"outcome", "dead_lettered",
		"message_id", env.MessageID,
		"event_kind", env.EventKind,
		"retry_count", env.RetryCount,
		"failure_class", string(class),
		"error", cause,
	)
	return nil
}

// HandleDeadLetter is the escalation tier behind the consumer-local retry
// cap. Transient exhaustion gets one more band of redeliveries up to the
// global ceiling; permanent failures and envelopes at the ceiling are
// persisted to the failure store and alerted.
func (s *Service) HandleDeadLetter(ctx context.Context, msg contracts.DeadLetterMessage) error {
	env := msg.Envelope
	if domain.FailureClass(msg.FailureClass) == domain.FailureClassTransient && env.RetryCount < s.cfg.DeadLetterCeiling {
		env.RetryCount++
		if err := s.publisher.Publish(ctx, env); err != nil {
			return fmt.Errorf("dead letter republish: %w", err)
		}
		s.logger.WarnContext(ctx, "dead letter requeued",
			"module", "application.retry",
			"layer", "application",
			"operation", "dead_letter",
			"outcome", "requeued",
			"message_id", env.MessageID,
			"event_kind", env.EventKind,
			"retry_count", env.RetryCount,
		)
		return nil
	}
	return s.persistFailure(ctx, msg)
}

func (s *Service) persistFailure(ctx context.Context, msg contracts.DeadLetterMessage) error {
	env := msg.Envelope
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal failed envelope: %w", err)
	}
	postID, _ := uuid.Parse(env.TargetPostID)
	record := domain.FailureRecord{
		MessageID:       env.MessageID,
		EventKind:       domain.EventKind(env.EventKind),
		TargetPostID:    postID,
		Envelope:        raw,
		FailureReason:   msg.FailureReason,
		FinalRetryCount: env.RetryCount,
		FailedAt:        s.nowFn(),
	}
	if err := s.failures.Create(ctx, record); err != nil {
		return fmt.Errorf("persist failure record: %w", err)
	}
	// actionable alert line, consumed by external monitoring
	s.logger.ErrorContext(ctx, "ALERT interaction envelope permanently failed",
		"module", "application.retry",
		"layer", "application",
		"operation", "dead_letter",
		"outcome", "persisted",
		"message_id", env.MessageID,
		"event_kind", env.EventKind,
		"retry_count", env.RetryCount,
		"failure_class", msg.FailureClass,
		"failure_reason", msg.FailureReason,
	)
	return nil
}

// SweepExpiredFailures enforces the time-based retention policy on the
// failure store.
func (s *Service) SweepExpiredFailures(ctx context.Context) (int64, error) {
	cutoff := s.nowFn().Add(-s.cfg.FailureRetention)
	removed, err := s.failures.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failure retention sweep: %w", err)
	}
	if removed > 0 {
		s.logger.InfoContext(ctx, "expired failure records removed",
			"module", "application.retry",
			"layer", "application",
			"operation", "retention_sweep",
			"outcome", "success",
			"removed", removed,
		)
	}
	return removed, nil
}
