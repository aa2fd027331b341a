package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viralforge/interaction-service/internal/contracts"
	"github.com/viralforge/interaction-service/internal/domain"
)

func isOperator(actor Actor) bool {
	switch strings.ToLower(actor.Role) {
	case "admin", "operator":
		return true
	default:
		return false
	}
}

func (s *Service) ListFailures(ctx context.Context, actor Actor, filter domain.FailureFilter) ([]domain.FailureRecord, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return nil, domain.ErrUnauthorized
	}
	if !isOperator(actor) {
		return nil, domain.ErrForbidden
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.failures.List(ctx, filter)
}

// ReplayFailure re-enters a persisted envelope at the top of the pipeline
// with retry_count reset to zero. Operator-only: blind automated replay of a
// permanently-failing envelope is itself a failure mode. The failure row is
// deleted only after the publish succeeds.
func (s *Service) ReplayFailure(ctx context.Context, actor Actor, messageID string) (contracts.EventEnvelope, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return contracts.EventEnvelope{}, domain.ErrUnauthorized
	}
	if !isOperator(actor) {
		return contracts.EventEnvelope{}, domain.ErrForbidden
	}
	record, err := s.failures.GetByMessageID(ctx, strings.TrimSpace(messageID))
	if err != nil {
		return contracts.EventEnvelope{}, err
	}
	var env contracts.EventEnvelope
	if err := json.Unmarshal(record.Envelope, &env); err != nil {
		return contracts.EventEnvelope{}, fmt.Errorf("decode stored envelope: %w", err)
	}
	env.RetryCount = 0
	if err := s.publisher.Publish(ctx, env); err != nil {
		return contracts.EventEnvelope{}, fmt.Errorf("%w: replay publish: %v", domain.ErrBrokerUnavailable, err)
	}
	if err := s.failures.Delete(ctx, record.MessageID); err != nil {
		return contracts.EventEnvelope{}, fmt.Errorf("delete replayed failure: %w", err)
	}
	s.logger.InfoContext(ctx, "failure replayed",
		"module", "application.replay",
		"layer", "application",
		"operation", "replay",
		"outcome", "success",
		"message_id", env.MessageID,
		"event_kind", env.EventKind,
		"operator", actor.SubjectID,
	)
	return env, nil
}

func (s *Service) DiscardFailure(ctx context.Context, actor Actor, messageID string) error {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.ErrUnauthorized
	}
	if !isOperator(actor) {
		return domain.ErrForbidden
	}
	record, err := s.failures.GetByMessageID(ctx, strings.TrimSpace(messageID))
	if err != nil {
		return err
	}
	if err := s.failures.Delete(ctx, record.MessageID); err != nil {
		return fmt.Errorf("discard failure: %w", err)
	}
	s.logger.InfoContext(ctx, "failure discarded",
		"module", "application.replay",
		"layer", "application",
		"operation", "discard",
		"outcome", "success",
		"message_id", record.MessageID,
		"event_kind", string(record.EventKind),
		"operator", actor.SubjectID,
	)
	return nil
}
