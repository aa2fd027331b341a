package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/viralforge/interaction-service/internal/contracts"
	"github.com/viralforge/interaction-service/internal/ports"
)

// LoggingPublisher stands in when no broker is configured: envelopes are
// logged, not delivered. Used in local development.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, envelope contracts.EventEnvelope) error {
	p.logger.InfoContext(ctx, "envelope published",
		"module", "events.publisher",
		"layer", "adapter",
		"operation", "publish",
		"outcome", "success",
		"message_id", envelope.MessageID,
		"event_kind", envelope.EventKind,
		"retry_count", envelope.RetryCount,
	)
	return nil
}

func (p *LoggingPublisher) Schedule(ctx context.Context, envelope contracts.EventEnvelope, delay time.Duration) error {
	p.logger.InfoContext(ctx, "envelope retry scheduled",
		"module", "events.publisher",
		"layer", "adapter",
		"operation", "schedule",
		"outcome", "success",
		"message_id", envelope.MessageID,
		"delay_ms", delay.Milliseconds(),
	)
	return nil
}

func (p *LoggingPublisher) PublishDeadLetter(ctx context.Context, msg contracts.DeadLetterMessage) error {
	p.logger.WarnContext(ctx, "envelope dead-lettered",
		"module", "events.publisher",
		"layer", "adapter",
		"operation", "dead_letter",
		"outcome", "success",
		"message_id", msg.Envelope.MessageID,
		"failure_reason", msg.FailureReason,
	)
	return nil
}

var (
	_ ports.EventPublisher      = (*LoggingPublisher)(nil)
	_ ports.RetryScheduler      = (*LoggingPublisher)(nil)
	_ ports.DeadLetterPublisher = (*LoggingPublisher)(nil)
)

type NoopConsumer struct{}

func NewNoopConsumer() *NoopConsumer {
	return &NoopConsumer{}
}

func (n *NoopConsumer) Poll(_ context.Context, _ int) ([]Message, error) {
	return nil, nil
}

func (n *NoopConsumer) Commit(_ context.Context, _ ...Message) error {
	return nil
}
