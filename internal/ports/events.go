package ports

import (
	"context"
	"time"

	"github.com/viralforge/interaction-service/internal/contracts"
)

// EventPublisher routes an envelope to its kind topic. Fire-and-forget from
// the caller's perspective: a failed publish is logged, never surfaced to
// the user-facing request.
type EventPublisher interface {
	Publish(ctx context.Context, envelope contracts.EventEnvelope) error
}

// RetryScheduler enqueues an envelope for redelivery after the given delay.
// The delay is served by the broker-side retry queue, not by a sleeping
// consumer worker.
type RetryScheduler interface {
	Schedule(ctx context.Context, envelope contracts.EventEnvelope, delay time.Duration) error
}

type DeadLetterPublisher interface {
	PublishDeadLetter(ctx context.Context, msg contracts.DeadLetterMessage) error
}
