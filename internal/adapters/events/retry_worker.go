package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/viralforge/interaction-service/internal/contracts"
	"github.com/viralforge/interaction-service/internal/ports"
)

// RetryWorker drains the retry topic and feeds envelopes back into their
// kind topic once the scheduled delay has elapsed. The delay is served here,
// on a timer, so kind workers never sleep through a backoff window. Within
// the retry topic messages are roughly delay-ordered because backoff grows
// with retry_count; a long delay at the head briefly parks shorter ones
// behind it, which only stretches their wait, never drops them. The retry
// offset is committed only after the envelope is back on its kind topic, so
// a publish failure or a shutdown during the wait keeps it queued.
type RetryWorker struct {
	logger       *slog.Logger
	consumer     Consumer
	publisher    ports.EventPublisher
	pollInterval time.Duration
}

func NewRetryWorker(logger *slog.Logger, consumer Consumer, publisher ports.EventPublisher, pollInterval time.Duration) *RetryWorker {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryWorker{
		logger:       logger,
		consumer:     consumer,
		publisher:    publisher,
		pollInterval: pollInterval,
	}
}

func (w *RetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		if err := w.processOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "retry iteration failed",
				"module", "events.retry_worker",
				"layer", "adapter",
				"operation", "process_once",
				"outcome", "failure",
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *RetryWorker) processOnce(ctx context.Context) error {
	msgs, err := w.consumer.Poll(ctx, 20)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		if err := w.redeliver(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (w *RetryWorker) redeliver(ctx context.Context, msg Message) error {
	var env contracts.EventEnvelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		w.logger.ErrorContext(ctx, "undecodable retry message dropped",
			"module", "events.retry_worker",
			"layer", "adapter",
			"operation", "decode",
			"outcome", "dropped_invalid",
			"error", err,
		)
		return w.consumer.Commit(ctx, msg)
	}
	if err := w.waitUntilDue(ctx, msg.Headers[notBeforeHeader]); err != nil {
		return err
	}
	if err := w.publisher.Publish(ctx, env); err != nil {
		return err
	}
	if err := w.consumer.Commit(ctx, msg); err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "envelope redelivered",
		"module", "events.retry_worker",
		"layer", "adapter",
		"operation", "redeliver",
		"outcome", "success",
		"message_id", env.MessageID,
		"event_kind", env.EventKind,
		"retry_count", env.RetryCount,
	)
	return nil
}

func (w *RetryWorker) waitUntilDue(ctx context.Context, notBefore string) error {
	if notBefore == "" {
		return nil
	}
	due, err := time.Parse(time.RFC3339Nano, notBefore)
	if err != nil {
		return nil
	}
	wait := time.Until(due)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
