package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/viralforge/interaction-service/internal/application"
	"github.com/viralforge/interaction-service/internal/contracts"
	"github.com/viralforge/interaction-service/internal/domain"
)

// ConsumerWorker drains one kind topic. Each worker pulls one message at a
// time; concurrency comes from running several workers per kind in the same
// consumer group. Failed invocations are routed through the service's retry
// disposition, and the offset is committed only after the disposition landed:
// a crash mid-flight redelivers the envelope instead of losing it.
type ConsumerWorker struct {
	logger       *slog.Logger
	consumer     Consumer
	service      *application.Service
	kind         domain.EventKind
	pollInterval time.Duration
}

func NewConsumerWorker(logger *slog.Logger, consumer Consumer, service *application.Service, kind domain.EventKind, pollInterval time.Duration) *ConsumerWorker {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsumerWorker{
		logger:       logger,
		consumer:     consumer,
		service:      service,
		kind:         kind,
		pollInterval: pollInterval,
	}
}

func (w *ConsumerWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		if err := w.processOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "consumer iteration failed",
				"module", "events.worker",
				"layer", "adapter",
				"operation", "process_once",
				"outcome", "failure",
				"event_kind", string(w.kind),
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

func (w *ConsumerWorker) processOnce(ctx context.Context) error {
	msgs, err := w.consumer.Poll(ctx, 50)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		if err := w.handleMessage(ctx, msg); err != nil {
			// disposition did not land; leave the offset so the envelope
			// comes back on the next assignment
			return err
		}
		if err := w.consumer.Commit(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (w *ConsumerWorker) handleMessage(ctx context.Context, msg Message) error {
	var env contracts.EventEnvelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		// undecodable body: drop, redelivery cannot fix it
		w.logger.ErrorContext(ctx, "undecodable envelope dropped",
			"module", "events.worker",
			"layer", "adapter",
			"operation", "decode",
			"outcome", "dropped_invalid",
			"event_kind", string(w.kind),
			"error", err,
		)
		return nil
	}

	start := time.Now()
	handleCtx, cancel := context.WithTimeout(ctx, w.service.Config().ProcessTimeout)
	err := w.service.HandleEnvelope(handleCtx, env)
	cancel()
	latency := time.Since(start)

	if err == nil {
		w.logger.InfoContext(ctx, "envelope applied",
			"module", "events.worker",
			"layer", "adapter",
			"operation", "handle",
			"outcome", "success",
			"message_id", env.MessageID,
			"event_kind", env.EventKind,
			"retry_count", env.RetryCount,
			"latency_ms", latency.Milliseconds(),
		)
		return nil
	}

	w.logger.WarnContext(ctx, "envelope handling failed",
		"module", "events.worker",
		"layer", "adapter",
		"operation", "handle",
		"outcome", string(domain.Classify(err)),
		"message_id", env.MessageID,
		"event_kind", env.EventKind,
		"retry_count", env.RetryCount,
		"latency_ms", latency.Milliseconds(),
		"error", err,
	)
	if dispErr := w.service.DisposeFailure(ctx, env, err); dispErr != nil {
		w.logger.ErrorContext(ctx, "failure disposition failed",
			"module", "events.worker",
			"layer", "adapter",
			"operation", "dispose",
			"outcome", "failure",
			"message_id", env.MessageID,
			"event_kind", env.EventKind,
			"error", dispErr,
		)
		return dispErr
	}
	return nil
}
