package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/viralforge/interaction-service/internal/application"
	"github.com/viralforge/interaction-service/internal/contracts"
)

// DeadLetterWorker drains the dead-letter topic and runs the escalation
// tier: requeue below the global ceiling, persist to the failure store
// otherwise. It also owns the failure-store retention sweep.
type DeadLetterWorker struct {
	logger        *slog.Logger
	consumer      Consumer
	service       *application.Service
	pollInterval  time.Duration
	sweepInterval time.Duration
}

func NewDeadLetterWorker(logger *slog.Logger, consumer Consumer, service *application.Service, pollInterval time.Duration) *DeadLetterWorker {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DeadLetterWorker{
		logger:        logger,
		consumer:      consumer,
		service:       service,
		pollInterval:  pollInterval,
		sweepInterval: time.Hour,
	}
}

func (w *DeadLetterWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	sweeper := time.NewTicker(w.sweepInterval)
	defer sweeper.Stop()
	for {
		if err := w.processOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "dead letter iteration failed",
				"module", "events.dlq_worker",
				"layer", "adapter",
				"operation", "process_once",
				"outcome", "failure",
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sweeper.C:
			if _, err := w.service.SweepExpiredFailures(ctx); err != nil {
				w.logger.ErrorContext(ctx, "retention sweep failed",
					"module", "events.dlq_worker",
					"layer", "adapter",
					"operation", "retention_sweep",
					"outcome", "failure",
					"error", err,
				)
			}
		case <-ticker.C:
		}
	}
}

func (w *DeadLetterWorker) processOnce(ctx context.Context) error {
	msgs, err := w.consumer.Poll(ctx, 20)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		var dlm contracts.DeadLetterMessage
		if err := json.Unmarshal(msg.Payload, &dlm); err != nil {
			w.logger.ErrorContext(ctx, "undecodable dead letter dropped",
				"module", "events.dlq_worker",
				"layer", "adapter",
				"operation", "decode",
				"outcome", "dropped_invalid",
				"error", err,
			)
			if err := w.consumer.Commit(ctx, msg); err != nil {
				return err
			}
			continue
		}
		if err := w.service.HandleDeadLetter(ctx, dlm); err != nil {
			// leave uncommitted: requeue or persist has not landed yet
			return err
		}
		if err := w.consumer.Commit(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}
