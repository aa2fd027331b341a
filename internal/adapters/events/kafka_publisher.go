package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/viralforge/interaction-service/internal/contracts"
	"github.com/viralforge/interaction-service/internal/domain"
	"github.com/viralforge/interaction-service/internal/ports"
)

const notBeforeHeader = "not-before"

// KafkaPublisher routes envelopes to their kind topic, schedules delayed
// redeliveries on the retry topic, and dead-letters exhausted envelopes.
// Messages are keyed by target_post_id so all events for a post share a
// partition.
type KafkaPublisher struct {
	writer *kafka.Writer
	topics Topics
}

func NewKafkaPublisher(brokers []string, topics Topics) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		topics: topics,
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, envelope contracts.EventEnvelope) error {
	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topics.ForKind(domain.EventKind(envelope.EventKind)),
		Key:   []byte(envelope.TargetPostID),
		Value: value,
		Time:  time.Now().UTC(),
	})
}

func (p *KafkaPublisher) Schedule(ctx context.Context, envelope contracts.EventEnvelope, delay time.Duration) error {
	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	notBefore := time.Now().UTC().Add(delay)
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topics.Retry,
		Key:   []byte(envelope.TargetPostID),
		Value: value,
		Headers: []kafka.Header{
			{Key: notBeforeHeader, Value: []byte(notBefore.Format(time.RFC3339Nano))},
		},
		Time: time.Now().UTC(),
	})
}

func (p *KafkaPublisher) PublishDeadLetter(ctx context.Context, msg contracts.DeadLetterMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topics.DeadLetter,
		Key:   []byte(msg.Envelope.TargetPostID),
		Value: value,
		Time:  time.Now().UTC(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

var (
	_ ports.EventPublisher      = (*KafkaPublisher)(nil)
	_ ports.RetryScheduler      = (*KafkaPublisher)(nil)
	_ ports.DeadLetterPublisher = (*KafkaPublisher)(nil)
)
