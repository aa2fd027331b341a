package memory

import (
	"context"
	"sync"
	"time"

	"github.com/viralforge/interaction-service/internal/contracts"
)

// Publisher records every envelope handed to it, in order.
type Publisher struct {
	mu        sync.Mutex
	Published []contracts.EventEnvelope

	FailWith error
}

func NewPublisher() *Publisher { return &Publisher{} }

func (p *Publisher) Publish(_ context.Context, envelope contracts.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailWith != nil {
		return p.FailWith
	}
	p.Published = append(p.Published, envelope)
	return nil
}

func (p *Publisher) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Published)
}

type ScheduledEnvelope struct {
	Envelope contracts.EventEnvelope
	Delay    time.Duration
}

// Scheduler records retry requests instead of enqueueing them to a broker.
type Scheduler struct {
	mu        sync.Mutex
	Scheduled []ScheduledEnvelope

	FailWith error
}

func NewScheduler() *Scheduler { return &Scheduler{} }

func (s *Scheduler) Schedule(_ context.Context, envelope contracts.EventEnvelope, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	s.Scheduled = append(s.Scheduled, ScheduledEnvelope{Envelope: envelope, Delay: delay})
	return nil
}

type DeadLetterPublisher struct {
	mu       sync.Mutex
	Messages []contracts.DeadLetterMessage

	FailWith error
}

func NewDeadLetterPublisher() *DeadLetterPublisher { return &DeadLetterPublisher{} }

func (p *DeadLetterPublisher) PublishDeadLetter(_ context.Context, msg contracts.DeadLetterMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailWith != nil {
		return p.FailWith
	}
	p.Messages = append(p.Messages, msg)
	return nil
}
