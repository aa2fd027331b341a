package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/viralforge/interaction-service/internal/application"
	"github.com/viralforge/interaction-service/internal/contracts"
	"github.com/viralforge/interaction-service/internal/domain"
)

func TestRetryDelaySchedule(t *testing.T) {
	svc, _ := newTestService()
	cases := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{5, 32 * time.Second},
		{6, time.Minute},
		{20, time.Minute},
		{-1, time.Second},
	}
	for _, tc := range cases {
		if got := svc.RetryDelay(tc.retryCount); got != tc.want {
			t.Fatalf("RetryDelay(%d) = %s, want %s", tc.retryCount, got, tc.want)
		}
	}
}

func TestDisposeFailureValidationDrops(t *testing.T) {
	svc, deps := newTestService()
	postID, userID := seedRefs(deps)

	env := toggleEnvelope(t, domain.EventKindLike, postID, userID, true)
	cause := fmt.Errorf("%w: missing payload", domain.ErrInvalidEnvelope)
	if err := svc.DisposeFailure(context.Background(), env, cause); err != nil {
		t.Fatalf("DisposeFailure error: %v", err)
	}
	if len(deps.scheduler.Scheduled) != 0 {
		t.Fatalf("validation failure must not be retried")
	}
	if len(deps.dlq.Messages) != 0 {
		t.Fatalf("validation failure must not be dead-lettered")
	}
}

func TestDisposeFailureTransientBackoff(t *testing.T) {
	svc, deps := newTestService()
	postID, userID := seedRefs(deps)
	cause := fmt.Errorf("like exists: %w", domain.ErrStorageUnavailable)

	env := toggleEnvelope(t, domain.EventKindLike, postID, userID, true)
	if err := svc.DisposeFailure(context.Background(), env, cause); err != nil {
		t.Fatalf("first dispose error: %v", err)
	}
	env.RetryCount = 1
	if err := svc.DisposeFailure(context.Background(), env, cause); err != nil {
		t.Fatalf("second dispose error: %v", err)
	}

	if len(deps.scheduler.Scheduled) != 2 {
		t.Fatalf("expected 2 scheduled retries, got %d", len(deps.scheduler.Scheduled))
	}
	first, second := deps.scheduler.Scheduled[0], deps.scheduler.Scheduled[1]
	if first.Delay != time.Second || first.Envelope.RetryCount != 1 {
		t.Fatalf("first retry: delay %s count %d", first.Delay, first.Envelope.RetryCount)
	}
	if second.Delay != 2*time.Second || second.Envelope.RetryCount != 2 {
		t.Fatalf("second retry: delay %s count %d", second.Delay, second.Envelope.RetryCount)
	}
}

func TestDisposeFailureExhaustedGoesToDeadLetter(t *testing.T) {
	svc, deps := newTestService()
	postID, userID := seedRefs(deps)
	cause := fmt.Errorf("like create: %w", domain.ErrStorageUnavailable)

	env := toggleEnvelope(t, domain.EventKindLike, postID, userID, true)
	env.RetryCount = svc.Config().MaxAttempts
	if err := svc.DisposeFailure(context.Background(), env, cause); err != nil {
		t.Fatalf("DisposeFailure error: %v", err)
	}
	if len(deps.scheduler.Scheduled) != 0 {
		t.Fatalf("exhausted envelope must not be rescheduled")
	}
	if len(deps.dlq.Messages) != 1 {
		t.Fatalf("expected 1 dead letter, got %d", len(deps.dlq.Messages))
	}
	if deps.dlq.Messages[0].FailureClass != string(domain.FailureClassTransient) {
		t.Fatalf("unexpected failure class %s", deps.dlq.Messages[0].FailureClass)
	}
}

func TestDisposeFailurePermanentSkipsRetry(t *testing.T) {
	svc, deps := newTestService()
	postID, userID := seedRefs(deps)
	cause := fmt.Errorf("%w: post %s", domain.ErrNotFound, postID)

	env := toggleEnvelope(t, domain.EventKindLike, postID, userID, true)
	if err := svc.DisposeFailure(context.Background(), env, cause); err != nil {
		t.Fatalf("DisposeFailure error: %v", err)
	}
	if len(deps.scheduler.Scheduled) != 0 {
		t.Fatalf("permanent failure must not be retried")
	}
	if len(deps.dlq.Messages) != 1 {
		t.Fatalf("expected immediate dead letter, got %d", len(deps.dlq.Messages))
	}
	msg := deps.dlq.Messages[0]
	if msg.FailureClass != string(domain.FailureClassPermanent) {
		t.Fatalf("unexpected failure class %s", msg.FailureClass)
	}
	if msg.Envelope.RetryCount != 0 {
		t.Fatalf("permanent failure should carry retry_count 0, got %d", msg.Envelope.RetryCount)
	}
}

func TestHandleDeadLetterRequeuesTransient(t *testing.T) {
	svc, deps := newTestService()
	postID, userID := seedRefs(deps)

	env := toggleEnvelope(t, domain.EventKindLike, postID, userID, true)
	env.RetryCount = svc.Config().MaxAttempts
	msg := contracts.DeadLetterMessage{
		Envelope:      env,
		FailureClass:  string(domain.FailureClassTransient),
		FailureReason: "storage unavailable",
		FailedAt:      time.Now().UTC(),
	}
	if err := svc.HandleDeadLetter(context.Background(), msg); err != nil {
		t.Fatalf("HandleDeadLetter error: %v", err)
	}
	if deps.publisher.Len() != 1 {
		t.Fatalf("expected requeue publish, got %d", deps.publisher.Len())
	}
	if got := deps.publisher.Published[0].RetryCount; got != env.RetryCount+1 {
		t.Fatalf("expected retry_count %d, got %d", env.RetryCount+1, got)
	}
	if deps.failures.Len() != 0 {
		t.Fatalf("requeued envelope must not be persisted yet")
	}
}

func TestHandleDeadLetterPersistsAtCeiling(t *testing.T) {
	svc, deps := newTestService()
	postID, userID := seedRefs(deps)

	env := toggleEnvelope(t, domain.EventKindLike, postID, userID, true)
	env.RetryCount = svc.Config().DeadLetterCeiling
	msg := contracts.DeadLetterMessage{
		Envelope:      env,
		FailureClass:  string(domain.FailureClassTransient),
		FailureReason: "storage unavailable",
		FailedAt:      time.Now().UTC(),
	}
	if err := svc.HandleDeadLetter(context.Background(), msg); err != nil {
		t.Fatalf("HandleDeadLetter error: %v", err)
	}
	if deps.publisher.Len() != 0 {
		t.Fatalf("envelope at ceiling must not be requeued")
	}
	record, err := deps.failures.GetByMessageID(context.Background(), env.MessageID)
	if err != nil {
		t.Fatalf("failure record missing: %v", err)
	}
	if record.FinalRetryCount != env.RetryCount {
		t.Fatalf("expected final retry count %d, got %d", env.RetryCount, record.FinalRetryCount)
	}
}

func TestHandleDeadLetterPersistsPermanentImmediately(t *testing.T) {
	svc, deps := newTestService()
	postID, userID := seedRefs(deps)

	env := toggleEnvelope(t, domain.EventKindLike, postID, userID, true)
	msg := contracts.DeadLetterMessage{
		Envelope:      env,
		FailureClass:  string(domain.FailureClassPermanent),
		FailureReason: "resource not found: post " + postID.String(),
		FailedAt:      time.Now().UTC(),
	}
	if err := svc.HandleDeadLetter(context.Background(), msg); err != nil {
		t.Fatalf("HandleDeadLetter error: %v", err)
	}
	record, err := deps.failures.GetByMessageID(context.Background(), env.MessageID)
	if err != nil {
		t.Fatalf("failure record missing: %v", err)
	}
	if record.FinalRetryCount != 0 {
		t.Fatalf("permanent failure should persist with retry_count 0, got %d", record.FinalRetryCount)
	}
	if record.EventKind != domain.EventKindLike {
		t.Fatalf("unexpected event kind %s", record.EventKind)
	}

	var stored contracts.EventEnvelope
	if err := json.Unmarshal(record.Envelope, &stored); err != nil {
		t.Fatalf("stored envelope must round-trip: %v", err)
	}
	if stored.MessageID != env.MessageID {
		t.Fatalf("stored envelope message id mismatch")
	}
}

func TestReplayFailure(t *testing.T) {
	svc, deps := newTestService()
	postID, userID := seedRefs(deps)
	operator := application.Actor{SubjectID: uuid.NewString(), Role: "admin"}

	env := toggleEnvelope(t, domain.EventKindLike, postID, userID, true)
	env.RetryCount = svc.Config().DeadLetterCeiling
	msg := contracts.DeadLetterMessage{Envelope: env, FailureClass: string(domain.FailureClassTransient), FailureReason: "storage unavailable", FailedAt: time.Now().UTC()}
	if err := svc.HandleDeadLetter(context.Background(), msg); err != nil {
		t.Fatalf("persist failure: %v", err)
	}

	replayed, err := svc.ReplayFailure(context.Background(), operator, env.MessageID)
	if err != nil {
		t.Fatalf("ReplayFailure error: %v", err)
	}
	if replayed.RetryCount != 0 {
		t.Fatalf("replay must reset retry_count, got %d", replayed.RetryCount)
	}
	if deps.publisher.Len() != 1 {
		t.Fatalf("expected 1 republished envelope, got %d", deps.publisher.Len())
	}
	if deps.failures.Len() != 0 {
		t.Fatalf("failure row should be removed after replay")
	}

	if _, err := svc.ReplayFailure(context.Background(), operator, env.MessageID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("replaying a removed failure should return ErrNotFound, got %v", err)
	}
}

func TestReplayFailureRequiresOperator(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.ReplayFailure(context.Background(), application.Actor{SubjectID: uuid.NewString(), Role: "user"}, uuid.NewString()); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-operator, got %v", err)
	}
	if _, err := svc.ReplayFailure(context.Background(), application.Actor{}, uuid.NewString()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized without actor, got %v", err)
	}
}

func TestReplayKeepsRowOnPublishFailure(t *testing.T) {
	svc, deps := newTestService()
	postID, userID := seedRefs(deps)
	operator := application.Actor{SubjectID: uuid.NewString(), Role: "operator"}

	env := toggleEnvelope(t, domain.EventKindLike, postID, userID, true)
	msg := contracts.DeadLetterMessage{Envelope: env, FailureClass: string(domain.FailureClassPermanent), FailureReason: "gone", FailedAt: time.Now().UTC()}
	if err := svc.HandleDeadLetter(context.Background(), msg); err != nil {
		t.Fatalf("persist failure: %v", err)
	}

	deps.publisher.FailWith = errors.New("kafka down")
	if _, err := svc.ReplayFailure(context.Background(), operator, env.MessageID); !errors.Is(err, domain.ErrBrokerUnavailable) {
		t.Fatalf("expected ErrBrokerUnavailable, got %v", err)
	}
	if deps.failures.Len() != 1 {
		t.Fatalf("failure row must survive a failed replay")
	}
}

func TestListAndDiscardFailures(t *testing.T) {
	svc, deps := newTestService()
	postID, userID := seedRefs(deps)
	operator := application.Actor{SubjectID: uuid.NewString(), Role: "admin"}

	env := toggleEnvelope(t, domain.EventKindLike, postID, userID, true)
	msg := contracts.DeadLetterMessage{Envelope: env, FailureClass: string(domain.FailureClassPermanent), FailureReason: "gone", FailedAt: time.Now().UTC()}
	if err := svc.HandleDeadLetter(context.Background(), msg); err != nil {
		t.Fatalf("persist failure: %v", err)
	}

	rows, err := svc.ListFailures(context.Background(), operator, domain.FailureFilter{EventKind: domain.EventKindLike})
	if err != nil {
		t.Fatalf("ListFailures error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(rows))
	}
	if rows, _ := svc.ListFailures(context.Background(), operator, domain.FailureFilter{EventKind: domain.EventKindComment}); len(rows) != 0 {
		t.Fatalf("kind filter leaked %d rows", len(rows))
	}
	if _, err := svc.ListFailures(context.Background(), application.Actor{SubjectID: "u", Role: "user"}, domain.FailureFilter{}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-operator list, got %v", err)
	}

	if err := svc.DiscardFailure(context.Background(), operator, env.MessageID); err != nil {
		t.Fatalf("DiscardFailure error: %v", err)
	}
	if deps.failures.Len() != 0 {
		t.Fatalf("discard should remove the failure row")
	}
}

func TestSweepExpiredFailures(t *testing.T) {
	svc, deps := newTestService()

	stale := domain.FailureRecord{
		MessageID:     uuid.NewString(),
		EventKind:     domain.EventKindLike,
		TargetPostID:  uuid.New(),
		Envelope:      []byte(`{}`),
		FailureReason: "old",
		FailedAt:      time.Now().Add(-60 * 24 * time.Hour),
	}
	freshRow := domain.FailureRecord{
		MessageID:     uuid.NewString(),
		EventKind:     domain.EventKindLike,
		TargetPostID:  uuid.New(),
		Envelope:      []byte(`{}`),
		FailureReason: "recent",
		FailedAt:      time.Now(),
	}
	if err := deps.failures.Create(context.Background(), stale); err != nil {
		t.Fatalf("seed stale: %v", err)
	}
	if err := deps.failures.Create(context.Background(), freshRow); err != nil {
		t.Fatalf("seed fresh: %v", err)
	}

	removed, err := svc.SweepExpiredFailures(context.Background())
	if err != nil {
		t.Fatalf("SweepExpiredFailures error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if deps.failures.Len() != 1 {
		t.Fatalf("recent failure should survive the sweep")
	}
}

func TestTransientFailureThenSuccess(t *testing.T) {
	svc, deps := newTestService()
	postID, userID := seedRefs(deps)

	deps.likes.FailWith = domain.ErrStorageUnavailable
	env := toggleEnvelope(t, domain.EventKindLike, postID, userID, true)

	err := svc.HandleEnvelope(context.Background(), env)
	if err == nil {
		t.Fatalf("expected storage failure")
	}
	if domain.Classify(err) != domain.FailureClassTransient {
		t.Fatalf("storage failure should classify transient")
	}
	if err := svc.DisposeFailure(context.Background(), env, err); err != nil {
		t.Fatalf("DisposeFailure error: %v", err)
	}

	// the scheduled redelivery arrives after the outage clears
	deps.likes.FailWith = nil
	redelivered := deps.scheduler.Scheduled[0].Envelope
	if err := svc.HandleEnvelope(context.Background(), redelivered); err != nil {
		t.Fatalf("redelivery after recovery failed: %v", err)
	}
	counters, _ := svc.PostCounters(context.Background(), postID)
	if counters.Likes != 1 {
		t.Fatalf("expected like counter 1 after recovery, got %d", counters.Likes)
	}
}
