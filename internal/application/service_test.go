package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/viralforge/interaction-service/internal/adapters/memory"
	"github.com/viralforge/interaction-service/internal/application"
	"github.com/viralforge/interaction-service/internal/contracts"
	"github.com/viralforge/interaction-service/internal/domain"
)

type testDeps struct {
	likes     *memory.LikeRepository
	bookmarks *memory.BookmarkRepository
	comments  *memory.CommentRepository
	refs      *memory.ReferenceRepository
	stats     *memory.StatsRepository
	failures  *memory.FailureRepository
	dedup     *memory.EventDedupRepository
	publisher *memory.Publisher
	scheduler *memory.Scheduler
	dlq       *memory.DeadLetterPublisher
	counters  *memory.CounterCache
	rollups   *memory.ActivityRollups
}

func newTestDeps() *testDeps {
	return &testDeps{
		likes:     memory.NewLikeRepository(),
		bookmarks: memory.NewBookmarkRepository(),
		comments:  memory.NewCommentRepository(),
		refs:      memory.NewReferenceRepository(),
		stats:     memory.NewStatsRepository(),
		failures:  memory.NewFailureRepository(),
		dedup:     memory.NewEventDedupRepository(),
		publisher: memory.NewPublisher(),
		scheduler: memory.NewScheduler(),
		dlq:       memory.NewDeadLetterPublisher(),
		counters:  memory.NewCounterCache(),
		rollups:   memory.NewActivityRollups(),
	}
}

func (d *testDeps) service() *application.Service {
	return application.NewService(application.Dependencies{
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Likes:      d.likes,
		Bookmarks:  d.bookmarks,
		Comments:   d.comments,
		Refs:       d.refs,
		Stats:      d.stats,
		Failures:   d.failures,
		Dedup:      d.dedup,
		Publisher:  d.publisher,
		Scheduler:  d.scheduler,
		DeadLetter: d.dlq,
		Counters:   d.counters,
		Rollups:    d.rollups,
	})
}

func newTestService() (*application.Service, *testDeps) {
	deps := newTestDeps()
	return deps.service(), deps
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func toggleEnvelope(t *testing.T, kind domain.EventKind, postID, userID uuid.UUID, apply bool) contracts.EventEnvelope {
	t.Helper()
	return contracts.EventEnvelope{
		MessageID:    uuid.NewString(),
		EventKind:    string(kind),
		ActorUserID:  userID.String(),
		TargetPostID: postID.String(),
		Payload:      mustJSON(t, contracts.TogglePayload{Apply: apply}),
		CreatedAt:    time.Now().UTC(),
	}
}

func seedRefs(deps *testDeps) (postID, userID uuid.UUID) {
	postID = uuid.New()
	userID = uuid.New()
	deps.refs.SeedPost(postID)
	deps.refs.SeedUser(userID)
	return postID, userID
}

func TestHandleEnvelopeLikeApplies(t *testing.T) {
	svc, deps := newTestService()
	postID, userID := seedRefs(deps)

	env := toggleEnvelope(t, domain.EventKindLike, postID, userID, true)
	if err := svc.HandleEnvelope(context.Background(), env); err != nil {
		t.Fatalf("HandleEnvelope error: %v", err)
	}

	exists, _ := deps.likes.Exists(context.Background(), postID, userID)
	if !exists {
		t.Fatalf("like row not created")
	}
	counters, err := svc.PostCounters(context.Background(), postID)
	if err != nil {
		t.Fatalf("PostCounters error: %v", err)
	}
	if counters.Likes != 1 {
		t.Fatalf("expected like counter 1, got %d", counters.Likes)
	}
}

func TestHandleEnvelopeDuplicateRedelivery(t *testing.T) {
	svc, deps := newTestService()
	postID, userID := seedRefs(deps)

	env := toggleEnvelope(t, domain.EventKindLike, postID, userID, true)
	if err := svc.HandleEnvelope(context.Background(), env); err != nil {
		t.Fatalf("first delivery error: %v", err)
	}
	if err := svc.HandleEnvelope(context.Background(), env); err != nil {
		t.Fatalf("redelivery should be a no-op, got %v", err)
	}

	count, _ := deps.likes.CountByPost(context.Background(), postID)
	if count != 1 {
		t.Fatalf("expected 1 like row after redelivery, got %d", count)
	}
	counters, _ := svc.PostCounters(context.Background(), postID)
	if counters.Likes != 1 {
		t.Fatalf("expected like counter 1 after redelivery, got %d", counters.Likes)
	}
}

func TestHandleEnvelopeDeletedPost(t *testing.T) {
	svc, deps := newTestService()
	userID := uuid.New()
	deps.refs.SeedUser(userID)
	postID := uuid.New() // never seeded

	env := toggleEnvelope(t, domain.EventKindLike, postID, userID, true)
	err := svc.HandleEnvelope(context.Background(), env)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for deleted post, got %v", err)
	}
	if domain.Classify(err) != domain.FailureClassPermanent {
		t.Fatalf("deleted post should classify as permanent")
	}
}

func TestHandleEnvelopeBookmarkRemoveAbsent(t *testing.T) {
	svc, deps := newTestService()
	postID, userID := seedRefs(deps)

	env := toggleEnvelope(t, domain.EventKindBookmark, postID, userID, false)
	if err := svc.HandleEnvelope(context.Background(), env); err != nil {
		t.Fatalf("removing an absent bookmark must be a no-op, got %v", err)
	}
	counters, _ := svc.PostCounters(context.Background(), postID)
	if counters.Bookmarks != 0 {
		t.Fatalf("expected bookmark counter 0, got %d", counters.Bookmarks)
	}
}

func TestHandleEnvelopeComment(t *testing.T) {
	svc, deps := newTestService()
	postID, userID := seedRefs(deps)

	messageID := uuid.New()
	env := contracts.EventEnvelope{
		MessageID:     messageID.String(),
		EventKind:     string(domain.EventKindComment),
		ActorUserID:   userID.String(),
		ActorUsername: "casey",
		TargetPostID:  postID.String(),
		Payload:       mustJSON(t, contracts.CommentPayload{Content: "nice post"}),
		CreatedAt:     time.Now().UTC(),
	}
	if err := svc.HandleEnvelope(context.Background(), env); err != nil {
		t.Fatalf("HandleEnvelope error: %v", err)
	}

	row, ok := deps.comments.Get(messageID)
	if !ok {
		t.Fatalf("comment row not created under message id")
	}
	if row.Content != "nice post" || row.Username != "casey" {
		t.Fatalf("unexpected comment row: %+v", row)
	}
	counters, _ := svc.PostCounters(context.Background(), postID)
	if counters.Comments != 1 {
		t.Fatalf("expected comment counter 1, got %d", counters.Comments)
	}

	// Redelivery after a lost dedup mark: a second consumer instance sees
	// the same envelope, hits the conflict on the comment key, and must not
	// double-count.
	second := application.NewService(application.Dependencies{
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Likes:      deps.likes,
		Bookmarks:  deps.bookmarks,
		Comments:   deps.comments,
		Refs:       deps.refs,
		Stats:      deps.stats,
		Failures:   deps.failures,
		Dedup:      memory.NewEventDedupRepository(),
		Publisher:  deps.publisher,
		Scheduler:  deps.scheduler,
		DeadLetter: deps.dlq,
		Counters:   deps.counters,
		Rollups:    deps.rollups,
	})
	if err := second.HandleEnvelope(context.Background(), env); err != nil {
		t.Fatalf("redelivered comment should settle as no-op, got %v", err)
	}
	count, _ := deps.comments.CountByPost(context.Background(), postID)
	if count != 1 {
		t.Fatalf("expected 1 comment row, got %d", count)
	}
}

func TestHandleEnvelopeStatsUpdate(t *testing.T) {
	svc, deps := newTestService()
	postID, userID := seedRefs(deps)

	env := contracts.EventEnvelope{
		MessageID:    uuid.NewString(),
		EventKind:    string(domain.EventKindStatsUpdate),
		ActorUserID:  userID.String(),
		TargetPostID: postID.String(),
		Payload:      mustJSON(t, contracts.StatsUpdatePayload{OperationType: domain.StatsOpAdjust, CountDelta: 5, StatsCategory: "views"}),
		CreatedAt:    time.Now().UTC(),
	}
	if err := svc.HandleEnvelope(context.Background(), env); err != nil {
		t.Fatalf("HandleEnvelope error: %v", err)
	}
	row, err := deps.stats.Get(context.Background(), postID, "views")
	if err != nil {
		t.Fatalf("stats row missing: %v", err)
	}
	if row.Count != 5 {
		t.Fatalf("expected views count 5, got %d", row.Count)
	}
}

// flakyDedup fails MarkProcessed a fixed number of times before delegating,
// simulating a dedup store that drops out between the mutation and the mark.
type flakyDedup struct {
	inner     *memory.EventDedupRepository
	markFails int
}

func (f *flakyDedup) IsDuplicate(ctx context.Context, messageID string, now time.Time) (bool, error) {
	return f.inner.IsDuplicate(ctx, messageID, now)
}

func (f *flakyDedup) MarkProcessed(ctx context.Context, messageID, eventKind string, expiresAt time.Time) error {
	if f.markFails > 0 {
		f.markFails--
		return domain.ErrStorageUnavailable
	}
	return f.inner.MarkProcessed(ctx, messageID, eventKind, expiresAt)
}

func TestHandleEnvelopeStatsUpdateRedeliveryAfterMarkFailure(t *testing.T) {
	deps := newTestDeps()
	dedup := &flakyDedup{inner: memory.NewEventDedupRepository(), markFails: 1}
	svc := application.NewService(application.Dependencies{
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Likes:      deps.likes,
		Bookmarks:  deps.bookmarks,
		Comments:   deps.comments,
		Refs:       deps.refs,
		Stats:      deps.stats,
		Failures:   deps.failures,
		Dedup:      dedup,
		Publisher:  deps.publisher,
		Scheduler:  deps.scheduler,
		DeadLetter: deps.dlq,
		Counters:   deps.counters,
		Rollups:    deps.rollups,
	})
	postID, userID := seedRefs(deps)

	env := contracts.EventEnvelope{
		MessageID:    uuid.NewString(),
		EventKind:    string(domain.EventKindStatsUpdate),
		ActorUserID:  userID.String(),
		TargetPostID: postID.String(),
		Payload:      mustJSON(t, contracts.StatsUpdatePayload{OperationType: domain.StatsOpAdjust, CountDelta: 5, StatsCategory: "views"}),
		CreatedAt:    time.Now().UTC(),
	}

	err := svc.HandleEnvelope(context.Background(), env)
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected mark failure to surface, got %v", err)
	}
	if domain.Classify(err) != domain.FailureClassTransient {
		t.Fatalf("mark failure should classify as transient")
	}

	// Broker redelivers the identical envelope once the store recovers.
	if err := svc.HandleEnvelope(context.Background(), env); err != nil {
		t.Fatalf("redelivery error: %v", err)
	}
	row, err := deps.stats.Get(context.Background(), postID, "views")
	if err != nil {
		t.Fatalf("stats row missing: %v", err)
	}
	if row.Count != 5 {
		t.Fatalf("delta applied twice: expected views count 5, got %d", row.Count)
	}
}

func TestHandleEnvelopeRejectsUnknownKind(t *testing.T) {
	svc, deps := newTestService()
	postID, userID := seedRefs(deps)

	env := toggleEnvelope(t, domain.EventKindLike, postID, userID, true)
	env.EventKind = "FOLLOW"
	err := svc.HandleEnvelope(context.Background(), env)
	if !errors.Is(err, domain.ErrUnsupportedEventKind) {
		t.Fatalf("expected ErrUnsupportedEventKind, got %v", err)
	}
	if domain.Classify(err) != domain.FailureClassValidation {
		t.Fatalf("unknown kind should classify as validation")
	}
}

func TestAdjustCounterClampsAtZero(t *testing.T) {
	svc, deps := newTestService()
	postID := uuid.New()

	value, err := svc.AdjustCounter(context.Background(), postID, domain.CounterKindLike, -1)
	if err != nil {
		t.Fatalf("AdjustCounter error: %v", err)
	}
	if value != 0 {
		t.Fatalf("expected clamp to 0, got %d", value)
	}
	stored, ok, _ := deps.counters.Get(context.Background(), "interaction:count:like:"+postID.String())
	if !ok || stored != 0 {
		t.Fatalf("expected corrective zero in cache, got %d (hit=%v)", stored, ok)
	}
}

func TestPostCountersReadThrough(t *testing.T) {
	svc, deps := newTestService()
	postID, userID := seedRefs(deps)

	// rows exist but the cache is cold
	if err := deps.likes.Create(context.Background(), domain.Like{LikeID: uuid.New(), PostID: postID, UserID: userID, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("seed like: %v", err)
	}
	counters, err := svc.PostCounters(context.Background(), postID)
	if err != nil {
		t.Fatalf("PostCounters error: %v", err)
	}
	if counters.Likes != 1 {
		t.Fatalf("expected rebuilt like counter 1, got %d", counters.Likes)
	}
	stored, ok, _ := deps.counters.Get(context.Background(), "interaction:count:like:"+postID.String())
	if !ok || stored != 1 {
		t.Fatalf("expected cache repopulated with 1, got %d (hit=%v)", stored, ok)
	}
}

func TestPublishLikeBrokerFailure(t *testing.T) {
	svc, deps := newTestService()
	deps.publisher.FailWith = errors.New("kafka down")

	env, err := svc.PublishLike(context.Background(), application.Actor{SubjectID: uuid.NewString()}, application.ToggleInput{PostID: uuid.NewString(), Apply: true})
	if !errors.Is(err, domain.ErrBrokerUnavailable) {
		t.Fatalf("expected ErrBrokerUnavailable, got %v", err)
	}
	if env.MessageID == "" {
		t.Fatalf("envelope should still be built on broker failure")
	}
}

func TestPublishCommentValidation(t *testing.T) {
	svc, _ := newTestService()
	actor := application.Actor{SubjectID: uuid.NewString(), Username: "casey"}

	if _, err := svc.PublishComment(context.Background(), actor, application.CommentInput{PostID: uuid.NewString(), Content: "   "}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank comment, got %v", err)
	}
	if _, err := svc.PublishComment(context.Background(), application.Actor{}, application.CommentInput{PostID: uuid.NewString(), Content: "hi"}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized without actor, got %v", err)
	}

	env, err := svc.PublishComment(context.Background(), actor, application.CommentInput{PostID: uuid.NewString(), Content: "hi"})
	if err != nil {
		t.Fatalf("PublishComment error: %v", err)
	}
	if env.EventKind != string(domain.EventKindComment) {
		t.Fatalf("unexpected kind %s", env.EventKind)
	}
	if _, parseErr := uuid.Parse(env.MessageID); parseErr != nil {
		t.Fatalf("comment message id must be a uuid: %v", parseErr)
	}
}

func TestPublishHonorsIdempotencyKey(t *testing.T) {
	svc, deps := newTestService()
	key := uuid.NewString()
	env, err := svc.PublishBookmark(context.Background(), application.Actor{SubjectID: uuid.NewString()}, application.ToggleInput{PostID: uuid.NewString(), Apply: true, MessageID: key})
	if err != nil {
		t.Fatalf("PublishBookmark error: %v", err)
	}
	if env.MessageID != key {
		t.Fatalf("expected message id %s, got %s", key, env.MessageID)
	}
	if deps.publisher.Len() != 1 {
		t.Fatalf("expected 1 published envelope, got %d", deps.publisher.Len())
	}
}
