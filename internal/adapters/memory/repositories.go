// Package memory provides map-backed implementations of every port. They
// serve unit tests and broker-less local runs; production wiring uses the
// postgres, cache and events adapters instead.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/viralforge/interaction-service/internal/domain"
	"github.com/viralforge/interaction-service/internal/ports"
)

type relationKey struct {
	PostID uuid.UUID
	UserID uuid.UUID
}

type LikeRepository struct {
	mu   sync.Mutex
	rows map[relationKey]domain.Like

	// FailWith, when set, is returned by every call. Lets tests exercise
	// the transient-failure path.
	FailWith error
}

func NewLikeRepository() *LikeRepository {
	return &LikeRepository{rows: make(map[relationKey]domain.Like)}
}

func (r *LikeRepository) Exists(_ context.Context, postID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return false, r.FailWith
	}
	_, ok := r.rows[relationKey{PostID: postID, UserID: userID}]
	return ok, nil
}

func (r *LikeRepository) Create(_ context.Context, row domain.Like) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	key := relationKey{PostID: row.PostID, UserID: row.UserID}
	if _, ok := r.rows[key]; ok {
		return domain.ErrConflict
	}
	r.rows[key] = row
	return nil
}

func (r *LikeRepository) Delete(_ context.Context, postID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return false, r.FailWith
	}
	key := relationKey{PostID: postID, UserID: userID}
	if _, ok := r.rows[key]; !ok {
		return false, nil
	}
	delete(r.rows, key)
	return true, nil
}

func (r *LikeRepository) CountByPost(_ context.Context, postID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return 0, r.FailWith
	}
	var n int64
	for key := range r.rows {
		if key.PostID == postID {
			n++
		}
	}
	return n, nil
}

type BookmarkRepository struct {
	mu   sync.Mutex
	rows map[relationKey]domain.Bookmark

	FailWith error
}

func NewBookmarkRepository() *BookmarkRepository {
	return &BookmarkRepository{rows: make(map[relationKey]domain.Bookmark)}
}

func (r *BookmarkRepository) Exists(_ context.Context, postID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return false, r.FailWith
	}
	_, ok := r.rows[relationKey{PostID: postID, UserID: userID}]
	return ok, nil
}

func (r *BookmarkRepository) Create(_ context.Context, row domain.Bookmark) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	key := relationKey{PostID: row.PostID, UserID: row.UserID}
	if _, ok := r.rows[key]; ok {
		return domain.ErrConflict
	}
	r.rows[key] = row
	return nil
}

func (r *BookmarkRepository) Delete(_ context.Context, postID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return false, r.FailWith
	}
	key := relationKey{PostID: postID, UserID: userID}
	if _, ok := r.rows[key]; !ok {
		return false, nil
	}
	delete(r.rows, key)
	return true, nil
}

func (r *BookmarkRepository) CountByPost(_ context.Context, postID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return 0, r.FailWith
	}
	var n int64
	for key := range r.rows {
		if key.PostID == postID {
			n++
		}
	}
	return n, nil
}

type CommentRepository struct {
	mu   sync.Mutex
	rows map[uuid.UUID]domain.Comment

	FailWith error
}

func NewCommentRepository() *CommentRepository {
	return &CommentRepository{rows: make(map[uuid.UUID]domain.Comment)}
}

func (r *CommentRepository) Create(_ context.Context, row domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	if _, ok := r.rows[row.CommentID]; ok {
		return domain.ErrConflict
	}
	r.rows[row.CommentID] = row
	return nil
}

func (r *CommentRepository) CountByPost(_ context.Context, postID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return 0, r.FailWith
	}
	var n int64
	for _, row := range r.rows {
		if row.PostID == postID {
			n++
		}
	}
	return n, nil
}

func (r *CommentRepository) Get(commentID uuid.UUID) (domain.Comment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[commentID]
	return row, ok
}

// ReferenceRepository holds the known post and user ids. Everything not
// seeded is reported absent, which the pipeline treats as a permanent
// failure.
type ReferenceRepository struct {
	mu    sync.Mutex
	posts map[uuid.UUID]struct{}
	users map[uuid.UUID]struct{}

	FailWith error
}

func NewReferenceRepository() *ReferenceRepository {
	return &ReferenceRepository{posts: make(map[uuid.UUID]struct{}), users: make(map[uuid.UUID]struct{})}
}

func (r *ReferenceRepository) SeedPost(postID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[postID] = struct{}{}
}

func (r *ReferenceRepository) SeedUser(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[userID] = struct{}{}
}

func (r *ReferenceRepository) RemovePost(postID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, postID)
}

func (r *ReferenceRepository) PostExists(_ context.Context, postID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return false, r.FailWith
	}
	_, ok := r.posts[postID]
	return ok, nil
}

func (r *ReferenceRepository) UserExists(_ context.Context, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return false, r.FailWith
	}
	_, ok := r.users[userID]
	return ok, nil
}

type statKey struct {
	PostID   uuid.UUID
	Category string
}

type StatsRepository struct {
	mu      sync.Mutex
	rows    map[statKey]domain.PostStat
	claimed map[string]struct{}

	FailWith error
}

func NewStatsRepository() *StatsRepository {
	return &StatsRepository{
		rows:    make(map[statKey]domain.PostStat),
		claimed: make(map[string]struct{}),
	}
}

func (r *StatsRepository) ApplyDelta(_ context.Context, postID uuid.UUID, category string, delta int64, at time.Time, mark ports.DedupMark) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return false, r.FailWith
	}
	if _, done := r.claimed[mark.MessageID]; done {
		return false, nil
	}
	key := statKey{PostID: postID, Category: category}
	row := r.rows[key]
	row.PostID = postID
	row.Category = category
	row.Count += delta
	row.LastUpdatedAt = at
	r.rows[key] = row
	r.claimed[mark.MessageID] = struct{}{}
	return true, nil
}

func (r *StatsRepository) Get(_ context.Context, postID uuid.UUID, category string) (domain.PostStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return domain.PostStat{}, r.FailWith
	}
	row, ok := r.rows[statKey{PostID: postID, Category: category}]
	if !ok {
		return domain.PostStat{}, domain.ErrNotFound
	}
	return row, nil
}

type FailureRepository struct {
	mu   sync.Mutex
	rows map[string]domain.FailureRecord

	FailWith error
}

func NewFailureRepository() *FailureRepository {
	return &FailureRepository{rows: make(map[string]domain.FailureRecord)}
}

func (r *FailureRepository) Create(_ context.Context, row domain.FailureRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	if _, ok := r.rows[row.MessageID]; ok {
		return nil
	}
	r.rows[row.MessageID] = row
	return nil
}

func (r *FailureRepository) GetByMessageID(_ context.Context, messageID string) (domain.FailureRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return domain.FailureRecord{}, r.FailWith
	}
	row, ok := r.rows[messageID]
	if !ok {
		return domain.FailureRecord{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *FailureRepository) List(_ context.Context, filter domain.FailureFilter) ([]domain.FailureRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	out := make([]domain.FailureRecord, 0, len(r.rows))
	for _, row := range r.rows {
		if filter.EventKind != "" && row.EventKind != filter.EventKind {
			continue
		}
		if filter.PostID != nil && row.TargetPostID != *filter.PostID {
			continue
		}
		if filter.From != nil && row.FailedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && row.FailedAt.After(*filter.To) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FailedAt.After(out[j].FailedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *FailureRepository) Delete(_ context.Context, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	delete(r.rows, messageID)
	return nil
}

func (r *FailureRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return 0, r.FailWith
	}
	var n int64
	for id, row := range r.rows {
		if row.FailedAt.Before(cutoff) {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

func (r *FailureRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type dedupEntry struct {
	ExpiresAt time.Time
}

type EventDedupRepository struct {
	mu   sync.Mutex
	rows map[string]dedupEntry

	FailWith error
}

func NewEventDedupRepository() *EventDedupRepository {
	return &EventDedupRepository{rows: make(map[string]dedupEntry)}
}

func (r *EventDedupRepository) IsDuplicate(_ context.Context, messageID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return false, r.FailWith
	}
	entry, ok := r.rows[messageID]
	if !ok {
		return false, nil
	}
	return entry.ExpiresAt.After(now), nil
}

func (r *EventDedupRepository) MarkProcessed(_ context.Context, messageID, _ string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	if _, ok := r.rows[messageID]; !ok {
		r.rows[messageID] = dedupEntry{ExpiresAt: expiresAt}
	}
	return nil
}
