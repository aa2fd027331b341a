package memory

import "github.com/viralforge/interaction-service/internal/ports"

var (
	_ ports.LikeRepository       = (*LikeRepository)(nil)
	_ ports.BookmarkRepository   = (*BookmarkRepository)(nil)
	_ ports.CommentRepository    = (*CommentRepository)(nil)
	_ ports.ReferenceRepository  = (*ReferenceRepository)(nil)
	_ ports.StatsRepository      = (*StatsRepository)(nil)
	_ ports.FailureRepository    = (*FailureRepository)(nil)
	_ ports.EventDedupRepository = (*EventDedupRepository)(nil)
	_ ports.CounterCache         = (*CounterCache)(nil)
	_ ports.ActivityRollups      = (*ActivityRollups)(nil)
	_ ports.EventPublisher       = (*Publisher)(nil)
	_ ports.RetryScheduler       = (*Scheduler)(nil)
	_ ports.DeadLetterPublisher  = (*DeadLetterPublisher)(nil)
)
