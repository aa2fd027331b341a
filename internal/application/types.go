package application

import (
	"log/slog"
	"time"

	"github.com/viralforge/interaction-service/internal/ports"
)

type Config struct {
	ServiceName       string
	BaseRetryDelay    time.Duration
	MaxRetryDelay     time.Duration
	MaxAttempts       int
	DeadLetterCeiling int
	ProcessTimeout    time.Duration
	CounterTTL        time.Duration
	DedupTTL          time.Duration
	FailureRetention  time.Duration
}

type Actor struct {
	SubjectID string
	Username  string
	Role      string
	RequestID string
}

type ToggleInput struct {
	PostID    string
	Apply     bool
	MessageID string
}

type CommentInput struct {
	PostID          string
	Content         string
	ParentCommentID string
	PostTitle       string
	PostAuthorID    string
	MessageID       string
}

type StatsUpdateInput struct {
	PostID        string
	OperationType string
	CountDelta    int64
	StatsCategory string
	MessageID     string
}

type Service struct {
	cfg        Config
	logger     *slog.Logger
	likes      ports.LikeRepository
	bookmarks  ports.BookmarkRepository
	comments   ports.CommentRepository
	refs       ports.ReferenceRepository
	stats      ports.StatsRepository
	failures   ports.FailureRepository
	dedup      ports.EventDedupRepository
	publisher  ports.EventPublisher
	scheduler  ports.RetryScheduler
	deadLetter ports.DeadLetterPublisher
	counters   ports.CounterCache
	rollups    ports.ActivityRollups
	nowFn      func() time.Time
}

type Dependencies struct {
	Config     Config
	Logger     *slog.Logger
	Likes      ports.LikeRepository
	Bookmarks  ports.BookmarkRepository
	Comments   ports.CommentRepository
	Refs       ports.ReferenceRepository
	Stats      ports.StatsRepository
	Failures   ports.FailureRepository
	Dedup      ports.EventDedupRepository
	Publisher  ports.EventPublisher
	Scheduler  ports.RetryScheduler
	DeadLetter ports.DeadLetterPublisher
	Counters   ports.CounterCache
	Rollups    ports.ActivityRollups
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "interaction-service"
	}
	if cfg.BaseRetryDelay <= 0 {
		cfg.BaseRetryDelay = time.Second
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.DeadLetterCeiling <= cfg.MaxAttempts {
		cfg.DeadLetterCeiling = cfg.MaxAttempts + 2
	}
	if cfg.ProcessTimeout <= 0 {
		cfg.ProcessTimeout = 10 * time.Second
	}
	if cfg.CounterTTL <= 0 {
		cfg.CounterTTL = time.Hour
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 7 * 24 * time.Hour
	}
	if cfg.FailureRetention <= 0 {
		cfg.FailureRetention = 30 * 24 * time.Hour
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:        cfg,
		logger:     logger,
		likes:      deps.Likes,
		bookmarks:  deps.Bookmarks,
		comments:   deps.Comments,
		refs:       deps.Refs,
		stats:      deps.Stats,
		failures:   deps.Failures,
		dedup:      deps.Dedup,
		publisher:  deps.Publisher,
		scheduler:  deps.Scheduler,
		deadLetter: deps.DeadLetter,
		counters:   deps.Counters,
		rollups:    deps.Rollups,
		nowFn:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Config() Config { return s.cfg }
