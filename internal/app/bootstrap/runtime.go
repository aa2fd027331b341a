package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/viralforge/interaction-service/internal/adapters/cache"
	eventadapter "github.com/viralforge/interaction-service/internal/adapters/events"
	httpadapter "github.com/viralforge/interaction-service/internal/adapters/http"
	"github.com/viralforge/interaction-service/internal/adapters/postgres"
	"github.com/viralforge/interaction-service/internal/application"
	"github.com/viralforge/interaction-service/internal/domain"
	"github.com/viralforge/interaction-service/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	service    *application.Service
	httpServer *http.Server
	grpcServer *grpc.Server
	consumers  []*eventadapter.ConsumerWorker
	retry      *eventadapter.RetryWorker
	deadLetter *eventadapter.DeadLetterWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	topics := eventadapter.Topics{
		ByKind: map[domain.EventKind]string{
			domain.EventKindLike:        cfg.TopicLike,
			domain.EventKindBookmark:    cfg.TopicBookmark,
			domain.EventKindComment:     cfg.TopicComment,
			domain.EventKindStatsUpdate: cfg.TopicStatsUpdate,
		},
		Retry:      cfg.TopicRetry,
		DeadLetter: cfg.TopicDeadLetter,
	}

	var closers []io.Closer
	publisher := ports.EventPublisher(eventadapter.NewLoggingPublisher(logger))
	scheduler := ports.RetryScheduler(eventadapter.NewLoggingPublisher(logger))
	dlqPublisher := ports.DeadLetterPublisher(eventadapter.NewLoggingPublisher(logger))
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, pubErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, topics)
		if pubErr != nil {
			logger.WarnContext(ctx, "kafka publisher disabled, using logging publisher", "error", pubErr)
		} else {
			publisher = kafkaPublisher
			scheduler = kafkaPublisher
			dlqPublisher = kafkaPublisher
			closers = append(closers, kafkaPublisher)
		}
	}

	repos := postgres.NewRepositories(db)
	service := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:       cfg.ServiceID,
			BaseRetryDelay:    cfg.BaseRetryDelay,
			MaxRetryDelay:     cfg.MaxRetryDelay,
			MaxAttempts:       cfg.MaxAttempts,
			DeadLetterCeiling: cfg.DeadLetterCeiling,
			ProcessTimeout:    cfg.ProcessTimeout,
			CounterTTL:        cfg.CounterTTL,
			DedupTTL:          cfg.EventDedupTTL,
			FailureRetention:  cfg.FailureRetention,
		},
		Logger:     logger,
		Likes:      repos.Likes,
		Bookmarks:  repos.Bookmarks,
		Comments:   repos.Comments,
		Refs:       repos.Refs,
		Stats:      repos.Stats,
		Failures:   repos.Failures,
		Dedup:      repos.Dedup,
		Publisher:  publisher,
		Scheduler:  scheduler,
		DeadLetter: dlqPublisher,
		Counters:   cache.NewRedisCounterCache(redisClient, cfg.CounterTTL),
		Rollups:    cache.NewRedisActivityRollups(redisClient),
	})

	handler := httpadapter.NewHandler(service)
	router := httpadapter.NewRouter(handler, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	var consumers []*eventadapter.ConsumerWorker
	retryConsumer := eventadapter.Consumer(eventadapter.NewNoopConsumer())
	dlqConsumer := eventadapter.Consumer(eventadapter.NewNoopConsumer())
	for _, kind := range domain.EventKinds() {
		consumerAdapter := eventadapter.Consumer(eventadapter.NewNoopConsumer())
		if len(cfg.KafkaBrokers) > 0 {
			kafkaConsumer, conErr := eventadapter.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, topics.ForKind(kind))
			if conErr != nil {
				logger.WarnContext(ctx, "kafka consumer disabled, using noop consumer", "topic", topics.ForKind(kind), "error", conErr)
			} else {
				consumerAdapter = kafkaConsumer
				closers = append(closers, kafkaConsumer)
			}
		}
		consumers = append(consumers, eventadapter.NewConsumerWorker(logger, consumerAdapter, service, kind, cfg.ConsumerPollInterval))
	}
	if len(cfg.KafkaBrokers) > 0 {
		if kafkaConsumer, conErr := eventadapter.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup+"-retry", topics.Retry); conErr != nil {
			logger.WarnContext(ctx, "kafka retry consumer disabled", "error", conErr)
		} else {
			retryConsumer = kafkaConsumer
			closers = append(closers, kafkaConsumer)
		}
		if kafkaConsumer, conErr := eventadapter.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup+"-dlq", topics.DeadLetter); conErr != nil {
			logger.WarnContext(ctx, "kafka dlq consumer disabled", "error", conErr)
		} else {
			dlqConsumer = kafkaConsumer
			closers = append(closers, kafkaConsumer)
		}
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		service:    service,
		httpServer: httpServer,
		grpcServer: grpcServer,
		consumers:  consumers,
		retry:      eventadapter.NewRetryWorker(logger, retryConsumer, publisher, cfg.RetryPollInterval),
		deadLetter: eventadapter.NewDeadLetterWorker(logger, dlqConsumer, service, cfg.RetryPollInterval),
		cleanupFn: func(ctx context.Context) {
			for _, closer := range closers {
				_ = closer.Close()
			}
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func Build(ctx context.Context, configPath string) (*Runtime, error) {
	return NewRuntime(ctx, configPath)
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 2)

	// The health listener is bound here, not at construction time: the
	// worker process shares NewRuntime but serves no gRPC traffic.
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", r.cfg.GRPCPort))
	if err != nil {
		r.cleanupFn(context.Background())
		return err
	}

	go func() {
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		r.logger.ErrorContext(ctx, "runtime failure", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, len(r.consumers)+2)

	for _, worker := range r.consumers {
		worker := worker
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}()
	}
	go func() {
		if err := r.retry.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.deadLetter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		r.cleanupFn(context.Background())
		return nil
	case err := <-errCh:
		r.cleanupFn(context.Background())
		return err
	}
}
