package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/classifier"
	"github.com/spec-kit/ticket-triage/internal/config"
	"github.com/spec-kit/ticket-triage/internal/events"
	"github.com/spec-kit/ticket-triage/internal/observability"
	"github.com/spec-kit/ticket-triage/internal/persistence"
	"github.com/spec-kit/ticket-triage/internal/queue"
	"github.com/spec-kit/ticket-triage/internal/repository"
	"github.com/spec-kit/ticket-triage/internal/service"
	"github.com/spec-kit/ticket-triage/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Unknown provider names and missing credentials fail here, at boot,
	// not per job.
	provider, err := classifier.Resolve(cfg.Classifier)
	if err != nil {
		logger.Fatal("failed to resolve classifier provider", zap.Error(err))
	}
	logger.Info("classifier provider resolved", zap.String("provider", provider.Name()))

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	ticketQueue := queue.New(redis.Client, cfg.Queue.Name, queue.Options{
		MaxAttempts:      cfg.Queue.MaxAttempts,
		BackoffDelay:     cfg.Queue.RetryDelay(),
		RemoveOnComplete: true,
		FailedRetention:  cfg.Queue.FailedRetention(),
		StalledAfter:     cfg.Queue.StalledAfter(),
	}, logger)

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewTicketMessageRepository(pool)

	dispatcher := events.NewInMemoryDispatcher(logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notificationService.RegisterHandlers()

	classificationService := service.NewClassificationService(
		ticketRepo, messageRepo, provider, dispatcher, logger)

	metrics := observability.NewMetrics()
	classifyWorker := worker.NewClassifyWorker(
		ticketQueue, ticketRepo, messageRepo, classificationService,
		cfg.Queue.JobExpiry(), logger, metrics)

	if err := classifyWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("worker stopped", zap.Error(err))
	}
	logger.Info("worker shut down")
}
