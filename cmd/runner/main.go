package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"contentboard/internal/config"
	"contentboard/internal/repository"
	"contentboard/internal/runner"
	"contentboard/internal/schedule"
	"contentboard/pkg/db"
	"contentboard/pkg/logger"
	mongoclient "contentboard/pkg/mongo"
	"contentboard/pkg/mq"
	"contentboard/pkg/outbox"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewLogger().Fatal("Failed to load config", zap.Error(err))
	}

	log := logger.NewLoggerWithConfig(cfg.Log)
	defer log.Sync()

	loc := cfg.Schedule.Location()
	log.Info("Starting runner...",
		zap.String("timezone", loc.String()),
		zap.String("weekly_spec", cfg.Runner.WeeklySpec),
		zap.String("monthly_spec", cfg.Runner.MonthlySpec),
	)

	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	if err := db.EnsureSchema(context.Background(), dbConn); err != nil {
		log.Fatal("Failed to ensure schema", zap.Error(err))
	}

	mongoClient, err := mongoclient.NewClient(context.Background(), cfg.Mongo, log)
	if err != nil {
		log.Fatal("Failed to init MongoDB", zap.Error(err))
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database(cfg.Mongo.Database)

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Outbox Dispatcher
	dispatcher := outbox.NewDispatcher(outbox.NewRepository(dbConn), publisher, log).
		WithInterval(cfg.Outbox.Interval).
		WithBatchSize(cfg.Outbox.BatchSize).
		WithMaxRetries(cfg.Outbox.MaxRetries)
	go dispatcher.Start(ctx)

	calc := schedule.NewCalculator(loc, time.Now)
	svc := schedule.NewService(
		repository.NewTaskRepository(mongoDB, cfg.Mongo, loc, log),
		repository.NewUserRepository(mongoDB, cfg.Mongo, log),
		nil, calc, nil, log,
	)
	closer := runner.NewCycleCloser(svc, repository.NewRankingRepository(dbConn, log), calc, log)

	scheduler := runner.NewScheduler(loc, log)
	weekly, err := scheduler.Add("close-week", cfg.Runner.WeeklySpec, closer.CloseWeek)
	if err != nil {
		log.Fatal("Invalid weekly spec", zap.Error(err))
	}
	monthly, err := scheduler.Add("close-month", cfg.Runner.MonthlySpec, closer.CloseMonth)
	if err != nil {
		log.Fatal("Invalid monthly spec", zap.Error(err))
	}
	scheduler.Start()

	log.Info("runner is fully initialized and running",
		zap.Time("next_week_close", scheduler.Next(weekly)),
		zap.Time("next_month_close", scheduler.Next(monthly)),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down runner gracefully...")
	scheduler.Stop()
	cancel()
	log.Info("runner shutdown complete")
}
