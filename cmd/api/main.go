package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"contentboard/internal/config"
	"contentboard/internal/handler"
	"contentboard/internal/httpserver"
	"contentboard/internal/repository"
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
	log.Info("Starting schedule API...",
		zap.String("port", cfg.Server.Port),
		zap.String("timezone", loc.String()),
	)

	// Postgres: ranking history and notification log
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	if err := db.EnsureSchema(context.Background(), dbConn); err != nil {
		log.Fatal("Failed to ensure schema", zap.Error(err))
	}

	// MongoDB: tasks and users
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

	taskRepo := repository.NewTaskRepository(mongoDB, cfg.Mongo, loc, log)
	userRepo := repository.NewUserRepository(mongoDB, cfg.Mongo, log)
	rankingRepo := repository.NewRankingRepository(dbConn, log)
	deliveryRepo := repository.NewDeliveryRepository(dbConn, log)

	calc := schedule.NewCalculator(loc, time.Now)
	board := schedule.NewBoard(log)
	svc := schedule.NewService(taskRepo, userRepo, board, calc, publisher, log)

	boardCtx, boardCancel := context.WithCancel(context.Background())
	defer boardCancel()
	go func() {
		if err := board.Run(boardCtx, taskRepo); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Task board stopped", zap.Error(err))
		}
	}()

	router := httpserver.NewRouter(
		handler.NewScheduleHandler(svc, userRepo, log),
		handler.NewHistoryHandler(rankingRepo, deliveryRepo, calc, log),
		handler.NewAdminHandler(outbox.NewRepository(dbConn), log),
		cfg.JWT.Secret,
		log,
		httpserver.Check{Name: "mongo", Probe: func(ctx context.Context) error { return mongoclient.Ping(ctx, mongoClient) }},
		httpserver.Check{Name: "db", Probe: dbConn.Ping},
		httpserver.Check{Name: "mq", Probe: func(ctx context.Context) error {
			if !publisher.IsConnected() {
				return errors.New("publisher disconnected")
			}
			return nil
		}},
		httpserver.Check{Name: "board", Probe: func(ctx context.Context) error {
			if !board.IsReady() {
				return errors.New("waiting for first task snapshot")
			}
			return nil
		}},
	)

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down schedule API gracefully...")
	boardCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("schedule API shutdown complete")
}
