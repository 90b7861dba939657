package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"contentboard/internal/config"
	"contentboard/internal/mailer"
	"contentboard/internal/mqhandler"
	"contentboard/internal/notify"
	"contentboard/internal/repository"
	"contentboard/pkg/db"
	"contentboard/pkg/logger"
	mongoclient "contentboard/pkg/mongo"
	"contentboard/pkg/mq"
	redisclient "contentboard/pkg/redis"
	"contentboard/pkg/util"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewLogger().Fatal("Failed to load config", zap.Error(err))
	}

	log := logger.NewLoggerWithConfig(cfg.Log)
	defer log.Sync()

	log.Info("Starting notifier...",
		zap.String("queue", cfg.Notify.Queue),
		zap.String("mail_driver", cfg.Mail.Driver),
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

	rdb := redisclient.NewRedisClient(cfg.Redis)
	defer rdb.Close()
	if err := redisclient.Ping(context.Background(), rdb); err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(mongoClient.Database(cfg.Mongo.Database), cfg.Mongo, log)
	deliveryRepo := repository.NewDeliveryRepository(dbConn, log)
	sender := mailer.NewSender(cfg.Mail, log)
	notifier := notify.NewNotifier(userRepo, sender, deliveryRepo, cfg.Mail.From, cfg.Mail.Domain, log)

	handler := mqhandler.NewScheduleCreatedHandler(
		notifier,
		util.NewDeduper(rdb, cfg.Notify.DedupeTTL, log),
		util.NewRetryCounter(rdb, cfg.Notify.RetryTTL),
		cfg.Notify.MaxRetries,
		log,
	)

	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.Notify.Queue, mq.RoutingScheduleCreated, log)
	if err != nil {
		log.Fatal("Failed to init consumer", zap.Error(err))
	}
	defer consumer.Close()
	consumer.SetHandler(handler.Handle)

	go func() {
		log.Info("Starting schedule.created consumer...")
		if err := consumer.StartConsuming(); err != nil {
			log.Fatal("Consumer failed", zap.Error(err))
		}
	}()

	// probes and metrics only
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := dbConn.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		if !consumer.IsConnected() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "mq_not_ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{Addr: cfg.Server.Port, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("notifier is fully initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down notifier gracefully...")
	consumer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("notifier shutdown complete")
}
