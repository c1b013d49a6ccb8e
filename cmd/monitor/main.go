package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/microburst-monitor/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/microburst-monitor/internal/adapter/kafka"
	"github.com/couchcryptid/microburst-monitor/internal/config"
	"github.com/couchcryptid/microburst-monitor/internal/observability"
	"github.com/couchcryptid/microburst-monitor/internal/session"
	"github.com/couchcryptid/microburst-monitor/internal/store"
	"github.com/couchcryptid/microburst-monitor/internal/synthetic"
)

func main() {
	// A .env file is optional; real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	st := store.New()
	instruments := synthetic.NewInstruments(cfg.SyntheticSeed, clock.Now())

	hub := httpadapter.NewHub(clock, logger, metrics)
	unsubscribeHub := st.Subscribe(hub.PublishDetection)
	defer unsubscribeHub()

	sess := session.New(cfg, st, instruments, hub, logger, metrics, session.WithClock(clock))
	api := httpadapter.NewAPI(st, instruments, sess, cfg.ActiveWindow, clock, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, sess, api, hub, logger)

	// Initialize the publisher (feature-flagged via KAFKA_ENABLED).
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger, metrics)
		unsubscribePublisher := st.Subscribe(publisher.Enqueue)
		defer unsubscribePublisher()
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start Kafka publisher.
	publisherDone := make(chan struct{})
	go func() {
		defer close(publisherDone)
		if publisher == nil {
			return
		}
		if err := publisher.Run(ctx); err != nil {
			logger.Error("publisher error", "error", err)
		}
	}()

	// Start monitoring session.
	sessionDone := make(chan struct{})
	go func() {
		defer close(sessionDone)
		if err := sess.Run(ctx); err != nil {
			logger.Error("session error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	for _, done := range []chan struct{}{sessionDone, publisherDone} {
		select {
		case <-done:
		case <-shutdownCtx.Done():
			logger.Error("shutdown timed out waiting for workers")
		}
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
