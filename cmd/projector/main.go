package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/order-engine/internal/app"
	"github.com/example/order-engine/internal/config"
	"github.com/example/order-engine/internal/infrastructure/kafka"
	"github.com/example/order-engine/internal/infrastructure/store"
	"github.com/example/order-engine/internal/logging"
	"github.com/example/order-engine/internal/projection"
	"github.com/example/order-engine/internal/readmodel"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load("PROJECTOR")
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.WithError(err).Fatal("invalid logging configuration")
	}
	log := logger.WithField("service", "projector")

	db, err := app.OpenReadDB(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to PostgreSQL")
	}
	defer db.Close()

	projector := projection.NewProjector(store.NewPostgresReadStore(db, readmodel.Factories()), logger)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.ConsumerGroup, logger)
	defer consumer.Close()

	go func() {
		log.WithFields(logrus.Fields{"topic": cfg.KafkaTopic, "group": cfg.ConsumerGroup}).Info("consuming events")
		if err := consumer.Consume(ctx, projector.HandleEvent); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("consumer error")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	cancel()
}
