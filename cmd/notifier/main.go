package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/order-engine/internal/app"
	"github.com/example/order-engine/internal/config"
	"github.com/example/order-engine/internal/email"
	"github.com/example/order-engine/internal/infrastructure/kafka"
	"github.com/example/order-engine/internal/infrastructure/store"
	"github.com/example/order-engine/internal/logging"
	"github.com/example/order-engine/internal/notification"
	"github.com/example/order-engine/internal/readmodel"
	"github.com/sirupsen/logrus"
)

// Dedicated consumer group so every failure alert is seen once by the notifier
const consumerGroup = "side-effect-notifier"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load("NOTIFIER")
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.WithError(err).Fatal("invalid logging configuration")
	}
	log := logger.WithField("service", "notifier")
	if cfg.StaffEmail == "" {
		log.Warn("STAFF_EMAIL is not set, alerts will only be logged")
	}

	db, err := app.OpenReadDB(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to PostgreSQL")
	}
	defer db.Close()

	readStore := store.NewPostgresReadStore(db, readmodel.Factories())
	emailSvc := email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	handler := notification.NewHandler(emailSvc, readStore, cfg.StaffEmail, logger)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, consumerGroup, logger)
	defer consumer.Close()

	go func() {
		log.WithFields(logrus.Fields{
			"topic": cfg.KafkaTopic,
			"smtp":  cfg.SMTPHost + ":" + cfg.SMTPPort,
		}).Info("consuming events")
		if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
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
