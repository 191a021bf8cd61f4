package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/example/order-engine/internal/api"
	"github.com/example/order-engine/internal/app"
	"github.com/example/order-engine/internal/config"
	"github.com/example/order-engine/internal/domain/inventory"
	"github.com/example/order-engine/internal/infrastructure/kafka"
	"github.com/example/order-engine/internal/logging"
	"github.com/example/order-engine/internal/query"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load("ORDERS")
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.WithError(err).Fatal("invalid logging configuration")
	}
	log := logger.WithField("service", "api")

	log.WithFields(logrus.Fields{
		"backend": cfg.Backend,
		"kafka":   cfg.KafkaBrokers,
		"topic":   cfg.KafkaTopic,
	}).Info("starting order engine")

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		log.WithError(err).Fatal("failed to open stores")
	}
	defer stores.Close()

	// HTTP callers approve side effects per request; nothing runs by default
	cmdHandler := app.NewEngine(stores.Events, inventory.Approve(), logger)
	queryHandler := query.NewHandler(stores.Read, logger)

	var wg sync.WaitGroup
	if cfg.Backend == config.BackendPostgres {
		log.Info("replaying events to rebuild read models")
		if err := app.Replay(ctx, stores, log); err != nil {
			log.WithError(err).Error("replay failed")
		}

		// Start Kafka consumer for new events (async projection)
		consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, "api-projector", logger)
		defer consumer.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Consume(ctx, stores.Projector.HandleEvent); err != nil && ctx.Err() == nil {
				log.WithError(err).Error("projector stopped")
			}
		}()
	}

	handlers := api.NewHandlers(cmdHandler, queryHandler, logger)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(handlers, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown")
	}

	wg.Wait()
}
