package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/example/order-engine/internal/app"
	"github.com/example/order-engine/internal/config"
	"github.com/example/order-engine/internal/infrastructure/kinesis"
	"github.com/example/order-engine/internal/infrastructure/store"
	"github.com/example/order-engine/internal/logging"
	"github.com/example/order-engine/internal/projection"
	"github.com/example/order-engine/internal/readmodel"
	"github.com/sirupsen/logrus"
)

var (
	projector *projection.Projector
	log       logrus.FieldLogger
)

func init() {
	cfg, err := config.Load("")
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	logger, err := logging.New(cfg.LogLevel, "json")
	if err != nil {
		logrus.WithError(err).Fatal("invalid logging configuration")
	}
	log = logger.WithField("service", "lambda-projector")

	db, err := app.OpenReadDB(context.Background(), cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to PostgreSQL")
	}

	projector = projection.NewProjector(store.NewPostgresReadStore(db, readmodel.Factories()), logger)
	log.Info("initialized")
}

func handler(ctx context.Context, batch events.KinesisEvent) (events.KinesisEventResponse, error) {
	resp := kinesis.Dispatch(ctx, batch, projector.Project, log)
	log.WithFields(logrus.Fields{
		"records": len(batch.Records),
		"failed":  len(resp.BatchItemFailures),
	}).Info("batch processed")
	return resp, nil
}

func main() {
	lambda.Start(handler)
}
