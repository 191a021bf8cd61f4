// Package app assembles stores and services for the binaries.
package app

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/example/order-engine/internal/command"
	"github.com/example/order-engine/internal/config"
	"github.com/example/order-engine/internal/domain/cart"
	"github.com/example/order-engine/internal/domain/catalog"
	"github.com/example/order-engine/internal/domain/inventory"
	"github.com/example/order-engine/internal/domain/order"
	"github.com/example/order-engine/internal/domain/payment"
	"github.com/example/order-engine/internal/infrastructure/kafka"
	"github.com/example/order-engine/internal/infrastructure/store"
	"github.com/example/order-engine/internal/projection"
	"github.com/example/order-engine/internal/readmodel"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// Stores is the write and read side of one backend
type Stores struct {
	Events    store.EventStoreInterface
	Read      store.ReadStoreInterface
	Projector *projection.Projector
	// Inline is true when events are projected as they are appended
	Inline bool

	closers []func() error
}

// Close releases connections in reverse order of opening
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// OpenStores connects the event store selected by cfg.Backend. Postgres
// publishes to Kafka; DynamoDB relies on its stream feeding the Lambda
// projector; memory projects inline.
func OpenStores(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*Stores, error) {
	if cfg.Backend == config.BackendMemory {
		read := store.NewReadStore()
		projector := projection.NewProjector(read, log)
		return &Stores{
			Events:    store.NewEventStore(projector),
			Read:      read,
			Projector: projector,
			Inline:    true,
		}, nil
	}

	s := &Stores{}
	db, err := OpenReadDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, db.Close)
	s.Read = store.NewPostgresReadStore(db, readmodel.Factories())
	s.Projector = projection.NewProjector(s.Read, log)

	switch cfg.Backend {
	case config.BackendPostgres:
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		s.closers = append(s.closers, producer.Close)
		s.Events = store.NewPostgresEventStore(db, producer)
	case config.BackendDynamo:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		s.Events = store.NewDynamoEventStore(dynamodb.NewFromConfig(awsCfg), cfg.DynamoEventsTable, cfg.DynamoSnapshotsTable)
	default:
		s.Close()
		return nil, fmt.Errorf("unknown event store backend %q", cfg.Backend)
	}

	log.WithField("backend", cfg.Backend).Info("stores opened")
	return s, nil
}

// OpenReadDB connects Postgres and applies migrations
func OpenReadDB(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	db, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Replay projects every stored event again, rebuilding read models that
// were lost or never written. Already projected events are skipped by
// version.
func Replay(ctx context.Context, s *Stores, log logrus.FieldLogger) error {
	events, err := s.Events.GetAllEvents(ctx)
	if err != nil {
		return err
	}
	failed := 0
	for _, event := range events {
		if err := s.Projector.Project(ctx, event); err != nil {
			failed++
			log.WithError(err).WithField("event_id", event.ID).Warn("replay failed for event")
		}
	}
	log.WithFields(logrus.Fields{"events": len(events), "failed": failed}).Info("replay completed")
	return nil
}

// NewEngine builds the command handler over an event store. confirmer is
// the default gate for side effects.
func NewEngine(events store.EventStoreInterface, confirmer inventory.Confirmer, log logrus.FieldLogger) *command.Handler {
	catalogSvc := catalog.NewService(events, log)
	stockSvc := inventory.NewService(events, log)
	return command.NewHandler(
		catalogSvc,
		cart.NewService(events, log),
		order.NewService(events, log),
		stockSvc,
		payment.NewService(events, log),
		command.NewLiveCatalog(catalogSvc, stockSvc),
		confirmer,
		log,
	)
}
