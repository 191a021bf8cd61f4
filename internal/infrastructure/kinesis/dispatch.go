package kinesis

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/order-engine/internal/infrastructure/store"
	"github.com/sirupsen/logrus"
)

// EventHandler processes one converted store event
type EventHandler func(ctx context.Context, event store.Event) error

// Dispatch converts every record of a batch and hands events to handler in
// record order. Records that fail to convert or to handle are reported as
// batch item failures so Lambda retries only those.
func Dispatch(ctx context.Context, batch events.KinesisEvent, handler EventHandler, log logrus.FieldLogger) events.KinesisEventResponse {
	var resp events.KinesisEventResponse
	for _, record := range batch.Records {
		if err := dispatchRecord(ctx, record, handler); err != nil {
			log.WithError(err).WithField("record", record.EventID).Error("record failed")
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.KinesisBatchItemFailure{
				ItemIdentifier: record.Kinesis.SequenceNumber,
			})
		}
	}
	return resp
}

func dispatchRecord(ctx context.Context, record events.KinesisEventRecord, handler EventHandler) error {
	event, err := ConvertFromKinesisRecord(record)
	if err != nil {
		return err
	}
	if event == nil {
		return nil
	}
	if err := handler(ctx, *event); err != nil {
		return fmt.Errorf("%s %s: %w", event.EventType, event.AggregateID, err)
	}
	return nil
}
