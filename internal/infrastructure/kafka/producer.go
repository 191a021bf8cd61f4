package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/example/order-engine/internal/infrastructure/store"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// HeaderEventType carries the event type so consumers can filter without decoding
const HeaderEventType = "event_type"

// Producer publishes store events keyed by aggregate id. Keyed hashing keeps
// every event of one order on one partition, in version order.
type Producer struct {
	writer *kafka.Writer
	log    logrus.FieldLogger
}

func NewProducer(brokers []string, topic string, log logrus.FieldLogger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	return &Producer{
		writer: writer,
		log:    log.WithField("component", "kafka-producer"),
	}
}

func (p *Producer) Publish(ctx context.Context, key string, event any) error {
	msg, err := buildMessage(key, event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.WithError(err).WithField("key", key).Error("publish failed")
		return err
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func buildMessage(key string, event any) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}
	switch e := event.(type) {
	case store.Event:
		msg.Headers = []kafka.Header{{Key: HeaderEventType, Value: []byte(e.EventType)}}
	case *store.Event:
		msg.Headers = []kafka.Header{{Key: HeaderEventType, Value: []byte(e.EventType)}}
	}
	return msg, nil
}

var _ store.Publisher = (*Producer)(nil)
