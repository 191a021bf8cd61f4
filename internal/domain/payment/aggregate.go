// Package payment keeps a per-order ledger of captured and refunded money.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/example/order-engine/internal/domain/aggregate"
	"github.com/example/order-engine/internal/infrastructure/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const AggregateType = "Payment"

var (
	ErrAlreadyCaptured = errors.New("payment already captured")
	ErrNotCaptured     = errors.New("no captured payment to refund")
	ErrInvalidAmount   = errors.New("amount must not be negative")
)

// Ledger is the payment state of one order
type Ledger struct {
	OrderID  string          `json:"order_id"`
	Captured decimal.Decimal `json:"captured"`
	Refunded decimal.Decimal `json:"refunded"`
	Open     bool            `json:"open"`
	Version  int             `json:"version"`
}

// StreamID is the event stream of an order's payments
func StreamID(orderID string) string {
	return "payment-" + orderID
}

// Aggregate interface implementation
func (l *Ledger) GetID() string    { return StreamID(l.OrderID) }
func (l *Ledger) GetVersion() int  { return l.Version }
func (l *Ledger) SetVersion(v int) { l.Version = v }

// Balance is what is currently held for the order
func (l *Ledger) Balance() decimal.Decimal {
	return l.Captured.Sub(l.Refunded)
}

// ApplyEvent applies a single event to the ledger (implements aggregate.Aggregate)
func (l *Ledger) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventPaymentCaptured:
		var data PaymentCaptured
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		l.OrderID = data.OrderID
		l.Captured = l.Captured.Add(data.Amount)
		l.Open = true
	case EventPaymentRefunded:
		var data PaymentRefunded
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		l.OrderID = data.OrderID
		l.Refunded = l.Refunded.Add(data.Amount)
		l.Open = false
	}
	l.Version = event.Version
	return nil
}

type Service struct {
	eventStore store.EventStoreInterface
	log        logrus.FieldLogger
}

func NewService(es store.EventStoreInterface, log logrus.FieldLogger) *Service {
	return &Service{
		eventStore: es,
		log:        log.WithField("component", "payment"),
	}
}

// Get returns the ledger of an order; orders never paid have an empty one
func (s *Service) Get(ctx context.Context, orderID string) (*Ledger, error) {
	ledger, _, err := aggregate.LoadAggregate(ctx, s.eventStore, StreamID(orderID), func() *Ledger {
		return &Ledger{}
	})
	if err != nil {
		return nil, err
	}
	ledger.OrderID = orderID
	return ledger, nil
}

// Capture takes payment for an order. A second capture is rejected until
// the first one is refunded.
func (s *Service) Capture(ctx context.Context, orderID string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	ledger, err := s.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if ledger.Open {
		return ErrAlreadyCaptured
	}

	event := PaymentCaptured{OrderID: orderID, Amount: amount, CapturedAt: time.Now()}
	ledger.Captured = ledger.Captured.Add(amount)
	ledger.Open = true
	return s.append(ctx, ledger, EventPaymentCaptured, event)
}

// Refund returns the open capture of an order in full
func (s *Service) Refund(ctx context.Context, orderID string) error {
	ledger, err := s.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !ledger.Open {
		return ErrNotCaptured
	}

	amount := ledger.Balance()
	event := PaymentRefunded{OrderID: orderID, Amount: amount, RefundedAt: time.Now()}
	ledger.Refunded = ledger.Refunded.Add(amount)
	ledger.Open = false
	return s.append(ctx, ledger, EventPaymentRefunded, event)
}

func (s *Service) append(ctx context.Context, ledger *Ledger, eventType string, data any) error {
	stored, err := s.eventStore.Append(ctx, ledger.GetID(), AggregateType, eventType, data)
	if err != nil {
		return err
	}
	ledger.Version = stored.Version
	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, ledger, AggregateType); err != nil {
		s.log.WithError(err).WithField("order_id", ledger.OrderID).Warn("failed to create snapshot")
	}
	s.log.WithFields(logrus.Fields{"order_id": ledger.OrderID, "event": eventType}).Info("payment recorded")
	return nil
}
