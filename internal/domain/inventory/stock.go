package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/order-engine/internal/domain/aggregate"
	"github.com/example/order-engine/internal/domain/order"
	"github.com/example/order-engine/internal/infrastructure/store"
	"github.com/sirupsen/logrus"
)

const AggregateType = "Inventory"

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// PartialError reports a stock move that stopped part way. Lines before
// Remaining were written; Remaining holds the ones that were not.
type PartialError struct {
	Remaining []Line
	Err       error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%d stock line(s) not moved: %v", len(e.Remaining), e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// Line is a quantity of one catalog product to deduct or restock
type Line = order.StockLine

type Stock struct {
	ProductID string `json:"product_id"`
	OnHand    int    `json:"on_hand"`
	Version   int    `json:"version"`
}

// StreamID is the event stream of a product's stock, kept apart from the
// product's own stream.
func StreamID(productID string) string {
	return "stock-" + productID
}

// Aggregate interface implementation
func (s *Stock) GetID() string    { return StreamID(s.ProductID) }
func (s *Stock) GetVersion() int  { return s.Version }
func (s *Stock) SetVersion(v int) { s.Version = v }

// ApplyEvent applies a single event to the stock state (implements aggregate.Aggregate)
func (s *Stock) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventStockAdded:
		var data StockAdded
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		s.ProductID = data.ProductID
		s.OnHand += data.Quantity
	case EventStockDeducted:
		var data StockDeducted
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		s.ProductID = data.ProductID
		s.OnHand -= data.Quantity
	case EventStockRestocked:
		var data StockRestocked
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		s.ProductID = data.ProductID
		s.OnHand += data.Quantity
	}
	s.Version = event.Version
	return nil
}

type Service struct {
	eventStore store.EventStoreInterface
	log        logrus.FieldLogger
}

func NewService(es store.EventStoreInterface, log logrus.FieldLogger) *Service {
	return &Service{
		eventStore: es,
		log:        log.WithField("component", "inventory"),
	}
}

// loadStock returns the stock of a product; unknown products have none
func (s *Service) loadStock(ctx context.Context, productID string) (*Stock, error) {
	stock, _, err := aggregate.LoadAggregate(ctx, s.eventStore, StreamID(productID), func() *Stock {
		return &Stock{}
	})
	if err != nil {
		return nil, err
	}
	stock.ProductID = productID
	return stock, nil
}

// Available returns the quantity on hand for a product
func (s *Service) Available(ctx context.Context, productID string) (int, error) {
	stock, err := s.loadStock(ctx, productID)
	if err != nil {
		return 0, err
	}
	return stock.OnHand, nil
}

func (s *Service) AddStock(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	stock, err := s.loadStock(ctx, productID)
	if err != nil {
		return err
	}

	event := StockAdded{ProductID: productID, Quantity: quantity, AddedAt: time.Now()}
	stock.OnHand += quantity
	return s.append(ctx, stock, EventStockAdded, event)
}

// Deduct removes stock for an order. Every line is checked before anything
// is written, so an insufficient line leaves all stock untouched. A write
// failure part way returns a *PartialError naming the lines left.
func (s *Service) Deduct(ctx context.Context, orderID string, lines []Line) error {
	lines = mergeLines(lines)
	stocks := make([]*Stock, 0, len(lines))
	for _, l := range lines {
		stock, err := s.loadStock(ctx, l.ProductID)
		if err != nil {
			return err
		}
		if stock.OnHand < l.Quantity {
			return fmt.Errorf("%w: product %s has %d, need %d", ErrInsufficientStock, l.ProductID, stock.OnHand, l.Quantity)
		}
		stocks = append(stocks, stock)
	}

	for i, l := range lines {
		event := StockDeducted{ProductID: l.ProductID, OrderID: orderID, Quantity: l.Quantity, DeductedAt: time.Now()}
		stocks[i].OnHand -= l.Quantity
		if err := s.append(ctx, stocks[i], EventStockDeducted, event); err != nil {
			return &PartialError{Remaining: lines[i:], Err: err}
		}
	}
	return nil
}

// Restock returns stock for an order. Like Deduct, a failure after some
// lines were written returns a *PartialError.
func (s *Service) Restock(ctx context.Context, orderID string, lines []Line) error {
	lines = mergeLines(lines)
	for i, l := range lines {
		stock, err := s.loadStock(ctx, l.ProductID)
		if err != nil {
			return &PartialError{Remaining: lines[i:], Err: err}
		}
		event := StockRestocked{ProductID: l.ProductID, OrderID: orderID, Quantity: l.Quantity, RestockedAt: time.Now()}
		stock.OnHand += l.Quantity
		if err := s.append(ctx, stock, EventStockRestocked, event); err != nil {
			return &PartialError{Remaining: lines[i:], Err: err}
		}
	}
	return nil
}

func (s *Service) append(ctx context.Context, stock *Stock, eventType string, data any) error {
	stored, err := s.eventStore.Append(ctx, StreamID(stock.ProductID), AggregateType, eventType, data)
	if err != nil {
		return err
	}
	stock.Version = stored.Version
	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, stock, AggregateType); err != nil {
		s.log.WithError(err).WithField("product_id", stock.ProductID).Warn("failed to create snapshot")
	}
	return nil
}

// mergeLines sums quantities per product and drops lines that are not
// backed by a catalog product or move nothing.
func mergeLines(lines []Line) []Line {
	index := make(map[string]int)
	var out []Line
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity <= 0 {
			continue
		}
		if i, ok := index[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}
