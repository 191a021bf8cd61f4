package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/order-engine/internal/domain/aggregate"
	"github.com/example/order-engine/internal/domain/cart"
	"github.com/example/order-engine/internal/domain/pricing"
	"github.com/example/order-engine/internal/infrastructure/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const AggregateType = "Order"

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrEmptyOrder    = errors.New("order must have at least one item")
	ErrNothingToDo   = errors.New("no failed side effect to retry")
)

// ConcurrencyError reports that an edit was computed against a version of
// the order that is no longer current. Re-fetch and re-diff to recover.
type ConcurrencyError struct {
	OrderID  string
	Expected int
	Actual   int
}

func (e *ConcurrencyError) Error() string {
	if e.Actual == 0 {
		return fmt.Sprintf("order %s changed concurrently (read version %d)", e.OrderID, e.Expected)
	}
	return fmt.Sprintf("order %s changed concurrently: read version %d, current version %d", e.OrderID, e.Expected, e.Actual)
}

type Order struct {
	ID          string                    `json:"id"`
	CartID      string                    `json:"cart_id,omitempty"`
	Items       []cart.Selection          `json:"items"`
	Adjustments []pricing.Adjustment      `json:"adjustments"`
	Charges     pricing.Charges           `json:"charges"`
	Pricing     pricing.Breakdown         `json:"pricing"`
	Statuses    Statuses                  `json:"statuses"`
	SideEffects []OrderSideEffectRecorded `json:"side_effects"`
	CreatedAt   time.Time                 `json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
	Version     int                       `json:"version"` // Current event version
}

// Aggregate interface implementation
func (o *Order) GetID() string    { return o.ID }
func (o *Order) GetVersion() int  { return o.Version }
func (o *Order) SetVersion(v int) { o.Version = v }

// PendingSideEffects returns failed side effects no retry has resolved yet,
// oldest first.
func (o *Order) PendingSideEffects() []OrderSideEffectRecorded {
	resolved := make(map[string]bool)
	for _, r := range o.SideEffects {
		if r.Retries != "" && r.Outcome == OutcomeExecuted {
			resolved[r.Retries] = true
		}
	}

	var pending []OrderSideEffectRecorded
	for _, r := range o.SideEffects {
		if r.Outcome == OutcomeFailed && r.Retries == "" && !resolved[r.ID] {
			pending = append(pending, r)
		}
	}
	return pending
}

// ApplyEvent applies a single event to the order state (implements aggregate.Aggregate)
func (o *Order) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventOrderPlaced:
		var data OrderPlaced
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.ID = data.OrderID
		o.CartID = data.CartID
		o.Items = data.Items
		o.Adjustments = data.Adjustments
		o.Charges = data.Charges
		o.Pricing = data.Pricing
		o.Statuses = data.Statuses
		o.CreatedAt = data.PlacedAt
		o.UpdatedAt = data.PlacedAt
	case EventOrderEdited:
		var data OrderEdited
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.Items = data.Items
		o.Adjustments = data.Adjustments
		o.Charges = data.Charges
		o.Pricing = data.Pricing
		o.UpdatedAt = data.EditedAt
	case EventOrderStatusChanged:
		var data OrderStatusChanged
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.Statuses = o.Statuses.With(data.Dimension, data.To)
		o.UpdatedAt = data.ChangedAt
	case EventOrderSideEffectRecorded:
		var data OrderSideEffectRecorded
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.SideEffects = append(o.SideEffects, data)
	}
	o.Version = event.Version
	return nil
}

type Service struct {
	eventStore store.EventStoreInterface
	log        logrus.FieldLogger
}

func NewService(es store.EventStoreInterface, log logrus.FieldLogger) *Service {
	return &Service{
		eventStore: es,
		log:        log.WithField("component", "order"),
	}
}

// Get loads an order by replaying events, using snapshot if available
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	order, found, err := aggregate.LoadAggregate(ctx, s.eventStore, orderID, func() *Order {
		return &Order{}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

type PlaceOrder struct {
	CartID      string               `json:"cart_id,omitempty"`
	Items       []cart.Selection     `json:"items"`
	Adjustments []pricing.Adjustment `json:"adjustments"`
	Charges     pricing.Charges      `json:"charges"`
}

// Place creates an order from priced items. Lines without an id get one.
func (s *Service) Place(ctx context.Context, cmd PlaceOrder) (*Order, error) {
	if len(cmd.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	items := withLineIDs(cmd.Items)
	now := time.Now()
	event := OrderPlaced{
		OrderID:     uuid.New().String(),
		CartID:      cmd.CartID,
		Items:       items,
		Adjustments: cmd.Adjustments,
		Charges:     cmd.Charges,
		Pricing:     pricing.Totalize(items, cmd.Adjustments, cmd.Charges),
		Statuses:    InitialStatuses(),
		PlacedAt:    now,
	}

	stored, err := s.eventStore.Append(ctx, event.OrderID, AggregateType, EventOrderPlaced, event)
	if err != nil {
		return nil, err
	}

	order := &Order{
		ID:          event.OrderID,
		CartID:      event.CartID,
		Items:       event.Items,
		Adjustments: event.Adjustments,
		Charges:     event.Charges,
		Pricing:     event.Pricing,
		Statuses:    event.Statuses,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     stored.Version,
	}
	s.snapshot(ctx, order)

	s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"total":    pricing.Format(order.Pricing.FinalTotal),
	}).Info("order placed")
	return order, nil
}

// SaveEdit persists an edit computed against expectedVersion. It fails with
// a *ConcurrencyError when the order moved on since that read.
func (s *Service) SaveEdit(ctx context.Context, orderID string, expectedVersion int, payload EditPayload) (*Order, error) {
	if len(payload.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Version != expectedVersion {
		return nil, &ConcurrencyError{OrderID: orderID, Expected: expectedVersion, Actual: order.Version}
	}

	payload.Items = withLineIDs(payload.Items)
	event := OrderEdited{
		OrderID:     orderID,
		EditPayload: payload,
		EditedAt:    time.Now(),
	}

	stored, err := s.eventStore.Append(ctx, orderID, AggregateType, EventOrderEdited, event)
	if err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return nil, &ConcurrencyError{OrderID: orderID, Expected: expectedVersion}
		}
		return nil, err
	}

	order.Items = payload.Items
	order.Adjustments = payload.Adjustments
	order.Charges = payload.Charges
	order.Pricing = payload.Pricing
	order.UpdatedAt = event.EditedAt
	order.Version = stored.Version
	s.snapshot(ctx, order)
	return order, nil
}

// StatusChange is the outcome of ChangeStatus. Changed is false when the
// dimension already held the target value and nothing was written.
type StatusChange struct {
	Order   *Order
	From    string
	Changed bool
}

// ChangeStatus moves one dimension to a new value. Any value of a dimension
// is reachable from any other.
func (s *Service) ChangeStatus(ctx context.Context, orderID string, t Transition) (*StatusChange, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	from := order.Statuses.Get(t.Dimension)
	if from == t.To {
		return &StatusChange{Order: order, From: from}, nil
	}

	event := OrderStatusChanged{
		OrderID:   orderID,
		Dimension: t.Dimension,
		From:      from,
		To:        t.To,
		ChangedAt: time.Now(),
	}

	stored, err := s.eventStore.Append(ctx, orderID, AggregateType, EventOrderStatusChanged, event)
	if err != nil {
		return nil, err
	}

	order.Statuses = order.Statuses.With(t.Dimension, t.To)
	order.UpdatedAt = event.ChangedAt
	order.Version = stored.Version
	s.snapshot(ctx, order)

	s.log.WithFields(logrus.Fields{
		"order_id":  orderID,
		"dimension": t.Dimension,
		"from":      from,
		"to":        t.To,
	}).Info("order status changed")
	return &StatusChange{Order: order, From: from, Changed: true}, nil
}

// RecordSideEffect appends the outcome of a side effect to the order's history
func (s *Service) RecordSideEffect(ctx context.Context, record OrderSideEffectRecorded) (*OrderSideEffectRecorded, error) {
	order, err := s.Get(ctx, record.OrderID)
	if err != nil {
		return nil, err
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now()
	}

	stored, err := s.eventStore.Append(ctx, record.OrderID, AggregateType, EventOrderSideEffectRecorded, record)
	if err != nil {
		return nil, err
	}
	order.SideEffects = append(order.SideEffects, record)
	order.Version = stored.Version
	s.snapshot(ctx, order)
	return &record, nil
}

func (s *Service) snapshot(ctx context.Context, order *Order) {
	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, order, AggregateType); err != nil {
		s.log.WithError(err).WithField("order_id", order.ID).Warn("failed to create snapshot")
	}
}

func withLineIDs(items []cart.Selection) []cart.Selection {
	out := make([]cart.Selection, len(items))
	for i, item := range items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		out[i] = item
	}
	return out
}
