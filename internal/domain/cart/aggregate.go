package cart

import (
	"context"
	"encoding/json"
	"time"

	"github.com/example/order-engine/internal/domain/aggregate"
	"github.com/example/order-engine/internal/infrastructure/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const AggregateType = "Cart"

type Cart struct {
	ID        string      `json:"id"`
	Items     []Selection `json:"items"`
	UpdatedAt time.Time   `json:"updated_at"`
	Version   int         `json:"version"`
}

// Aggregate interface implementation
func (c *Cart) GetID() string    { return c.ID }
func (c *Cart) GetVersion() int  { return c.Version }
func (c *Cart) SetVersion(v int) { c.Version = v }

// Add merges sel into the line with the same identity, or appends it as a
// new line. It returns the resulting line.
func (c *Cart) Add(sel Selection) Selection {
	key := sel.Key()
	for i := range c.Items {
		if c.Items[i].Key() == key {
			c.Items[i].Quantity += sel.Quantity
			c.Items[i].UnitPrice = sel.UnitPrice
			return c.Items[i]
		}
	}
	c.Items = append(c.Items, sel)
	return sel
}

func (c *Cart) Remove(lineID string) error {
	for i := range c.Items {
		if c.Items[i].ID == lineID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
	}
	return ErrLineNotFound
}

func (c *Cart) SetQuantity(lineID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	line, ok := c.Line(lineID)
	if !ok {
		return ErrLineNotFound
	}
	line.Quantity = quantity
	return nil
}

func (c *Cart) Line(lineID string) (*Selection, bool) {
	for i := range c.Items {
		if c.Items[i].ID == lineID {
			return &c.Items[i], true
		}
	}
	return nil, false
}

// QuantityOf sums the quantity of every line for a catalog product
func (c *Cart) QuantityOf(productID string) int {
	return QuantityOf(c.Items, productID)
}

// QuantityOf sums the quantity of every line in items for a catalog product
func QuantityOf(items []Selection, productID string) int {
	n := 0
	for _, item := range items {
		if item.ProductID == productID {
			n += item.Quantity
		}
	}
	return n
}

// ApplyEvent applies a single event to the cart state (implements aggregate.Aggregate)
func (c *Cart) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventItemAdded:
		var data ItemAddedToCart
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		c.ID = data.CartID
		c.Add(data.Item)
		c.UpdatedAt = data.AddedAt
	case EventItemRemoved:
		var data ItemRemovedFromCart
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		_ = c.Remove(data.LineID)
		c.UpdatedAt = data.RemovedAt
	case EventItemQuantityChanged:
		var data CartItemQuantityChanged
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		_ = c.SetQuantity(data.LineID, data.Quantity)
		c.UpdatedAt = data.ChangedAt
	case EventCartCleared:
		var data CartCleared
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		c.Items = nil
		c.UpdatedAt = data.ClearedAt
	}
	c.Version = event.Version
	return nil
}

type Service struct {
	eventStore store.EventStoreInterface
	log        logrus.FieldLogger
}

func NewService(es store.EventStoreInterface, log logrus.FieldLogger) *Service {
	return &Service{
		eventStore: es,
		log:        log.WithField("component", "cart"),
	}
}

// NewCartID returns an id for a new draft cart
func NewCartID() string {
	return "cart-" + uuid.New().String()
}

// Get loads a cart. A cart without events is empty, not missing.
func (s *Service) Get(ctx context.Context, cartID string) (*Cart, error) {
	cart, _, err := aggregate.LoadAggregate(ctx, s.eventStore, cartID, func() *Cart {
		return &Cart{}
	})
	if err != nil {
		return nil, err
	}
	cart.ID = cartID
	return cart, nil
}

// AddItem records a priced selection and returns the resulting cart
func (s *Service) AddItem(ctx context.Context, cartID string, item Selection) (*Cart, error) {
	if item.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	event := ItemAddedToCart{CartID: cartID, Item: item, AddedAt: time.Now()}
	cart.Add(item)
	cart.UpdatedAt = event.AddedAt
	if err := s.append(ctx, cart, EventItemAdded, event); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *Service) RemoveItem(ctx context.Context, cartID, lineID string) (*Cart, error) {
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}

	if err := cart.Remove(lineID); err != nil {
		return nil, err
	}

	event := ItemRemovedFromCart{CartID: cartID, LineID: lineID, RemovedAt: time.Now()}
	if err := s.append(ctx, cart, EventItemRemoved, event); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *Service) SetQuantity(ctx context.Context, cartID, lineID string, quantity int) (*Cart, error) {
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := cart.SetQuantity(lineID, quantity); err != nil {
		return nil, err
	}

	event := CartItemQuantityChanged{CartID: cartID, LineID: lineID, Quantity: quantity, ChangedAt: time.Now()}
	if err := s.append(ctx, cart, EventItemQuantityChanged, event); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *Service) Clear(ctx context.Context, cartID string) error {
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		return err
	}
	if len(cart.Items) == 0 {
		return nil
	}

	cart.Items = nil
	event := CartCleared{CartID: cartID, ClearedAt: time.Now()}
	return s.append(ctx, cart, EventCartCleared, event)
}

func (s *Service) append(ctx context.Context, cart *Cart, eventType string, data any) error {
	stored, err := s.eventStore.Append(ctx, cart.ID, AggregateType, eventType, data)
	if err != nil {
		return err
	}
	cart.Version = stored.Version
	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, cart, AggregateType); err != nil {
		s.log.WithError(err).WithField("cart_id", cart.ID).Warn("failed to create snapshot")
	}
	return nil
}
