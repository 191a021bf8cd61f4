package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/example/order-engine/internal/domain/aggregate"
	"github.com/example/order-engine/internal/infrastructure/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const AggregateType = "Product"

type CreateProduct struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Options     []Option        `json:"options"`
	Variants    []Variant       `json:"variants"`
	Inventory   InventoryPolicy `json:"inventory"`
}

type UpdateProduct struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Options     []Option        `json:"options"`
	Variants    []Variant       `json:"variants"`
}

type Service struct {
	eventStore store.EventStoreInterface
	log        logrus.FieldLogger
}

func NewService(es store.EventStoreInterface, log logrus.FieldLogger) *Service {
	return &Service{
		eventStore: es,
		log:        log.WithField("component", "catalog"),
	}
}

// ApplyEvent applies a single event to the product state (implements aggregate.Aggregate)
func (p *Product) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventProductCreated:
		var data ProductCreated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		p.ID = data.ProductID
		p.Name = data.Name
		p.Description = data.Description
		p.Price = data.Price
		p.Options = data.Options
		p.Variants = data.Variants
		p.Inventory = data.Inventory
		p.CreatedAt = data.CreatedAt
		p.UpdatedAt = data.CreatedAt
	case EventProductUpdated:
		var data ProductUpdated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		p.Name = data.Name
		p.Description = data.Description
		p.Price = data.Price
		p.Options = data.Options
		p.Variants = data.Variants
		p.UpdatedAt = data.UpdatedAt
	case EventProductDeleted:
		var data ProductDeleted
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		p.IsDeleted = true
		p.UpdatedAt = data.DeletedAt
	case EventInventoryPolicyChanged:
		var data InventoryPolicyChanged
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		quantity := p.Inventory.Quantity
		p.Inventory = data.Policy
		p.Inventory.Quantity = quantity
		p.UpdatedAt = data.ChangedAt
	}
	p.Version = event.Version
	return nil
}

// Get loads a live product. Deleted products are reported as not found.
func (s *Service) Get(ctx context.Context, productID string) (*Product, error) {
	product, found, err := aggregate.LoadAggregate(ctx, s.eventStore, productID, func() *Product {
		return &Product{}
	})
	if err != nil {
		return nil, err
	}
	if !found || product.IsDeleted {
		return nil, ErrProductNotFound
	}
	return product, nil
}

func (s *Service) Create(ctx context.Context, cmd CreateProduct) (*Product, error) {
	now := time.Now()
	product := &Product{
		ID:          uuid.New().String(),
		Name:        cmd.Name,
		Description: cmd.Description,
		Price:       cmd.Price,
		Options:     withOptionIDs(cmd.Options),
		Variants:    cmd.Variants,
		Inventory:   cmd.Inventory,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}

	event := ProductCreated{
		ProductID:   product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Options:     product.Options,
		Variants:    product.Variants,
		Inventory:   product.Inventory,
		CreatedAt:   now,
	}

	stored, err := s.eventStore.Append(ctx, product.ID, AggregateType, EventProductCreated, event)
	if err != nil {
		return nil, err
	}
	product.Version = stored.Version

	s.log.WithField("product_id", product.ID).Info("product created")
	return product, nil
}

func (s *Service) Update(ctx context.Context, cmd UpdateProduct) error {
	product, err := s.Get(ctx, cmd.ID)
	if err != nil {
		return err
	}

	product.Name = cmd.Name
	product.Description = cmd.Description
	product.Price = cmd.Price
	product.Options = withOptionIDs(cmd.Options)
	product.Variants = cmd.Variants
	if err := product.Validate(); err != nil {
		return err
	}

	event := ProductUpdated{
		ProductID:   cmd.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Options:     product.Options,
		Variants:    product.Variants,
		UpdatedAt:   time.Now(),
	}

	stored, err := s.eventStore.Append(ctx, cmd.ID, AggregateType, EventProductUpdated, event)
	if err != nil {
		return err
	}
	product.Version = stored.Version
	s.snapshot(ctx, product)
	return nil
}

func (s *Service) Delete(ctx context.Context, productID string) error {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return err
	}

	event := ProductDeleted{
		ProductID: productID,
		DeletedAt: time.Now(),
	}

	stored, err := s.eventStore.Append(ctx, productID, AggregateType, EventProductDeleted, event)
	if err != nil {
		return err
	}
	product.IsDeleted = true
	product.Version = stored.Version
	s.snapshot(ctx, product)
	return nil
}

func (s *Service) SetInventoryPolicy(ctx context.Context, productID string, policy InventoryPolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	product, err := s.Get(ctx, productID)
	if err != nil {
		return err
	}

	event := InventoryPolicyChanged{
		ProductID: productID,
		Policy:    policy,
		ChangedAt: time.Now(),
	}

	stored, err := s.eventStore.Append(ctx, productID, AggregateType, EventInventoryPolicyChanged, event)
	if err != nil {
		return err
	}
	product.Inventory = policy
	product.Version = stored.Version
	s.snapshot(ctx, product)
	return nil
}

func (s *Service) snapshot(ctx context.Context, product *Product) {
	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, product, AggregateType); err != nil {
		s.log.WithError(err).WithField("product_id", product.ID).Warn("failed to create snapshot")
	}
}

// withOptionIDs assigns ids to options that arrive without one
func withOptionIDs(options []Option) []Option {
	out := make([]Option, len(options))
	for i, o := range options {
		if o.ID == "" {
			o.ID = uuid.New().String()
		}
		out[i] = o
	}
	return out
}
