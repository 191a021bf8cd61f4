package command

import (
	"context"

	"github.com/example/order-engine/internal/domain/catalog"
	"github.com/example/order-engine/internal/domain/inventory"
	"github.com/example/order-engine/internal/domain/payment"
)

// CatalogStore resolves products with their inventory policy. Quantity in
// the policy is the current stock of tracked products.
type CatalogStore interface {
	GetProduct(ctx context.Context, productID string) (*catalog.Product, error)
}

// LiveCatalog reads products and stock from their event streams, so it
// never lags behind a write.
type LiveCatalog struct {
	products *catalog.Service
	stock    *inventory.Service
}

func NewLiveCatalog(products *catalog.Service, stock *inventory.Service) *LiveCatalog {
	return &LiveCatalog{products: products, stock: stock}
}

func (c *LiveCatalog) GetProduct(ctx context.Context, productID string) (*catalog.Product, error) {
	p, err := c.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.Inventory.TrackQuantity {
		available, err := c.stock.Available(ctx, productID)
		if err != nil {
			return nil, err
		}
		p.Inventory.Quantity = available
	}
	return p, nil
}

// ServiceMutator runs side effects against the stock and payment aggregates
type ServiceMutator struct {
	stock    *inventory.Service
	payments *payment.Service
}

func NewServiceMutator(stock *inventory.Service, payments *payment.Service) *ServiceMutator {
	return &ServiceMutator{stock: stock, payments: payments}
}

var _ inventory.Mutator = (*ServiceMutator)(nil)

func (m *ServiceMutator) Deduct(ctx context.Context, mu inventory.Mutation) error {
	return m.stock.Deduct(ctx, mu.Order.ID, mu.Lines)
}

func (m *ServiceMutator) Restock(ctx context.Context, mu inventory.Mutation) error {
	return m.stock.Restock(ctx, mu.Order.ID, mu.Lines)
}

// Pay captures the order's final total
func (m *ServiceMutator) Pay(ctx context.Context, mu inventory.Mutation) error {
	return m.payments.Capture(ctx, mu.Order.ID, mu.Order.Pricing.FinalTotal)
}

func (m *ServiceMutator) Refund(ctx context.Context, mu inventory.Mutation) error {
	return m.payments.Refund(ctx, mu.Order.ID)
}
