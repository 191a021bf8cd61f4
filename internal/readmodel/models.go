package readmodel

import (
	"time"

	"github.com/example/order-engine/internal/domain/cart"
	"github.com/example/order-engine/internal/domain/catalog"
	"github.com/example/order-engine/internal/domain/order"
	"github.com/example/order-engine/internal/domain/pricing"
	"github.com/example/order-engine/internal/infrastructure/store"
	"github.com/shopspring/decimal"
)

// ProductReadModel is the read model for products. Stock mirrors the
// inventory collection for tracked products.
type ProductReadModel struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Price       decimal.Decimal         `json:"price"`
	Options     []catalog.Option        `json:"options"`
	Variants    []catalog.Variant       `json:"variants"`
	Inventory   catalog.InventoryPolicy `json:"inventory"`
	Stock       int                     `json:"stock"`
	Version     int                     `json:"version"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// Product converts the read model back into a catalog product with the
// projected stock as its policy quantity
func (p *ProductReadModel) Product() *catalog.Product {
	inv := p.Inventory
	inv.Quantity = p.Stock
	return &catalog.Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Options:     p.Options,
		Variants:    p.Variants,
		Inventory:   inv,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Version:     p.Version,
	}
}

// PaymentReadModel summarizes an order's payment ledger
type PaymentReadModel struct {
	Captured decimal.Decimal `json:"captured"`
	Refunded decimal.Decimal `json:"refunded"`
	Version  int             `json:"version"`
}

// OrderReadModel is the read model for orders
type OrderReadModel struct {
	ID                 string                          `json:"id"`
	CartID             string                          `json:"cart_id,omitempty"`
	Items              []cart.Selection                `json:"items"`
	Adjustments        []pricing.Adjustment            `json:"adjustments"`
	Charges            pricing.Charges                 `json:"charges"`
	Pricing            pricing.Breakdown               `json:"pricing"`
	Summary            pricing.Summary                 `json:"summary"`
	Statuses           order.Statuses                  `json:"statuses"`
	Payment            PaymentReadModel                `json:"payment"`
	SideEffects        []order.OrderSideEffectRecorded `json:"side_effects"`
	PendingSideEffects int                             `json:"pending_side_effects"`
	Version            int                             `json:"version"`
	CreatedAt          time.Time                       `json:"created_at"`
	UpdatedAt          time.Time                       `json:"updated_at"`
}

// InventoryReadModel is the read model for stock of one product
type InventoryReadModel struct {
	ProductID string    `json:"product_id"`
	OnHand    int       `json:"on_hand"`
	Received  int       `json:"received"`
	Deducted  int       `json:"deducted"`
	Restocked int       `json:"restocked"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Factories returns the decode targets of every collection, for stores that
// persist read models as documents.
func Factories() map[string]func() any {
	return map[string]func() any{
		store.CollectionProducts:  func() any { return &ProductReadModel{} },
		store.CollectionOrders:    func() any { return &OrderReadModel{} },
		store.CollectionInventory: func() any { return &InventoryReadModel{} },
	}
}
