package command

import (
	"github.com/example/order-engine/internal/domain/cart"
	"github.com/example/order-engine/internal/domain/catalog"
	"github.com/example/order-engine/internal/domain/inventory"
	"github.com/example/order-engine/internal/domain/order"
	"github.com/example/order-engine/internal/domain/pricing"
	"github.com/shopspring/decimal"
)

// Product Commands
type CreateProduct struct {
	catalog.CreateProduct
	InitialStock int `json:"initial_stock"`
}

type UpdateProduct = catalog.UpdateProduct

type DeleteProduct struct {
	ProductID string `json:"product_id"`
}

type SetInventoryPolicy struct {
	ProductID string                  `json:"product_id"`
	Policy    catalog.InventoryPolicy `json:"policy"`
}

type AddStock struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Cart Commands
type AddToCart struct {
	CartID string `json:"cart_id"`
	cart.Request
}

type AddManualItem struct {
	CartID    string          `json:"cart_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

type RemoveFromCart struct {
	CartID string `json:"cart_id"`
	LineID string `json:"line_id"`
}

// Order Commands
type PlaceOrder struct {
	CartID      string               `json:"cart_id"`
	Adjustments []pricing.Adjustment `json:"adjustments"`
	Charges     pricing.Charges      `json:"charges"`
}

// EditOrder replaces the items of an order. ExpectedVersion is the version
// the caller read; zero means the freshly fetched one. Nil Adjustments or
// Charges keep the stored ones.
type EditOrder struct {
	OrderID         string               `json:"order_id"`
	ExpectedVersion int                  `json:"expected_version"`
	Items           []cart.Selection     `json:"items"`
	Adjustments     []pricing.Adjustment `json:"adjustments,omitempty"`
	Charges         *pricing.Charges     `json:"charges,omitempty"`
}

type ChangeStatus struct {
	OrderID string `json:"order_id"`
	order.Transition
}

type RetrySideEffect struct {
	OrderID string           `json:"order_id"`
	Action  inventory.Action `json:"action"`
}
