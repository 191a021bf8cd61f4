package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventProductCreated         = "ProductCreated"
	EventProductUpdated         = "ProductUpdated"
	EventProductDeleted         = "ProductDeleted"
	EventInventoryPolicyChanged = "InventoryPolicyChanged"
)

type ProductCreated struct {
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Options     []Option        `json:"options"`
	Variants    []Variant       `json:"variants"`
	Inventory   InventoryPolicy `json:"inventory"`
	CreatedAt   time.Time       `json:"created_at"`
}

type ProductUpdated struct {
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Options     []Option        `json:"options"`
	Variants    []Variant       `json:"variants"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type ProductDeleted struct {
	ProductID string    `json:"product_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

type InventoryPolicyChanged struct {
	ProductID string          `json:"product_id"`
	Policy    InventoryPolicy `json:"policy"`
	ChangedAt time.Time       `json:"changed_at"`
}
