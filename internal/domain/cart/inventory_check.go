package cart

import (
	"fmt"

	"github.com/example/order-engine/internal/domain/catalog"
)

type ConflictReason string

const (
	ConflictInsufficientStock ConflictReason = "insufficient_stock"
	ConflictBelowMinimum      ConflictReason = "below_cart_minimum"
	ConflictAboveMaximum      ConflictReason = "above_cart_maximum"
)

// InventoryConflictError blocks a cart submission whose quantity for one
// product breaks the product's inventory policy.
type InventoryConflictError struct {
	ProductID string
	Reason    ConflictReason
	Requested int
	Limit     int
}

func (e *InventoryConflictError) Error() string {
	switch e.Reason {
	case ConflictInsufficientStock:
		return fmt.Sprintf("product %s: requested %d but only %d in stock", e.ProductID, e.Requested, e.Limit)
	case ConflictBelowMinimum:
		return fmt.Sprintf("product %s: requested %d, minimum per cart is %d", e.ProductID, e.Requested, e.Limit)
	default:
		return fmt.Sprintf("product %s: requested %d, maximum per cart is %d", e.ProductID, e.Requested, e.Limit)
	}
}

// CheckInventory checks the total requested quantity of one product against
// its policy. Stock is only checked when the product tracks quantity.
func CheckInventory(productID string, policy catalog.InventoryPolicy, requested int) error {
	if policy.TrackQuantity && requested > policy.Quantity {
		return &InventoryConflictError{ProductID: productID, Reason: ConflictInsufficientStock, Requested: requested, Limit: policy.Quantity}
	}
	if policy.CartMinimumEnabled && requested < policy.CartMinimum {
		return &InventoryConflictError{ProductID: productID, Reason: ConflictBelowMinimum, Requested: requested, Limit: policy.CartMinimum}
	}
	if policy.CartMaximumEnabled && requested > policy.CartMaximum {
		return &InventoryConflictError{ProductID: productID, Reason: ConflictAboveMaximum, Requested: requested, Limit: policy.CartMaximum}
	}
	return nil
}
