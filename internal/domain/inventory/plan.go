package inventory

import (
	"github.com/example/order-engine/internal/domain/cart"
	"github.com/example/order-engine/internal/domain/order"
)

// Policy summarizes the inventory tracking of an order's items
type Policy struct {
	AnyItemTracksQuantity bool `json:"any_item_tracks_quantity"`
}

// PolicyFor derives the policy from order items. Manually added lines never
// count as tracked, whatever their flag says.
func PolicyFor(items ...[]cart.Selection) Policy {
	for _, set := range items {
		for _, item := range set {
			if tracked(item) {
				return Policy{AnyItemTracksQuantity: true}
			}
		}
	}
	return Policy{}
}

func tracked(item cart.Selection) bool {
	return !item.IsManual() && item.TrackQuantity
}

// Plan is the inventory decision for an edit or a status change. Both flags
// may be set at once.
type Plan struct {
	ShouldDeduct  bool `json:"should_deduct"`
	ShouldRestock bool `json:"should_restock"`
}

func (p Plan) IsEmpty() bool {
	return !p.ShouldDeduct && !p.ShouldRestock
}

// PlanActions decides stock movement for an edit
func PlanActions(diff order.Diff, policy Policy) Plan {
	if !policy.AnyItemTracksQuantity {
		return Plan{}
	}
	return Plan{
		ShouldDeduct:  len(diff.IncreaseQuantity) > 0 || len(diff.NewItems) > 0,
		ShouldRestock: len(diff.DecreaseQuantity) > 0 || len(diff.RemovedItems) > 0,
	}
}

// neutralStatuses are the values from which a transition is assumed to have
// already settled stock, across all three dimensions.
var neutralStatuses = map[string]bool{
	string(order.OrderPending):              true,
	string(order.OrderConfirmed):            true,
	string(order.OrderCompleted):            true,
	string(order.PaymentUnpaid):             true,
	string(order.PaymentConfirmingPayment):  true,
	string(order.PaymentPartiallyPaid):      true,
	string(order.PaymentPaid):               true,
	string(order.PaymentRefunded):           true,
	string(order.FulfillmentUnfulfilled):    true,
	string(order.FulfillmentReady):          true,
	string(order.FulfillmentOutForDelivery): true,
	string(order.FulfillmentFulfilled):      true,
}

// IsNeutralStatus reports whether a status value is settled with respect to stock
func IsNeutralStatus(value string) bool {
	return neutralStatuses[value]
}

// PlanForStatusChange decides stock movement for a status transition.
// Moving into cancelled restocks, moving out of it deducts, and any other
// move deducts only when neither side is neutral.
func PlanForStatusChange(from, to string, policy Policy) Plan {
	if !policy.AnyItemTracksQuantity || from == to {
		return Plan{}
	}

	cancelled := string(order.OrderCancelled)
	switch {
	case to == cancelled:
		return Plan{ShouldRestock: true}
	case from == cancelled:
		return Plan{ShouldDeduct: true}
	}
	return Plan{ShouldDeduct: !IsNeutralStatus(from) && !IsNeutralStatus(to)}
}

// LinesFor returns the stock lines of a whole item set
func LinesFor(items []cart.Selection) []Line {
	var lines []Line
	for _, item := range items {
		if tracked(item) {
			lines = append(lines, Line{ProductID: item.ProductID, Quantity: item.Quantity})
		}
	}
	return mergeLines(lines)
}

// DeductLines returns what an edit takes out of stock: new lines in full
// and the increase of grown lines.
func DeductLines(diff order.Diff) []Line {
	lines := LinesFor(diff.NewItems)
	for _, c := range diff.IncreaseQuantity {
		if tracked(c.UpdatedItem) {
			lines = append(lines, Line{ProductID: c.UpdatedItem.ProductID, Quantity: c.QuantityDiff})
		}
	}
	return mergeLines(lines)
}

// RestockLines returns what an edit puts back: removed lines in full and
// the decrease of shrunk lines.
func RestockLines(diff order.Diff) []Line {
	lines := LinesFor(diff.RemovedItems)
	for _, c := range diff.DecreaseQuantity {
		if tracked(c.UpdatedItem) {
			lines = append(lines, Line{ProductID: c.UpdatedItem.ProductID, Quantity: c.QuantityDiff})
		}
	}
	return mergeLines(lines)
}
