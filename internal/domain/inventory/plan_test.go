package inventory

import (
	"testing"

	"github.com/example/order-engine/internal/domain/cart"
	"github.com/example/order-engine/internal/domain/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tracking    = Policy{AnyItemTracksQuantity: true}
	notTracking = Policy{}
)

func item(id, productID string, qty int, tracked bool) cart.Selection {
	return cart.Selection{ID: id, ProductID: productID, ProductName: productID, Quantity: qty, TrackQuantity: tracked}
}

func allDiffShapes() map[string]order.Diff {
	a := item("la", "A", 2, true)
	return map[string]order.Diff{
		"empty":    order.ComputeDiff(nil, nil),
		"new":      order.ComputeDiff(nil, []cart.Selection{a}),
		"increase": order.ComputeDiff([]cart.Selection{a}, []cart.Selection{item("", "A", 3, true)}),
		"decrease": order.ComputeDiff([]cart.Selection{a}, []cart.Selection{item("", "A", 1, true)}),
		"removed":  order.ComputeDiff([]cart.Selection{a}, nil),
		"mixed": order.ComputeDiff(
			[]cart.Selection{a, item("lb", "B", 1, true)},
			[]cart.Selection{item("", "A", 3, true), item("", "C", 1, true)},
		),
	}
}

// ============================================
// Edit Plan Tests
// ============================================

func TestPlanActions(t *testing.T) {
	tests := map[string]Plan{
		"empty":    {},
		"new":      {ShouldDeduct: true},
		"increase": {ShouldDeduct: true},
		"decrease": {ShouldRestock: true},
		"removed":  {ShouldRestock: true},
		"mixed":    {ShouldDeduct: true, ShouldRestock: true},
	}

	for name, diff := range allDiffShapes() {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tests[name], PlanActions(diff, tracking))
		})
	}
}

func TestPlanActions_NeverActsWithoutTracking(t *testing.T) {
	for name, diff := range allDiffShapes() {
		t.Run(name, func(t *testing.T) {
			plan := PlanActions(diff, notTracking)
			assert.False(t, plan.ShouldDeduct)
			assert.False(t, plan.ShouldRestock)
		})
	}
}

func TestPolicyFor(t *testing.T) {
	manual := cart.Selection{ProductName: "Fries", Quantity: 1, TrackQuantity: true}

	assert.False(t, PolicyFor([]cart.Selection{manual}).AnyItemTracksQuantity)
	assert.False(t, PolicyFor([]cart.Selection{item("1", "A", 1, false)}).AnyItemTracksQuantity)
	assert.True(t, PolicyFor(nil, []cart.Selection{manual, item("1", "A", 1, true)}).AnyItemTracksQuantity)
}

// ============================================
// Status Plan Tests
// ============================================

func TestIsNeutralStatus_AllButCancelled(t *testing.T) {
	for _, dim := range order.Dimensions() {
		for _, v := range order.Values(dim) {
			assert.Equal(t, v != string(order.OrderCancelled), IsNeutralStatus(v), v)
		}
	}
}

func TestPlanForStatusChange_Exhaustive(t *testing.T) {
	cancelled := string(order.OrderCancelled)
	for _, dim := range order.Dimensions() {
		values := order.Values(dim)
		for _, from := range values {
			for _, to := range values {
				plan := PlanForStatusChange(from, to, tracking)

				switch {
				case from == to:
					assert.True(t, plan.IsEmpty(), "%s->%s", from, to)
				case to == cancelled:
					assert.Equal(t, Plan{ShouldRestock: true}, plan, "%s->%s", from, to)
				case from == cancelled:
					assert.Equal(t, Plan{ShouldDeduct: true}, plan, "%s->%s", from, to)
				default:
					assert.True(t, plan.IsEmpty(), "%s->%s", from, to)
				}

				assert.True(t, PlanForStatusChange(from, to, notTracking).IsEmpty())
			}
		}
	}
}

func TestPlanForStatusChange_NonNeutralPairDeducts(t *testing.T) {
	plan := PlanForStatusChange("legacy_hold", "legacy_void", tracking)
	assert.Equal(t, Plan{ShouldDeduct: true}, plan)
}

// ============================================
// Line Tests
// ============================================

func TestDeductAndRestockLines(t *testing.T) {
	stored := []cart.Selection{item("la", "A", 2, true), item("lb", "B", 1, true), item("lc", "C", 4, true)}
	edited := []cart.Selection{item("", "A", 5, true), item("", "C", 1, true), item("", "D", 2, true), item("", "E", 3, false)}
	diff := order.ComputeDiff(stored, edited)

	deduct := DeductLines(diff)
	restock := RestockLines(diff)

	assert.ElementsMatch(t, []Line{{ProductID: "D", Quantity: 2}, {ProductID: "A", Quantity: 3}}, deduct)
	assert.ElementsMatch(t, []Line{{ProductID: "B", Quantity: 1}, {ProductID: "C", Quantity: 3}}, restock)
}

func TestLinesFor_MergesAndSkipsManual(t *testing.T) {
	manual := cart.Selection{ProductName: "Fries", Quantity: 1, TrackQuantity: true}
	first := item("1", "A", 1, true)
	first.Checkboxes = []cart.ChosenChoice{{OptionName: "Toppings", ID: "egg"}}

	lines := LinesFor([]cart.Selection{first, item("2", "A", 2, true), manual, item("3", "B", 1, false)})

	require.Len(t, lines, 1)
	assert.Equal(t, Line{ProductID: "A", Quantity: 3}, lines[0])
}
