package cart

import (
	"testing"

	"github.com/example/order-engine/internal/domain/catalog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProduct() *catalog.Product {
	return &catalog.Product{
		ID:    "burger",
		Name:  "Burger",
		Price: decimal.RequireFromString("8.00"),
		Options: []catalog.Option{
			{Name: "Patty", Type: catalog.OptionSelection, Required: true, Choices: []catalog.Choice{
				{ID: "beef", Name: "Beef"},
				{ID: "wagyu", Name: "Wagyu", Amount: decimal.RequireFromString("2.00")},
			}},
			{Name: "Toppings", Type: catalog.OptionCheckbox, Choices: []catalog.Choice{
				{ID: "cheese", Name: "Cheese", Amount: decimal.RequireFromString("1.00")},
				{ID: "bacon", Name: "Bacon", Amount: decimal.RequireFromString("1.50")},
			}},
			{Name: "Spice", Type: catalog.OptionNumber},
			{Name: "Note", Type: catalog.OptionText},
		},
		Variants: []catalog.Variant{
			{ID: "single", Name: "Single", Price: decimal.RequireFromString("10.00")},
		},
		Inventory: catalog.InventoryPolicy{TrackQuantity: true, Quantity: 5},
	}
}

// ============================================
// Identity Tests
// ============================================

func TestSelection_KeyIgnoresChoiceOrder(t *testing.T) {
	a := burgerLine(1, "cheese", "bacon")
	b := burgerLine(7, "bacon", "cheese")

	assert.Equal(t, a.Key(), b.Key())
}

func TestSelection_KeySeparatesVariants(t *testing.T) {
	a := burgerLine(1)
	a.Variant = &catalog.Variant{ID: "single"}
	b := burgerLine(1)
	b.Variant = &catalog.Variant{ID: "double"}

	assert.NotEqual(t, a.Key(), b.Key())
}

func TestSelection_ManualLinesKeyedByName(t *testing.T) {
	fries, err := Manual("Fries", decimal.RequireFromString("3.00"), 1)
	require.NoError(t, err)
	soda, err := Manual("Soda", decimal.RequireFromString("2.00"), 1)
	require.NoError(t, err)

	assert.True(t, fries.IsManual())
	assert.NotEqual(t, fries.Key(), soda.Key())

	_, err = Manual("Fries", decimal.Zero, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

// ============================================
// Build Tests
// ============================================

func TestBuild_StampsChoicesAndAnswers(t *testing.T) {
	spice := decimal.NewFromInt(3)
	sel, err := Build(testProduct(), Request{
		VariantID: "single",
		Choices: []ChoiceRef{
			{Option: "Patty", ChoiceID: "wagyu"},
			{Option: "Toppings", ChoiceID: "cheese"},
			{Option: "Toppings", ChoiceID: "bacon"},
		},
		Number:   &NumberAnswer{OptionName: "Spice", Amount: &spice},
		Text:     &TextAnswer{OptionName: "Note", Text: "no onions"},
		Quantity: 2,
	})

	require.NoError(t, err)
	assert.Equal(t, "burger", sel.ProductID)
	assert.Equal(t, "single", sel.Variant.ID)
	require.NotNil(t, sel.Choice)
	assert.Equal(t, "Patty", sel.Choice.OptionName)
	assert.Equal(t, 2, sel.CheckboxCount("Toppings"))
	assert.Equal(t, "no onions", sel.Text.Text)
	assert.True(t, sel.TrackQuantity)
	assert.Equal(t, 2, sel.Quantity)
}

func TestSelection_RequestRestampsFromCatalog(t *testing.T) {
	tampered := Selection{
		ProductID:     "burger",
		ProductPrice:  decimal.Zero,
		Variant:       &catalog.Variant{ID: "single", Price: decimal.Zero},
		Choice:        &ChosenChoice{OptionName: "Patty", ID: "wagyu", Amount: decimal.Zero},
		Checkboxes:    []ChosenChoice{{OptionName: "Toppings", ID: "bacon"}},
		Text:          &TextAnswer{OptionName: "Note", Text: "well done"},
		Quantity:      3,
		TrackQuantity: false,
	}

	sel, err := Build(testProduct(), tampered.Request())

	require.NoError(t, err)
	assert.Equal(t, tampered.Key(), sel.Key())
	assert.True(t, decimal.RequireFromString("10.00").Equal(sel.Variant.Price))
	assert.True(t, decimal.RequireFromString("2.00").Equal(sel.Choice.Amount))
	assert.True(t, decimal.RequireFromString("1.50").Equal(sel.Checkboxes[0].Amount))
	assert.Equal(t, "well done", sel.Text.Text)
	assert.True(t, sel.TrackQuantity)
	assert.Equal(t, 3, sel.Quantity)
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"zero quantity", Request{VariantID: "single"}, ErrInvalidQuantity},
		{"missing variant", Request{Quantity: 1}, ErrVariantRequired},
		{"unknown variant", Request{VariantID: "triple", Quantity: 1}, ErrUnknownVariant},
		{"unknown option", Request{VariantID: "single", Quantity: 1, Choices: []ChoiceRef{{Option: "Bun", ChoiceID: "x"}}}, ErrUnknownOption},
		{"unknown choice", Request{VariantID: "single", Quantity: 1, Choices: []ChoiceRef{{Option: "Toppings", ChoiceID: "lettuce"}}}, ErrUnknownChoice},
		{"two selection choices", Request{VariantID: "single", Quantity: 1, Choices: []ChoiceRef{
			{Option: "Patty", ChoiceID: "beef"}, {Option: "Patty", ChoiceID: "wagyu"},
		}}, ErrMultipleSelections},
		{"text answer on number option", Request{VariantID: "single", Quantity: 1, Text: &TextAnswer{OptionName: "Spice"}}, ErrUnknownOption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(testProduct(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// ============================================
// Inventory Check Tests
// ============================================

func TestCheckInventory(t *testing.T) {
	tracked := catalog.InventoryPolicy{TrackQuantity: true, Quantity: 5}
	untracked := catalog.InventoryPolicy{TrackQuantity: false, Quantity: 0}
	bounded := catalog.InventoryPolicy{CartMinimumEnabled: true, CartMinimum: 2, CartMaximumEnabled: true, CartMaximum: 4}

	assert.NoError(t, CheckInventory("p", tracked, 5))
	assert.NoError(t, CheckInventory("p", untracked, 100))
	assert.NoError(t, CheckInventory("p", bounded, 3))

	tests := []struct {
		name   string
		policy catalog.InventoryPolicy
		qty    int
		reason ConflictReason
		limit  int
	}{
		{"over stock", tracked, 6, ConflictInsufficientStock, 5},
		{"below minimum", bounded, 1, ConflictBelowMinimum, 2},
		{"above maximum", bounded, 5, ConflictAboveMaximum, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckInventory("p", tt.policy, tt.qty)

			var conflict *InventoryConflictError
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, tt.reason, conflict.Reason)
			assert.Equal(t, tt.limit, conflict.Limit)
			assert.Equal(t, tt.qty, conflict.Requested)
		})
	}
}
