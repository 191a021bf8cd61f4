package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/example/order-engine/internal/infrastructure/store"
	"github.com/example/order-engine/internal/infrastructure/store/mocks"
	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalogService() (*Service, *mocks.MockEventStore) {
	eventStore := mocks.NewMockEventStore()
	logger, _ := logtest.NewNullLogger()
	return NewService(eventStore, logger), eventStore
}

func burgerCommand() CreateProduct {
	return CreateProduct{
		Name:  "Burger",
		Price: decimal.RequireFromString("8.00"),
		Options: []Option{
			{Name: "Patty", Type: OptionSelection, Required: true, Choices: []Choice{
				{ID: "beef", Name: "Beef", Amount: decimal.Zero},
				{ID: "wagyu", Name: "Wagyu", Amount: decimal.RequireFromString("4.00")},
			}},
			{Name: "Toppings", Type: OptionCheckbox, Validation: AtMost(2), Choices: []Choice{
				{ID: "cheese", Name: "Cheese", Amount: decimal.RequireFromString("1.00")},
				{ID: "bacon", Name: "Bacon", Amount: decimal.RequireFromString("1.50")},
			}},
			{Name: "Note", Type: OptionText},
		},
		Variants: []Variant{
			{ID: "single", Name: "Single", Price: decimal.RequireFromString("10.00")},
			{ID: "double", Name: "Double", Price: decimal.RequireFromString("13.00")},
		},
		Inventory: InventoryPolicy{TrackQuantity: true},
	}
}

// ============================================
// Create Product Tests
// ============================================

func TestService_Create_ValidProduct(t *testing.T) {
	service, eventStore := newTestCatalogService()

	product, err := service.Create(context.Background(), burgerCommand())

	require.NoError(t, err)
	assert.NotEmpty(t, product.ID)
	assert.Equal(t, "Burger", product.Name)
	assert.Equal(t, 1, product.Version)
	for _, o := range product.Options {
		assert.NotEmpty(t, o.ID)
	}

	require.Len(t, eventStore.AppendCalls, 1)
	assert.Equal(t, EventProductCreated, eventStore.AppendCalls[0].EventType)
	assert.Equal(t, AggregateType, eventStore.AppendCalls[0].AggregateType)
}

func TestService_Create_InvalidDefinitions(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateProduct)
		wantErr error
	}{
		{"empty name", func(c *CreateProduct) { c.Name = "" }, ErrInvalidName},
		{"negative price", func(c *CreateProduct) { c.Price = decimal.NewFromInt(-1) }, ErrInvalidPrice},
		{"selection without choices", func(c *CreateProduct) { c.Options[0].Choices = nil }, ErrInvalidOption},
		{"text with choices", func(c *CreateProduct) {
			c.Options[2].Choices = []Choice{{ID: "x", Name: "X"}}
		}, ErrInvalidOption},
		{"rule on selection", func(c *CreateProduct) { c.Options[0].Validation = AtLeast(1) }, ErrInvalidOption},
		{"min above max", func(c *CreateProduct) { c.Options[1].Validation = Between(3, 1) }, ErrInvalidOption},
		{"at_most without max", func(c *CreateProduct) {
			c.Options[1].Validation = &ValidationRule{Kind: RuleAtMost}
		}, ErrInvalidOption},
		{"duplicate option name", func(c *CreateProduct) { c.Options[2].Name = "Patty" }, ErrInvalidOption},
		{"second selection option", func(c *CreateProduct) {
			c.Options = append(c.Options, Option{Name: "Bun", Type: OptionSelection, Choices: []Choice{{ID: "brioche", Name: "Brioche"}}})
		}, ErrInvalidOption},
		{"duplicate variant id", func(c *CreateProduct) { c.Variants[1].ID = "single" }, ErrInvalidVariant},
		{"cart minimum above maximum", func(c *CreateProduct) {
			c.Inventory = InventoryPolicy{CartMinimumEnabled: true, CartMinimum: 5, CartMaximumEnabled: true, CartMaximum: 2}
		}, ErrInvalidPolicy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, eventStore := newTestCatalogService()
			cmd := burgerCommand()
			tt.mutate(&cmd)

			product, err := service.Create(context.Background(), cmd)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, product)
			assert.Empty(t, eventStore.AppendCalls)
		})
	}
}

func TestService_Create_StoreFailure(t *testing.T) {
	service, eventStore := newTestCatalogService()
	eventStore.AppendErr = &store.PersistenceError{Op: "append event", Err: errors.New("down")}

	_, err := service.Create(context.Background(), burgerCommand())

	assert.True(t, store.IsPersistence(err))
}

// ============================================
// Update / Delete / Policy Tests
// ============================================

func TestService_Update_ReplaysIntoGet(t *testing.T) {
	service, _ := newTestCatalogService()
	ctx := context.Background()
	product, err := service.Create(ctx, burgerCommand())
	require.NoError(t, err)

	err = service.Update(ctx, UpdateProduct{
		ID:      product.ID,
		Name:    "Cheeseburger",
		Price:   decimal.RequireFromString("9.00"),
		Options: product.Options,
	})
	require.NoError(t, err)

	got, err := service.Get(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cheeseburger", got.Name)
	assert.True(t, decimal.RequireFromString("9.00").Equal(got.Price))
	assert.Empty(t, got.Variants)
	assert.Equal(t, 2, got.Version)
}

func TestService_Update_NotFound(t *testing.T) {
	service, _ := newTestCatalogService()

	err := service.Update(context.Background(), UpdateProduct{ID: "missing", Name: "X"})

	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestService_Delete_HidesProduct(t *testing.T) {
	service, _ := newTestCatalogService()
	ctx := context.Background()
	product, err := service.Create(ctx, burgerCommand())
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, product.ID))

	_, err = service.Get(ctx, product.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.ErrorIs(t, service.Delete(ctx, product.ID), ErrProductNotFound)
}

func TestService_SetInventoryPolicy(t *testing.T) {
	service, eventStore := newTestCatalogService()
	ctx := context.Background()
	product, err := service.Create(ctx, burgerCommand())
	require.NoError(t, err)

	policy := InventoryPolicy{TrackQuantity: true, CartMaximumEnabled: true, CartMaximum: 3}
	require.NoError(t, service.SetInventoryPolicy(ctx, product.ID, policy))

	got, err := service.Get(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, policy, got.Inventory)
	assert.Len(t, eventStore.EventsOfType(product.ID, EventInventoryPolicyChanged), 1)

	bad := InventoryPolicy{CartMaximumEnabled: true, CartMaximum: 0}
	assert.ErrorIs(t, service.SetInventoryPolicy(ctx, product.ID, bad), ErrInvalidPolicy)
}

func TestService_SnapshotAtThreshold(t *testing.T) {
	service, eventStore := newTestCatalogService()
	ctx := context.Background()
	product, err := service.Create(ctx, burgerCommand())
	require.NoError(t, err)

	for i := 0; i < store.SnapshotThreshold-1; i++ {
		require.NoError(t, service.SetInventoryPolicy(ctx, product.ID, InventoryPolicy{TrackQuantity: i%2 == 0}))
	}

	require.Len(t, eventStore.SavedSnapshots, 1)
	assert.Equal(t, store.SnapshotThreshold, eventStore.SavedSnapshots[0].Version)

	got, err := service.Get(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SnapshotThreshold, got.Version)
	assert.Equal(t, "Burger", got.Name)
}

// ============================================
// Lookup Tests
// ============================================

func TestProduct_Lookups(t *testing.T) {
	cmd := burgerCommand()
	product := &Product{Name: cmd.Name, Options: cmd.Options, Variants: cmd.Variants}

	assert.True(t, product.HasVariants())
	v, ok := product.Variant("double")
	require.True(t, ok)
	assert.Equal(t, "Double", v.Name)
	_, ok = product.Variant("triple")
	assert.False(t, ok)

	o, ok := product.Option("Toppings")
	require.True(t, ok)
	c, ok := o.Choice("bacon")
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("1.50").Equal(c.Amount))
	_, ok = o.Choice("lettuce")
	assert.False(t, ok)
}
