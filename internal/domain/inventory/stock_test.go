package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/example/order-engine/internal/infrastructure/store"
	"github.com/example/order-engine/internal/infrastructure/store/mocks"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStockService() (*Service, *mocks.MockEventStore) {
	eventStore := mocks.NewMockEventStore()
	logger, _ := logtest.NewNullLogger()
	return NewService(eventStore, logger), eventStore
}

// ============================================
// Stock Tests
// ============================================

func TestService_AddStock(t *testing.T) {
	service, eventStore := newTestStockService()
	ctx := context.Background()

	require.NoError(t, service.AddStock(ctx, "burger", 10))
	require.NoError(t, service.AddStock(ctx, "burger", 5))

	available, err := service.Available(ctx, "burger")
	require.NoError(t, err)
	assert.Equal(t, 15, available)
	assert.Len(t, eventStore.EventsOfType(StreamID("burger"), EventStockAdded), 2)

	assert.ErrorIs(t, service.AddStock(ctx, "burger", 0), ErrInvalidQuantity)
}

func TestService_AvailableUnknownProduct(t *testing.T) {
	service, _ := newTestStockService()

	available, err := service.Available(context.Background(), "nothing")

	require.NoError(t, err)
	assert.Zero(t, available)
}

func TestService_DeductRestockRoundTrip(t *testing.T) {
	service, _ := newTestStockService()
	ctx := context.Background()
	require.NoError(t, service.AddStock(ctx, "burger", 10))
	require.NoError(t, service.AddStock(ctx, "fries", 4))

	lines := []Line{{ProductID: "burger", Quantity: 2}, {ProductID: "fries", Quantity: 1}, {ProductID: "burger", Quantity: 1}}
	require.NoError(t, service.Deduct(ctx, "order-1", lines))

	burger, _ := service.Available(ctx, "burger")
	fries, _ := service.Available(ctx, "fries")
	assert.Equal(t, 7, burger)
	assert.Equal(t, 3, fries)

	require.NoError(t, service.Restock(ctx, "order-1", lines))
	burger, _ = service.Available(ctx, "burger")
	fries, _ = service.Available(ctx, "fries")
	assert.Equal(t, 10, burger)
	assert.Equal(t, 4, fries)
}

func TestService_DeductInsufficientWritesNothing(t *testing.T) {
	service, eventStore := newTestStockService()
	ctx := context.Background()
	require.NoError(t, service.AddStock(ctx, "burger", 10))
	require.NoError(t, service.AddStock(ctx, "fries", 1))
	eventStore.ResetCalls()

	err := service.Deduct(ctx, "order-1", []Line{{ProductID: "burger", Quantity: 2}, {ProductID: "fries", Quantity: 2}})

	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Empty(t, eventStore.AppendCalls)
}

func failStream(eventStore *mocks.MockEventStore, productID string) {
	eventStore.FailAppend = func(aggregateID, eventType string) error {
		if aggregateID == StreamID(productID) {
			return errors.New("write timeout")
		}
		return nil
	}
}

func TestService_DeductPartialFailureNamesRemainingLines(t *testing.T) {
	service, eventStore := newTestStockService()
	ctx := context.Background()
	require.NoError(t, service.AddStock(ctx, "burger", 10))
	require.NoError(t, service.AddStock(ctx, "fries", 4))
	failStream(eventStore, "fries")

	err := service.Deduct(ctx, "order-1", []Line{{ProductID: "burger", Quantity: 2}, {ProductID: "fries", Quantity: 1}})

	var partial *PartialError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []Line{{ProductID: "fries", Quantity: 1}}, partial.Remaining)

	eventStore.FailAppend = nil
	require.NoError(t, service.Deduct(ctx, "order-1", partial.Remaining))
	burger, _ := service.Available(ctx, "burger")
	fries, _ := service.Available(ctx, "fries")
	assert.Equal(t, 8, burger)
	assert.Equal(t, 3, fries)
}

func TestService_RestockPartialFailureNamesRemainingLines(t *testing.T) {
	service, eventStore := newTestStockService()
	ctx := context.Background()
	failStream(eventStore, "fries")

	err := service.Restock(ctx, "order-1", []Line{{ProductID: "burger", Quantity: 2}, {ProductID: "fries", Quantity: 1}})

	var partial *PartialError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []Line{{ProductID: "fries", Quantity: 1}}, partial.Remaining)
	burger, _ := service.Available(ctx, "burger")
	assert.Equal(t, 2, burger)
}

func TestService_DeductSkipsManualLines(t *testing.T) {
	service, eventStore := newTestStockService()

	err := service.Deduct(context.Background(), "order-1", []Line{{ProductID: "", Quantity: 3}})

	require.NoError(t, err)
	assert.Empty(t, eventStore.AppendCalls)
}

func TestService_StockSnapshot(t *testing.T) {
	service, eventStore := newTestStockService()
	ctx := context.Background()

	for i := 0; i < store.SnapshotThreshold; i++ {
		require.NoError(t, service.AddStock(ctx, "burger", 1))
	}

	require.Len(t, eventStore.SavedSnapshots, 1)
	available, err := service.Available(ctx, "burger")
	require.NoError(t, err)
	assert.Equal(t, store.SnapshotThreshold, available)
}
