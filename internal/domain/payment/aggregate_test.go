package payment

import (
	"context"
	"testing"

	"github.com/example/order-engine/internal/infrastructure/store/mocks"
	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPaymentService() (*Service, *mocks.MockEventStore) {
	eventStore := mocks.NewMockEventStore()
	logger, _ := logtest.NewNullLogger()
	return NewService(eventStore, logger), eventStore
}

func TestService_CaptureAndRefund(t *testing.T) {
	service, eventStore := newTestPaymentService()
	ctx := context.Background()

	require.NoError(t, service.Capture(ctx, "order-1", decimal.RequireFromString("25.50")))

	ledger, err := service.Get(ctx, "order-1")
	require.NoError(t, err)
	assert.True(t, ledger.Open)
	assert.Equal(t, "25.50", ledger.Balance().StringFixed(2))

	require.NoError(t, service.Refund(ctx, "order-1"))

	ledger, err = service.Get(ctx, "order-1")
	require.NoError(t, err)
	assert.False(t, ledger.Open)
	assert.True(t, ledger.Balance().IsZero())
	assert.Len(t, eventStore.EventsOfType(StreamID("order-1"), EventPaymentRefunded), 1)
}

func TestService_DoubleCaptureRejected(t *testing.T) {
	service, _ := newTestPaymentService()
	ctx := context.Background()
	require.NoError(t, service.Capture(ctx, "order-1", decimal.NewFromInt(10)))

	assert.ErrorIs(t, service.Capture(ctx, "order-1", decimal.NewFromInt(10)), ErrAlreadyCaptured)

	require.NoError(t, service.Refund(ctx, "order-1"))
	assert.NoError(t, service.Capture(ctx, "order-1", decimal.NewFromInt(10)))
}

func TestService_RefundWithoutCapture(t *testing.T) {
	service, eventStore := newTestPaymentService()

	err := service.Refund(context.Background(), "order-1")

	assert.ErrorIs(t, err, ErrNotCaptured)
	assert.Empty(t, eventStore.AppendCalls)
}

func TestService_NegativeCapture(t *testing.T) {
	service, _ := newTestPaymentService()

	err := service.Capture(context.Background(), "order-1", decimal.NewFromInt(-1))

	assert.ErrorIs(t, err, ErrInvalidAmount)
}
