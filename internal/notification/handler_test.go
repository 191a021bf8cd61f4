package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/example/order-engine/internal/domain/order"
	"github.com/example/order-engine/internal/domain/pricing"
	"github.com/example/order-engine/internal/email"
	"github.com/example/order-engine/internal/infrastructure/store"
	"github.com/example/order-engine/internal/infrastructure/store/mocks"
	"github.com/example/order-engine/internal/readmodel"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMailer struct {
	sent []sentAlert
	err  error
}

type sentAlert struct {
	to    string
	alert email.SideEffectAlert
}

func (m *mockMailer) SendSideEffectFailure(to string, alert email.SideEffectAlert) error {
	m.sent = append(m.sent, sentAlert{to: to, alert: alert})
	return m.err
}

func newTestHandler(staff string) (*Handler, *mockMailer, *mocks.MockReadStore) {
	mailer := &mockMailer{}
	readStore := mocks.NewMockReadStore()
	logger, _ := logtest.NewNullLogger()
	return NewHandler(mailer, readStore, staff, logger), mailer, readStore
}

func sideEffectEvent(outcome order.SideEffectOutcome) store.Event {
	data, _ := json.Marshal(order.OrderSideEffectRecorded{
		ID:         "rec-1",
		OrderID:    "order-1",
		Action:     "restock",
		Trigger:    "order_status:pending->cancelled",
		Outcome:    outcome,
		Lines:      []order.StockLine{{ProductID: "fries", Quantity: 2}},
		Error:      "stock store unavailable",
		RecordedAt: time.Now(),
	})
	return store.Event{
		ID:            "event-1",
		AggregateID:   "order-1",
		AggregateType: order.AggregateType,
		EventType:     order.EventOrderSideEffectRecorded,
		Data:          data,
		Version:       3,
	}
}

// ============================================
// Side Effect Alert Tests
// ============================================

func TestHandler_FailedSideEffect_SendsAlert(t *testing.T) {
	h, mailer, readStore := newTestHandler("staff@example.com")
	require.NoError(t, readStore.Set(store.CollectionProducts, "fries", &readmodel.ProductReadModel{ID: "fries", Name: "Fries"}))
	require.NoError(t, readStore.Set(store.CollectionOrders, "order-1", &readmodel.OrderReadModel{
		ID:      "order-1",
		Summary: pricing.Summary{FinalTotal: "7.00"},
		Version: 2,
	}))

	err := h.Notify(context.Background(), sideEffectEvent(order.OutcomeFailed))

	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	sent := mailer.sent[0]
	assert.Equal(t, "staff@example.com", sent.to)
	assert.Equal(t, "order-1", sent.alert.OrderID)
	assert.Equal(t, "restock", sent.alert.Action)
	assert.Equal(t, "stock store unavailable", sent.alert.Error)
	assert.Equal(t, "7.00", sent.alert.OrderTotal)
	assert.Equal(t, []email.AlertLine{{ProductID: "fries", Name: "Fries", Quantity: 2}}, sent.alert.Lines)
}

func TestHandler_FailedSideEffect_WithoutReadModels(t *testing.T) {
	h, mailer, _ := newTestHandler("staff@example.com")

	err := h.Notify(context.Background(), sideEffectEvent(order.OutcomeFailed))

	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Empty(t, mailer.sent[0].alert.OrderTotal)
	assert.Equal(t, "fries", mailer.sent[0].alert.Lines[0].Name)
}

func TestHandler_IgnoresOtherOutcomes(t *testing.T) {
	h, mailer, _ := newTestHandler("staff@example.com")

	require.NoError(t, h.Notify(context.Background(), sideEffectEvent(order.OutcomeExecuted)))
	require.NoError(t, h.Notify(context.Background(), sideEffectEvent(order.OutcomeDeclined)))

	assert.Empty(t, mailer.sent)
}

func TestHandler_IgnoresOtherEvents(t *testing.T) {
	h, mailer, _ := newTestHandler("staff@example.com")
	event := sideEffectEvent(order.OutcomeFailed)
	event.EventType = order.EventOrderPlaced

	require.NoError(t, h.Notify(context.Background(), event))

	assert.Empty(t, mailer.sent)
}

func TestHandler_NoStaffAddress(t *testing.T) {
	h, mailer, _ := newTestHandler("")

	require.NoError(t, h.Notify(context.Background(), sideEffectEvent(order.OutcomeFailed)))

	assert.Empty(t, mailer.sent)
}

func TestHandler_MailerError(t *testing.T) {
	h, mailer, _ := newTestHandler("staff@example.com")
	mailer.err = errors.New("smtp down")

	err := h.Notify(context.Background(), sideEffectEvent(order.OutcomeFailed))

	assert.Error(t, err)
}

// ============================================
// Kafka Message Tests
// ============================================

func TestHandler_HandleEvent(t *testing.T) {
	h, mailer, _ := newTestHandler("staff@example.com")
	value, _ := json.Marshal(sideEffectEvent(order.OutcomeFailed))

	require.NoError(t, h.HandleEvent(context.Background(), []byte("order-1"), value))

	assert.Len(t, mailer.sent, 1)
}

func TestHandler_HandleEvent_InvalidJSON(t *testing.T) {
	h, _, _ := newTestHandler("staff@example.com")

	err := h.HandleEvent(context.Background(), nil, []byte("not json"))

	assert.Error(t, err)
}
