package kafka

import (
	"testing"

	"github.com/example/order-engine/internal/infrastructure/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage_StoreEventCarriesTypeHeader(t *testing.T) {
	event := store.Event{
		ID:          "evt-1",
		AggregateID: "order-1",
		EventType:   "OrderPlaced",
		Data:        []byte(`{"id":"order-1"}`),
		Version:     1,
	}

	msg, err := buildMessage("order-1", event)
	require.NoError(t, err)

	assert.Equal(t, "order-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, HeaderEventType, msg.Headers[0].Key)
	assert.Equal(t, "OrderPlaced", string(msg.Headers[0].Value))
	assert.Contains(t, string(msg.Value), `"event_type":"OrderPlaced"`)
}

func TestBuildMessage_PlainPayloadHasNoHeaders(t *testing.T) {
	msg, err := buildMessage("k", map[string]int{"n": 1})
	require.NoError(t, err)

	assert.Empty(t, msg.Headers)
	assert.JSONEq(t, `{"n":1}`, string(msg.Value))
}

func TestBuildMessage_UnmarshalableFails(t *testing.T) {
	_, err := buildMessage("k", make(chan int))
	assert.Error(t, err)
}
