package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotThreshold(t *testing.T) {
	assert.Equal(t, 10, SnapshotThreshold)
}

func TestShouldSnapshot(t *testing.T) {
	assert.False(t, ShouldSnapshot(0))
	assert.False(t, ShouldSnapshot(9))
	assert.True(t, ShouldSnapshot(10))
	assert.False(t, ShouldSnapshot(11))
	assert.True(t, ShouldSnapshot(20))
}

func TestSnapshot_StateRoundTripsThroughEventStore(t *testing.T) {
	ctx := context.Background()
	es := NewEventStore(nil)

	type orderState struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	stateJSON, err := json.Marshal(orderState{ID: "order-123", Status: "confirmed"})
	require.NoError(t, err)

	err = es.SaveSnapshot(ctx, &Snapshot{
		AggregateID:   "order-123",
		AggregateType: "Order",
		Version:       10,
		State:         stateJSON,
		CreatedAt:     time.Now(),
	})
	require.NoError(t, err)

	snapshot, err := es.GetSnapshot(ctx, "order-123")
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, 10, snapshot.Version)

	var restored orderState
	require.NoError(t, json.Unmarshal(snapshot.State, &restored))
	assert.Equal(t, "confirmed", restored.Status)

	missing, err := es.GetSnapshot(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
