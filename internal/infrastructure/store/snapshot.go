package store

import (
	"encoding/json"
	"time"
)

// SnapshotThreshold defines the number of events after which a snapshot is created
const SnapshotThreshold = 10

// Snapshot represents a point-in-time state of an aggregate
type Snapshot struct {
	AggregateID   string          `json:"aggregate_id" db:"aggregate_id"`
	AggregateType string          `json:"aggregate_type" db:"aggregate_type"`
	Version       int             `json:"version" db:"version"` // Event version at snapshot time
	State         json.RawMessage `json:"state" db:"state"`     // Serialized aggregate state
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// ShouldSnapshot reports whether an aggregate at version is due for a snapshot
func ShouldSnapshot(version int) bool {
	return version > 0 && version%SnapshotThreshold == 0
}
