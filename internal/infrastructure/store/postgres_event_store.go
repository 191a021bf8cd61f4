package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// PostgresEventStore stores events in PostgreSQL
type PostgresEventStore struct {
	db        *sqlx.DB
	publisher Publisher
}

func NewPostgresEventStore(db *sqlx.DB, publisher Publisher) *PostgresEventStore {
	return &PostgresEventStore{
		db:        db,
		publisher: publisher,
	}
}

type eventRow struct {
	ID            string    `db:"id"`
	AggregateID   string    `db:"aggregate_id"`
	AggregateType string    `db:"aggregate_type"`
	EventType     string    `db:"event_type"`
	Data          []byte    `db:"data"`
	Version       int       `db:"version"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r eventRow) event() Event {
	return Event{
		ID:            r.ID,
		AggregateID:   r.AggregateID,
		AggregateType: r.AggregateType,
		EventType:     r.EventType,
		Data:          json.RawMessage(r.Data),
		Timestamp:     r.CreatedAt,
		Version:       r.Version,
	}
}

const selectEvents = `SELECT id, aggregate_id, aggregate_type, event_type, data, version, created_at FROM events`

// Append stores an event in PostgreSQL and publishes it. A concurrent append
// to the same aggregate trips the (aggregate_id, version) unique index and
// is reported as ErrVersionConflict.
func (es *PostgresEventStore) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	tx, err := es.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, wrapPersistence("begin append", err)
	}
	defer tx.Rollback()

	var currentVersion int
	if err := tx.GetContext(ctx, &currentVersion,
		"SELECT COALESCE(MAX(version), 0) FROM events WHERE aggregate_id = $1",
		aggregateID,
	); err != nil {
		return nil, wrapPersistence("read stream version", err)
	}

	event := Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Now(),
		Version:       currentVersion + 1,
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (id, aggregate_id, aggregate_type, event_type, data, version, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.AggregateID, event.AggregateType, event.EventType,
		string(event.Data), event.Version, event.Timestamp,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrVersionConflict
		}
		return nil, wrapPersistence("insert event", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, wrapPersistence("commit append", err)
	}

	if es.publisher != nil {
		if err := es.publisher.Publish(ctx, aggregateID, event); err != nil {
			return nil, wrapPersistence("publish event", err)
		}
	}

	return &event, nil
}

func (es *PostgresEventStore) query(ctx context.Context, op, q string, args ...any) ([]Event, error) {
	var rows []eventRow
	if err := es.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, wrapPersistence(op, err)
	}
	events := make([]Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.event())
	}
	return events, nil
}

// GetEvents returns all events for an aggregate
func (es *PostgresEventStore) GetEvents(ctx context.Context, aggregateID string) ([]Event, error) {
	return es.query(ctx, "get events",
		selectEvents+` WHERE aggregate_id = $1 ORDER BY version ASC`, aggregateID)
}

// GetEventsFromVersion returns events after the given version
func (es *PostgresEventStore) GetEventsFromVersion(ctx context.Context, aggregateID string, version int) ([]Event, error) {
	return es.query(ctx, "get events from version",
		selectEvents+` WHERE aggregate_id = $1 AND version > $2 ORDER BY version ASC`, aggregateID, version)
}

// GetAllEvents returns every event, oldest first (for replay)
func (es *PostgresEventStore) GetAllEvents(ctx context.Context) ([]Event, error) {
	return es.query(ctx, "get all events", selectEvents+` ORDER BY created_at ASC`)
}

// GetEventsByType returns all events of a specific aggregate type
func (es *PostgresEventStore) GetEventsByType(ctx context.Context, aggregateType string) ([]Event, error) {
	return es.query(ctx, "get events by type",
		selectEvents+` WHERE aggregate_type = $1 ORDER BY created_at ASC`, aggregateType)
}

func (es *PostgresEventStore) GetSnapshot(ctx context.Context, aggregateID string) (*Snapshot, error) {
	var s Snapshot
	err := es.db.GetContext(ctx, &s,
		`SELECT aggregate_id, aggregate_type, version, state, created_at FROM snapshots WHERE aggregate_id = $1`,
		aggregateID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapPersistence("get snapshot", err)
	}
	return &s, nil
}

func (es *PostgresEventStore) SaveSnapshot(ctx context.Context, snapshot *Snapshot) error {
	_, err := es.db.NamedExecContext(ctx, `
		INSERT INTO snapshots (aggregate_id, aggregate_type, version, state, created_at)
		VALUES (:aggregate_id, :aggregate_type, :version, :state, :created_at)
		ON CONFLICT (aggregate_id) DO UPDATE SET
			version = EXCLUDED.version,
			state = EXCLUDED.state,
			created_at = EXCLUDED.created_at
		WHERE snapshots.version < EXCLUDED.version
	`, map[string]any{
		"aggregate_id":   snapshot.AggregateID,
		"aggregate_type": snapshot.AggregateType,
		"version":        snapshot.Version,
		"state":          string(snapshot.State),
		"created_at":     snapshot.CreatedAt,
	})
	return wrapPersistence("save snapshot", err)
}

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(ctx context.Context, connStr string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", connStr)
	if err != nil {
		return nil, wrapPersistence("connect postgres", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}
