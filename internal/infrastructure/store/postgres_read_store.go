package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresReadStore keeps read models as JSONB documents in read_models.
// Each collection registers a factory that returns a pointer to its read
// model type so documents decode back into the concrete type callers expect.
type PostgresReadStore struct {
	db        *sqlx.DB
	factories map[string]func() any
}

// NewPostgresReadStore creates a new PostgreSQL-based read store
func NewPostgresReadStore(db *sqlx.DB, factories map[string]func() any) *PostgresReadStore {
	return &PostgresReadStore{db: db, factories: factories}
}

type readModelRow struct {
	ID   string `db:"id"`
	Data []byte `db:"data"`
}

func (rs *PostgresReadStore) decode(collection string, raw []byte) (any, error) {
	factory, ok := rs.factories[collection]
	if !ok {
		return nil, fmt.Errorf("unknown read model collection %q", collection)
	}
	model := factory()
	if err := json.Unmarshal(raw, model); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	return model, nil
}

func (rs *PostgresReadStore) Set(collection, id string, data any) error {
	return rs.set(rs.db, collection, id, data)
}

func (rs *PostgresReadStore) set(exec sqlx.Execer, collection, id string, data any) error {
	doc, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = exec.Exec(`
		INSERT INTO read_models (collection, id, data, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (collection, id) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`, collection, id, string(doc), time.Now())
	return wrapPersistence("set "+collection, err)
}

func (rs *PostgresReadStore) Get(collection, id string) (any, bool, error) {
	var raw []byte
	err := rs.db.Get(&raw, `SELECT data FROM read_models WHERE collection = $1 AND id = $2`, collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrapPersistence("get "+collection, err)
	}
	model, err := rs.decode(collection, raw)
	if err != nil {
		return nil, false, err
	}
	return model, true, nil
}

func (rs *PostgresReadStore) GetAll(collection string) ([]any, error) {
	var rows []readModelRow
	if err := rs.db.Select(&rows,
		`SELECT id, data FROM read_models WHERE collection = $1 ORDER BY id`, collection,
	); err != nil {
		return nil, wrapPersistence("list "+collection, err)
	}

	items := make([]any, 0, len(rows))
	for _, row := range rows {
		model, err := rs.decode(collection, row.Data)
		if err != nil {
			return nil, err
		}
		items = append(items, model)
	}
	return items, nil
}

func (rs *PostgresReadStore) Delete(collection, id string) error {
	_, err := rs.db.Exec(`DELETE FROM read_models WHERE collection = $1 AND id = $2`, collection, id)
	return wrapPersistence("delete "+collection, err)
}

// Update reads the row FOR UPDATE so concurrent projectors cannot interleave
func (rs *PostgresReadStore) Update(collection, id string, updateFn func(current any) any) (bool, error) {
	tx, err := rs.db.Beginx()
	if err != nil {
		return false, wrapPersistence("begin update", err)
	}
	defer tx.Rollback()

	var raw []byte
	err = tx.Get(&raw, `SELECT data FROM read_models WHERE collection = $1 AND id = $2 FOR UPDATE`, collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapPersistence("get "+collection, err)
	}

	current, err := rs.decode(collection, raw)
	if err != nil {
		return false, err
	}
	if err := rs.set(tx, collection, id, updateFn(current)); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, wrapPersistence("commit update", err)
	}
	return true, nil
}
