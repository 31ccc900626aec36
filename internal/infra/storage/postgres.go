// Package storage - postgres.go
// PostgreSQL implementation of SnapshotStore.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// InitPostgres opens a PostgreSQL connection pool and creates the snapshot table.
func InitPostgres(dsn string, maxOpen, maxIdle int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	if err := createSchemas(db, postgresSchemas); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}
	return db, nil
}

var postgresSchemas = []string{
	`CREATE TABLE IF NOT EXISTS lodging_snapshots (
		slot TEXT PRIMARY KEY,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);`,
}

// PostgresSnapshotStore implements SnapshotStore using PostgreSQL.
type PostgresSnapshotStore struct {
	db *sql.DB
}

// NewPostgresSnapshotStore creates a new PostgreSQL snapshot store.
func NewPostgresSnapshotStore(db *sql.DB) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{db: db}
}

// Load reads the payload of one slot.
func (r *PostgresSnapshotStore) Load(ctx context.Context, slot Slot) ([]byte, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM lodging_snapshots WHERE slot = $1`, string(slot)).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotEmpty
		}
		return nil, fmt.Errorf("failed to load slot %s: %w", slot, err)
	}
	return payload, nil
}

// Save replaces the payload of one slot.
func (r *PostgresSnapshotStore) Save(ctx context.Context, slot Slot, payload []byte) error {
	return r.SaveBatch(ctx, []SlotPayload{{Slot: slot, Payload: payload}})
}

// SaveBatch upserts every slot inside one transaction.
func (r *PostgresSnapshotStore) SaveBatch(ctx context.Context, batch []SlotPayload) error {
	query := `
		INSERT INTO lodging_snapshots (slot, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (slot) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		for _, sp := range batch {
			if _, err := tx.ExecContext(ctx, query, string(sp.Slot), string(sp.Payload), now); err != nil {
				return fmt.Errorf("failed to save slot %s: %w", sp.Slot, err)
			}
		}
		return nil
	})
}

// Ensure PostgresSnapshotStore implements SnapshotStore
var _ SnapshotStore = (*PostgresSnapshotStore)(nil)
