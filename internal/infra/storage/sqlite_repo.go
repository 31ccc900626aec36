package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteSnapshotStore implements SnapshotStore for SQLite.
type SQLiteSnapshotStore struct {
	db *sql.DB
}

func NewSQLiteSnapshotStore(db *sql.DB) *SQLiteSnapshotStore {
	return &SQLiteSnapshotStore{db: db}
}

func (r *SQLiteSnapshotStore) Load(ctx context.Context, slot Slot) ([]byte, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE slot = ?`, string(slot)).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotEmpty
		}
		return nil, fmt.Errorf("failed to load slot %s: %w", slot, err)
	}
	return []byte(payload), nil
}

func (r *SQLiteSnapshotStore) Save(ctx context.Context, slot Slot, payload []byte) error {
	return r.SaveBatch(ctx, []SlotPayload{{Slot: slot, Payload: payload}})
}

// SaveBatch upserts every slot inside one transaction.
func (r *SQLiteSnapshotStore) SaveBatch(ctx context.Context, batch []SlotPayload) error {
	query := `
		INSERT INTO snapshots (slot, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			payload=excluded.payload,
			updated_at=excluded.updated_at
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

func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Ensure SQLiteSnapshotStore implements SnapshotStore
var _ SnapshotStore = (*SQLiteSnapshotStore)(nil)
