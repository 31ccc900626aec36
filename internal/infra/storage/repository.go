// Package storage provides the durable snapshot stores for the lodging desk.
// Every backend implements the same two-slot key-value contract and knows
// nothing about rooms or lecturers; payloads are opaque bytes.
package storage

import (
	"context"
	"errors"
)

// Slot names one serialized collection.
type Slot string

const (
	SlotRooms     Slot = "rooms"
	SlotLecturers Slot = "lecturers"
)

// ErrSlotEmpty is returned by Load when nothing was ever saved under a slot.
var ErrSlotEmpty = errors.New("snapshot slot is empty")

// SnapshotStore defines the durable mirror of the in-memory collections.
type SnapshotStore interface {
	// Load returns the payload saved under slot, or ErrSlotEmpty.
	Load(ctx context.Context, slot Slot) ([]byte, error)

	// Save replaces the payload under slot.
	Save(ctx context.Context, slot Slot, payload []byte) error
}

// SlotPayload pairs a slot with its serialized collection.
type SlotPayload struct {
	Slot    Slot
	Payload []byte
}

// BatchSaver is implemented by stores that can write several slots atomically.
type BatchSaver interface {
	SaveBatch(ctx context.Context, batch []SlotPayload) error
}

// SaveAll writes every slot, atomically when the store supports it.
func SaveAll(ctx context.Context, store SnapshotStore, batch []SlotPayload) error {
	if bs, ok := store.(BatchSaver); ok {
		return bs.SaveBatch(ctx, batch)
	}
	for _, sp := range batch {
		if err := store.Save(ctx, sp.Slot, sp.Payload); err != nil {
			return err
		}
	}
	return nil
}
