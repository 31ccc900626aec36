package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/MRamiBalles/LodgingDesk/server/internal/domain/lecturer"
	"github.com/MRamiBalles/LodgingDesk/server/internal/domain/room"
	"github.com/MRamiBalles/LodgingDesk/server/internal/engine"
	"github.com/MRamiBalles/LodgingDesk/server/internal/infra/storage"
)

// Load rebuilds the state from both slots. An empty rooms slot yields the
// bootstrap rooms; an empty lecturers slot yields no lecturers. A snapshot
// that breaks an occupancy invariant is rejected.
func Load(ctx context.Context, store storage.SnapshotStore) (engine.State, error) {
	rooms, err := loadRooms(ctx, store)
	if err != nil {
		return engine.State{}, err
	}
	lecturers, err := loadLecturers(ctx, store)
	if err != nil {
		return engine.State{}, err
	}

	state := engine.State{Rooms: rooms, Lecturers: lecturers}
	if err := state.Check(); err != nil {
		return engine.State{}, fmt.Errorf("snapshot is inconsistent: %w", err)
	}
	return state, nil
}

func loadRooms(ctx context.Context, store storage.SnapshotStore) ([]room.Room, error) {
	data, err := store.Load(ctx, storage.SlotRooms)
	if errors.Is(err, storage.ErrSlotEmpty) {
		return engine.NewState(room.Bootstrap...).Rooms, nil
	}
	if err != nil {
		return nil, err
	}
	return DecodeRooms(data)
}

func loadLecturers(ctx context.Context, store storage.SnapshotStore) ([]lecturer.Lecturer, error) {
	data, err := store.Load(ctx, storage.SlotLecturers)
	if errors.Is(err, storage.ErrSlotEmpty) {
		return []lecturer.Lecturer{}, nil
	}
	if err != nil {
		return nil, err
	}
	return DecodeLecturers(data)
}
