// Package snapshot serializes the occupancy state into the two storage slots
// and mirrors every committed state to a SnapshotStore in the background.
package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/MRamiBalles/LodgingDesk/server/internal/domain/lecturer"
	"github.com/MRamiBalles/LodgingDesk/server/internal/domain/room"
	"github.com/MRamiBalles/LodgingDesk/server/internal/engine"
	"github.com/MRamiBalles/LodgingDesk/server/internal/infra/storage"
)

// DateLayout is ISO-8601 in UTC with millisecond precision.
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

// lecturerRecord is the stored shape of a lecturer.
type lecturerRecord struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ClassName    string `json:"className"`
	RoomNumber   string `json:"roomNumber"`
	NumberOfDays int    `json:"numberOfDays"`
	CheckInDate  string `json:"checkInDate"`
}

// EncodeRooms serializes the rooms collection. Order is preserved.
func EncodeRooms(rooms []room.Room) ([]byte, error) {
	if rooms == nil {
		rooms = []room.Room{}
	}
	return json.Marshal(rooms)
}

// DecodeRooms parses a rooms slot payload.
func DecodeRooms(data []byte) ([]room.Room, error) {
	var rooms []room.Room
	if err := json.Unmarshal(data, &rooms); err != nil {
		return nil, fmt.Errorf("failed to decode rooms: %w", err)
	}
	if rooms == nil {
		rooms = []room.Room{}
	}
	return rooms, nil
}

// EncodeLecturers serializes the lecturers collection. Order is preserved.
func EncodeLecturers(lecturers []lecturer.Lecturer) ([]byte, error) {
	records := make([]lecturerRecord, 0, len(lecturers))
	for _, l := range lecturers {
		records = append(records, lecturerRecord{
			ID:           l.ID,
			Name:         l.Name,
			ClassName:    l.ClassName,
			RoomNumber:   l.RoomNumber,
			NumberOfDays: l.NumberOfDays,
			CheckInDate:  l.CheckInDate.UTC().Format(DateLayout),
		})
	}
	return json.Marshal(records)
}

// DecodeLecturers parses a lecturers slot payload.
func DecodeLecturers(data []byte) ([]lecturer.Lecturer, error) {
	var records []lecturerRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode lecturers: %w", err)
	}
	lecturers := make([]lecturer.Lecturer, 0, len(records))
	for _, r := range records {
		checkIn, err := time.Parse(time.RFC3339Nano, r.CheckInDate)
		if err != nil {
			return nil, fmt.Errorf("lecturer %s has bad checkInDate %q: %w", r.ID, r.CheckInDate, err)
		}
		lecturers = append(lecturers, lecturer.Lecturer{
			ID:           r.ID,
			Name:         r.Name,
			ClassName:    r.ClassName,
			RoomNumber:   r.RoomNumber,
			NumberOfDays: r.NumberOfDays,
			CheckInDate:  checkIn,
		})
	}
	return lecturers, nil
}

// Encode produces the payloads of both slots.
func Encode(state engine.State) ([]storage.SlotPayload, error) {
	rooms, err := EncodeRooms(state.Rooms)
	if err != nil {
		return nil, err
	}
	lecturers, err := EncodeLecturers(state.Lecturers)
	if err != nil {
		return nil, err
	}
	return []storage.SlotPayload{
		{Slot: storage.SlotRooms, Payload: rooms},
		{Slot: storage.SlotLecturers, Payload: lecturers},
	}, nil
}
