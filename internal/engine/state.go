package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/MRamiBalles/LodgingDesk/server/internal/domain/lecturer"
	"github.com/MRamiBalles/LodgingDesk/server/internal/domain/room"
	"github.com/MRamiBalles/LodgingDesk/server/internal/domain/rules"
)

// Operation names, used in errors, notices and metrics.
const (
	OpAddRoom      = "addRoom"
	OpEditRoom     = "editRoom"
	OpDeleteRoom   = "deleteRoom"
	OpCheckIn      = "checkIn"
	OpCheckOut     = "checkOut"
	OpReassignRoom = "reassignRoom"
)

// State is the consistency unit: both collections, always validated together.
// Transitions never mutate the receiver; they return a fresh State.
type State struct {
	Rooms     []room.Room         `json:"rooms"`
	Lecturers []lecturer.Lecturer `json:"lecturers"`
}

// CheckInRequest carries the user input for a check-in.
type CheckInRequest struct {
	Name         string `json:"name"`
	ClassName    string `json:"className"`
	RoomNumber   string `json:"roomNumber"`
	NumberOfDays int    `json:"numberOfDays"`
}

// NewState returns a state holding the given free rooms and no lecturers.
func NewState(numbers ...string) State {
	s := State{
		Rooms:     make([]room.Room, 0, len(numbers)),
		Lecturers: make([]lecturer.Lecturer, 0),
	}
	for _, n := range numbers {
		s.Rooms = append(s.Rooms, room.NewRoom(n))
	}
	return s
}

// Clone returns a deep copy.
func (s State) Clone() State {
	c := State{
		Rooms:     make([]room.Room, len(s.Rooms)),
		Lecturers: make([]lecturer.Lecturer, len(s.Lecturers)),
	}
	copy(c.Rooms, s.Rooms)
	copy(c.Lecturers, s.Lecturers)
	return c
}

func (s State) roomIndex(number string) int {
	for i, r := range s.Rooms {
		if r.Number == number {
			return i
		}
	}
	return -1
}

func (s State) lecturerByID(id string) int {
	for i, l := range s.Lecturers {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (s State) lecturerByName(name string) int {
	for i, l := range s.Lecturers {
		if l.HasName(name) {
			return i
		}
	}
	return -1
}

// Room looks up a room by number (normalized first).
func (s State) Room(number string) (room.Room, bool) {
	i := s.roomIndex(room.NormalizeNumber(number))
	if i < 0 {
		return room.Room{}, false
	}
	return s.Rooms[i], true
}

// Lecturer looks up a lecturer by id.
func (s State) Lecturer(id string) (lecturer.Lecturer, bool) {
	i := s.lecturerByID(id)
	if i < 0 {
		return lecturer.Lecturer{}, false
	}
	return s.Lecturers[i], true
}

// AddRoom inserts a new free room at the end of the inventory.
func (s State) AddRoom(number string) (State, error) {
	number = room.NormalizeNumber(number)
	if !room.ValidNumber(number) {
		return s, reject(OpAddRoom, KindInvalid, "Room number should be alphanumeric (e.g., A101)")
	}
	if s.roomIndex(number) >= 0 {
		return s, reject(OpAddRoom, KindConflict, "Room already exists")
	}

	next := s.Clone()
	next.Rooms = append(next.Rooms, room.NewRoom(number))
	return next, nil
}

// EditRoom renames an unoccupied room in place.
// Lecturer references are untouched since only free rooms may be renamed.
func (s State) EditRoom(oldNumber, newNumber string) (State, error) {
	oldNumber = room.NormalizeNumber(oldNumber)
	newNumber = room.NormalizeNumber(newNumber)
	if oldNumber == newNumber {
		return s, nil
	}
	if !room.ValidNumber(newNumber) {
		return s, reject(OpEditRoom, KindInvalid, "Room number should be alphanumeric (e.g., A101)")
	}
	if s.roomIndex(newNumber) >= 0 {
		return s, reject(OpEditRoom, KindConflict, "Room number already exists")
	}
	i := s.roomIndex(oldNumber)
	if i < 0 {
		return s, reject(OpEditRoom, KindNotFound, "Room not found")
	}
	if s.Rooms[i].IsOccupied {
		return s, reject(OpEditRoom, KindInvalidState, "Cannot edit occupied room")
	}

	next := s.Clone()
	next.Rooms[i].Number = newNumber
	return next, nil
}

// DeleteRoom removes an unoccupied room.
func (s State) DeleteRoom(number string) (State, error) {
	number = room.NormalizeNumber(number)
	i := s.roomIndex(number)
	if i < 0 {
		return s, reject(OpDeleteRoom, KindNotFound, "Room not found")
	}
	if s.Rooms[i].IsOccupied {
		return s, reject(OpDeleteRoom, KindInvalidState, "Cannot delete occupied room")
	}

	next := s.Clone()
	next.Rooms = append(next.Rooms[:i], next.Rooms[i+1:]...)
	return next, nil
}

// CheckIn creates a lecturer with the given id and check-in time and occupies the room.
func (s State) CheckIn(req CheckInRequest, id string, now time.Time) (State, lecturer.Lecturer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return s, lecturer.Lecturer{}, reject(OpCheckIn, KindInvalid, "Lecturer name is required")
	}
	if req.NumberOfDays < 1 {
		return s, lecturer.Lecturer{}, reject(OpCheckIn, KindInvalid, "Number of days must be at least 1")
	}
	if s.lecturerByName(name) >= 0 {
		return s, lecturer.Lecturer{}, reject(OpCheckIn, KindConflict, "Lecturer is already checked in")
	}
	number := room.NormalizeNumber(req.RoomNumber)
	i := s.roomIndex(number)
	if i < 0 {
		return s, lecturer.Lecturer{}, reject(OpCheckIn, KindNotFound, "Invalid room number")
	}
	if s.Rooms[i].IsOccupied {
		return s, lecturer.Lecturer{}, reject(OpCheckIn, KindInvalidState, "Room is already occupied")
	}

	l := lecturer.NewLecturer(id, name, req.ClassName, number, req.NumberOfDays, now)
	next := s.Clone()
	next.Rooms[i].Occupy()
	next.Lecturers = append(next.Lecturers, l)
	return next, l, nil
}

// CheckOutByName removes the lecturer whose name matches case-insensitively.
func (s State) CheckOutByName(name string) (State, lecturer.Lecturer, error) {
	return s.checkOut(s.lecturerByName(name))
}

// CheckOutByID removes the lecturer with the given id.
func (s State) CheckOutByID(id string) (State, lecturer.Lecturer, error) {
	return s.checkOut(s.lecturerByID(id))
}

func (s State) checkOut(i int) (State, lecturer.Lecturer, error) {
	if i < 0 {
		return s, lecturer.Lecturer{}, reject(OpCheckOut, KindNotFound, "Lecturer not found")
	}
	l := s.Lecturers[i]

	next := s.Clone()
	next.Lecturers = append(next.Lecturers[:i], next.Lecturers[i+1:]...)
	if r := next.roomIndex(l.RoomNumber); r >= 0 {
		next.Rooms[r].Vacate()
	}
	return next, l, nil
}

// ReassignRoom moves a lecturer to another free room in one step.
// Moving a lecturer to the room they already hold succeeds without change.
func (s State) ReassignRoom(lecturerID, newNumber string) (State, error) {
	li := s.lecturerByID(lecturerID)
	if li < 0 {
		return s, reject(OpReassignRoom, KindNotFound, "Lecturer not found")
	}
	newNumber = room.NormalizeNumber(newNumber)
	target := s.roomIndex(newNumber)
	if target < 0 {
		return s, reject(OpReassignRoom, KindNotFound, "Invalid room number")
	}
	if s.Lecturers[li].RoomNumber == newNumber {
		return s, nil
	}
	if s.Rooms[target].IsOccupied {
		return s, reject(OpReassignRoom, KindInvalidState, "Room is already occupied")
	}

	next := s.Clone()
	if old := next.roomIndex(next.Lecturers[li].RoomNumber); old >= 0 {
		next.Rooms[old].Vacate()
	}
	next.Rooms[target].Occupy()
	next.Lecturers[li].RoomNumber = newNumber
	return next, nil
}

// Check verifies every consistency invariant and reports the first violation.
func (s State) Check() error {
	refs := make(map[string]int, len(s.Lecturers))
	names := make(map[string]string, len(s.Lecturers))
	ids := make(map[string]bool, len(s.Lecturers))
	for _, l := range s.Lecturers {
		if l.ID == "" || ids[l.ID] {
			return fmt.Errorf("lecturer id %q is empty or duplicated", l.ID)
		}
		ids[l.ID] = true
		key := strings.ToLower(l.Name)
		if prev, ok := names[key]; ok {
			return fmt.Errorf("lecturer names %q and %q collide", prev, l.Name)
		}
		names[key] = l.Name
		if l.NumberOfDays < 1 {
			return fmt.Errorf("lecturer %q has non-positive stay %d", l.Name, l.NumberOfDays)
		}
		refs[l.RoomNumber]++
	}

	seen := make(map[string]bool, len(s.Rooms))
	for _, r := range s.Rooms {
		if seen[r.Number] {
			return fmt.Errorf("room %s appears twice", r.Number)
		}
		seen[r.Number] = true
		n := refs[r.Number]
		if n > 1 {
			return fmt.Errorf("room %s is referenced by %d lecturers", r.Number, n)
		}
		if r.IsOccupied != (n == 1) {
			return fmt.Errorf("room %s occupancy flag %t does not match %d references", r.Number, r.IsOccupied, n)
		}
	}
	for number := range refs {
		if !seen[number] {
			return fmt.Errorf("lecturer references missing room %s", number)
		}
	}
	return nil
}

// Roster projects the lecturers with their remaining days at now.
func (s State) Roster(now time.Time) []RosterEntry {
	roster := make([]RosterEntry, 0, len(s.Lecturers))
	for _, l := range s.Lecturers {
		remaining := l.RemainingDays(now)
		roster = append(roster, RosterEntry{
			Lecturer:      l,
			RemainingDays: remaining,
			Urgent:        rules.IsUrgent(remaining),
		})
	}
	return roster
}

// Occupancy counts total, occupied and free rooms.
func (s State) Occupancy() Occupancy {
	var o Occupancy
	for _, r := range s.Rooms {
		o.Total++
		if r.IsOccupied {
			o.Occupied++
		}
	}
	o.Free = o.Total - o.Occupied
	return o
}

// AvailableRooms lists the free rooms in inventory order.
func (s State) AvailableRooms() []room.Room {
	free := make([]room.Room, 0, len(s.Rooms))
	for _, r := range s.Rooms {
		if !r.IsOccupied {
			free = append(free, r)
		}
	}
	return free
}
