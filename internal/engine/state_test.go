package engine

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/LodgingDesk/server/internal/domain/lecturer"
	"github.com/MRamiBalles/LodgingDesk/server/internal/domain/room"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func mustCheckIn(t *testing.T, s State, name, number, id string) State {
	t.Helper()
	next, _, err := s.CheckIn(CheckInRequest{Name: name, ClassName: "CS101", RoomNumber: number, NumberOfDays: 5}, id, t0)
	require.NoError(t, err)
	return next
}

func TestAddRoomNormalizesAndRejectsDuplicates(t *testing.T) {
	s := NewState()

	s, err := s.AddRoom("  c301 ")
	require.NoError(t, err)
	assert.Equal(t, []room.Room{{Number: "C301", IsOccupied: false}}, s.Rooms)

	_, err = s.AddRoom("C301")
	assert.True(t, errors.Is(err, ErrConflict), "got %v", err)

	_, err = s.AddRoom("c-301")
	assert.Equal(t, KindInvalid, KindOf(err))

	_, err = s.AddRoom("   ")
	assert.Equal(t, KindInvalid, KindOf(err))
}

func TestEditRoomSameNumberIsNoOp(t *testing.T) {
	s := mustCheckIn(t, NewState("A101", "A102"), "Alice", "A101", "L1")
	before := s.Clone()

	// Holds even for an occupied room.
	next, err := s.EditRoom("A101", "a101")
	require.NoError(t, err)
	assert.True(t, reflect.DeepEqual(before, next))
}

func TestEditRoomRules(t *testing.T) {
	s := mustCheckIn(t, NewState("A101", "A102", "A103"), "Alice", "A101", "L1")

	_, err := s.EditRoom("A102", "A103")
	assert.Equal(t, KindConflict, KindOf(err))

	_, err = s.EditRoom("A101", "Z999")
	assert.Equal(t, KindInvalidState, KindOf(err))

	_, err = s.EditRoom("Q1", "Z999")
	assert.Equal(t, KindNotFound, KindOf(err))

	next, err := s.EditRoom("a102", "b205")
	require.NoError(t, err)
	assert.Equal(t, "B205", next.Rooms[1].Number, "rename keeps position")
	assert.Equal(t, "A102", s.Rooms[1].Number, "receiver untouched")
	assert.NoError(t, next.Check())
}

func TestDeleteRoomRules(t *testing.T) {
	s := mustCheckIn(t, NewState("A101", "A102"), "Alice", "A101", "L1")

	_, err := s.DeleteRoom("A101")
	assert.Equal(t, KindInvalidState, KindOf(err))

	_, err = s.DeleteRoom("X1")
	assert.Equal(t, KindNotFound, KindOf(err))

	next, err := s.DeleteRoom("a102")
	require.NoError(t, err)
	assert.Len(t, next.Rooms, 1)
	assert.Len(t, s.Rooms, 2)
}

func TestCheckInRules(t *testing.T) {
	s := NewState("A101", "A102")

	_, _, err := s.CheckIn(CheckInRequest{Name: "Bob", RoomNumber: "Z1", NumberOfDays: 2}, "L1", t0)
	assert.Equal(t, KindNotFound, KindOf(err))

	_, _, err = s.CheckIn(CheckInRequest{Name: "Bob", RoomNumber: "A101", NumberOfDays: 0}, "L1", t0)
	assert.Equal(t, KindInvalid, KindOf(err))

	_, _, err = s.CheckIn(CheckInRequest{Name: " ", RoomNumber: "A101", NumberOfDays: 2}, "L1", t0)
	assert.Equal(t, KindInvalid, KindOf(err))

	s, l, err := s.CheckIn(CheckInRequest{Name: " Bob ", ClassName: "Math", RoomNumber: "a101", NumberOfDays: 3}, "L1", t0)
	require.NoError(t, err)
	assert.Equal(t, lecturer.Lecturer{ID: "L1", Name: "Bob", ClassName: "Math", RoomNumber: "A101", NumberOfDays: 3, CheckInDate: t0}, l)
	assert.True(t, s.Rooms[0].IsOccupied)

	_, _, err = s.CheckIn(CheckInRequest{Name: "BOB", RoomNumber: "A102", NumberOfDays: 1}, "L2", t0)
	assert.Equal(t, KindConflict, KindOf(err))

	_, _, err = s.CheckIn(CheckInRequest{Name: "Carol", RoomNumber: "A101", NumberOfDays: 1}, "L2", t0)
	assert.Equal(t, KindInvalidState, KindOf(err))
}

func TestCheckOutVariants(t *testing.T) {
	s := mustCheckIn(t, NewState("A101", "A102"), "Alice", "A101", "L1")
	s = mustCheckIn(t, s, "Bob", "A102", "L2")

	byName, l, err := s.CheckOutByName("aLiCe")
	require.NoError(t, err)
	assert.Equal(t, "L1", l.ID)
	assert.False(t, byName.Rooms[0].IsOccupied)
	assert.NoError(t, byName.Check())

	byID, _, err := byName.CheckOutByID("L2")
	require.NoError(t, err)
	assert.Empty(t, byID.Lecturers)
	assert.False(t, byID.Rooms[1].IsOccupied)

	_, _, err = byID.CheckOutByID("L2")
	assert.Equal(t, KindNotFound, KindOf(err))
	_, _, err = byID.CheckOutByName("nobody")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestReassignToOwnRoomIsNoOp(t *testing.T) {
	s := mustCheckIn(t, NewState("A101", "A102"), "Alice", "A101", "L1")

	next, err := s.ReassignRoom("L1", "a101")
	require.NoError(t, err)
	assert.True(t, reflect.DeepEqual(s, next))
}

func TestReassignRules(t *testing.T) {
	s := mustCheckIn(t, NewState("A101", "A102"), "Alice", "A101", "L1")

	_, err := s.ReassignRoom("ghost", "A102")
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = s.ReassignRoom("L1", "Z9")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestCheckDetectsBrokenStates(t *testing.T) {
	cases := map[string]State{
		"flag without lecturer": {
			Rooms: []room.Room{{Number: "A101", IsOccupied: true}},
		},
		"lecturer without flag": {
			Rooms:     []room.Room{{Number: "A101"}},
			Lecturers: []lecturer.Lecturer{{ID: "1", Name: "a", RoomNumber: "A101", NumberOfDays: 1}},
		},
		"shared room": {
			Rooms: []room.Room{{Number: "A101", IsOccupied: true}},
			Lecturers: []lecturer.Lecturer{
				{ID: "1", Name: "a", RoomNumber: "A101", NumberOfDays: 1},
				{ID: "2", Name: "b", RoomNumber: "A101", NumberOfDays: 1},
			},
		},
		"names collide": {
			Rooms: []room.Room{{Number: "A101", IsOccupied: true}, {Number: "A102", IsOccupied: true}},
			Lecturers: []lecturer.Lecturer{
				{ID: "1", Name: "Ann", RoomNumber: "A101", NumberOfDays: 1},
				{ID: "2", Name: "ANN", RoomNumber: "A102", NumberOfDays: 1},
			},
		},
		"dangling room": {
			Lecturers: []lecturer.Lecturer{{ID: "1", Name: "a", RoomNumber: "A101", NumberOfDays: 1}},
		},
		"duplicate room": {
			Rooms: []room.Room{{Number: "A101"}, {Number: "A101"}},
		},
	}
	for name, s := range cases {
		if err := s.Check(); err == nil {
			t.Errorf("%s: expected invariant violation", name)
		}
	}

	if err := NewState("A101", "A102").Check(); err != nil {
		t.Errorf("fresh state should be consistent, got %v", err)
	}
}

// Random walk over every transition; each reachable state must satisfy the invariants.
func TestInvariantsHoldOverOperationSequence(t *testing.T) {
	s := NewState("A101", "A102", "B201")
	names := []string{"Ann", "ann", "Bob", "Cid", "bob"}
	numbers := []string{"A101", "a102", "B201", "C301", "Z"}

	id := 0
	for i := 0; i < 400; i++ {
		var next State
		var err error
		name := names[i%len(names)]
		number := numbers[(i/3)%len(numbers)]
		switch i % 6 {
		case 0:
			next, err = s.AddRoom(number)
		case 1:
			next, err = s.EditRoom(number, numbers[(i/7)%len(numbers)])
		case 2:
			next, err = s.DeleteRoom(number)
		case 3:
			id++
			next, _, err = s.CheckIn(CheckInRequest{Name: name, RoomNumber: number, NumberOfDays: 1 + i%4}, "L"+strings.Repeat("x", id), t0)
		case 4:
			next, _, err = s.CheckOutByName(name)
		case 5:
			if len(s.Lecturers) > 0 {
				next, err = s.ReassignRoom(s.Lecturers[0].ID, number)
			} else {
				next = s
			}
		}
		if err != nil {
			continue
		}
		require.NoError(t, next.Check(), "step %d", i)
		s = next
	}
}
