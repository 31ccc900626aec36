package engine

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/LodgingDesk/server/internal/events"
	"github.com/MRamiBalles/LodgingDesk/server/internal/platform/logger"
	"github.com/MRamiBalles/LodgingDesk/server/internal/platform/metrics"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingPersister struct {
	mu     sync.Mutex
	states []State
}

func (p *recordingPersister) Persist(s State) {
	p.mu.Lock()
	p.states = append(p.states, s)
	p.mu.Unlock()
}

func (p *recordingPersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.states)
}

func sequentialIDs() func() string {
	var n int64
	return func() string {
		return fmt.Sprintf("L%03d", atomic.AddInt64(&n, 1))
	}
}

func newTestStore(clock Clock, p Persister, numbers ...string) (*Store, *events.EventLog) {
	el := events.NewEventLog(64)
	opts := []Option{
		WithClock(clock),
		WithIDGenerator(sequentialIDs()),
		WithMetrics(metrics.New()),
	}
	if p != nil {
		opts = append(opts, WithPersister(p))
	}
	return NewStore(NewState(numbers...), el, logger.Discard(), opts...), el
}

func TestScenarioA_DuplicateNameConflicts(t *testing.T) {
	store, _ := newTestStore(&manualClock{now: t0}, nil, "A101")

	_, err := store.CheckIn(CheckInRequest{Name: "Alice", ClassName: "CS101", RoomNumber: "A101", NumberOfDays: 5})
	require.NoError(t, err)

	r, ok := store.State().Room("A101")
	require.True(t, ok)
	assert.True(t, r.IsOccupied)

	_, err = store.CheckIn(CheckInRequest{Name: "Alice", ClassName: "CS102", RoomNumber: "A101", NumberOfDays: 1})
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestScenarioB_CheckOutFreesRoom(t *testing.T) {
	store, _ := newTestStore(&manualClock{now: t0}, nil, "A101")

	_, err := store.CheckIn(CheckInRequest{Name: "Bob", ClassName: "Math", RoomNumber: "A101", NumberOfDays: 3})
	require.NoError(t, err)
	_, err = store.CheckOutByName("Bob")
	require.NoError(t, err)

	assert.False(t, store.Rooms()[0].IsOccupied)
	assert.Empty(t, store.Lecturers())
}

func TestScenarioC_DeleteOccupiedRoomFails(t *testing.T) {
	store, _ := newTestStore(&manualClock{now: t0}, nil, "A101", "A102")
	_, err := store.CheckIn(CheckInRequest{Name: "Bob", RoomNumber: "A101", NumberOfDays: 3})
	require.NoError(t, err)
	before := store.Rooms()

	err = store.DeleteRoom("A101")
	assert.Equal(t, KindInvalidState, KindOf(err))
	assert.Equal(t, before, store.Rooms())
}

func TestScenarioD_Reassign(t *testing.T) {
	store, _ := newTestStore(&manualClock{now: t0}, nil, "A101", "A102", "A103")
	bob, err := store.CheckIn(CheckInRequest{Name: "Bob", RoomNumber: "A101", NumberOfDays: 3})
	require.NoError(t, err)
	_, err = store.CheckIn(CheckInRequest{Name: "Carol", RoomNumber: "A103", NumberOfDays: 3})
	require.NoError(t, err)

	require.NoError(t, store.ReassignRoom(bob.ID, "A102"))
	s := store.State()
	a101, _ := s.Room("A101")
	a102, _ := s.Room("A102")
	assert.False(t, a101.IsOccupied)
	assert.True(t, a102.IsOccupied)
	moved, _ := s.Lecturer(bob.ID)
	assert.Equal(t, "A102", moved.RoomNumber)

	err = store.ReassignRoom(bob.ID, "A103")
	assert.Equal(t, KindInvalidState, KindOf(err))
	assert.True(t, reflect.DeepEqual(s, store.State()), "failed reassign must not change flags")
}

func TestScenarioE_RemainingDays(t *testing.T) {
	now := t0
	assert.Equal(t, 1, RemainingDays(now.Add(-4*24*time.Hour), 5, now))
	assert.Equal(t, -1, RemainingDays(now.Add(-6*24*time.Hour), 5, now))
}

func TestFailedOperationsLeaveStateUntouched(t *testing.T) {
	p := &recordingPersister{}
	store, el := newTestStore(&manualClock{now: t0}, p, "A101", "A102")
	bob, err := store.CheckIn(CheckInRequest{Name: "Bob", RoomNumber: "A101", NumberOfDays: 3})
	require.NoError(t, err)

	before := store.State()
	saves, feed := p.count(), el.Len()

	failures := []error{
		func() error { _, err := store.AddRoom("a101"); return err }(),
		store.EditRoom("A101", "C1"),
		store.EditRoom("A102", "A101"),
		store.DeleteRoom("A101"),
		store.DeleteRoom("NOPE"),
		func() error { _, err := store.CheckIn(CheckInRequest{Name: "bob", RoomNumber: "A102", NumberOfDays: 1}); return err }(),
		func() error { _, err := store.CheckIn(CheckInRequest{Name: "Eve", RoomNumber: "A101", NumberOfDays: 1}); return err }(),
		func() error { _, err := store.CheckOutByID("missing"); return err }(),
		store.ReassignRoom(bob.ID, "Z1"),
	}
	for i, err := range failures {
		assert.Error(t, err, "case %d", i)
	}

	assert.True(t, reflect.DeepEqual(before, store.State()))
	assert.Equal(t, saves, p.count(), "failed operations must not be mirrored")
	assert.Equal(t, feed, el.Len(), "failed operations must not reach the feed")
}

func TestEverySuccessfulMutationIsMirroredAndAnnounced(t *testing.T) {
	p := &recordingPersister{}
	store, el := newTestStore(&manualClock{now: t0}, p, "A101")

	_, err := store.AddRoom("A102")
	require.NoError(t, err)
	require.NoError(t, store.EditRoom("A102", "B1"))
	bob, err := store.CheckIn(CheckInRequest{Name: "Bob", RoomNumber: "A101", NumberOfDays: 2})
	require.NoError(t, err)
	require.NoError(t, store.ReassignRoom(bob.ID, "B1"))
	_, err = store.CheckOutByID(bob.ID)
	require.NoError(t, err)
	require.NoError(t, store.DeleteRoom("B1"))

	// No-op successes are neither mirrored nor announced.
	require.NoError(t, store.EditRoom("A101", "A101"))

	require.Equal(t, 6, p.count())
	last := p.states[len(p.states)-1]
	assert.True(t, reflect.DeepEqual(store.State(), last))

	var types []events.EventType
	for _, e := range el.Since(0) {
		types = append(types, e.Type)
		require.NotNil(t, e.Notice)
		assert.Equal(t, events.SeveritySuccess, e.Notice.Severity)
	}
	assert.Equal(t, []events.EventType{
		events.EventTypeRoomAdded,
		events.EventTypeRoomRenamed,
		events.EventTypeCheckIn,
		events.EventTypeRoomReassigned,
		events.EventTypeCheckOut,
		events.EventTypeRoomDeleted,
	}, types)
}

func TestCheckInStampsClockAndID(t *testing.T) {
	clock := &manualClock{now: t0}
	store, _ := newTestStore(clock, nil, "A101")

	l, err := store.CheckIn(CheckInRequest{Name: "Ann", RoomNumber: "A101", NumberOfDays: 2})
	require.NoError(t, err)
	assert.Equal(t, "L001", l.ID)
	assert.Equal(t, t0, l.CheckInDate)
}

func TestConcurrentCheckInsIntoSameRoomSerialize(t *testing.T) {
	store, _ := newTestStore(&manualClock{now: t0}, nil, "A101")

	const n = 32
	var wg sync.WaitGroup
	var ok, invalidState int64
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.CheckIn(CheckInRequest{Name: fmt.Sprintf("L%d", i), RoomNumber: "A101", NumberOfDays: 1})
			switch KindOf(err) {
			case "":
				atomic.AddInt64(&ok, 1)
			case KindInvalidState:
				atomic.AddInt64(&invalidState, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), ok)
	assert.Equal(t, int64(n-1), invalidState)
	assert.NoError(t, store.State().Check())
}

func TestRosterAndProjections(t *testing.T) {
	clock := &manualClock{now: t0}
	store, _ := newTestStore(clock, nil, "A101", "A102", "B201")
	_, err := store.CheckIn(CheckInRequest{Name: "Ann", RoomNumber: "A101", NumberOfDays: 5})
	require.NoError(t, err)
	_, err = store.CheckIn(CheckInRequest{Name: "Bob", RoomNumber: "B201", NumberOfDays: 2})
	require.NoError(t, err)

	clock.Advance(36 * time.Hour)
	roster := store.Roster(clock.Now())
	require.Len(t, roster, 2)
	assert.Equal(t, 4, roster[0].RemainingDays)
	assert.False(t, roster[0].Urgent)
	assert.Equal(t, 1, roster[1].RemainingDays)
	assert.True(t, roster[1].Urgent)

	assert.Equal(t, Occupancy{Total: 3, Occupied: 2, Free: 1}, store.Occupancy())
	free := store.AvailableRooms()
	require.Len(t, free, 1)
	assert.Equal(t, "A102", free[0].Number)
}

func TestViewReadsOneState(t *testing.T) {
	clock := &manualClock{now: t0}
	store, _ := newTestStore(clock, nil, "A101", "A102")
	_, err := store.CheckIn(CheckInRequest{Name: "Ann", RoomNumber: "A102", NumberOfDays: 1})
	require.NoError(t, err)

	v := store.View()
	assert.Equal(t, t0, v.At)
	assert.Len(t, v.Rooms, 2)
	require.Len(t, v.Lecturers, 1)
	assert.True(t, v.Lecturers[0].Urgent)
	assert.Equal(t, Occupancy{Total: 2, Occupied: 1, Free: 1}, v.Occupancy)
	require.Len(t, v.AvailableRooms, 1)
	assert.Equal(t, "A101", v.AvailableRooms[0].Number)
}

func TestRejectionsAreCounted(t *testing.T) {
	m := metrics.New()
	store := NewStore(NewState("A101"), events.NewEventLog(8), logger.Discard(), WithMetrics(m))

	_, _ = store.AddRoom("A101")
	_ = store.DeleteRoom("B1")
	_, _ = store.AddRoom("A102")

	assert.Equal(t, int64(1), m.Rejections(string(KindConflict)))
	assert.Equal(t, int64(1), m.Rejections(string(KindNotFound)))
	assert.Equal(t, int64(1), m.OpsApplied)
}

func TestNoticeFor(t *testing.T) {
	n := NoticeFor(OpDeleteRoom, reject(OpDeleteRoom, KindInvalidState, "Cannot delete occupied room"))
	assert.Equal(t, events.Notice{Message: "Cannot delete occupied room", Severity: events.SeverityError}, *n)

	n = NoticeFor(OpCheckIn, nil)
	assert.Equal(t, events.Notice{Message: "Lecturer successfully checked in", Severity: events.SeveritySuccess}, *n)
}
