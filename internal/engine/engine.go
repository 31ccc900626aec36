package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MRamiBalles/LodgingDesk/server/internal/domain/lecturer"
	"github.com/MRamiBalles/LodgingDesk/server/internal/domain/room"
	"github.com/MRamiBalles/LodgingDesk/server/internal/domain/rules"
	"github.com/MRamiBalles/LodgingDesk/server/internal/events"
	"github.com/MRamiBalles/LodgingDesk/server/internal/platform/logger"
	"github.com/MRamiBalles/LodgingDesk/server/internal/platform/metrics"
)

// Clock is the wall-clock source used for check-in dates and remaining days.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads time.Now.
var SystemClock Clock = ClockFunc(time.Now)

// Persister receives every state that results from a successful mutation.
// Persist must not block; the store holds its lock while calling it.
type Persister interface {
	Persist(state State)
}

// Option customizes a Store.
type Option func(*Store)

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithIDGenerator sets how lecturer ids are generated.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithPersister sets the snapshot mirror.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Store) { s.metrics = c }
}

// Store owns the current State and serializes every mutation behind one lock.
// Readers always observe a fully applied state.
type Store struct {
	mu    sync.Mutex
	state State

	clock     Clock
	newID     func() string
	persister Persister
	eventLog  *events.EventLog
	logger    *logger.Logger
	metrics   *metrics.Collector
}

// NewStore wraps an initial state.
func NewStore(initial State, eventLog *events.EventLog, log *logger.Logger, opts ...Option) *Store {
	if log == nil {
		log = logger.Discard()
	}
	s := &Store{
		state:    initial.Clone(),
		clock:    SystemClock,
		newID:    uuid.NewString,
		eventLog: eventLog,
		logger:   log,
		metrics:  metrics.Get(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddRoom adds a free room.
func (s *Store) AddRoom(number string) (room.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.state.AddRoom(number)
	if err != nil {
		return room.Room{}, s.fail(err)
	}
	r := next.Rooms[len(next.Rooms)-1]
	s.commit(OpAddRoom, next, events.Event{
		Type:     events.EventTypeRoomAdded,
		TargetID: r.Number,
		Payload:  r,
	})
	return r, nil
}

// RoomRename is the payload of a ROOM_RENAMED event.
type RoomRename struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// EditRoom renames a free room. Renaming a room to its own number is a no-op.
func (s *Store) EditRoom(oldNumber, newNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.state.EditRoom(oldNumber, newNumber)
	if err != nil {
		return s.fail(err)
	}
	from, to := room.NormalizeNumber(oldNumber), room.NormalizeNumber(newNumber)
	if from == to {
		s.recordOp(nil)
		return nil
	}
	s.commit(OpEditRoom, next, events.Event{
		Type:     events.EventTypeRoomRenamed,
		TargetID: to,
		Payload:  RoomRename{From: from, To: to},
	})
	return nil
}

// DeleteRoom removes a free room. An unknown number is a NotFound error.
func (s *Store) DeleteRoom(number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.state.DeleteRoom(number)
	if err != nil {
		return s.fail(err)
	}
	s.commit(OpDeleteRoom, next, events.Event{
		Type:     events.EventTypeRoomDeleted,
		TargetID: room.NormalizeNumber(number),
	})
	return nil
}

// CheckIn registers a lecturer in a free room.
func (s *Store) CheckIn(req CheckInRequest) (lecturer.Lecturer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, l, err := s.state.CheckIn(req, s.newID(), s.clock.Now())
	if err != nil {
		return lecturer.Lecturer{}, s.fail(err)
	}
	s.commit(OpCheckIn, next, events.Event{
		Type:     events.EventTypeCheckIn,
		ActorID:  l.ID,
		TargetID: l.RoomNumber,
		Payload:  l,
	})
	return l, nil
}

// CheckOutByName checks out the lecturer with a case-insensitively matching name.
func (s *Store) CheckOutByName(name string) (lecturer.Lecturer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, l, err := s.state.CheckOutByName(name)
	return s.checkedOut(next, l, err)
}

// CheckOutByID checks out the lecturer with the given id.
func (s *Store) CheckOutByID(id string) (lecturer.Lecturer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, l, err := s.state.CheckOutByID(id)
	return s.checkedOut(next, l, err)
}

func (s *Store) checkedOut(next State, l lecturer.Lecturer, err error) (lecturer.Lecturer, error) {
	if err != nil {
		return lecturer.Lecturer{}, s.fail(err)
	}
	s.commit(OpCheckOut, next, events.Event{
		Type:     events.EventTypeCheckOut,
		ActorID:  l.ID,
		TargetID: l.RoomNumber,
		Payload:  l,
	})
	return l, nil
}

// Reassignment is the payload of a ROOM_REASSIGNED event.
type Reassignment struct {
	LecturerID string `json:"lecturer_id"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// ReassignRoom moves a lecturer to another free room.
func (s *Store) ReassignRoom(lecturerID, newNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, _ := s.state.Lecturer(lecturerID)
	next, err := s.state.ReassignRoom(lecturerID, newNumber)
	if err != nil {
		return s.fail(err)
	}
	to := room.NormalizeNumber(newNumber)
	if prev.RoomNumber == to {
		s.recordOp(nil)
		return nil
	}
	s.commit(OpReassignRoom, next, events.Event{
		Type:     events.EventTypeRoomReassigned,
		ActorID:  lecturerID,
		TargetID: to,
		Payload:  Reassignment{LecturerID: lecturerID, From: prev.RoomNumber, To: to},
	})
	return nil
}

// commit swaps in the new state, mirrors it and announces the change. Caller holds mu.
func (s *Store) commit(op string, next State, event events.Event) {
	s.state = next
	if s.persister != nil {
		s.persister.Persist(next.Clone())
	}
	if s.eventLog != nil {
		event.Timestamp = s.clock.Now()
		event.Notice = events.Success(SuccessMessage(op))
		s.eventLog.Append(event)
	}
	s.recordOp(nil)
	s.logger.Event(string(event.Type), event.ActorID, "target "+event.TargetID)
}

func (s *Store) fail(err error) error {
	s.recordOp(err)
	s.logger.Warn("Rejected: " + err.Error())
	return err
}

func (s *Store) recordOp(err error) {
	if s.metrics != nil {
		s.metrics.RecordOp(string(KindOf(err)))
	}
}

// State returns a deep copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Rooms returns the room inventory in insertion order.
func (s *Store) Rooms() []room.Room {
	return s.State().Rooms
}

// Lecturers returns the checked-in lecturers in check-in order.
func (s *Store) Lecturers() []lecturer.Lecturer {
	return s.State().Lecturers
}

// Now reads the store clock.
func (s *Store) Now() time.Time {
	return s.clock.Now()
}

// RemainingDays computes the remaining stay of a planned visit at now.
func RemainingDays(checkInDate time.Time, numberOfDays int, now time.Time) int {
	return rules.RemainingDays(checkInDate, numberOfDays, now)
}

// RosterEntry is a lecturer with the derived remaining-days value.
type RosterEntry struct {
	lecturer.Lecturer
	RemainingDays int  `json:"remainingDays"`
	Urgent        bool `json:"urgent"`
}

// Roster projects the lecturers with their remaining days at now.
func (s *Store) Roster(now time.Time) []RosterEntry {
	return s.State().Roster(now)
}

// Occupancy summarizes the room inventory.
type Occupancy struct {
	Total    int `json:"total"`
	Occupied int `json:"occupied"`
	Free     int `json:"free"`
}

// Occupancy counts total, occupied and free rooms.
func (s *Store) Occupancy() Occupancy {
	return s.State().Occupancy()
}

// AvailableRooms lists the free rooms a lecturer can be checked into or moved to.
func (s *Store) AvailableRooms() []room.Room {
	return s.State().AvailableRooms()
}

// View is everything a desk display shows, read from one state.
type View struct {
	At             time.Time     `json:"at"`
	Rooms          []room.Room   `json:"rooms"`
	Lecturers      []RosterEntry `json:"lecturers"`
	Occupancy      Occupancy     `json:"occupancy"`
	AvailableRooms []room.Room   `json:"availableRooms"`
}

// View returns a consistent projection of the current state at the store clock.
func (s *Store) View() View {
	st := s.State()
	now := s.Now()
	return View{
		At:             now,
		Rooms:          st.Rooms,
		Lecturers:      st.Roster(now),
		Occupancy:      st.Occupancy(),
		AvailableRooms: st.AvailableRooms(),
	}
}
