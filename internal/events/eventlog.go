// Package events provides the change feed of the lodging desk.
// The feed is a bounded window of recent changes used to drive displays;
// it is not a history and is never persisted.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a feed event.
type EventType string

const (
	EventTypeRoomAdded      EventType = "ROOM_ADDED"
	EventTypeRoomRenamed    EventType = "ROOM_RENAMED"
	EventTypeRoomDeleted    EventType = "ROOM_DELETED"
	EventTypeCheckIn        EventType = "CHECK_IN"
	EventTypeCheckOut       EventType = "CHECK_OUT"
	EventTypeRoomReassigned EventType = "ROOM_REASSIGNED"
	EventTypeRosterTick     EventType = "ROSTER_TICK"
	EventTypeStayExpiring   EventType = "STAY_EXPIRING"
)

// DefaultCapacity is the number of events retained when none is given.
const DefaultCapacity = 256

// Event represents one change observed by the desk.
type Event struct {
	ID        string      `json:"id"`
	Seq       uint64      `json:"seq"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`  // Who performed the action
	TargetID  string      `json:"target_id"` // Room number or lecturer id affected
	Payload   interface{} `json:"payload"`   // Event-specific data
	Notice    *Notice     `json:"notice,omitempty"`
}

// EventLog is the in-memory, bounded, append-only change feed.
// Old events fall off the front once capacity is reached.
type EventLog struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
	nextSeq  uint64
}

// NewEventLog creates a feed holding at most capacity events.
func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &EventLog{
		events:   make([]Event, 0, capacity),
		capacity: capacity,
		nextSeq:  1,
	}
}

// Append stamps the event with a sequence number (and id/time when missing) and stores it.
func (el *EventLog) Append(event Event) Event {
	el.mu.Lock()
	defer el.mu.Unlock()

	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Seq = el.nextSeq
	el.nextSeq++

	if len(el.events) == el.capacity {
		copy(el.events, el.events[1:])
		el.events = el.events[:len(el.events)-1]
	}
	el.events = append(el.events, event)
	return event
}

// Since returns the retained events with Seq greater than after, oldest first.
// Pollers keep the Seq of the last event they saw and pass it back here.
func (el *EventLog) Since(after uint64) []Event {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []Event
	for _, e := range el.events {
		if e.Seq > after {
			result = append(result, e)
		}
	}
	return result
}

// ByType returns the retained events of one type.
func (el *EventLog) ByType(t EventType) []Event {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []Event
	for _, e := range el.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// Len returns the number of retained events.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}

// LastSeq returns the sequence number of the newest event, 0 if none.
func (el *EventLog) LastSeq() uint64 {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.nextSeq - 1
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
