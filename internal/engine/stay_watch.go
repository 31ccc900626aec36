package engine

import (
	"strconv"
	"sync"

	"github.com/MRamiBalles/LodgingDesk/server/internal/events"
	"github.com/MRamiBalles/LodgingDesk/server/internal/platform/logger"
)

// StayExpiringPayload is attached to STAY_EXPIRING events.
type StayExpiringPayload struct {
	LecturerID    string `json:"lecturer_id"`
	Name          string `json:"name"`
	RoomNumber    string `json:"roomNumber"`
	RemainingDays int    `json:"remainingDays"`
}

// StayWatch flags lecturers whose stay is about to end or has ended.
// It listens to roster ticks and emits one STAY_EXPIRING event per lecturer
// for each distinct urgent remaining-days value.
type StayWatch struct {
	eventLog *events.EventLog
	logger   *logger.Logger

	mu       sync.Mutex
	notified map[string]int // lecturer id -> last remaining value announced
}

// NewStayWatch creates a new stay watcher.
func NewStayWatch(eventLog *events.EventLog, log *logger.Logger) *StayWatch {
	if log == nil {
		log = logger.Discard()
	}
	return &StayWatch{
		eventLog: eventLog,
		logger:   log,
		notified: make(map[string]int),
	}
}

// OnRosterTick checks every roster entry and announces new urgent values.
func (w *StayWatch) OnRosterTick(payload RosterTickPayload) {
	w.mu.Lock()
	defer w.mu.Unlock()

	active := make(map[string]bool, len(payload.Roster))
	for _, entry := range payload.Roster {
		active[entry.ID] = true
		if !entry.Urgent {
			continue
		}
		if last, ok := w.notified[entry.ID]; ok && last == entry.RemainingDays {
			continue
		}
		w.notified[entry.ID] = entry.RemainingDays
		w.emit(entry, payload)
	}

	// Checked-out lecturers are forgotten so a reused name starts clean.
	for id := range w.notified {
		if !active[id] {
			delete(w.notified, id)
		}
	}
}

func (w *StayWatch) emit(entry RosterEntry, payload RosterTickPayload) {
	msg := entry.Name + " has " + strconv.Itoa(entry.RemainingDays) + " day(s) left in room " + entry.RoomNumber
	w.logger.Warn("STAY EXPIRING: " + msg)
	w.eventLog.Append(events.Event{
		Timestamp: payload.At,
		Type:      events.EventTypeStayExpiring,
		ActorID:   "SYSTEM_STAY_WATCH",
		TargetID:  entry.ID,
		Payload: StayExpiringPayload{
			LecturerID:    entry.ID,
			Name:          entry.Name,
			RoomNumber:    entry.RoomNumber,
			RemainingDays: entry.RemainingDays,
		},
		Notice: events.Failure(msg),
	})
}
