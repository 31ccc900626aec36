package engine

import (
	"context"
	"strconv"
	"time"

	"github.com/MRamiBalles/LodgingDesk/server/internal/events"
	"github.com/MRamiBalles/LodgingDesk/server/internal/platform/logger"
)

// DefaultRefreshInterval matches how often the roster display re-renders.
const DefaultRefreshInterval = 1 * time.Minute

// RosterTickPayload is the data attached to each ROSTER_TICK event.
type RosterTickPayload struct {
	At        time.Time     `json:"at"`
	Roster    []RosterEntry `json:"roster"`
	Occupancy Occupancy     `json:"occupancy"`
}

// Ticker recomputes remaining days on a fixed period and publishes them.
// It only reads the Store; it never mutates occupancy.
type Ticker struct {
	store    *Store
	eventLog *events.EventLog
	logger   *logger.Logger
	watch    *StayWatch
	interval time.Duration
	stopChan chan struct{}
}

// NewTicker creates a roster refresh ticker.
func NewTicker(store *Store, eventLog *events.EventLog, log *logger.Logger, interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Ticker{
		store:    store,
		eventLog: eventLog,
		logger:   log,
		watch:    NewStayWatch(eventLog, log),
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the refresh loop. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Info("Roster ticker started, refreshing every " + t.interval.String())

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Roster ticker stopped by context.")
			return
		case <-t.stopChan:
			t.logger.Info("Roster ticker stopped manually.")
			return
		case <-ticker.C:
			t.Tick()
		}
	}
}

// Stop gracefully stops the ticker.
func (t *Ticker) Stop() {
	close(t.stopChan)
}

// Tick computes one roster projection, appends it to the feed and runs the stay watch.
func (t *Ticker) Tick() RosterTickPayload {
	now := t.store.Now()
	payload := RosterTickPayload{
		At:        now,
		Roster:    t.store.Roster(now),
		Occupancy: t.store.Occupancy(),
	}

	t.eventLog.Append(events.Event{
		Timestamp: now,
		Type:      events.EventTypeRosterTick,
		ActorID:   "SYSTEM_TICKER",
		Payload:   payload,
	})
	t.watch.OnRosterTick(payload)
	if t.store.metrics != nil {
		t.store.metrics.RecordTick()
	}

	t.logger.Event("ROSTER_TICK", "SYSTEM",
		strconv.Itoa(len(payload.Roster))+" lecturers, "+strconv.Itoa(payload.Occupancy.Free)+" free rooms")
	return payload
}
