// Package broker relays desk feed events to a NATS server for other consumers.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/MRamiBalles/LodgingDesk/server/internal/events"
	"github.com/MRamiBalles/LodgingDesk/server/internal/platform/logger"
)

// SubjectPrefix is prepended to the lower-cased event type.
const SubjectPrefix = "lodging."

// Publisher is the part of a broker connection the relay needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NatsBroker wraps a NATS connection.
type NatsBroker struct {
	conn *nats.Conn
}

// Connect opens a NATS connection that reconnects on its own.
func Connect(url string) (*NatsBroker, error) {
	conn, err := nats.Connect(url,
		nats.Name("lodging-desk"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return &NatsBroker{conn: conn}, nil
}

// Publish publishes a message on a subject.
func (b *NatsBroker) Publish(subject string, data []byte) error {
	return b.conn.Publish(subject, data)
}

// Close drains pending messages and closes the connection.
func (b *NatsBroker) Close() error {
	return b.conn.Drain()
}

// Subject returns the subject an event type is published on.
func Subject(t events.EventType) string {
	return SubjectPrefix + strings.ToLower(string(t))
}

// Relay polls the feed and publishes every new event.
type Relay struct {
	pub      Publisher
	eventLog *events.EventLog
	logger   *logger.Logger
	interval time.Duration
	lastSeq  uint64
}

// NewRelay creates a relay starting after the newest event already in the feed.
func NewRelay(pub Publisher, eventLog *events.EventLog, log *logger.Logger, interval time.Duration) *Relay {
	if log == nil {
		log = logger.Discard()
	}
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &Relay{
		pub:      pub,
		eventLog: eventLog,
		logger:   log,
		interval: interval,
		lastSeq:  eventLog.LastSeq(),
	}
}

// Run publishes until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("NATS relay started")
	for {
		select {
		case <-ctx.Done():
			r.Forward()
			r.logger.Info("NATS relay stopped")
			return
		case <-ticker.C:
			r.Forward()
		}
	}
}

// Forward publishes the events appended since the last call and returns how
// many were published. A failed publish is logged and skipped; the feed is
// a notification stream, not a queue.
func (r *Relay) Forward() int {
	sent := 0
	for _, e := range r.eventLog.Since(r.lastSeq) {
		r.lastSeq = e.Seq
		data, err := json.Marshal(e)
		if err != nil {
			r.logger.Errorf("Failed to serialize %s event %d: %v", e.Type, e.Seq, err)
			continue
		}
		if err := r.pub.Publish(Subject(e.Type), data); err != nil {
			r.logger.Errorf("Failed to publish %s event %d: %v", e.Type, e.Seq, err)
			continue
		}
		sent++
	}
	return sent
}
