package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MRamiBalles/LodgingDesk/server/internal/engine"
	"github.com/MRamiBalles/LodgingDesk/server/internal/infra/storage"
	"github.com/MRamiBalles/LodgingDesk/server/internal/platform/logger"
	"github.com/MRamiBalles/LodgingDesk/server/internal/platform/metrics"
)

const (
	DefaultRetries      = 3
	DefaultBackoff      = 200 * time.Millisecond
	DefaultWriteTimeout = 5 * time.Second
)

// Mirror implements engine.Persister. Persist only records the state; a
// single worker writes it. States queued while a write is in flight are
// coalesced so only the latest one reaches the store.
type Mirror struct {
	store   storage.SnapshotStore
	logger  *logger.Logger
	metrics *metrics.Collector

	retries      int
	backoff      time.Duration
	writeTimeout time.Duration

	mu      sync.Mutex
	pending *engine.State
	wake    chan struct{}

	writeMu sync.Mutex // serializes drains from Run and Flush
}

// MirrorOption customizes a Mirror.
type MirrorOption func(*Mirror)

// WithRetries sets how many times a failed write is retried.
func WithRetries(n int) MirrorOption {
	return func(m *Mirror) {
		if n >= 0 {
			m.retries = n
		}
	}
}

// WithBackoff sets the delay before the first retry. It doubles per attempt.
func WithBackoff(d time.Duration) MirrorOption {
	return func(m *Mirror) { m.backoff = d }
}

// WithMirrorMetrics sets the metrics collector.
func WithMirrorMetrics(c *metrics.Collector) MirrorOption {
	return func(m *Mirror) { m.metrics = c }
}

// NewMirror creates a mirror writing to store. Call Run to start the worker.
func NewMirror(store storage.SnapshotStore, log *logger.Logger, opts ...MirrorOption) *Mirror {
	if log == nil {
		log = logger.Discard()
	}
	m := &Mirror{
		store:        store,
		logger:       log,
		metrics:      metrics.Get(),
		retries:      DefaultRetries,
		backoff:      DefaultBackoff,
		writeTimeout: DefaultWriteTimeout,
		wake:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Persist queues state for writing and returns immediately.
func (m *Mirror) Persist(state engine.State) {
	m.mu.Lock()
	if m.pending != nil {
		m.metrics.RecordCoalesced()
	}
	m.pending = &state
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Pending reports whether a state is waiting to be written.
func (m *Mirror) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != nil
}

// Run writes queued states until ctx is cancelled.
func (m *Mirror) Run(ctx context.Context) {
	m.logger.Info("Snapshot mirror started")
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Snapshot mirror stopped")
			return
		case <-m.wake:
			m.drain(ctx)
		}
	}
}

// Flush writes pending states until none is left and returns the error of
// the last write. Used on shutdown after Run has stopped, so a retry dropped
// in favour of a newer state is picked up here rather than by the worker.
func (m *Mirror) Flush(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	var err error
	for {
		state := m.take()
		if state == nil {
			return err
		}
		err = m.write(ctx, *state)
	}
}

func (m *Mirror) take() *engine.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.pending
	m.pending = nil
	return s
}

func (m *Mirror) drain(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	state := m.take()
	if state == nil {
		return nil
	}
	return m.write(ctx, *state)
}

// write saves both slots, retrying with exponential backoff. A retry is
// abandoned as soon as a newer state is pending; that state supersedes it.
func (m *Mirror) write(ctx context.Context, state engine.State) error {
	batch, err := Encode(state)
	if err != nil {
		m.logger.Errorf("Snapshot encode failed: %v", err)
		return err
	}

	delay := m.backoff
	for attempt := 0; ; attempt++ {
		err = m.save(ctx, batch)
		if err == nil {
			return nil
		}
		if attempt >= m.retries {
			break
		}
		m.logger.Warn(fmt.Sprintf("Snapshot write attempt %d failed: %v", attempt+1, err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2

		if m.Pending() {
			m.logger.Info("Newer snapshot pending, dropping retry")
			return nil
		}
	}

	m.logger.Errorf("Snapshot write failed after %d attempts: %v", m.retries+1, err)
	return err
}

func (m *Mirror) save(ctx context.Context, batch []storage.SlotPayload) error {
	ctx, cancel := context.WithTimeout(ctx, m.writeTimeout)
	defer cancel()

	start := time.Now()
	err := storage.SaveAll(ctx, m.store, batch)
	m.metrics.RecordSnapshotWrite(time.Since(start), err)
	return err
}

var _ engine.Persister = (*Mirror)(nil)
