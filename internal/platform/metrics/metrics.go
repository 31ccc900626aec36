// Package metrics provides observability for the lodging desk.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers operation and persistence metrics.
type Collector struct {
	// Operation metrics
	OpsApplied  int64
	OpsRejected int64
	rejections  map[string]int64 // by error kind

	// Refresh metrics
	TickCount    int64
	LastTickTime time.Time

	// Snapshot metrics
	SnapshotWrites      int64
	SnapshotWriteLatSum int64 // nanoseconds
	SnapshotWriteLatMax int64
	SnapshotWriteErrors int64
	SnapshotsCoalesced  int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// New returns an empty collector.
func New() *Collector {
	return &Collector{
		StartTime:  time.Now(),
		rejections: make(map[string]int64),
	}
}

// Global collector instance
var collector = New()

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordOp records the outcome of one store operation.
// kind is empty for an applied operation.
func (c *Collector) RecordOp(kind string) {
	if kind == "" {
		atomic.AddInt64(&c.OpsApplied, 1)
		return
	}
	atomic.AddInt64(&c.OpsRejected, 1)
	c.mu.Lock()
	c.rejections[kind]++
	c.mu.Unlock()
}

// Rejections returns the rejection count for one error kind.
func (c *Collector) Rejections(kind string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rejections[kind]
}

// RecordTick records a roster refresh.
func (c *Collector) RecordTick() {
	atomic.AddInt64(&c.TickCount, 1)
	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordSnapshotWrite records one attempt to save both slots.
func (c *Collector) RecordSnapshotWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.SnapshotWrites, 1)
	atomic.AddInt64(&c.SnapshotWriteLatSum, int64(latency))

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.SnapshotWriteLatMax) {
		atomic.StoreInt64(&c.SnapshotWriteLatMax, int64(latency))
	}

	if err != nil {
		atomic.AddInt64(&c.SnapshotWriteErrors, 1)
	}
}

// RecordCoalesced records a pending snapshot replaced before it was written.
func (c *Collector) RecordCoalesced() {
	atomic.AddInt64(&c.SnapshotsCoalesced, 1)
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	writes := atomic.LoadInt64(&c.SnapshotWrites)
	var writeAvg float64
	if writes > 0 {
		writeAvg = float64(atomic.LoadInt64(&c.SnapshotWriteLatSum)) / float64(writes) / 1e6 // ms
	}

	rejections := make(map[string]int64, len(c.rejections))
	for k, v := range c.rejections {
		rejections[k] = v
	}

	lastTick := ""
	if !c.LastTickTime.IsZero() {
		lastTick = c.LastTickTime.Format(time.RFC3339)
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"ops": map[string]interface{}{
			"applied":    atomic.LoadInt64(&c.OpsApplied),
			"rejected":   atomic.LoadInt64(&c.OpsRejected),
			"rejections": rejections,
		},

		"refresh": map[string]interface{}{
			"ticks":     atomic.LoadInt64(&c.TickCount),
			"last_tick": lastTick,
		},

		"snapshots": map[string]interface{}{
			"written":          writes,
			"avg_write_lat_ms": writeAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.SnapshotWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.SnapshotWriteErrors),
			"coalesced":        atomic.LoadInt64(&c.SnapshotsCoalesced),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus text format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		fmt.Fprintf(w, "# HELP lodging_ops_applied Total applied operations\n")
		fmt.Fprintf(w, "# TYPE lodging_ops_applied counter\n")
		fmt.Fprintf(w, "lodging_ops_applied %d\n\n", atomic.LoadInt64(&c.OpsApplied))

		fmt.Fprintf(w, "# HELP lodging_ops_rejected Total rejected operations by kind\n")
		fmt.Fprintf(w, "# TYPE lodging_ops_rejected counter\n")
		c.mu.RLock()
		kinds := make([]string, 0, len(c.rejections))
		for k := range c.rejections {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(w, "lodging_ops_rejected{kind=%q} %d\n", k, c.rejections[k])
		}
		c.mu.RUnlock()
		fmt.Fprintln(w)

		fmt.Fprintf(w, "# HELP lodging_snapshot_writes Total snapshot writes\n")
		fmt.Fprintf(w, "# TYPE lodging_snapshot_writes counter\n")
		fmt.Fprintf(w, "lodging_snapshot_writes %d\n\n", atomic.LoadInt64(&c.SnapshotWrites))

		fmt.Fprintf(w, "# HELP lodging_snapshot_write_errors Total snapshot write errors\n")
		fmt.Fprintf(w, "# TYPE lodging_snapshot_write_errors counter\n")
		fmt.Fprintf(w, "lodging_snapshot_write_errors %d\n\n", atomic.LoadInt64(&c.SnapshotWriteErrors))

		fmt.Fprintf(w, "# HELP lodging_snapshot_write_latency_max_ms Maximum snapshot write latency\n")
		fmt.Fprintf(w, "# TYPE lodging_snapshot_write_latency_max_ms gauge\n")
		fmt.Fprintf(w, "lodging_snapshot_write_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.SnapshotWriteLatMax))/1e6)

		fmt.Fprintf(w, "# HELP lodging_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE lodging_ws_connections gauge\n")
		fmt.Fprintf(w, "lodging_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP lodging_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE lodging_ws_messages_total counter\n")
		fmt.Fprintf(w, "lodging_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "lodging_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}
