package metrics

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordOp(t *testing.T) {
	c := New()
	c.RecordOp("")
	c.RecordOp("CONFLICT")
	c.RecordOp("CONFLICT")
	c.RecordOp("NOT_FOUND")

	assert.Equal(t, int64(1), c.OpsApplied)
	assert.Equal(t, int64(3), c.OpsRejected)
	assert.Equal(t, int64(2), c.Rejections("CONFLICT"))
	assert.Equal(t, int64(0), c.Rejections("INVALID"))
}

func TestCollector_SnapshotWrites(t *testing.T) {
	c := New()
	c.RecordSnapshotWrite(2*time.Millisecond, nil)
	c.RecordSnapshotWrite(4*time.Millisecond, errors.New("disk full"))
	c.RecordCoalesced()

	snap := c.Snapshot()["snapshots"].(map[string]interface{})
	assert.Equal(t, int64(2), snap["written"])
	assert.Equal(t, int64(1), snap["errors"])
	assert.Equal(t, int64(1), snap["coalesced"])
	assert.InDelta(t, 3.0, snap["avg_write_lat_ms"], 0.001)
	assert.InDelta(t, 4.0, snap["max_write_lat_ms"], 0.001)
}

func TestHandlers(t *testing.T) {
	c := New()
	c.RecordOp("INVALID_STATE")
	c.RecordWSConnection(1)

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "ops")

	rec = httptest.NewRecorder()
	c.PrometheusHandler()(rec, httptest.NewRequest("GET", "/metrics/prometheus", nil))
	out := rec.Body.String()
	assert.True(t, strings.Contains(out, `lodging_ops_rejected{kind="INVALID_STATE"} 1`), out)
	assert.Contains(t, out, "lodging_ws_connections 1")
}
