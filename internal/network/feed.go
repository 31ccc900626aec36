package network

import (
	"net/http"
	"strconv"
	"time"

	"github.com/MRamiBalles/LodgingDesk/server/internal/events"
	"github.com/MRamiBalles/LodgingDesk/server/internal/platform/logger"
)

// FeedHandler serves the recent window of the change feed so a display
// that missed WebSocket messages can catch up from its last Seq.
type FeedHandler struct {
	eventLog *events.EventLog
	logger   *logger.Logger
}

// NewFeedHandler creates a new feed handler.
func NewFeedHandler(el *events.EventLog, log *logger.Logger) *FeedHandler {
	return &FeedHandler{
		eventLog: el,
		logger:   log,
	}
}

// FeedResponse is the API response for the feed window.
type FeedResponse struct {
	Since       uint64         `json:"since"`
	LastSeq     uint64         `json:"lastSeq"`
	Truncated   bool           `json:"truncated"` // events after since already fell off the window
	FilteredBy  string         `json:"filteredBy,omitempty"`
	GeneratedAt string         `json:"generatedAt"`
	Events      []events.Event `json:"events"`
}

// HandleFeed returns the retained events after a cursor.
// GET /api/feed?since=N&type=CHECK_IN
func (fh *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			jsonError(w, "since must be a sequence number", http.StatusBadRequest)
			return
		}
		since = v
	}
	eventType := r.URL.Query().Get("type")

	window := fh.eventLog.Since(since)
	truncated := len(window) > 0 && window[0].Seq > since+1

	filtered := make([]events.Event, 0, len(window))
	for _, e := range window {
		if eventType != "" && string(e.Type) != eventType {
			continue
		}
		filtered = append(filtered, e)
	}

	response := FeedResponse{
		Since:       since,
		LastSeq:     fh.eventLog.LastSeq(),
		Truncated:   truncated,
		FilteredBy:  eventType,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      filtered,
	}

	jsonSuccess(w, response)
}
