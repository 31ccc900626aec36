package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/MRamiBalles/LodgingDesk/server/internal/engine"
	"github.com/MRamiBalles/LodgingDesk/server/internal/events"
	"github.com/MRamiBalles/LodgingDesk/server/internal/platform/logger"
	"github.com/MRamiBalles/LodgingDesk/server/internal/platform/metrics"
)

// Message types pushed to WebSocket clients.
const (
	MsgTypeState  = "state"
	MsgTypeNotice = "notice"
	MsgTypeEvent  = "event"
	MsgTypeResult = "result"
)

// DefaultPollInterval is how often the hub checks the feed for new events.
const DefaultPollInterval = 200 * time.Millisecond

// Message is the envelope of everything written to a client.
type Message struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NoticePayload is the banner content; Notice is nil once dismissed.
type NoticePayload struct {
	Notice    *events.Notice `json:"notice"`
	ExpiresAt *time.Time     `json:"expiresAt,omitempty"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
	done       chan struct{} // closed once Run has returned

	// cmdMu lets shutdown wait for commands already being applied.
	cmdMu  sync.RWMutex
	closed bool

	store      *engine.Store
	banner     *Banner
	logger     *logger.Logger
	metrics    *metrics.Collector
	sendBuffer int
}

// NewHub initializes a new WebSocket Hub over store. The hub owns the banner;
// every banner change is broadcast as a notice message.
func NewHub(store *engine.Store, noticeTTL time.Duration, sendBuffer int, log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Discard()
	}
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	h := &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
		store:      store,
		logger:     log,
		metrics:    metrics.Get(),
		sendBuffer: sendBuffer,
	}
	h.banner = NewBanner(noticeTTL, h.broadcastNotice)
	return h
}

// Banner returns the notice banner.
func (h *Hub) Banner() *Banner {
	return h.banner
}

// Store returns the desk store the hub serves.
func (h *Hub) Store() *engine.Store {
	return h.store
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Done is closed after Run has returned and every client was disconnected.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
// On cancellation it stops accepting commands, closes every client connection
// and closes Done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			h.logger.Info("WebSocket Hub shutting down.")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.metrics.RecordWSConnection(1)
			h.logger.Info("New WebSocket client connected")
			h.sendTo(client, h.stateMessage())
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.metrics.RecordWSConnection(-1)
				h.logger.Info("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					h.metrics.RecordWSMessage(false)
				default:
					// Slow consumer; drop it rather than stall the desk.
					close(client.send)
					delete(h.clients, client)
					h.metrics.RecordWSConnection(-1)
					h.metrics.RecordWSError()
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) shutdown() {
	h.cmdMu.Lock()
	h.closed = true
	h.cmdMu.Unlock()

	h.banner.Stop()

	h.mu.Lock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		h.metrics.RecordWSConnection(-1)
	}
	h.mu.Unlock()
	close(h.done)
}

// execute applies cmd unless the hub has shut down.
func (h *Hub) execute(cmd Command) (Result, bool) {
	h.cmdMu.RLock()
	defer h.cmdMu.RUnlock()
	if h.closed {
		return Result{}, false
	}
	return Execute(h.store, cmd), true
}

// Broadcast serializes msg and queues it for every client.
// A full queue drops the message; the next state message supersedes it.
func (h *Hub) Broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Errorf("Failed to serialize %s message for WebSocket broadcast: %v", msg.Type, err)
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("Broadcast queue full, dropping " + msg.Type + " message")
	}
}

// BroadcastState pushes the current desk view to every client.
func (h *Hub) BroadcastState() {
	h.Broadcast(h.stateMessage())
}

// Reject shows the failure notice of a rejected operation. Rejections never
// reach the feed, so the command paths report them here.
func (h *Hub) Reject(res Result) {
	if res.OK || res.Notice == nil {
		return
	}
	h.banner.Show(*res.Notice)
}

func (h *Hub) stateMessage() Message {
	return Message{
		Type:      MsgTypeState,
		Timestamp: time.Now().Unix(),
		Payload:   h.store.View(),
	}
}

func (h *Hub) broadcastNotice(n *events.Notice, expires time.Time) {
	p := NoticePayload{Notice: n}
	if n != nil {
		p.ExpiresAt = &expires
	}
	h.Broadcast(Message{Type: MsgTypeNotice, Timestamp: time.Now().Unix(), Payload: p})
}

func (h *Hub) sendTo(c *Client, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Errorf("Failed to serialize %s message: %v", msg.Type, err)
		return
	}
	// The hub closes send under mu when it drops a client.
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- payload:
		h.metrics.RecordWSMessage(false)
	default:
		h.metrics.RecordWSError()
	}
}

// StartEventPoller spawns a goroutine that polls the feed and pushes new
// events to clients. Every notice carried by an event goes to the banner,
// and a batch containing desk changes is followed by one state message.
func (h *Hub) StartEventPoller(ctx context.Context, eventLog *events.EventLog, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	go func() {
		pollInterval := time.NewTicker(interval)
		defer pollInterval.Stop()

		lastSeq := eventLog.LastSeq()

		for {
			select {
			case <-ctx.Done():
				return
			case <-pollInterval.C:
				lastSeq = h.dispatch(eventLog.Since(lastSeq), lastSeq)
			}
		}
	}()
}

// dispatch forwards one batch of feed events and returns the new cursor.
func (h *Hub) dispatch(batch []events.Event, lastSeq uint64) uint64 {
	changed := false
	for _, event := range batch {
		e := event
		h.Broadcast(Message{Type: MsgTypeEvent, Timestamp: e.Timestamp.Unix(), Payload: e})
		if e.Notice != nil {
			h.banner.Show(*e.Notice)
		}
		if e.Type != events.EventTypeStayExpiring {
			changed = true
		}
		lastSeq = e.Seq
	}
	if changed {
		h.BroadcastState()
	}
	return lastSeq
}
