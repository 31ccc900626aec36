package network

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/LodgingDesk/server/internal/events"
)

// drain empties the broadcast queue without a running hub.
func drain(h *Hub) []Message {
	var out []Message
	for {
		select {
		case raw := <-h.broadcast:
			var m Message
			if err := json.Unmarshal(raw, &m); err == nil {
				out = append(out, m)
			}
		default:
			return out
		}
	}
}

func types(msgs []Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Type)
	}
	return out
}

func TestHub_DispatchBroadcastsEventsNoticeAndState(t *testing.T) {
	f := newFixture(t, "A101")
	_, err := f.store.AddRoom("A102")
	require.NoError(t, err)

	last := f.hub.dispatch(f.eventLog.Since(0), 0)
	assert.Equal(t, f.eventLog.LastSeq(), last)

	msgs := drain(f.hub)
	assert.Equal(t, []string{MsgTypeEvent, MsgTypeNotice, MsgTypeState}, types(msgs))

	n, ok := f.hub.Banner().Current()
	require.True(t, ok)
	assert.Equal(t, "Room added successfully", n.Message)

	// Nothing new: cursor holds, nothing is sent.
	assert.Equal(t, last, f.hub.dispatch(f.eventLog.Since(last), last))
	assert.Empty(t, drain(f.hub))
}

func TestHub_StayExpiringDoesNotResendState(t *testing.T) {
	f := newFixture(t, "A101")
	f.eventLog.Append(events.Event{
		Type:   events.EventTypeStayExpiring,
		Notice: events.Failure("Ann has 1 day left"),
	})

	f.hub.dispatch(f.eventLog.Since(0), 0)

	assert.Equal(t, []string{MsgTypeEvent, MsgTypeNotice}, types(drain(f.hub)))
}

func TestHub_RejectOnlyShowsFailures(t *testing.T) {
	f := newFixture(t, "A101")

	f.hub.Reject(Execute(f.store, Command{Type: CmdAddRoom, Number: "A102"}))
	_, ok := f.hub.Banner().Current()
	assert.False(t, ok, "a success is not a rejection")

	f.hub.Reject(Execute(f.store, Command{Type: CmdAddRoom, Number: "A102"}))
	n, ok := f.hub.Banner().Current()
	require.True(t, ok)
	assert.Equal(t, "Room already exists", n.Message)
}

func TestExecute_UnknownCommand(t *testing.T) {
	f := newFixture(t, "A101")

	res := Execute(f.store, Command{Type: "PAINT_ROOM"})
	assert.False(t, res.OK)
	assert.ErrorIs(t, res.Err, ErrUnknownCommand)
	assert.Equal(t, 400, StatusFor(res.Err))
	assert.Equal(t, events.SeverityError, res.Notice.Severity)
}

func TestExecute_CheckOutByNameOrID(t *testing.T) {
	f := newFixture(t, "A101", "A102")
	require.True(t, Execute(f.store, Command{Type: CmdCheckIn, Name: "Ann", RoomNumber: "A101", NumberOfDays: 2}).OK)
	require.True(t, Execute(f.store, Command{Type: CmdCheckIn, Name: "Bob", RoomNumber: "A102", NumberOfDays: 2}).OK)

	res := Execute(f.store, Command{Type: CmdCheckOut, Name: "ANN"})
	assert.True(t, res.OK)
	res = Execute(f.store, Command{Type: CmdCheckOut, LecturerID: "L002"})
	assert.True(t, res.OK)
	assert.Equal(t, "Lecturer successfully checked out", res.Notice.Message)

	assert.Empty(t, f.store.Lecturers())
}

func TestHub_ShutdownReleasesClientsAndRefusesCommands(t *testing.T) {
	f := newFixture(t, "A101")
	ctx, cancel := context.WithCancel(context.Background())
	go f.hub.Run(ctx)

	c := &Client{hub: f.hub, send: make(chan []byte, 8)}
	require.True(t, c.Register())
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-f.hub.Done():
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	assert.Equal(t, 0, f.hub.ClientCount())

	// The send channel is closed once the queued state message is read.
	for range c.send {
	}

	leaving := make(chan struct{})
	go func() {
		c.leave()
		assert.False(t, (&Client{hub: f.hub, send: make(chan []byte, 1)}).Register())
		close(leaving)
	}()
	select {
	case <-leaving:
	case <-time.After(time.Second):
		t.Fatal("unregister or register blocked after shutdown")
	}

	c.handleCommand(Command{Type: CmdCheckIn, Name: "Ann", RoomNumber: "A101", NumberOfDays: 2})
	assert.Empty(t, f.store.Lecturers(), "no command is applied after shutdown")
}
