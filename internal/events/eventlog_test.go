package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLog_SequenceAndCursor(t *testing.T) {
	el := NewEventLog(8)
	assert.Equal(t, uint64(0), el.LastSeq())

	first := el.Append(Event{Type: EventTypeRoomAdded, TargetID: "A101"})
	el.Append(Event{Type: EventTypeCheckIn, TargetID: "L001"})

	assert.Equal(t, uint64(1), first.Seq)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.Timestamp.IsZero())
	assert.Equal(t, uint64(2), el.LastSeq())

	since := el.Since(first.Seq)
	require.Len(t, since, 1)
	assert.Equal(t, EventTypeCheckIn, since[0].Type)
	assert.Empty(t, el.Since(el.LastSeq()))
}

func TestEventLog_DropsOldestAtCapacity(t *testing.T) {
	el := NewEventLog(3)
	for i := 0; i < 5; i++ {
		el.Append(Event{Type: EventTypeRosterTick})
	}

	assert.Equal(t, 3, el.Len())
	assert.Equal(t, uint64(5), el.LastSeq())
	all := el.Since(0)
	require.Len(t, all, 3)
	assert.Equal(t, uint64(3), all[0].Seq, "sequence numbers survive eviction")
}

func TestEventLog_ByType(t *testing.T) {
	el := NewEventLog(0)
	el.Append(Event{Type: EventTypeCheckIn})
	el.Append(Event{Type: EventTypeStayExpiring})
	el.Append(Event{Type: EventTypeCheckIn})

	assert.Len(t, el.ByType(EventTypeCheckIn), 2)
	assert.Empty(t, el.ByType(EventTypeRoomDeleted))
}

func TestNotices(t *testing.T) {
	assert.Equal(t, SeveritySuccess, Success("Room added successfully").Severity)
	n := Failure("Room already exists")
	assert.Equal(t, SeverityError, n.Severity)
	assert.Equal(t, "Room already exists", n.Message)
}
