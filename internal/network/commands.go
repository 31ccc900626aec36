package network

import (
	"errors"

	"github.com/MRamiBalles/LodgingDesk/server/internal/engine"
	"github.com/MRamiBalles/LodgingDesk/server/internal/events"
)

// Command types accepted over the WebSocket and produced by the REST handlers.
const (
	CmdAddRoom      = "ADD_ROOM"
	CmdEditRoom     = "EDIT_ROOM"
	CmdDeleteRoom   = "DELETE_ROOM"
	CmdCheckIn      = "CHECK_IN"
	CmdCheckOut     = "CHECK_OUT"
	CmdReassignRoom = "REASSIGN_ROOM"
)

// ErrUnknownCommand is returned for a command type the desk does not handle.
var ErrUnknownCommand = errors.New("Unknown command")

// Command is one desk operation requested by a client.
type Command struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`

	// Rooms
	Number    string `json:"number,omitempty"`    // ADD_ROOM, DELETE_ROOM, EDIT_ROOM (current number)
	NewNumber string `json:"newNumber,omitempty"` // EDIT_ROOM

	// Lecturers
	LecturerID   string `json:"lecturerId,omitempty"` // CHECK_OUT by id, REASSIGN_ROOM
	Name         string `json:"name,omitempty"`       // CHECK_IN, CHECK_OUT by name
	ClassName    string `json:"className,omitempty"`
	RoomNumber   string `json:"roomNumber,omitempty"` // CHECK_IN, REASSIGN_ROOM
	NumberOfDays int    `json:"numberOfDays,omitempty"`
}

// Result is the outcome of a Command. Notice is always set.
type Result struct {
	RequestID string         `json:"requestId,omitempty"`
	Op        string         `json:"op"`
	OK        bool           `json:"ok"`
	Notice    *events.Notice `json:"notice"`
	Kind      engine.Kind    `json:"kind,omitempty"`
	Data      interface{}    `json:"data,omitempty"`
	Err       error          `json:"-"`
}

// Execute applies cmd to store and wraps the outcome with its notice.
func Execute(store *engine.Store, cmd Command) Result {
	var (
		op   string
		data interface{}
		err  error
	)

	switch cmd.Type {
	case CmdAddRoom:
		op = engine.OpAddRoom
		data, err = store.AddRoom(cmd.Number)
	case CmdEditRoom:
		op = engine.OpEditRoom
		err = store.EditRoom(cmd.Number, cmd.NewNumber)
	case CmdDeleteRoom:
		op = engine.OpDeleteRoom
		err = store.DeleteRoom(cmd.Number)
	case CmdCheckIn:
		op = engine.OpCheckIn
		data, err = store.CheckIn(engine.CheckInRequest{
			Name:         cmd.Name,
			ClassName:    cmd.ClassName,
			RoomNumber:   cmd.RoomNumber,
			NumberOfDays: cmd.NumberOfDays,
		})
	case CmdCheckOut:
		op = engine.OpCheckOut
		if cmd.LecturerID != "" {
			data, err = store.CheckOutByID(cmd.LecturerID)
		} else {
			data, err = store.CheckOutByName(cmd.Name)
		}
	case CmdReassignRoom:
		op = engine.OpReassignRoom
		err = store.ReassignRoom(cmd.LecturerID, cmd.RoomNumber)
	default:
		return Result{
			RequestID: cmd.RequestID,
			Op:        cmd.Type,
			Notice:    events.Failure(ErrUnknownCommand.Error()),
			Kind:      engine.KindInvalid,
			Err:       ErrUnknownCommand,
		}
	}

	res := Result{
		RequestID: cmd.RequestID,
		Op:        op,
		OK:        err == nil,
		Notice:    engine.NoticeFor(op, err),
		Kind:      engine.KindOf(err),
		Err:       err,
	}
	if err == nil {
		res.Data = data
	}
	return res
}
