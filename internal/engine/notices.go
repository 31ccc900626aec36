package engine

import "github.com/MRamiBalles/LodgingDesk/server/internal/events"

var successMessages = map[string]string{
	OpAddRoom:      "Room added successfully",
	OpEditRoom:     "Room updated successfully",
	OpDeleteRoom:   "Room deleted successfully",
	OpCheckIn:      "Lecturer successfully checked in",
	OpCheckOut:     "Lecturer successfully checked out",
	OpReassignRoom: "Room number updated successfully",
}

// SuccessMessage returns the notice text shown when op is applied.
func SuccessMessage(op string) string {
	if msg, ok := successMessages[op]; ok {
		return msg
	}
	return "Done"
}

// NoticeFor converts an operation outcome into the notice shown to the user.
func NoticeFor(op string, err error) *events.Notice {
	if err != nil {
		return events.Failure(MessageOf(err))
	}
	return events.Success(SuccessMessage(op))
}
