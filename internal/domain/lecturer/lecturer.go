// Package lecturer defines the core domain entity for a visiting lecturer.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package lecturer

import (
	"strings"
	"time"

	"github.com/MRamiBalles/LodgingDesk/server/internal/domain/rules"
)

// Lecturer represents a checked-in visitor occupying exactly one room.
type Lecturer struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ClassName    string    `json:"className"`
	RoomNumber   string    `json:"roomNumber"` // Room.Number of the occupied room
	NumberOfDays int       `json:"numberOfDays"`
	CheckInDate  time.Time `json:"checkInDate"`
}

// NewLecturer creates a lecturer record at check-in time.
// The name keeps the submitted casing; only surrounding whitespace is dropped.
func NewLecturer(id, name, className, roomNumber string, numberOfDays int, checkIn time.Time) Lecturer {
	return Lecturer{
		ID:           id,
		Name:         strings.TrimSpace(name),
		ClassName:    strings.TrimSpace(className),
		RoomNumber:   roomNumber,
		NumberOfDays: numberOfDays,
		CheckInDate:  checkIn,
	}
}

// HasName reports whether name matches this lecturer case-insensitively.
func (l Lecturer) HasName(name string) bool {
	return strings.EqualFold(l.Name, strings.TrimSpace(name))
}

// RemainingDays returns the planned stay minus the elapsed whole days at now.
func (l Lecturer) RemainingDays(now time.Time) int {
	return rules.RemainingDays(l.CheckInDate, l.NumberOfDays, now)
}
