// Package room defines the domain entity for a lodging room.
// This package is PURE and must NOT import any infrastructure packages.
package room

import (
	"strings"
	"unicode"
)

// Bootstrap is the inventory used when no rooms snapshot exists yet.
var Bootstrap = []string{"A101", "A102", "B201", "B202"}

// Room represents a physical room a visiting lecturer can be assigned to.
type Room struct {
	Number     string `json:"number"`
	IsOccupied bool   `json:"isOccupied"`
}

// NewRoom creates a free room with a normalized number.
func NewRoom(number string) Room {
	return Room{
		Number:     NormalizeNumber(number),
		IsOccupied: false,
	}
}

// NormalizeNumber trims and upper-cases a room number.
// Every comparison and every stored number goes through here.
func NormalizeNumber(number string) string {
	return strings.ToUpper(strings.TrimSpace(number))
}

// ValidNumber reports whether a normalized number is non-empty and alphanumeric.
func ValidNumber(number string) bool {
	if number == "" {
		return false
	}
	for _, r := range number {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

// Occupy marks the room as taken. Returns false if it already was.
func (r *Room) Occupy() bool {
	if r.IsOccupied {
		return false
	}
	r.IsOccupied = true
	return true
}

// Vacate frees the room.
func (r *Room) Vacate() {
	r.IsOccupied = false
}
