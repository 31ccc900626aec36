// Package rules contains the pure calculation logic for stays.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import "time"

// Day is the length of one lodging day.
const Day = 24 * time.Hour

// UrgentThreshold is the remaining-days value at or below which a stay is flagged.
const UrgentThreshold = 1

// ElapsedDays returns the whole days between checkIn and now, floored.
// A check-in in the future yields a negative count.
func ElapsedDays(checkIn, now time.Time) int {
	elapsed := now.Sub(checkIn)
	days := elapsed / Day
	if elapsed%Day < 0 {
		days--
	}
	return int(days)
}

// RemainingDays computes numberOfDays minus the elapsed whole days.
// The result is not clamped and goes negative on overstay.
func RemainingDays(checkIn time.Time, numberOfDays int, now time.Time) int {
	return numberOfDays - ElapsedDays(checkIn, now)
}

// IsUrgent reports whether a remaining-days value should be flagged.
func IsUrgent(remaining int) bool {
	return remaining <= UrgentThreshold
}
