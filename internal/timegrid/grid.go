// Package timegrid models a salon day as a sequence of fixed-width slots and
// converts between wall-clock "HH:MM" strings and minutes since midnight.
package timegrid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultStepMinutes is the grid granularity used when none is configured.
const DefaultStepMinutes = 30

// ErrInvalidTimeFormat reports a malformed wall-clock string. It is always a
// caller input error, never retried.
var ErrInvalidTimeFormat = errors.New("invalid time format")

// ToMinutes parses a 24-hour "HH:MM" string into minutes since midnight.
func ToMinutes(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || len(mm) != 2 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	return hour*60 + minute, nil
}

// ToTimeString renders minutes since midnight as zero-padded "HH:MM".
func ToTimeString(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// EnumerateSlots lists the start time of every grid slot covered by
// [startMinute, endMinute), stepping by stepMinutes. endMinute <= startMinute
// yields an empty result; validating that a duration is positive is the
// caller's job.
func EnumerateSlots(startMinute, endMinute, stepMinutes int) []string {
	if stepMinutes <= 0 {
		stepMinutes = DefaultStepMinutes
	}
	var slots []string
	for m := startMinute; m < endMinute; m += stepMinutes {
		slots = append(slots, ToTimeString(m))
	}
	return slots
}

// FloorToStep rounds minutes down to the nearest grid boundary.
func FloorToStep(minutes, stepMinutes int) int {
	if stepMinutes <= 0 {
		stepMinutes = DefaultStepMinutes
	}
	return minutes - minutes%stepMinutes
}

// CeilToStep rounds minutes up to the nearest grid boundary.
func CeilToStep(minutes, stepMinutes int) int {
	if stepMinutes <= 0 {
		stepMinutes = DefaultStepMinutes
	}
	if rem := minutes % stepMinutes; rem != 0 {
		return minutes + stepMinutes - rem
	}
	return minutes
}

// Grid describes the bookable portion of a day. Operating hours and
// granularity come from configuration, not constants.
type Grid struct {
	OpenMinute  int
	CloseMinute int
	StepMinutes int
}

// NewGrid builds a Grid from "HH:MM" operating hours.
func NewGrid(open, close string, stepMinutes int) (Grid, error) {
	openMin, err := ToMinutes(open)
	if err != nil {
		return Grid{}, fmt.Errorf("open time: %w", err)
	}
	closeMin, err := ToMinutes(close)
	if err != nil {
		return Grid{}, fmt.Errorf("close time: %w", err)
	}
	if closeMin <= openMin {
		return Grid{}, fmt.Errorf("close time %s must be after open time %s", close, open)
	}
	if stepMinutes <= 0 {
		stepMinutes = DefaultStepMinutes
	}
	return Grid{OpenMinute: openMin, CloseMinute: closeMin, StepMinutes: stepMinutes}, nil
}

// Slots enumerates every slot start of the operating window.
func (g Grid) Slots() []string {
	return EnumerateSlots(g.OpenMinute, g.CloseMinute, g.StepMinutes)
}

// Contains reports whether [startMinute, startMinute+duration) fits inside
// the operating window.
func (g Grid) Contains(startMinute, durationMinutes int) bool {
	return startMinute >= g.OpenMinute && startMinute+durationMinutes <= g.CloseMinute
}

// Aligned reports whether minutes sits exactly on the grid.
func (g Grid) Aligned(minutes int) bool {
	return minutes%g.StepMinutes == 0
}
