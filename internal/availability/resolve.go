// Package availability decides whether a restaurant is open right now.
package availability

import (
	"fmt"
	"strings"
	"time"

	"comptoir/internal/schedule"
)

// Mode is how a restaurant's open state is driven.
type Mode string

const (
	// ModeAlways ignores the schedule and is always open.
	ModeAlways Mode = "always"
	// ModeManual follows the operator's open flag.
	ModeManual Mode = "manual"
	// ModeAuto derives the state from the weekly schedule.
	ModeAuto Mode = "auto"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAlways, ModeManual, ModeAuto:
		return m, nil
	default:
		return "", fmt.Errorf("unknown availability mode %q, expected always, manual or auto", s)
	}
}

// State is the derived, never persisted availability of a restaurant.
type State struct {
	IsOpen bool `json:"is_open"`
	// NextOpenLabel is empty when no opening is projected.
	NextOpenLabel    string              `json:"next_open_label,omitempty"`
	NextOpenAt       *time.Time          `json:"next_open_at,omitempty"`
	CurrentCloseTime *schedule.TimeOfDay `json:"current_close_time,omitempty"`
	TodaySlots       []schedule.Slot     `json:"today_slots"`
}

// Resolve computes the availability state. A nil week means the restaurant
// has no schedule at all; auto mode then falls back to the manual flag.
func Resolve(mode Mode, manualOpen bool, week *schedule.WeeklySchedule, now time.Time) State {
	switch mode {
	case ModeAlways:
		return State{IsOpen: true}
	case ModeAuto:
		if week == nil {
			return State{IsOpen: manualOpen}
		}
		return resolveAuto(week, now)
	default:
		return State{IsOpen: manualOpen}
	}
}

func resolveAuto(week *schedule.WeeklySchedule, now time.Time) State {
	var st State
	current := schedule.Of(now)

	today := week.Day(now.Weekday())
	if today.Enabled() {
		st.TodaySlots = today.Slots
		for _, s := range today.Slots {
			if s.Contains(current) {
				return open(st, s.Close)
			}
		}
	}

	yesterday := week.Day((now.Weekday() + 6) % 7)
	for _, s := range yesterday.ActiveSlots() {
		if s.SpillsInto(current) {
			return open(st, s.Close)
		}
	}

	if today.Enabled() {
		if next, ok := firstOpening(today.Slots, current); ok {
			at := next.On(now)
			st.NextOpenLabel = "Today at " + next.String()
			st.NextOpenAt = &at
			return st
		}
	}

	for i := 1; i <= 7; i++ {
		date := now.AddDate(0, 0, i)
		day := week.Day(date.Weekday())
		if !day.Enabled() {
			continue
		}
		first, _ := firstOpening(day.Slots, -1)
		at := first.On(date)
		st.NextOpenLabel = fmt.Sprintf("%s at %s", schedule.DayName(date.Weekday(), schedule.English), first)
		st.NextOpenAt = &at
		return st
	}
	return st
}

func open(st State, closeAt schedule.TimeOfDay) State {
	st.IsOpen = true
	st.CurrentCloseTime = &closeAt
	return st
}

// firstOpening returns the earliest slot opening strictly after current.
func firstOpening(slots []schedule.Slot, current schedule.TimeOfDay) (schedule.TimeOfDay, bool) {
	var best schedule.TimeOfDay
	found := false
	for _, s := range slots {
		if s.Open > current && (!found || s.Open < best) {
			best = s.Open
			found = true
		}
	}
	return best, found
}
