package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Slot is one opening interval. Close <= Open means the interval ends
// after midnight on the following calendar day.
type Slot struct {
	Open  TimeOfDay `json:"open" yaml:"open"`
	Close TimeOfDay `json:"close" yaml:"close"`
}

// ParseSlot parses "HH:MM-HH:MM".
func ParseSlot(s string) (Slot, error) {
	openRaw, closeRaw, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Slot{}, fmt.Errorf("%w: slot %q, expected HH:MM-HH:MM", ErrInvalidTime, s)
	}
	o, err := ParseTimeOfDay(openRaw)
	if err != nil {
		return Slot{}, err
	}
	c, err := ParseTimeOfDay(closeRaw)
	if err != nil {
		return Slot{}, err
	}
	return Slot{Open: o, Close: c}, nil
}

// Overnight reports whether the slot crosses midnight.
func (s Slot) Overnight() bool {
	return s.Close <= s.Open
}

// Duration is the length of the interval, accounting for midnight crossing.
func (s Slot) Duration() time.Duration {
	minutes := int(s.Close - s.Open)
	if s.Overnight() {
		minutes += MinutesPerDay
	}
	return time.Duration(minutes) * time.Minute
}

// Contains reports whether t falls in the part of the slot that lies on its opening day.
func (s Slot) Contains(t TimeOfDay) bool {
	if s.Overnight() {
		return t >= s.Open
	}
	return t >= s.Open && t < s.Close
}

// SpillsInto reports whether t falls in the after-midnight part of an overnight slot.
func (s Slot) SpillsInto(t TimeOfDay) bool {
	return s.Overnight() && t < s.Close
}

// String formats the slot as "HH:MM-HH:MM".
func (s Slot) String() string {
	return s.Open.String() + "-" + s.Close.String()
}

// DaySchedule is the opening configuration of one day of the week.
type DaySchedule struct {
	Day    time.Weekday `json:"day_of_week"`
	IsOpen bool         `json:"is_open"`
	Slots  []Slot       `json:"slots"`
}

// Enabled reports whether the day has at least one usable slot.
func (d DaySchedule) Enabled() bool {
	return d.IsOpen && len(d.Slots) > 0
}

// ActiveSlots returns the slots, or nil when the day is closed.
func (d DaySchedule) ActiveSlots() []Slot {
	if !d.IsOpen {
		return nil
	}
	return d.Slots
}

// WeeklySchedule holds one DaySchedule per weekday, indexed by time.Weekday (0=Sunday).
type WeeklySchedule [7]DaySchedule

// NewWeekly returns a schedule with every day closed.
func NewWeekly() WeeklySchedule {
	var w WeeklySchedule
	for i := range w {
		w[i] = DaySchedule{Day: time.Weekday(i)}
	}
	return w
}

// Day returns the schedule of d.
func (w *WeeklySchedule) Day(d time.Weekday) DaySchedule {
	return w[int(d)%7]
}

// Set replaces the schedule of day.Day.
func (w *WeeklySchedule) Set(day DaySchedule) {
	w[int(day.Day)%7] = day
}

// IsEmpty reports whether no day has a usable slot.
func (w *WeeklySchedule) IsEmpty() bool {
	for _, d := range w {
		if d.Enabled() {
			return false
		}
	}
	return true
}

// Normalize fixes day indexes and orders each day's slots by opening time.
func (w *WeeklySchedule) Normalize() {
	for i := range w {
		w[i].Day = time.Weekday(i)
		sort.SliceStable(w[i].Slots, func(a, b int) bool {
			return w[i].Slots[a].Open < w[i].Slots[b].Open
		})
	}
}

// Validate checks that every open day has ordered, non-overlapping slots,
// that only the last slot of a day crosses midnight and that an overnight
// slot does not run into the next day's first slot.
func (w *WeeklySchedule) Validate() error {
	for i, day := range w {
		if int(day.Day) != i {
			return fmt.Errorf("%w: day index %d holds day %d", ErrInvalidDay, i, day.Day)
		}
		slots := day.ActiveSlots()
		for j, s := range slots {
			if s.Open < 0 || s.Open >= MinutesPerDay || s.Close < 0 || s.Close >= MinutesPerDay {
				return fmt.Errorf("%s slot %d: %w", DayName(day.Day, English), j, ErrInvalidTime)
			}
			if j == 0 {
				continue
			}
			prev := slots[j-1]
			if prev.Overnight() || prev.Close > s.Open {
				return fmt.Errorf("%s: %s and %s: %w", DayName(day.Day, English), prev, s, ErrOverlap)
			}
		}
		if len(slots) == 0 {
			continue
		}
		last := slots[len(slots)-1]
		next := w[(i+1)%7]
		if last.Overnight() && next.Enabled() && last.Close > next.Slots[0].Open {
			return fmt.Errorf("%s: %s runs into %s %s: %w",
				DayName(day.Day, English), last, DayName(next.Day, English), next.Slots[0], ErrOverlap)
		}
	}
	return nil
}
