package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Language selects a day-name vocabulary.
type Language string

const (
	English Language = "en"
	French  Language = "fr"
)

var dayNames = map[Language][7]string{
	English: {"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
	French:  {"Dimanche", "Lundi", "Mardi", "Mercredi", "Jeudi", "Vendredi", "Samedi"},
}

// MondayFirst is the display order used by operator screens.
var MondayFirst = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// DayName returns the capitalised name of d. Unknown languages fall back to English.
func DayName(d time.Weekday, lang Language) string {
	names, ok := dayNames[lang]
	if !ok {
		names = dayNames[English]
	}
	return names[int(d)%7]
}

// ParseDay matches a day name from any supported vocabulary, case-insensitively.
func ParseDay(name string) (time.Weekday, Language, bool) {
	name = strings.TrimSpace(name)
	for _, lang := range []Language{English, French} {
		for i, candidate := range dayNames[lang] {
			if strings.EqualFold(candidate, name) {
				return time.Weekday(i), lang, true
			}
		}
	}
	return 0, "", false
}

// ValidateDay converts an untrusted integer into a weekday.
func ValidateDay(n int) (time.Weekday, error) {
	if n < 0 || n > 6 {
		return 0, fmt.Errorf("%w: %d, must be 0-6 (0=Sunday)", ErrInvalidDay, n)
	}
	return time.Weekday(n), nil
}
