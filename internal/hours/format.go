package hours

import (
	"strings"

	"comptoir/internal/schedule"
)

var closedWord = map[schedule.Language]string{
	schedule.English: "Closed",
	schedule.French:  "Fermé",
}

// FormatScheduleLines renders one line per day, Monday first, e.g.
// "Monday : 11:00-14:30, 17:30-22:30" or "Sunday : Closed".
func FormatScheduleLines(days [7]ParsedDay, lang schedule.Language) []string {
	closed, ok := closedWord[lang]
	if !ok {
		lang, closed = schedule.English, closedWord[schedule.English]
	}

	lines := make([]string, 0, len(days))
	for _, wd := range schedule.MondayFirst {
		day := days[wd]
		text := closed
		if day.Enabled && len(day.Slots) > 0 {
			parts := make([]string, len(day.Slots))
			for i, s := range day.Slots {
				parts[i] = s.String()
			}
			text = strings.Join(parts, ", ")
		}
		lines = append(lines, schedule.DayName(wd, lang)+" : "+text)
	}
	return lines
}

// ToWeekly converts parsed days into a stored schedule shape.
func ToWeekly(days [7]ParsedDay) schedule.WeeklySchedule {
	week := schedule.NewWeekly()
	for i, d := range days {
		week[i].IsOpen = d.Enabled && len(d.Slots) > 0
		week[i].Slots = append([]schedule.Slot(nil), d.Slots...)
	}
	week.Normalize()
	return week
}

// FromWeekly is the inverse of ToWeekly.
func FromWeekly(week schedule.WeeklySchedule) [7]ParsedDay {
	var days [7]ParsedDay
	for i, d := range week {
		days[i] = ParsedDay{Day: d.Day, Enabled: d.Enabled(), Slots: d.ActiveSlots()}
	}
	return days
}
